package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/example/lab-timetable/internal/persistence"
)

// RosterRepository captures the persistence operations needed by the service.
type RosterRepository interface {
	CreateRoster(ctx context.Context, roster ClassRoster) (ClassRoster, error)
	UpdateRoster(ctx context.Context, roster ClassRoster) (ClassRoster, error)
	DeleteRoster(ctx context.Context, id int64) error
	GetRoster(ctx context.Context, id int64) (ClassRoster, error)
	GetRosterByName(ctx context.Context, name string) (ClassRoster, error)
	ListRosters(ctx context.Context) ([]ClassRoster, error)
	ListRostersByName(ctx context.Context, names []string) ([]ClassRoster, error)
}

// RosterService is the registry of class rosters and resolves class name
// lists into headcounts.
type RosterService struct {
	rosters RosterRepository
	logger  *slog.Logger
}

// NewRosterService constructs a roster service with the provided dependencies.
func NewRosterService(rosters RosterRepository) *RosterService {
	return NewRosterServiceWithLogger(rosters, nil)
}

// NewRosterServiceWithLogger constructs a roster service with a specified logger.
func NewRosterServiceWithLogger(rosters RosterRepository, logger *slog.Logger) *RosterService {
	return &RosterService{rosters: rosters, logger: defaultLogger(logger)}
}

func (s *RosterService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "RosterService", operation, attrs...)
}

func (s *RosterService) ready() error {
	if s == nil {
		return fmt.Errorf("RosterService is nil")
	}
	if s.rosters == nil {
		return fmt.Errorf("roster repository not configured")
	}
	return nil
}

// SplitClassNames splits a class name list on ASCII commas, full-width commas
// and ideographic commas, trimming entries and dropping empty ones.
func SplitClassNames(list string) []string {
	fields := strings.FieldsFunc(list, func(r rune) bool {
		return r == ',' || r == '，' || r == '、'
	})
	names := make([]string, 0, len(fields))
	for _, field := range fields {
		if name := strings.TrimSpace(field); name != "" {
			names = append(names, name)
		}
	}
	return names
}

// FindByName returns the roster with the given name. The boolean is false when
// no such roster exists.
func (s *RosterService) FindByName(ctx context.Context, name string) (ClassRoster, bool, error) {
	if err := s.ready(); err != nil {
		return ClassRoster{}, false, err
	}
	roster, err := s.rosters.GetRosterByName(ctx, strings.TrimSpace(name))
	if err != nil {
		if err = mapRosterRepoError(err); errors.Is(err, ErrNotFound) {
			return ClassRoster{}, false, nil
		}
		return ClassRoster{}, false, err
	}
	return roster, true, nil
}

// ResolveTotalHeadcount sums the headcounts of every class in list. A name
// listed more than once is counted once. An empty list resolves to 0. When any
// name is unknown the result is an *UnresolvedReferenceError naming all of
// them and no partial sum is returned.
func (s *RosterService) ResolveTotalHeadcount(ctx context.Context, list string) (int, error) {
	names := uniqueNames(SplitClassNames(list))
	if len(names) == 0 {
		return 0, nil
	}
	if err := s.ready(); err != nil {
		return 0, err
	}

	rosters, err := s.rosters.ListRostersByName(ctx, names)
	if err != nil {
		return 0, mapRosterRepoError(err)
	}
	byName := make(map[string]int, len(rosters))
	for _, roster := range rosters {
		byName[roster.Name] = roster.Headcount
	}

	total := 0
	var missing []string
	for _, name := range names {
		headcount, ok := byName[name]
		if !ok {
			missing = append(missing, name)
			continue
		}
		total += headcount
	}
	if len(missing) > 0 {
		return 0, &UnresolvedReferenceError{Kind: ReferenceClass, Field: "class_names", Names: missing}
	}
	return total, nil
}

func uniqueNames(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := names[:0:0]
	for _, name := range names {
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}

// List returns all rosters ordered by name.
func (s *RosterService) List(ctx context.Context) ([]ClassRoster, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	rosters, err := s.rosters.ListRosters(ctx)
	if err != nil {
		return nil, mapRosterRepoError(err)
	}
	if rosters == nil {
		rosters = []ClassRoster{}
	}
	return rosters, nil
}

// Get returns a roster by id.
func (s *RosterService) Get(ctx context.Context, id int64) (ClassRoster, error) {
	if err := s.ready(); err != nil {
		return ClassRoster{}, err
	}
	roster, err := s.rosters.GetRoster(ctx, id)
	if err != nil {
		return ClassRoster{}, mapRosterRepoError(err)
	}
	return roster, nil
}

// Create validates input and persists a new roster.
func (s *RosterService) Create(ctx context.Context, input RosterInput) (roster ClassRoster, err error) {
	if err = s.ready(); err != nil {
		return ClassRoster{}, err
	}

	logger := s.loggerWith(ctx, "Create", "name", strings.TrimSpace(input.Name))
	defer func() {
		logResult(ctx, logger, err, "roster created", "failed to create roster", "roster_id", roster.ID)
	}()

	if vErr := validateRosterInput(input); vErr.HasErrors() {
		err = vErr
		return ClassRoster{}, err
	}

	roster, err = s.rosters.CreateRoster(ctx, ClassRoster{
		Name:      strings.TrimSpace(input.Name),
		Major:     normalizeOptionalString(input.Major),
		Headcount: input.Headcount,
	})
	if err != nil {
		err = mapRosterRepoError(err)
		return ClassRoster{}, err
	}
	return roster, nil
}

// Update replaces the fields of an existing roster. Renaming into a name that
// is already taken fails with ErrAlreadyExists.
func (s *RosterService) Update(ctx context.Context, id int64, input RosterInput) (roster ClassRoster, err error) {
	if err = s.ready(); err != nil {
		return ClassRoster{}, err
	}

	logger := s.loggerWith(ctx, "Update", "roster_id", id)
	defer func() {
		logResult(ctx, logger, err, "roster updated", "failed to update roster", "name", roster.Name)
	}()

	if vErr := validateRosterInput(input); vErr.HasErrors() {
		err = vErr
		return ClassRoster{}, err
	}

	roster, err = s.rosters.UpdateRoster(ctx, ClassRoster{
		ID:        id,
		Name:      strings.TrimSpace(input.Name),
		Major:     normalizeOptionalString(input.Major),
		Headcount: input.Headcount,
	})
	if err != nil {
		err = mapRosterRepoError(err)
		return ClassRoster{}, err
	}
	return roster, nil
}

// Delete removes a roster. Sessions written with its headcount keep it.
func (s *RosterService) Delete(ctx context.Context, id int64) (err error) {
	if err = s.ready(); err != nil {
		return err
	}

	logger := s.loggerWith(ctx, "Delete", "roster_id", id)
	defer func() {
		logResult(ctx, logger, err, "roster deleted", "failed to delete roster")
	}()

	if err = s.rosters.DeleteRoster(ctx, id); err != nil {
		err = mapRosterRepoError(err)
	}
	return err
}

func validateRosterInput(input RosterInput) *ValidationError {
	vErr := &ValidationError{}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		vErr.add("name", "name is required")
	} else if strings.ContainsAny(name, ",，、") {
		vErr.add("name", "name must not contain list delimiters")
	}
	if input.Headcount <= 0 {
		vErr.add("headcount", "headcount must be positive")
	}
	return vErr
}

func mapRosterRepoError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, persistence.ErrNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, persistence.ErrDuplicate) {
		return ErrAlreadyExists
	}
	if errors.Is(err, persistence.ErrConstraintViolation) {
		vErr := &ValidationError{}
		vErr.add("headcount", "headcount must be positive")
		return vErr
	}
	return err
}
