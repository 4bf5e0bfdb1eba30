package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/lab-timetable/internal/calendar"
	"github.com/example/lab-timetable/internal/persistence"
)

// OverrideRepository captures the persistence operations needed by the service.
type OverrideRepository interface {
	UpsertOverride(ctx context.Context, override CalendarOverride) (CalendarOverride, error)
	DeleteOverride(ctx context.Context, date string) error
	ListOverrides(ctx context.Context, from, to string) ([]CalendarOverride, error)
}

// OverrideService stores per-date workday exceptions. Without an override,
// Monday to Friday are workdays and weekends are not.
type OverrideService struct {
	overrides OverrideRepository
	logger    *slog.Logger
}

// NewOverrideService constructs an override service with the provided dependencies.
func NewOverrideService(overrides OverrideRepository) *OverrideService {
	return NewOverrideServiceWithLogger(overrides, nil)
}

// NewOverrideServiceWithLogger constructs an override service with a specified logger.
func NewOverrideServiceWithLogger(overrides OverrideRepository, logger *slog.Logger) *OverrideService {
	return &OverrideService{overrides: overrides, logger: defaultLogger(logger)}
}

func (s *OverrideService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "OverrideService", operation, attrs...)
}

func (s *OverrideService) ready() error {
	if s == nil {
		return fmt.Errorf("OverrideService is nil")
	}
	if s.overrides == nil {
		return fmt.Errorf("override repository not configured")
	}
	return nil
}

// Set records kind for date, replacing any previous override.
func (s *OverrideService) Set(ctx context.Context, date string, kind OverrideKind, note *string) (override CalendarOverride, err error) {
	if err = s.ready(); err != nil {
		return CalendarOverride{}, err
	}

	logger := s.loggerWith(ctx, "Set", "date", date, "kind", string(kind))
	defer func() {
		logResult(ctx, logger, err, "calendar override set", "failed to set calendar override")
	}()

	vErr := &ValidationError{}
	if _, perr := calendar.ParseDate(date); perr != nil {
		vErr.add("date", "date must use YYYY-MM-DD")
	}
	if kind != OverrideWorkday && kind != OverrideOffday {
		vErr.add("kind", "kind must be workday or offday")
	}
	if vErr.HasErrors() {
		err = vErr
		return CalendarOverride{}, err
	}

	override, err = s.overrides.UpsertOverride(ctx, CalendarOverride{
		Date: date,
		Kind: kind,
		Note: normalizeOptionalString(note),
	})
	if err != nil {
		err = mapOverrideRepoError(err)
		return CalendarOverride{}, err
	}
	return override, nil
}

// Delete removes the override for date.
func (s *OverrideService) Delete(ctx context.Context, date string) (err error) {
	if err = s.ready(); err != nil {
		return err
	}

	logger := s.loggerWith(ctx, "Delete", "date", date)
	defer func() {
		logResult(ctx, logger, err, "calendar override deleted", "failed to delete calendar override")
	}()

	if _, perr := calendar.ParseDate(date); perr != nil {
		vErr := &ValidationError{}
		vErr.add("date", "date must use YYYY-MM-DD")
		err = vErr
		return err
	}
	if err = s.overrides.DeleteOverride(ctx, date); err != nil {
		err = mapOverrideRepoError(err)
	}
	return err
}

// List returns overrides within [from, to]. Empty bounds are open.
func (s *OverrideService) List(ctx context.Context, from, to string) ([]CalendarOverride, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if vErr := validateRange(from, to, true); vErr.HasErrors() {
		return nil, vErr
	}
	overrides, err := s.overrides.ListOverrides(ctx, from, to)
	if err != nil {
		return nil, mapOverrideRepoError(err)
	}
	if overrides == nil {
		overrides = []CalendarOverride{}
	}
	return overrides, nil
}

// IsWorkday reports whether date is a teaching day.
func (s *OverrideService) IsWorkday(ctx context.Context, date time.Time) (bool, error) {
	day := calendar.FormatDate(date)
	workdays, err := s.Workdays(ctx, date, date)
	if err != nil {
		return false, err
	}
	return workdays[day], nil
}

// Workdays returns the workday flag of every calendar day in [from, to],
// keyed by YYYY-MM-DD.
func (s *OverrideService) Workdays(ctx context.Context, from, to time.Time) (map[string]bool, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	start, end := calendar.StartOfDay(from), calendar.StartOfDay(to)
	overrides, err := s.overrides.ListOverrides(ctx, calendar.FormatDate(start), calendar.FormatDate(end))
	if err != nil {
		return nil, mapOverrideRepoError(err)
	}
	byDate := make(map[string]OverrideKind, len(overrides))
	for _, o := range overrides {
		byDate[o.Date] = o.Kind
	}

	workdays := make(map[string]bool)
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		key := calendar.FormatDate(day)
		switch byDate[key] {
		case OverrideWorkday:
			workdays[key] = true
		case OverrideOffday:
			workdays[key] = false
		default:
			workdays[key] = isWeekday(day)
		}
	}
	return workdays, nil
}

func isWeekday(day time.Time) bool {
	return day.Weekday() != time.Saturday && day.Weekday() != time.Sunday
}

// weekdayDefaults flags Monday to Friday in [from, to] as workdays.
func weekdayDefaults(from, to time.Time) map[string]bool {
	workdays := make(map[string]bool)
	end := calendar.StartOfDay(to)
	for day := calendar.StartOfDay(from); !day.After(end); day = day.AddDate(0, 0, 1) {
		workdays[calendar.FormatDate(day)] = isWeekday(day)
	}
	return workdays
}

// validateRange checks optional YYYY-MM-DD bounds and their order.
func validateRange(from, to string, optional bool) *ValidationError {
	vErr := &ValidationError{}
	var fromDate, toDate time.Time
	var err error
	if from != "" || !optional {
		if fromDate, err = calendar.ParseDate(from); err != nil {
			vErr.add("from", "from must use YYYY-MM-DD")
		}
	}
	if to != "" || !optional {
		if toDate, err = calendar.ParseDate(to); err != nil {
			vErr.add("to", "to must use YYYY-MM-DD")
		}
	}
	if !vErr.HasErrors() && from != "" && to != "" && toDate.Before(fromDate) {
		vErr.add("to", "to must not be before from")
	}
	return vErr
}

func mapOverrideRepoError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, persistence.ErrNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, persistence.ErrConstraintViolation) {
		vErr := &ValidationError{}
		vErr.add("kind", "kind must be workday or offday")
		return vErr
	}
	return err
}
