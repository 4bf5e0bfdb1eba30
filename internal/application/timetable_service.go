package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/example/lab-timetable/internal/calendar"
	"github.com/example/lab-timetable/internal/persistence"
)

// DefaultDuration is the session length, in periods, used when none is given.
const DefaultDuration = 2

// SessionRepository captures the persistence operations needed by the timetable.
type SessionRepository interface {
	ReplaceRange(ctx context.Context, roomID int, from, to string, sessions []Session) error
	UpsertSession(ctx context.Context, session Session) (Session, bool, error)
	GetSessionAt(ctx context.Context, roomID int, date string, period int) (Session, error)
	ListSessions(ctx context.Context, filter SessionFilter) ([]Session, error)
	DeleteSessions(ctx context.Context, roomID *int) (int64, error)
}

// RoomDirectory exposes the room lookups the timetable depends on.
type RoomDirectory interface {
	Get(ctx context.Context, id int) (Room, error)
	ResolveIDByName(ctx context.Context, name string) (int, bool, error)
}

// HeadcountResolver turns a class name list into a total headcount.
type HeadcountResolver interface {
	ResolveTotalHeadcount(ctx context.Context, list string) (int, error)
}

// WorkdayCalendar reports which days in a range are teaching days.
type WorkdayCalendar interface {
	Workdays(ctx context.Context, from, to time.Time) (map[string]bool, error)
}

// TimetableMetrics receives write outcomes. Implementations must be safe for
// concurrent use.
type TimetableMetrics interface {
	ObserveRowWrite(operation, outcome string)
	ObserveWeekReplace(outcome string)
}

type noopTimetableMetrics struct{}

func (noopTimetableMetrics) ObserveRowWrite(string, string) {}
func (noopTimetableMetrics) ObserveWeekReplace(string)      {}

// TimetableService owns sessions and implements the whole-week replace and
// incremental upsert write paths plus the week grid read model.
type TimetableService struct {
	sessions      SessionRepository
	rooms         RoomDirectory
	rosters       HeadcountResolver
	workdays      WorkdayCalendar
	semesterStart time.Time
	idGenerator   func() string
	metrics       TimetableMetrics
	logger        *slog.Logger
}

// NewTimetableService wires dependencies for timetable operations.
func NewTimetableService(sessions SessionRepository, rooms RoomDirectory, rosters HeadcountResolver, workdays WorkdayCalendar, semesterStart time.Time, idGenerator func() string) *TimetableService {
	return NewTimetableServiceWithLogger(sessions, rooms, rosters, workdays, semesterStart, idGenerator, nil)
}

// NewTimetableServiceWithLogger wires dependencies with a specified logger.
func NewTimetableServiceWithLogger(sessions SessionRepository, rooms RoomDirectory, rosters HeadcountResolver, workdays WorkdayCalendar, semesterStart time.Time, idGenerator func() string, logger *slog.Logger) *TimetableService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	return &TimetableService{
		sessions:      sessions,
		rooms:         rooms,
		rosters:       rosters,
		workdays:      workdays,
		semesterStart: semesterStart,
		idGenerator:   idGenerator,
		metrics:       noopTimetableMetrics{},
		logger:        defaultLogger(logger),
	}
}

// SetMetrics installs a metrics sink. A nil sink disables metrics.
func (s *TimetableService) SetMetrics(metrics TimetableMetrics) {
	if metrics == nil {
		metrics = noopTimetableMetrics{}
	}
	s.metrics = metrics
}

func (s *TimetableService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "TimetableService", operation, attrs...)
}

func (s *TimetableService) ready() error {
	if s == nil {
		return fmt.Errorf("TimetableService is nil")
	}
	if s.sessions == nil {
		return fmt.Errorf("session repository not configured")
	}
	if s.rooms == nil {
		return fmt.Errorf("room directory not configured")
	}
	return nil
}

// ReplaceWeek destroys every session of roomID in the Monday to Sunday week
// containing anyDate and writes inputs in its place, as one transaction. All
// inputs are validated first; any failure rejects the whole week and nothing
// is written. New sessions always receive fresh ids.
func (s *TimetableService) ReplaceWeek(ctx context.Context, roomID int, anyDate string, inputs []SessionInput) (view WeekView, err error) {
	if err = s.ready(); err != nil {
		return WeekView{}, err
	}

	logger := s.loggerWith(ctx, "ReplaceWeek", "room_id", roomID, "date", anyDate, "session_count", len(inputs))
	defer func() {
		outcome := "success"
		if err != nil {
			outcome = ErrorKind(err)
		}
		s.metrics.ObserveWeekReplace(outcome)
		logResult(ctx, logger, err, "week replaced", "failed to replace week", "week_start", view.WeekStart)
	}()

	day, perr := calendar.ParseDate(anyDate)
	if perr != nil {
		vErr := &ValidationError{}
		vErr.add("date", "date must use YYYY-MM-DD")
		err = vErr
		return WeekView{}, err
	}

	room, err := s.resolveRoomByID(ctx, roomID)
	if err != nil {
		return WeekView{}, err
	}

	monday, sunday := calendar.WeekBounds(day)
	vErr := &ValidationError{}
	var missing []string
	seenSlots := make(map[string]int, len(inputs))
	sessions := make([]Session, 0, len(inputs))

	for i, input := range inputs {
		prefix := fmt.Sprintf("sessions[%d]", i)
		session, rowErr, resolveErr := s.buildSession(ctx, room, input)
		if resolveErr != nil {
			var refErr *UnresolvedReferenceError
			if !errors.As(resolveErr, &refErr) {
				err = resolveErr
				return WeekView{}, err
			}
			missing = append(missing, refErr.Names...)
		}
		vErr.merge(prefix, rowErr)
		if rowErr.HasErrors() || resolveErr != nil {
			continue
		}

		sessionDate, _ := calendar.ParseDate(session.Date)
		if !calendar.InWeek(sessionDate, monday) {
			vErr.add(prefix+".date", fmt.Sprintf("date must fall within the week %s to %s",
				calendar.FormatDate(monday), calendar.FormatDate(sunday)))
			continue
		}
		slot := slotKey(session.Date, session.Period)
		if first, dup := seenSlots[slot]; dup {
			vErr.add(prefix+".period", fmt.Sprintf("slot already used by sessions[%d]", first))
			continue
		}
		seenSlots[slot] = i

		session.ID = s.idGenerator()
		sessions = append(sessions, session)
	}

	if vErr.HasErrors() {
		err = vErr
		return WeekView{}, err
	}
	if len(missing) > 0 {
		err = &UnresolvedReferenceError{Kind: ReferenceClass, Field: "class_names", Names: uniqueNames(missing)}
		return WeekView{}, err
	}

	if err = s.sessions.ReplaceRange(ctx, roomID, calendar.FormatDate(monday), calendar.FormatDate(sunday), sessions); err != nil {
		err = mapSessionRepoError(err)
		return WeekView{}, err
	}

	return s.WeekView(ctx, roomID, anyDate)
}

// UpsertRows writes each row into its slot, updating an existing session in
// place or inserting a new one. Rows are independent: a rejected row is
// reported in the result and the remaining rows are still applied. In dry-run
// mode nothing is written and the result lists the writes that would happen.
func (s *TimetableService) UpsertRows(ctx context.Context, rows []RowInput, dryRun bool) (result UpsertResult, err error) {
	if err = s.ready(); err != nil {
		return UpsertResult{}, err
	}

	logger := s.loggerWith(ctx, "UpsertRows", "row_count", len(rows), "dry_run", dryRun)
	defer func() {
		logResult(ctx, logger, err, "rows upserted", "failed to upsert rows",
			"inserted", result.Inserted, "updated", result.Updated, "rejected", len(result.Errors))
	}()

	result = UpsertResult{DryRun: dryRun, Errors: []RowError{}, Rows: []RowWrite{}}
	planned := make(map[string]Session)
	operation := "upsert"
	if dryRun {
		operation = "upsert_dry_run"
	}

	for i, row := range rows {
		if cerr := ctx.Err(); cerr != nil {
			err = cerr
			return result, err
		}

		write, rowErrs := s.upsertRow(ctx, i, row, dryRun, planned)
		if len(rowErrs) > 0 {
			result.Errors = append(result.Errors, rowErrs...)
			s.metrics.ObserveRowWrite(operation, "rejected")
			continue
		}

		switch write.Action {
		case RowActionInsert:
			result.Inserted++
		case RowActionUpdate:
			result.Updated++
		}
		result.Rows = append(result.Rows, write)
		s.metrics.ObserveRowWrite(operation, string(write.Action))
	}
	return result, nil
}

func (s *TimetableService) upsertRow(ctx context.Context, index int, row RowInput, dryRun bool, planned map[string]Session) (RowWrite, []RowError) {
	room, rowErr := s.resolveRowRoom(ctx, index, row)
	if rowErr != nil {
		return RowWrite{}, []RowError{*rowErr}
	}

	session, vErr, resolveErr := s.buildSession(ctx, room, row.SessionInput)
	if vErr.HasErrors() {
		return RowWrite{}, validationRowErrors(index, vErr)
	}
	if resolveErr != nil {
		return RowWrite{}, []RowError{errorToRowError(index, resolveErr)}
	}

	if dryRun {
		slot := fmt.Sprintf("%d|%s", session.RoomID, slotKey(session.Date, session.Period))
		action := RowActionInsert
		if previous, ok := planned[slot]; ok {
			action = RowActionUpdate
			session.ID = previous.ID
			session.CreatedAt = previous.CreatedAt
		} else {
			existing, err := s.sessions.GetSessionAt(ctx, session.RoomID, session.Date, session.Period)
			switch {
			case err == nil:
				action = RowActionUpdate
				session.ID = existing.ID
				session.CreatedAt = existing.CreatedAt
			case errors.Is(mapSessionRepoError(err), ErrNotFound):
				session.ID = s.idGenerator()
			default:
				return RowWrite{}, []RowError{errorToRowError(index, mapSessionRepoError(err))}
			}
		}
		planned[slot] = session
		return RowWrite{Index: index, Action: action, Session: session}, nil
	}

	session.ID = s.idGenerator()
	stored, inserted, err := s.sessions.UpsertSession(ctx, session)
	if err != nil {
		return RowWrite{}, []RowError{errorToRowError(index, mapSessionRepoError(err))}
	}
	action := RowActionUpdate
	if inserted {
		action = RowActionInsert
	}
	return RowWrite{Index: index, Action: action, Session: stored}, nil
}

// resolveRowRoom resolves the room of an import row by id, or by name when no
// id is given.
func (s *TimetableService) resolveRowRoom(ctx context.Context, index int, row RowInput) (Room, *RowError) {
	if row.RoomID != nil {
		room, err := s.rooms.Get(ctx, *row.RoomID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return Room{}, &RowError{
					Index:   index,
					Kind:    "unresolved_reference",
					Field:   "room_id",
					Message: "unknown room id",
					Names:   []string{strconv.Itoa(*row.RoomID)},
				}
			}
			rowErr := errorToRowError(index, err)
			return Room{}, &rowErr
		}
		return room, nil
	}

	name := strings.TrimSpace(row.RoomName)
	if name == "" {
		return Room{}, &RowError{Index: index, Kind: "validation", Field: "room", Message: "room id or room name is required"}
	}
	id, ok, err := s.rooms.ResolveIDByName(ctx, name)
	if err != nil {
		rowErr := errorToRowError(index, err)
		return Room{}, &rowErr
	}
	if !ok {
		return Room{}, &RowError{
			Index:   index,
			Kind:    "unresolved_reference",
			Field:   "room_name",
			Message: "unknown room name",
			Names:   []string{name},
		}
	}
	room, err := s.rooms.Get(ctx, id)
	if err != nil {
		rowErr := errorToRowError(index, err)
		return Room{}, &rowErr
	}
	return room, nil
}

func (s *TimetableService) resolveRoomByID(ctx context.Context, roomID int) (Room, error) {
	room, err := s.rooms.Get(ctx, roomID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Room{}, &UnresolvedReferenceError{Kind: ReferenceRoom, Field: "room_id", Names: []string{strconv.Itoa(roomID)}}
		}
		return Room{}, err
	}
	return room, nil
}

// buildSession validates input and derives the stored session fields. Field
// problems are returned as a ValidationError; an unknown class name is
// returned separately as the third value so callers can aggregate them.
func (s *TimetableService) buildSession(ctx context.Context, room Room, input SessionInput) (Session, *ValidationError, error) {
	vErr := &ValidationError{}

	date := strings.TrimSpace(input.Date)
	if _, err := calendar.ParseDate(date); err != nil {
		vErr.add("date", "date must use YYYY-MM-DD")
	}
	if !calendar.ValidPeriod(input.Period) {
		vErr.add("period", fmt.Sprintf("period must be between 1 and %d", calendar.MaxPeriod))
	}
	course := strings.TrimSpace(input.CourseName)
	if course == "" {
		vErr.add("course_name", "course name is required")
	}
	if input.Planned != nil && *input.Planned < 0 {
		vErr.add("planned", "planned must not be negative")
	}
	if input.Capacity != nil && *input.Capacity < 0 {
		vErr.add("capacity", "capacity must not be negative")
	}
	if input.Duration != nil && *input.Duration < 1 {
		vErr.add("duration", "duration must be at least 1")
	}
	if vErr.HasErrors() {
		return Session{}, vErr, nil
	}

	classNames := normalizeOptionalString(input.ClassNames)

	// An explicit planned value wins; the class list is then only metadata.
	planned := 0
	if input.Planned != nil {
		planned = *input.Planned
	} else if classNames != nil {
		resolved, err := s.resolveHeadcount(ctx, *classNames)
		if err != nil {
			return Session{}, vErr, err
		}
		planned = resolved
	}

	capacity := room.Capacity
	if input.Capacity != nil {
		capacity = *input.Capacity
	}
	duration := DefaultDuration
	if input.Duration != nil {
		duration = *input.Duration
	}

	return Session{
		RoomID:        room.ID,
		Date:          date,
		Period:        input.Period,
		CourseName:    course,
		TeacherName:   strings.TrimSpace(input.TeacherName),
		Content:       normalizeOptionalString(input.Content),
		Planned:       planned,
		Capacity:      capacity,
		AllowOverflow: planned < capacity,
		Duration:      duration,
		ClassNames:    classNames,
	}, vErr, nil
}

func (s *TimetableService) resolveHeadcount(ctx context.Context, list string) (int, error) {
	if s.rosters == nil {
		names := SplitClassNames(list)
		if len(names) == 0 {
			return 0, nil
		}
		return 0, &UnresolvedReferenceError{Kind: ReferenceClass, Field: "class_names", Names: uniqueNames(names)}
	}
	return s.rosters.ResolveTotalHeadcount(ctx, list)
}

// WeekView assembles the 7x8 grid of roomID for the week containing anyDate.
// Every slot is present; empty slots carry a nil Session.
func (s *TimetableService) WeekView(ctx context.Context, roomID int, anyDate string) (WeekView, error) {
	if err := s.ready(); err != nil {
		return WeekView{}, err
	}

	day, err := calendar.ParseDate(anyDate)
	if err != nil {
		vErr := &ValidationError{}
		vErr.add("date", "date must use YYYY-MM-DD")
		return WeekView{}, vErr
	}
	room, err := s.rooms.Get(ctx, roomID)
	if err != nil {
		return WeekView{}, err
	}

	monday, sunday := calendar.WeekBounds(day)
	from, to := calendar.FormatDate(monday), calendar.FormatDate(sunday)

	stored, err := s.sessions.ListSessions(ctx, SessionFilter{RoomID: &roomID, From: from, To: to})
	if err != nil {
		return WeekView{}, mapSessionRepoError(err)
	}
	bySlot := make(map[string]Session, len(stored))
	for _, session := range stored {
		bySlot[slotKey(session.Date, session.Period)] = session
	}

	workdays, err := s.workdaysIn(ctx, monday, sunday)
	if err != nil {
		return WeekView{}, err
	}

	view := WeekView{
		Room:      room,
		WeekStart: from,
		WeekEnd:   to,
		Days:      make([]DayView, 0, calendar.DaysPerWeek),
	}
	if !s.semesterStart.IsZero() {
		view.WeekNumber = calendar.WeekNumber(day, s.semesterStart)
		view.SemesterYear = calendar.SemesterYear(s.semesterStart)
	}

	for _, date := range calendar.WeekDates(day) {
		key := calendar.FormatDate(date)
		dayView := DayView{
			Date:     key,
			Weekday:  date.Weekday().String(),
			Workday:  workdays[key],
			Seasonal: calendar.IsSeasonalShift(date),
			Slots:    make([]SlotView, 0, calendar.MaxPeriod),
		}
		for _, window := range calendar.PeriodWindows(date) {
			slot := SlotView{Period: window.Period, Start: window.Start.String(), End: window.End.String()}
			if session, ok := bySlot[slotKey(key, window.Period)]; ok {
				slot.Session = &session
			}
			dayView.Slots = append(dayView.Slots, slot)
		}
		view.Days = append(view.Days, dayView)
	}
	return view, nil
}

func (s *TimetableService) workdaysIn(ctx context.Context, from, to time.Time) (map[string]bool, error) {
	if s.workdays != nil {
		return s.workdays.Workdays(ctx, from, to)
	}
	return weekdayDefaults(from, to), nil
}

// ClearRoom deletes every session of one room, or of all rooms when roomID is
// nil, and returns how many were removed.
func (s *TimetableService) ClearRoom(ctx context.Context, roomID *int) (deleted int64, err error) {
	if err = s.ready(); err != nil {
		return 0, err
	}

	scope := "all"
	if roomID != nil {
		scope = strconv.Itoa(*roomID)
	}
	logger := s.loggerWith(ctx, "ClearRoom", "room_scope", scope)
	defer func() {
		logResult(ctx, logger, err, "sessions cleared", "failed to clear sessions", "deleted", deleted)
	}()

	if roomID != nil {
		if _, err = s.rooms.Get(ctx, *roomID); err != nil {
			return 0, err
		}
	}
	deleted, err = s.sessions.DeleteSessions(ctx, roomID)
	if err != nil {
		err = mapSessionRepoError(err)
		return 0, err
	}
	return deleted, nil
}

func slotKey(date string, period int) string {
	return date + "#" + strconv.Itoa(period)
}

func validationRowErrors(index int, vErr *ValidationError) []RowError {
	fields := make([]string, 0, len(vErr.FieldErrors))
	for field := range vErr.FieldErrors {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	out := make([]RowError, 0, len(fields))
	for _, field := range fields {
		out = append(out, RowError{Index: index, Kind: "validation", Field: field, Message: vErr.FieldErrors[field]})
	}
	return out
}

func errorToRowError(index int, err error) RowError {
	var refErr *UnresolvedReferenceError
	if errors.As(err, &refErr) {
		return RowError{
			Index:   index,
			Kind:    "unresolved_reference",
			Field:   refErr.Field,
			Message: fmt.Sprintf("unknown %s", refErr.Kind),
			Names:   append([]string(nil), refErr.Names...),
		}
	}
	return RowError{Index: index, Kind: ErrorKind(err), Message: err.Error()}
}

func mapSessionRepoError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, persistence.ErrNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, persistence.ErrDuplicate) || errors.Is(err, persistence.ErrConstraintViolation) {
		return fmt.Errorf("%w: %v", ErrInvariantViolation, err)
	}
	return err
}
