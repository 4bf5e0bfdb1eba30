package application

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/example/lab-timetable/internal/calendar"
)

// MaxUtilizationDays bounds the range of a single utilization query.
const MaxUtilizationDays = 366

// RoomLister lists the rooms a summary covers.
type RoomLister interface {
	List(ctx context.Context) ([]Room, error)
}

// SessionLister reads sessions for aggregation.
type SessionLister interface {
	ListSessions(ctx context.Context, filter SessionFilter) ([]Session, error)
}

// SummaryCache is a short-lived read-through cache for utilization summaries.
// Implementations treat backend failures as misses.
type SummaryCache interface {
	Get(ctx context.Context, key string) (UtilizationSummary, bool)
	Add(ctx context.Context, key string, value UtilizationSummary)
}

// UtilizationService aggregates stored sessions into per-room usage figures.
// It only reads; results may be up to one cache TTL stale.
type UtilizationService struct {
	rooms    RoomLister
	sessions SessionLister
	workdays WorkdayCalendar
	cache    SummaryCache
	logger   *slog.Logger
}

// NewUtilizationService constructs a utilization service. cache may be nil.
func NewUtilizationService(rooms RoomLister, sessions SessionLister, workdays WorkdayCalendar, cache SummaryCache) *UtilizationService {
	return NewUtilizationServiceWithLogger(rooms, sessions, workdays, cache, nil)
}

// NewUtilizationServiceWithLogger constructs a utilization service with a specified logger.
func NewUtilizationServiceWithLogger(rooms RoomLister, sessions SessionLister, workdays WorkdayCalendar, cache SummaryCache, logger *slog.Logger) *UtilizationService {
	return &UtilizationService{rooms: rooms, sessions: sessions, workdays: workdays, cache: cache, logger: defaultLogger(logger)}
}

func (s *UtilizationService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "UtilizationService", operation, attrs...)
}

// SummaryCacheKey renders the cache key for a query. Every parameter is part
// of the key.
func SummaryCacheKey(from, to string, roomID *int) string {
	room := "all"
	if roomID != nil {
		room = strconv.Itoa(*roomID)
	}
	return "utilization:" + from + ":" + to + ":" + room
}

// Summary returns utilization for [from, to], for one room or all rooms.
func (s *UtilizationService) Summary(ctx context.Context, from, to string, roomID *int) (summary UtilizationSummary, err error) {
	if s == nil {
		return UtilizationSummary{}, fmt.Errorf("UtilizationService is nil")
	}
	if s.rooms == nil || s.sessions == nil {
		return UtilizationSummary{}, fmt.Errorf("utilization dependencies not configured")
	}

	if vErr := validateRange(from, to, false); vErr.HasErrors() {
		return UtilizationSummary{}, vErr
	}
	start, _ := calendar.ParseDate(from)
	end, _ := calendar.ParseDate(to)
	if days := int(end.Sub(start).Hours()/24) + 1; days > MaxUtilizationDays {
		vErr := &ValidationError{}
		vErr.add("to", fmt.Sprintf("range must not exceed %d days", MaxUtilizationDays))
		return UtilizationSummary{}, vErr
	}

	key := SummaryCacheKey(from, to, roomID)
	if s.cache != nil {
		if cached, ok := s.cache.Get(ctx, key); ok {
			return cached, nil
		}
	}

	logger := s.loggerWith(ctx, "Summary", "from", from, "to", to)
	defer func() {
		logResult(ctx, logger, err, "utilization computed", "failed to compute utilization", "room_count", len(summary.Rooms))
	}()

	rooms, err := s.rooms.List(ctx)
	if err != nil {
		return UtilizationSummary{}, err
	}
	if roomID != nil {
		var selected []Room
		for _, room := range rooms {
			if room.ID == *roomID {
				selected = append(selected, room)
			}
		}
		if len(selected) == 0 {
			err = ErrNotFound
			return UtilizationSummary{}, err
		}
		rooms = selected
	}

	workdays, err := s.workdaysIn(ctx, start, end)
	if err != nil {
		return UtilizationSummary{}, err
	}
	workdayCount := 0
	for _, isWorkday := range workdays {
		if isWorkday {
			workdayCount++
		}
	}

	sessions, err := s.sessions.ListSessions(ctx, SessionFilter{RoomID: roomID, From: from, To: to})
	if err != nil {
		err = mapSessionRepoError(err)
		return UtilizationSummary{}, err
	}

	type usage struct{ occupied, planned int }
	byRoom := make(map[int]*usage, len(rooms))
	for _, session := range sessions {
		if !workdays[session.Date] {
			continue
		}
		u := byRoom[session.RoomID]
		if u == nil {
			u = &usage{}
			byRoom[session.RoomID] = u
		}
		u.occupied++
		u.planned += session.Planned
	}

	summary = UtilizationSummary{From: from, To: to, Rooms: make([]RoomUtilization, 0, len(rooms))}
	for _, room := range rooms {
		entry := RoomUtilization{
			RoomID:         room.ID,
			RoomName:       room.Name,
			Workdays:       workdayCount,
			AvailableSlots: workdayCount * calendar.MaxPeriod,
		}
		if u := byRoom[room.ID]; u != nil {
			entry.OccupiedSlots = u.occupied
			entry.PlannedHeadcount = u.planned
		}
		if entry.AvailableSlots > 0 {
			entry.Rate = float64(entry.OccupiedSlots) / float64(entry.AvailableSlots)
		}
		summary.Rooms = append(summary.Rooms, entry)
	}

	if s.cache != nil {
		s.cache.Add(ctx, key, summary)
	}
	return summary, nil
}

func (s *UtilizationService) workdaysIn(ctx context.Context, from, to time.Time) (map[string]bool, error) {
	if s.workdays != nil {
		return s.workdays.Workdays(ctx, from, to)
	}
	return weekdayDefaults(from, to), nil
}
