package application

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/example/lab-timetable/internal/persistence"
)

var testNow = time.Date(2024, time.March, 1, 9, 0, 0, 0, time.UTC)

type memoryRooms struct {
	mu    sync.Mutex
	rooms map[int]Room
}

func newMemoryRooms(rooms ...Room) *memoryRooms {
	m := &memoryRooms{rooms: make(map[int]Room)}
	for _, r := range rooms {
		m.rooms[r.ID] = r
	}
	return m
}

func (m *memoryRooms) ListRooms(ctx context.Context) ([]Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Room, 0, len(m.rooms))
	for _, r := range m.rooms {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memoryRooms) GetRoom(ctx context.Context, id int) (Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rooms[id]
	if !ok {
		return Room{}, persistence.ErrNotFound
	}
	return r, nil
}

func (m *memoryRooms) GetRoomByName(ctx context.Context, name string) (Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rooms {
		if r.Name == name {
			return r, nil
		}
	}
	return Room{}, persistence.ErrNotFound
}

func (m *memoryRooms) UpdateRoomCapacity(ctx context.Context, id int, capacity int) (Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rooms[id]
	if !ok {
		return Room{}, persistence.ErrNotFound
	}
	r.Capacity = capacity
	m.rooms[id] = r
	return r, nil
}

func (m *memoryRooms) SeedRooms(ctx context.Context, rooms []Room) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, r := range rooms {
		if _, ok := m.rooms[r.ID]; ok {
			continue
		}
		m.rooms[r.ID] = r
		n++
	}
	return n, nil
}

type memoryRosters struct {
	mu      sync.Mutex
	nextID  int64
	rosters map[int64]ClassRoster
}

func newMemoryRosters(rosters ...ClassRoster) *memoryRosters {
	m := &memoryRosters{rosters: make(map[int64]ClassRoster)}
	for _, r := range rosters {
		_, _ = m.CreateRoster(context.Background(), r)
	}
	return m
}

func (m *memoryRosters) nameTaken(name string, except int64) bool {
	for id, r := range m.rosters {
		if r.Name == name && id != except {
			return true
		}
	}
	return false
}

func (m *memoryRosters) CreateRoster(ctx context.Context, roster ClassRoster) (ClassRoster, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.nameTaken(roster.Name, 0) {
		return ClassRoster{}, persistence.ErrDuplicate
	}
	m.nextID++
	roster.ID = m.nextID
	m.rosters[roster.ID] = roster
	return roster, nil
}

func (m *memoryRosters) UpdateRoster(ctx context.Context, roster ClassRoster) (ClassRoster, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rosters[roster.ID]; !ok {
		return ClassRoster{}, persistence.ErrNotFound
	}
	if m.nameTaken(roster.Name, roster.ID) {
		return ClassRoster{}, persistence.ErrDuplicate
	}
	m.rosters[roster.ID] = roster
	return roster, nil
}

func (m *memoryRosters) DeleteRoster(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rosters[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(m.rosters, id)
	return nil
}

func (m *memoryRosters) GetRoster(ctx context.Context, id int64) (ClassRoster, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rosters[id]
	if !ok {
		return ClassRoster{}, persistence.ErrNotFound
	}
	return r, nil
}

func (m *memoryRosters) GetRosterByName(ctx context.Context, name string) (ClassRoster, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rosters {
		if r.Name == name {
			return r, nil
		}
	}
	return ClassRoster{}, persistence.ErrNotFound
}

func (m *memoryRosters) ListRosters(ctx context.Context) ([]ClassRoster, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]ClassRoster, 0, len(m.rosters))
	for _, r := range m.rosters {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *memoryRosters) ListRostersByName(ctx context.Context, names []string) ([]ClassRoster, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[n] = true
	}
	var out []ClassRoster
	for _, r := range m.rosters {
		if want[r.Name] {
			out = append(out, r)
		}
	}
	return out, nil
}

type memorySessions struct {
	mu       sync.Mutex
	sessions map[string]Session
	writes   int
}

func newMemorySessions() *memorySessions {
	return &memorySessions{sessions: make(map[string]Session)}
}

func memoryKey(roomID int, date string, period int) string {
	return slotKey(date, period) + "@" + strconv.Itoa(roomID)
}

func (m *memorySessions) ReplaceRange(ctx context.Context, roomID int, from, to string, sessions []Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	next := make(map[string]Session, len(m.sessions))
	for k, s := range m.sessions {
		if s.RoomID == roomID && s.Date >= from && s.Date <= to {
			continue
		}
		next[k] = s
	}
	for _, s := range sessions {
		k := memoryKey(s.RoomID, s.Date, s.Period)
		if _, dup := next[k]; dup {
			return persistence.ErrDuplicate
		}
		s.CreatedAt, s.UpdatedAt = testNow, testNow
		next[k] = s
	}
	m.sessions = next
	m.writes++
	return nil
}

func (m *memorySessions) UpsertSession(ctx context.Context, session Session) (Session, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes++
	k := memoryKey(session.RoomID, session.Date, session.Period)
	if existing, ok := m.sessions[k]; ok {
		session.ID = existing.ID
		session.CreatedAt = existing.CreatedAt
		m.sessions[k] = session
		return session, false, nil
	}
	session.CreatedAt, session.UpdatedAt = testNow, testNow
	m.sessions[k] = session
	return session, true, nil
}

func (m *memorySessions) GetSessionAt(ctx context.Context, roomID int, date string, period int) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[memoryKey(roomID, date, period)]
	if !ok {
		return Session{}, persistence.ErrNotFound
	}
	return s, nil
}

func (m *memorySessions) ListSessions(ctx context.Context, filter SessionFilter) ([]Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Session
	for _, s := range m.sessions {
		if filter.RoomID != nil && s.RoomID != *filter.RoomID {
			continue
		}
		if filter.From != "" && s.Date < filter.From {
			continue
		}
		if filter.To != "" && s.Date > filter.To {
			continue
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		return out[i].Period < out[j].Period
	})
	return out, nil
}

func (m *memorySessions) DeleteSessions(ctx context.Context, roomID *int) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for k, s := range m.sessions {
		if roomID == nil || s.RoomID == *roomID {
			delete(m.sessions, k)
			n++
		}
	}
	return n, nil
}

func (m *memorySessions) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

type memoryOverrides struct {
	mu        sync.Mutex
	overrides map[string]CalendarOverride
}

func newMemoryOverrides() *memoryOverrides {
	return &memoryOverrides{overrides: make(map[string]CalendarOverride)}
}

func (m *memoryOverrides) UpsertOverride(ctx context.Context, o CalendarOverride) (CalendarOverride, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o.UpdatedAt = testNow
	m.overrides[o.Date] = o
	return o, nil
}

func (m *memoryOverrides) DeleteOverride(ctx context.Context, date string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.overrides[date]; !ok {
		return persistence.ErrNotFound
	}
	delete(m.overrides, date)
	return nil
}

func (m *memoryOverrides) ListOverrides(ctx context.Context, from, to string) ([]CalendarOverride, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []CalendarOverride
	for _, o := range m.overrides {
		if (from == "" || o.Date >= from) && (to == "" || o.Date <= to) {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}

type recordingMetrics struct {
	mu       sync.Mutex
	rows     map[string]int
	replaces map[string]int
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{rows: map[string]int{}, replaces: map[string]int{}}
}

func (r *recordingMetrics) ObserveRowWrite(operation, outcome string) {
	r.mu.Lock()
	r.rows[operation+"/"+outcome]++
	r.mu.Unlock()
}

func (r *recordingMetrics) ObserveWeekReplace(outcome string) {
	r.mu.Lock()
	r.replaces[outcome]++
	r.mu.Unlock()
}

func sequentialIDs(prefix string) func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return prefix + "-" + strconv.Itoa(n)
	}
}

func intPtr(v int) *int       { return &v }
func strPtr(v string) *string { return &v }
