package testfixtures

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/example/lab-timetable/internal/bootstrap"
	"github.com/example/lab-timetable/internal/persistence/sqlite"
)

// SQLiteHarness exposes application facing repositories backed by a migrated
// temporary database file with the default rooms seeded.
type SQLiteHarness struct {
	Pool      *sqlite.ConnectionPool
	Clock     *Clock
	Rooms     *bootstrap.RoomRepositoryAdapter
	Rosters   *bootstrap.RosterRepositoryAdapter
	Sessions  *bootstrap.SessionRepositoryAdapter
	Overrides *bootstrap.OverrideRepositoryAdapter

	cleanup func()
}

// Close releases the database. It is also registered with tb.Cleanup.
func (h *SQLiteHarness) Close() {
	if h != nil && h.cleanup != nil {
		h.cleanup()
		h.cleanup = nil
	}
}

// NewSQLiteHarness opens, migrates and seeds a temporary database. Repository
// timestamps come from a clock that starts at ReferenceTime and advances one
// second per write.
func NewSQLiteHarness(tb testing.TB) *SQLiteHarness {
	tb.Helper()

	path := filepath.Join(tb.TempDir(), "timetable.db")
	pool, err := sqlite.Open(sqlite.TempFileTestConfig(path))
	if err != nil {
		tb.Fatalf("failed to open database: %v", err)
	}
	if _, err := pool.Migrate(nil); err != nil {
		_ = pool.Close()
		tb.Fatalf("failed to migrate database: %v", err)
	}

	clock := NewSteppingClock(ReferenceTime(), time.Second)
	pool.SetClock(clock.Now)

	rooms := sqlite.NewRoomRepository(pool)
	if _, err := rooms.SeedRooms(context.Background(), Rooms()); err != nil {
		_ = pool.Close()
		tb.Fatalf("failed to seed rooms: %v", err)
	}

	harness := &SQLiteHarness{
		Pool:      pool,
		Clock:     clock,
		Rooms:     bootstrap.NewRoomRepositoryAdapter(rooms),
		Rosters:   bootstrap.NewRosterRepositoryAdapter(sqlite.NewRosterRepository(pool)),
		Sessions:  bootstrap.NewSessionRepositoryAdapter(sqlite.NewSessionRepository(pool)),
		Overrides: bootstrap.NewOverrideRepositoryAdapter(sqlite.NewOverrideRepository(pool)),
		cleanup: func() {
			_ = pool.Close()
		},
	}

	tb.Cleanup(harness.Close)
	return harness
}
