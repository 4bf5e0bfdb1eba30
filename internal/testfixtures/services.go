package testfixtures

import (
	"log/slog"
	"time"

	"github.com/example/lab-timetable/internal/application"
)

// ServiceFactory builds application services over a SQLiteHarness with
// deterministic session identifiers.
type ServiceFactory struct {
	Harness       *SQLiteHarness
	IDGenerator   *IDGenerator
	SemesterStart time.Time
	Logger        *slog.Logger
}

// ServiceFactoryOption configures a ServiceFactory.
type ServiceFactoryOption func(*ServiceFactory)

// NewServiceFactory returns a factory for harness using the fixture semester.
func NewServiceFactory(harness *SQLiteHarness, opts ...ServiceFactoryOption) *ServiceFactory {
	factory := &ServiceFactory{
		Harness:       harness,
		IDGenerator:   NewIDGenerator("session"),
		SemesterStart: SemesterStart,
	}
	for _, opt := range opts {
		opt(factory)
	}
	if factory.IDGenerator == nil {
		factory.IDGenerator = NewIDGenerator("session")
	}
	return factory
}

// WithIDGenerator overrides the session id generator.
func WithIDGenerator(generator *IDGenerator) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.IDGenerator = generator
	}
}

// WithSemesterStart overrides the semester start used for week numbers.
func WithSemesterStart(start time.Time) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.SemesterStart = start
	}
}

// WithLogger routes service logs to logger.
func WithLogger(logger *slog.Logger) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Logger = logger
	}
}

// Services groups the services built by a factory.
type Services struct {
	Rooms       *application.RoomService
	Rosters     *application.RosterService
	Overrides   *application.OverrideService
	Timetable   *application.TimetableService
	Utilization *application.UtilizationService
}

// Build wires every service against the harness repositories. Utilization
// summaries are not cached so reads always reflect the latest writes.
func (f *ServiceFactory) Build() Services {
	h := f.Harness
	rooms := application.NewRoomServiceWithLogger(h.Rooms, f.Logger)
	rosters := application.NewRosterServiceWithLogger(h.Rosters, f.Logger)
	overrides := application.NewOverrideServiceWithLogger(h.Overrides, f.Logger)
	return Services{
		Rooms:     rooms,
		Rosters:   rosters,
		Overrides: overrides,
		Timetable: application.NewTimetableServiceWithLogger(
			h.Sessions, rooms, rosters, overrides, f.SemesterStart, f.IDGenerator.NextFunc(), f.Logger),
		Utilization: application.NewUtilizationServiceWithLogger(rooms, h.Sessions, overrides, nil, f.Logger),
	}
}
