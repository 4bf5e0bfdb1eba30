package http

import (
	"context"
	"net/http"
)

type RouterConfig struct {
	Rooms       *RoomHandler
	Rosters     *RosterHandler
	Timetable   *TimetableHandler
	Calendar    *CalendarHandler
	Utilization *UtilizationHandler
	// Metrics serves the scrape endpoint, typically promhttp.Handler.
	Metrics http.Handler
	// Observer records per route latency; nil disables it.
	Observer RequestObserver
	// Health reports storage readiness for /healthz.
	Health     func(ctx context.Context) error
	Middleware []func(http.Handler) http.Handler
}

func NewRouter(cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()

	if cfg.Rooms != nil {
		mux.HandleFunc("GET /rooms", cfg.Rooms.List)
		mux.HandleFunc("PUT /rooms/{id}/capacity", cfg.Rooms.UpdateCapacity)
	}

	if cfg.Rosters != nil {
		mux.HandleFunc("GET /rosters", cfg.Rosters.List)
		mux.HandleFunc("POST /rosters", cfg.Rosters.Create)
		mux.HandleFunc("PUT /rosters/{id}", cfg.Rosters.Update)
		mux.HandleFunc("DELETE /rosters/{id}", cfg.Rosters.Delete)
		mux.HandleFunc("GET /rosters/headcount", cfg.Rosters.Headcount)
	}

	if cfg.Timetable != nil {
		mux.HandleFunc("GET /timetable/week", cfg.Timetable.Week)
		mux.HandleFunc("PUT /timetable/week", cfg.Timetable.ReplaceWeek)
		mux.HandleFunc("POST /timetable/import", cfg.Timetable.Import)
		mux.HandleFunc("DELETE /timetable", cfg.Timetable.Clear)
	}

	if cfg.Calendar != nil {
		mux.HandleFunc("GET /calendar/overrides", cfg.Calendar.List)
		mux.HandleFunc("PUT /calendar/overrides", cfg.Calendar.Set)
		mux.HandleFunc("DELETE /calendar/overrides/{date}", cfg.Calendar.Delete)
	}

	if cfg.Utilization != nil {
		mux.HandleFunc("GET /utilization", cfg.Utilization.Summary)
	}

	if cfg.Metrics != nil {
		mux.Handle("GET /metrics", cfg.Metrics)
	}

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		if cfg.Health != nil {
			if err := cfg.Health(r.Context()); err != nil {
				LoggerFromContext(r.Context()).WarnContext(r.Context(), "health check failed", "error", err)
				http.Error(w, "unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})

	handler := instrument(cfg.Observer, mux)
	for i := len(cfg.Middleware) - 1; i >= 0; i-- {
		if cfg.Middleware[i] != nil {
			handler = cfg.Middleware[i](handler)
		}
	}

	return handler
}
