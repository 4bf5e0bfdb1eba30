package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/lab-timetable/internal/application"
)

type stubRooms struct {
	rooms []application.Room
	err   error
	got   float64
}

func (s *stubRooms) List(context.Context) ([]application.Room, error) { return s.rooms, s.err }

func (s *stubRooms) UpdateCapacity(_ context.Context, id int, capacity float64) (application.Room, error) {
	s.got = capacity
	if s.err != nil {
		return application.Room{}, s.err
	}
	return application.Room{ID: id, Name: "Network Lab", Capacity: int(capacity)}, nil
}

type stubRosters struct {
	err error
}

func (s *stubRosters) List(context.Context) ([]application.ClassRoster, error) {
	return []application.ClassRoster{{ID: 1, Name: "A", Headcount: 10}}, s.err
}

func (s *stubRosters) Create(_ context.Context, input application.RosterInput) (application.ClassRoster, error) {
	if s.err != nil {
		return application.ClassRoster{}, s.err
	}
	return application.ClassRoster{ID: 7, Name: input.Name, Headcount: input.Headcount}, nil
}

func (s *stubRosters) Update(_ context.Context, id int64, input application.RosterInput) (application.ClassRoster, error) {
	if s.err != nil {
		return application.ClassRoster{}, s.err
	}
	return application.ClassRoster{ID: id, Name: input.Name, Headcount: input.Headcount}, nil
}

func (s *stubRosters) Delete(context.Context, int64) error { return s.err }

func (s *stubRosters) ResolveTotalHeadcount(_ context.Context, list string) (int, error) {
	if s.err != nil {
		return 0, s.err
	}
	return 10 * len(application.SplitClassNames(list)), nil
}

type stubTimetable struct {
	mu      sync.Mutex
	err     error
	records []map[string]any
	dryRun  bool
	inputs  []application.SessionInput
	cleared *int
}

func (s *stubTimetable) WeekView(_ context.Context, roomID int, anyDate string) (application.WeekView, error) {
	if s.err != nil {
		return application.WeekView{}, s.err
	}
	return application.WeekView{Room: application.Room{ID: roomID}, WeekStart: anyDate, WeekNumber: 2}, nil
}

func (s *stubTimetable) ReplaceWeek(_ context.Context, roomID int, anyDate string, inputs []application.SessionInput) (application.WeekView, error) {
	s.mu.Lock()
	s.inputs = inputs
	s.mu.Unlock()
	if s.err != nil {
		return application.WeekView{}, s.err
	}
	return application.WeekView{Room: application.Room{ID: roomID}, WeekStart: anyDate}, nil
}

func (s *stubTimetable) ImportRecords(_ context.Context, records []map[string]any, dryRun bool) (application.UpsertResult, error) {
	s.mu.Lock()
	s.records = records
	s.dryRun = dryRun
	s.mu.Unlock()
	if s.err != nil {
		return application.UpsertResult{}, s.err
	}
	return application.UpsertResult{
		DryRun:   dryRun,
		Inserted: len(records),
		Errors:   []application.RowError{{Index: 3, Kind: "validation", Field: "period", Message: "period must be between 1 and 8"}},
	}, nil
}

func (s *stubTimetable) ClearRoom(_ context.Context, roomID *int) (int64, error) {
	s.cleared = roomID
	return 4, s.err
}

type stubOverrides struct {
	err error
}

func (s *stubOverrides) List(context.Context, string, string) ([]application.CalendarOverride, error) {
	return []application.CalendarOverride{{Date: "2024-04-29", Kind: application.OverrideOffday}}, s.err
}

func (s *stubOverrides) Set(_ context.Context, date string, kind application.OverrideKind, note *string) (application.CalendarOverride, error) {
	if s.err != nil {
		return application.CalendarOverride{}, s.err
	}
	return application.CalendarOverride{Date: date, Kind: kind, Note: note}, nil
}

func (s *stubOverrides) Delete(context.Context, string) error { return s.err }

type stubUtilization struct {
	roomID *int
}

func (s *stubUtilization) Summary(_ context.Context, from, to string, roomID *int) (application.UtilizationSummary, error) {
	s.roomID = roomID
	return application.UtilizationSummary{From: from, To: to, Rooms: []application.RoomUtilization{{RoomID: 1, OccupiedSlots: 3}}}, nil
}

type recordedRequest struct {
	method, route string
	status        int
}

type recordingObserver struct {
	mu       sync.Mutex
	requests []recordedRequest
}

func (o *recordingObserver) ObserveHTTPRequest(method, route string, status int, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.requests = append(o.requests, recordedRequest{method: method, route: route, status: status})
}

type routerHarness struct {
	rooms       *stubRooms
	rosters     *stubRosters
	timetable   *stubTimetable
	overrides   *stubOverrides
	utilization *stubUtilization
	observer    *recordingObserver
	handler     http.Handler
}

func newRouterHarness() *routerHarness {
	h := &routerHarness{
		rooms:       &stubRooms{rooms: []application.Room{{ID: 1, Name: "Computer Lab 1", Capacity: 48}}},
		rosters:     &stubRosters{},
		timetable:   &stubTimetable{},
		overrides:   &stubOverrides{},
		utilization: &stubUtilization{},
		observer:    &recordingObserver{},
	}
	h.handler = NewRouter(RouterConfig{
		Rooms:       NewRoomHandler(h.rooms, nil),
		Rosters:     NewRosterHandler(h.rosters, nil),
		Timetable:   NewTimetableHandler(h.timetable, nil),
		Calendar:    NewCalendarHandler(h.overrides, nil),
		Utilization: NewUtilizationHandler(h.utilization, nil),
		Observer:    h.observer,
		Middleware:  []func(http.Handler) http.Handler{RequestLogger(nil)},
	})
	return h
}

func (h *routerHarness) do(t *testing.T, method, target, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestRoomHandlers(t *testing.T) {
	t.Parallel()

	t.Run("list rooms", func(t *testing.T) {
		t.Parallel()
		h := newRouterHarness()
		rec := h.do(t, http.MethodGet, "/rooms", "")
		require.Equal(t, http.StatusOK, rec.Code)
		body := decodeBody(t, rec)
		rooms := body["rooms"].([]any)
		require.Len(t, rooms, 1)
		assert.Equal(t, "Computer Lab 1", rooms[0].(map[string]any)["name"])
	})

	t.Run("update capacity passes the raw value through", func(t *testing.T) {
		t.Parallel()
		h := newRouterHarness()
		rec := h.do(t, http.MethodPut, "/rooms/3/capacity", `{"capacity": 40.7}`)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.InDelta(t, 40.7, h.rooms.got, 0.0001)
	})

	t.Run("capacity must be positive", func(t *testing.T) {
		t.Parallel()
		h := newRouterHarness()
		rec := h.do(t, http.MethodPut, "/rooms/3/capacity", `{"capacity": 0}`)
		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		body := decodeBody(t, rec)
		assert.Equal(t, "validation", body["error_kind"])
		assert.Contains(t, body["errors"], "capacity")

		rec = h.do(t, http.MethodPut, "/rooms/3/capacity", `{}`)
		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})

	t.Run("bad id and bad body are 400", func(t *testing.T) {
		t.Parallel()
		h := newRouterHarness()
		assert.Equal(t, http.StatusBadRequest, h.do(t, http.MethodPut, "/rooms/x/capacity", `{"capacity": 3}`).Code)
		assert.Equal(t, http.StatusBadRequest, h.do(t, http.MethodPut, "/rooms/3/capacity", `{`).Code)
	})

	t.Run("unknown room is 404", func(t *testing.T) {
		t.Parallel()
		h := newRouterHarness()
		h.rooms.err = application.ErrNotFound
		rec := h.do(t, http.MethodPut, "/rooms/9/capacity", `{"capacity": 3}`)
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "not_found", decodeBody(t, rec)["error_kind"])
	})
}

func TestRosterHandlers(t *testing.T) {
	t.Parallel()

	t.Run("create returns 201", func(t *testing.T) {
		t.Parallel()
		h := newRouterHarness()
		rec := h.do(t, http.MethodPost, "/rosters", `{"name":" CS-1 ","headcount":30}`)
		require.Equal(t, http.StatusCreated, rec.Code)
		roster := decodeBody(t, rec)["roster"].(map[string]any)
		assert.Equal(t, "CS-1", roster["name"])
	})

	t.Run("duplicate name is 409", func(t *testing.T) {
		t.Parallel()
		h := newRouterHarness()
		h.rosters.err = application.ErrAlreadyExists
		rec := h.do(t, http.MethodPut, "/rosters/2", `{"name":"CS-1","headcount":30}`)
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("missing fields are reported by json name", func(t *testing.T) {
		t.Parallel()
		h := newRouterHarness()
		rec := h.do(t, http.MethodPost, "/rosters", `{"headcount":0}`)
		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		errs := decodeBody(t, rec)["errors"].(map[string]any)
		assert.Contains(t, errs, "name")
		assert.Contains(t, errs, "headcount")
	})

	t.Run("delete returns 204", func(t *testing.T) {
		t.Parallel()
		h := newRouterHarness()
		rec := h.do(t, http.MethodDelete, "/rosters/2", "")
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Empty(t, rec.Body.String())
	})

	t.Run("headcount splits names", func(t *testing.T) {
		t.Parallel()
		h := newRouterHarness()
		rec := h.do(t, http.MethodGet, "/rosters/headcount?names=A,B", "")
		require.Equal(t, http.StatusOK, rec.Code)
		body := decodeBody(t, rec)
		assert.Equal(t, float64(20), body["headcount"])
		assert.Equal(t, []any{"A", "B"}, body["names"])
	})

	t.Run("unknown classes are 422 with names", func(t *testing.T) {
		t.Parallel()
		h := newRouterHarness()
		h.rosters.err = &application.UnresolvedReferenceError{Kind: application.ReferenceClass, Field: "class_names", Names: []string{"X", "Y"}}
		rec := h.do(t, http.MethodGet, "/rosters/headcount?names=X,Y", "")
		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		body := decodeBody(t, rec)
		assert.Equal(t, "unresolved_reference", body["error_kind"])
		assert.Equal(t, "class_names", body["field"])
		assert.Equal(t, []any{"X", "Y"}, body["names"])
	})
}

func TestTimetableHandlers(t *testing.T) {
	t.Parallel()

	t.Run("week requires room and date", func(t *testing.T) {
		t.Parallel()
		h := newRouterHarness()
		rec := h.do(t, http.MethodGet, "/timetable/week?date=2024-03-05", "")
		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Contains(t, decodeBody(t, rec)["errors"], "room_id")

		rec = h.do(t, http.MethodGet, "/timetable/week?room_id=1&date=03/05/2024", "")
		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Contains(t, decodeBody(t, rec)["errors"], "date")
	})

	t.Run("week view", func(t *testing.T) {
		t.Parallel()
		h := newRouterHarness()
		rec := h.do(t, http.MethodGet, "/timetable/week?room_id=2&date=2024-03-05", "")
		require.Equal(t, http.StatusOK, rec.Code)
		body := decodeBody(t, rec)
		assert.Equal(t, float64(2), body["week_number"])
		assert.Equal(t, float64(2), body["room"].(map[string]any)["id"])
	})

	t.Run("replace week validates nested sessions", func(t *testing.T) {
		t.Parallel()
		h := newRouterHarness()
		rec := h.do(t, http.MethodPut, "/timetable/week",
			`{"room_id":1,"date":"2024-03-05","sessions":[{"date":"2024-03-05","period":9,"course_name":"Networks"}]}`)
		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Contains(t, decodeBody(t, rec)["errors"], "sessions[0].period")
	})

	t.Run("replace week forwards sessions", func(t *testing.T) {
		t.Parallel()
		h := newRouterHarness()
		rec := h.do(t, http.MethodPut, "/timetable/week",
			`{"room_id":1,"date":"2024-03-05","sessions":[{"date":"2024-03-05","period":2,"course_name":"Networks","class_names":"A"}]}`)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Len(t, h.timetable.inputs, 1)
		assert.Equal(t, 2, h.timetable.inputs[0].Period)
		require.NotNil(t, h.timetable.inputs[0].ClassNames)
		assert.Equal(t, "A", *h.timetable.inputs[0].ClassNames)
	})

	t.Run("import json dry run", func(t *testing.T) {
		t.Parallel()
		h := newRouterHarness()
		rec := h.do(t, http.MethodPost, "/timetable/import?dry_run=true", `[{"room_id":1},{"room_id":2}]`,
			"Content-Type", "application/json")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, h.timetable.dryRun)
		body := decodeBody(t, rec)
		assert.Equal(t, true, body["dry_run"])
		assert.Equal(t, float64(2), body["inserted"])
		errs := body["errors"].([]any)
		require.Len(t, errs, 1)
		assert.Equal(t, float64(3), errs[0].(map[string]any)["index"])
	})

	t.Run("import csv", func(t *testing.T) {
		t.Parallel()
		h := newRouterHarness()
		rec := h.do(t, http.MethodPost, "/timetable/import", "room_name,period\nNetwork Lab,3\n",
			"Content-Type", "text/csv")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.False(t, h.timetable.dryRun)
		require.Len(t, h.timetable.records, 1)
		assert.Equal(t, "Network Lab", h.timetable.records[0]["room_name"])
	})

	t.Run("import rejects malformed bodies and flags", func(t *testing.T) {
		t.Parallel()
		h := newRouterHarness()
		assert.Equal(t, http.StatusBadRequest, h.do(t, http.MethodPost, "/timetable/import", `{"records":`).Code)
		assert.Equal(t, http.StatusUnprocessableEntity, h.do(t, http.MethodPost, "/timetable/import?dry_run=maybe", `[]`).Code)
	})

	t.Run("clear all rooms", func(t *testing.T) {
		t.Parallel()
		h := newRouterHarness()
		rec := h.do(t, http.MethodDelete, "/timetable", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Nil(t, h.timetable.cleared)
		assert.Equal(t, float64(4), decodeBody(t, rec)["deleted"])
	})

	t.Run("storage failures are 500 without detail", func(t *testing.T) {
		t.Parallel()
		h := newRouterHarness()
		h.timetable.err = errors.New("disk I/O error")
		rec := h.do(t, http.MethodDelete, "/timetable?room_id=1", "")
		require.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, "internal server error", decodeBody(t, rec)["message"])
	})
}

func TestCalendarAndUtilizationHandlers(t *testing.T) {
	t.Parallel()

	t.Run("set override validates kind", func(t *testing.T) {
		t.Parallel()
		h := newRouterHarness()
		rec := h.do(t, http.MethodPut, "/calendar/overrides", `{"date":"2024-04-29","kind":"holiday"}`)
		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Contains(t, decodeBody(t, rec)["errors"], "kind")

		rec = h.do(t, http.MethodPut, "/calendar/overrides", `{"date":"2024-04-27","kind":"workday","note":"make-up day"}`)
		require.Equal(t, http.StatusOK, rec.Code)
		override := decodeBody(t, rec)["override"].(map[string]any)
		assert.Equal(t, "workday", override["kind"])
		assert.Equal(t, "make-up day", override["note"])
	})

	t.Run("list and delete overrides", func(t *testing.T) {
		t.Parallel()
		h := newRouterHarness()
		rec := h.do(t, http.MethodGet, "/calendar/overrides", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Len(t, decodeBody(t, rec)["overrides"], 1)

		h.overrides.err = application.ErrNotFound
		assert.Equal(t, http.StatusNotFound, h.do(t, http.MethodDelete, "/calendar/overrides/2024-04-29", "").Code)
	})

	t.Run("utilization summary", func(t *testing.T) {
		t.Parallel()
		h := newRouterHarness()
		rec := h.do(t, http.MethodGet, "/utilization?from=2024-03-04&to=2024-03-08&room_id=1", "")
		require.Equal(t, http.StatusOK, rec.Code)
		require.NotNil(t, h.utilization.roomID)
		assert.Equal(t, 1, *h.utilization.roomID)
		assert.Equal(t, "2024-03-04", decodeBody(t, rec)["from"])

		rec = h.do(t, http.MethodGet, "/utilization?from=2024-03-04&room_id=0", "")
		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		errs := decodeBody(t, rec)["errors"].(map[string]any)
		assert.Contains(t, errs, "to")
		assert.Contains(t, errs, "room_id")
	})
}

func TestRouterInstrumentation(t *testing.T) {
	t.Parallel()

	h := newRouterHarness()
	rec := h.do(t, http.MethodDelete, "/rosters/5", "")
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	h.do(t, http.MethodGet, "/nowhere", "")
	assert.Equal(t, http.StatusOK, h.do(t, http.MethodGet, "/healthz", "").Code)

	h.observer.mu.Lock()
	defer h.observer.mu.Unlock()
	require.Len(t, h.observer.requests, 3)
	assert.Equal(t, recordedRequest{method: http.MethodDelete, route: "DELETE /rosters/{id}", status: http.StatusNoContent}, h.observer.requests[0])
	assert.Equal(t, "unmatched", h.observer.requests[1].route)
	assert.Equal(t, http.StatusNotFound, h.observer.requests[1].status)
}

func TestHealthzReportsFailures(t *testing.T) {
	t.Parallel()

	handler := NewRouter(RouterConfig{Health: func(context.Context) error { return errors.New("database is locked") }})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
