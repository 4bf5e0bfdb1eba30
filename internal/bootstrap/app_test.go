package bootstrap

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/lab-timetable/internal/application"
	"github.com/example/lab-timetable/internal/config"
	"github.com/example/lab-timetable/internal/persistence/sqlite"
)

func buildTestApp(t *testing.T) *App {
	t.Helper()

	cfg := config.Defaults()
	cfg.SemesterStart = "2024-02-26"
	cfg.Semester = time.Date(2024, time.February, 26, 0, 0, 0, 0, time.UTC)
	cfg.SQLitePath = filepath.Join(t.TempDir(), "timetable.db")
	dbConfig := sqlite.TempFileTestConfig(cfg.SQLitePath)

	app, err := Build(context.Background(), cfg, nil, Options{SQLite: &dbConfig})
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })
	return app
}

func TestBuildSeedsRoomsOnce(t *testing.T) {
	app := buildTestApp(t)
	ctx := context.Background()

	rooms, err := app.Rooms.List(ctx)
	require.NoError(t, err)
	require.Len(t, rooms, len(application.DefaultRooms()))

	_, err = app.Rooms.UpdateCapacity(ctx, 1, 30)
	require.NoError(t, err)

	inserted, err := app.Rooms.Seed(ctx, application.DefaultRooms())
	require.NoError(t, err)
	assert.Zero(t, inserted)

	room, err := app.Rooms.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 30, room.Capacity)
}

func TestHandlerEndToEnd(t *testing.T) {
	app := buildTestApp(t)
	server := httptest.NewServer(app.Handler())
	t.Cleanup(server.Close)

	resp, err := http.Post(server.URL+"/rosters", "application/json", strings.NewReader(`{"name":"CS-1","headcount":30}`))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	body := `[{"room_name":"Network Lab","date":"2024-03-05","period":3,"course_name":"Routing","class_names":"CS-1"}]`
	resp, err = http.Post(server.URL+"/timetable/import", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	var result struct {
		Inserted int `json:"inserted"`
		Rows     []struct {
			Session struct {
				ID      string `json:"id"`
				Planned int    `json:"planned"`
			} `json:"session"`
		} `json:"rows"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, result.Inserted)
	require.Len(t, result.Rows, 1)
	assert.NotEmpty(t, result.Rows[0].Session.ID)
	assert.Equal(t, 30, result.Rows[0].Session.Planned)

	resp, err = http.Get(server.URL + "/utilization?from=2024-03-04&to=2024-03-08&room_id=3")
	require.NoError(t, err)
	var summary application.UtilizationSummary
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&summary))
	resp.Body.Close()
	require.Len(t, summary.Rooms, 1)
	assert.Equal(t, 1, summary.Rooms[0].OccupiedSlots)

	resp, err = http.Get(server.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(server.URL + "/metrics")
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Contains(t, string(raw), `timetable_row_writes_total{operation="upsert",outcome="insert"} 1`)
	assert.Contains(t, string(raw), `route="POST /timetable/import"`)
	assert.Contains(t, string(raw), `timetable_cache_lookups_total{backend="memory",result="miss"} 1`)
}

func TestBuildRejectsEmptyDatabasePath(t *testing.T) {
	cfg := config.Defaults()
	cfg.SQLitePath = " "

	_, err := Build(context.Background(), cfg, nil, Options{})
	assert.Error(t, err)
}
