package main

import (
	"bytes"
	"context"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/lab-timetable/internal/bootstrap"
	"github.com/example/lab-timetable/internal/config"
	"github.com/example/lab-timetable/internal/persistence/sqlite"
)

func setupEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("TIMETABLE_SEMESTER_START", "2024-02-26")
	t.Setenv("TIMETABLE_SQLITE_PATH", filepath.Join(dir, "timetable.db"))
	t.Setenv("TIMETABLE_LOG_LEVEL", "error")
	return dir
}

// unsetEnv removes key for the rest of the test and restores it afterwards.
func unsetEnv(t *testing.T, key string) {
	t.Helper()
	t.Setenv(key, "")
	require.NoError(t, os.Unsetenv(key))
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(append([]string{"--env-file", filepath.Join(t.TempDir(), "absent.env")}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestMigrateCommandIsIdempotent(t *testing.T) {
	setupEnv(t)

	out, err := execute(t, "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "schema version 1 (applied=true")

	out, err = execute(t, "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "applied=false")
}

func TestMissingSemesterStartFails(t *testing.T) {
	setupEnv(t)
	unsetEnv(t, "TIMETABLE_SEMESTER_START")

	_, err := execute(t, "migrate")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "semester_start")
}

func TestImportAndClearCommands(t *testing.T) {
	dir := setupEnv(t)

	csvPath := writeFile(t, dir, "week.csv",
		"room_name,date,period,course_name,teacher_name\n"+
			"Network Lab,2024-03-05,1,Routing,Tanaka\n"+
			"Quantum Lab,2024-03-05,2,Qubits,Sato\n")

	out, err := execute(t, "import", csvPath, "--dry-run")
	require.ErrorIs(t, err, errRowsRejected)
	assert.Contains(t, out, "dry run: inserted 1, updated 0, rejected 1")
	assert.Contains(t, out, "row 1:")

	jsonPath := writeFile(t, dir, "week.json",
		`[{"room_id": 3, "date": "2024-03-05", "period": 1, "course_name": "Routing"},
		  {"room_id": 3, "date": "2024-03-06", "period": 4, "course_name": "Switching"}]`)
	out, err = execute(t, "import", jsonPath)
	require.NoError(t, err)
	assert.Contains(t, out, "inserted 2, updated 0, rejected 0")

	out, err = execute(t, "import", jsonPath)
	require.NoError(t, err)
	assert.Contains(t, out, "inserted 0, updated 2")

	_, err = execute(t, "clear", "--room", "3")
	require.ErrorIs(t, err, errClearUnconfirmed)

	out, err = execute(t, "clear", "--room", "1", "--yes")
	require.NoError(t, err)
	assert.Contains(t, out, "deleted 0 sessions")

	out, err = execute(t, "clear", "--yes")
	require.NoError(t, err)
	assert.Contains(t, out, "deleted 2 sessions")
}

func TestImportRejectsUnknownExtension(t *testing.T) {
	dir := setupEnv(t)
	path := writeFile(t, dir, "week.xlsx", "")

	_, err := execute(t, "import", path)
	assert.Error(t, err)
}

func TestConfigFileFlag(t *testing.T) {
	dir := setupEnv(t)
	unsetEnv(t, "TIMETABLE_SEMESTER_START")
	path := writeFile(t, dir, "timetable.yaml", "semester_start: \"2024-09-30\"\nlog_level: error\n")

	out, err := execute(t, "--config", path, "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "schema version 1")
}

func TestServeStopsOnCancel(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Defaults()
	cfg.SemesterStart = "2024-02-26"
	cfg.Semester = time.Date(2024, time.February, 26, 0, 0, 0, 0, time.UTC)
	cfg.SQLitePath = filepath.Join(dir, "timetable.db")
	dbConfig := sqlite.TempFileTestConfig(cfg.SQLitePath)

	app, err := bootstrap.Build(context.Background(), cfg, nil, bootstrap.Options{SQLite: &dbConfig})
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- serve(ctx, app, listener) }()

	url := "http://" + listener.Addr().String() + "/healthz"
	require.Eventually(t, func() bool {
		resp, err := http.Get(url)
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(15 * time.Second):
		t.Fatal("server did not stop")
	}
}
