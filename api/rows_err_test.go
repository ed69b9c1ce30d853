package api

import (
	"database/sql"
	"errors"
	"net/http"
	"path/filepath"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/mattn/go-sqlite3"
	"github.com/nrtkbb/desparse/db"
)

// sqlite3_unreadable exposes fail_path, which errors for every row it sees.
func init() {
	sql.Register("sqlite3_unreadable", &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			return conn.RegisterFunc("fail_path", func(string) (string, error) {
				return "", errors.New("disk I/O error")
			}, true)
		},
	})
}

// unreadableResults swaps the results table for a view whose path column
// fails while rows are being stepped, after the query itself succeeded.
func unreadableResults(t *testing.T) (*echo.Echo, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "broken.db")

	seed, err := db.SetupDatabase(path)
	if err != nil {
		t.Fatalf("SetupDatabase() error: %v", err)
	}
	_, err = seed.Exec(`
		INSERT INTO runs (run_id, started_at, arguments, recursive, streams)
		VALUES ('r1', 1, '[]', 0, 0);
		INSERT INTO results (run_id, path, outcome, recorded_at)
		VALUES ('r1', '/x', 'not_sparse', 1), ('r1', '/y', 'not_sparse', 1);
		ALTER TABLE results RENAME TO results_data;
		CREATE VIEW results AS
			SELECT result_id, run_id, fail_path(path) AS path, outcome, error,
				logical_size, allocated_size, recorded_at
			FROM results_data;
	`)
	seed.Close()
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	broken, err := sql.Open("sqlite3_unreadable", path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { broken.Close() })

	e := echo.New()
	RegisterRoutes(e, NewHandler(broken))
	return e, "r1"
}

func TestListResults_RowFailureIsServerError(t *testing.T) {
	e, runID := unreadableResults(t)
	f := &fixture{e: e}

	rec := f.get(t, "/api/runs/"+runID+"/results")
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500, body %s", rec.Code, rec.Body.String())
	}
}

func TestSearchResults_RowFailureIsServerError(t *testing.T) {
	e, _ := unreadableResults(t)
	f := &fixture{e: e}

	rec := f.get(t, "/api/search?path=x")
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500, body %s", rec.Code, rec.Body.String())
	}
}
