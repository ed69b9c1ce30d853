package db

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
)

type runRow struct {
	RunID             string
	StartedAt         int64
	FinishedAt        sql.NullInt64
	Arguments         string
	Recursive         bool
	Streams           bool
	Converted         int64
	NotSparse         int64
	NotFullyAllocated int64
	Failed            int64
}

// MergeJournals copies every run of sourcePath, with its results, into
// destPath. Runs already present in the destination are skipped. It returns
// the number of runs copied.
func MergeJournals(ctx context.Context, sourcePath, destPath string) (int, error) {
	if _, err := os.Stat(sourcePath); err != nil {
		return 0, fmt.Errorf("source journal not found: %w", err)
	}

	source, err := sql.Open("sqlite3", sourcePath)
	if err != nil {
		return 0, fmt.Errorf("failed to open source journal: %w", err)
	}
	defer source.Close()

	dest, err := SetupDatabase(destPath)
	if err != nil {
		return 0, fmt.Errorf("failed to open destination journal: %w", err)
	}
	defer dest.Close()

	runs, err := loadRuns(ctx, source)
	if err != nil {
		return 0, err
	}

	tx, err := dest.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	runStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO runs (
			run_id, started_at, finished_at, arguments, recursive, streams,
			converted, not_sparse, not_fully_allocated, failed
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare run statement: %w", err)
	}
	defer runStmt.Close()

	resultStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO results (
			run_id, path, outcome, error,
			logical_size, allocated_size, recorded_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare result statement: %w", err)
	}
	defer resultStmt.Close()

	merged := 0
	for _, r := range runs {
		var exists int
		err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM runs WHERE run_id = ?", r.RunID).Scan(&exists)
		if err != nil {
			return 0, fmt.Errorf("failed to look up run %s: %w", r.RunID, err)
		}
		if exists > 0 {
			log.Printf("Skipping run %s: already in %s", r.RunID, destPath)
			continue
		}

		_, err = runStmt.ExecContext(ctx,
			r.RunID, r.StartedAt, r.FinishedAt, r.Arguments, r.Recursive, r.Streams,
			r.Converted, r.NotSparse, r.NotFullyAllocated, r.Failed,
		)
		if err != nil {
			return 0, fmt.Errorf("failed to insert run %s: %w", r.RunID, err)
		}

		n, err := copyResults(ctx, source, resultStmt, r.RunID)
		if err != nil {
			return 0, err
		}
		log.Printf("Merged run %s (%d results)", r.RunID, n)
		merged++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit merge: %w", err)
	}
	return merged, nil
}

func loadRuns(ctx context.Context, source *sql.DB) ([]runRow, error) {
	rows, err := source.QueryContext(ctx, `
		SELECT run_id, started_at, finished_at, arguments, recursive, streams,
			converted, not_sparse, not_fully_allocated, failed
		FROM runs
		ORDER BY started_at
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query source runs: %w", err)
	}
	defer rows.Close()

	var runs []runRow
	for rows.Next() {
		var r runRow
		if err := rows.Scan(
			&r.RunID, &r.StartedAt, &r.FinishedAt, &r.Arguments, &r.Recursive, &r.Streams,
			&r.Converted, &r.NotSparse, &r.NotFullyAllocated, &r.Failed,
		); err != nil {
			return nil, fmt.Errorf("failed to scan source run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

func copyResults(ctx context.Context, source *sql.DB, stmt *sql.Stmt, runID string) (int, error) {
	rows, err := source.QueryContext(ctx, `
		SELECT path, outcome, error, logical_size, allocated_size, recorded_at
		FROM results
		WHERE run_id = ?
		ORDER BY result_id
	`, runID)
	if err != nil {
		return 0, fmt.Errorf("failed to query results of run %s: %w", runID, err)
	}
	defer rows.Close()

	n := 0
	for rows.Next() {
		var (
			path, outcome      string
			errText            sql.NullString
			logical, allocated sql.NullInt64
			recordedAt         int64
		)
		if err := rows.Scan(&path, &outcome, &errText, &logical, &allocated, &recordedAt); err != nil {
			return 0, fmt.Errorf("failed to scan result: %w", err)
		}
		if _, err := stmt.ExecContext(ctx, runID, path, outcome, errText, logical, allocated, recordedAt); err != nil {
			return 0, fmt.Errorf("failed to insert result for %s: %w", path, err)
		}
		n++
	}
	return n, rows.Err()
}
