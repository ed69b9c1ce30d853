package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nrtkbb/desparse/models"
)

// RunParams describes the invocation a journal run belongs to.
type RunParams struct {
	Arguments []string
	Recursive bool
	Streams   bool
}

// Journal records the outcome of every conversion attempt of one run.
// All results are written in a single transaction committed by Finish.
// It is safe for concurrent use, so a signal handler may finish a run
// while a walk is still recording.
type Journal struct {
	RunID string

	mu       sync.Mutex
	db       *sql.DB
	tx       *sql.Tx
	stmt     *sql.Stmt
	counts   map[models.OutcomeKind]int64
	finished bool
}

// StartRun inserts a new run and prepares the result writer.
func StartRun(ctx context.Context, db *sql.DB, params RunParams) (*Journal, error) {
	args, err := json.Marshal(params.Arguments)
	if err != nil {
		return nil, fmt.Errorf("failed to encode arguments: %w", err)
	}

	j := &Journal{
		RunID:  uuid.NewString(),
		db:     db,
		counts: make(map[models.OutcomeKind]int64),
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO runs (run_id, started_at, arguments, recursive, streams)
		VALUES (?, ?, ?, ?, ?)
	`, j.RunID, time.Now().Unix(), string(args), params.Recursive, params.Streams)
	if err != nil {
		return nil, fmt.Errorf("failed to insert run: %w", err)
	}

	j.tx, err = db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	j.stmt, err = j.tx.PrepareContext(ctx, `
		INSERT INTO results (
			run_id, path, outcome, error,
			logical_size, allocated_size, recorded_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		j.tx.Rollback()
		return nil, fmt.Errorf("failed to prepare statement: %w", err)
	}

	return j, nil
}

// Record implements sparse.Recorder. Insert failures are logged and do not
// interrupt the walk.
func (j *Journal) Record(ctx context.Context, o models.Outcome) {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.counts[o.Kind]++
	if j.finished {
		return
	}

	var errText sql.NullString
	if o.Err != nil {
		errText = sql.NullString{String: o.Err.Error(), Valid: true}
	}
	var logical, allocated sql.NullInt64
	if o.HaveSizes {
		logical = sql.NullInt64{Int64: int64(o.Logical), Valid: true}
		allocated = sql.NullInt64{Int64: int64(o.Allocated), Valid: true}
	}

	_, err := j.stmt.ExecContext(ctx,
		j.RunID,
		o.Path,
		o.Kind.String(),
		errText,
		logical,
		allocated,
		time.Now().Unix(),
	)
	if err != nil {
		log.Printf("Error recording result for %s: %v", o.Path, err)
	}
}

// Counts returns the number of recorded outcomes of kind.
func (j *Journal) Counts(kind models.OutcomeKind) int64 {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.counts[kind]
}

// Finish stores the run totals and commits every recorded result.
// Calling it more than once is a no-op.
func (j *Journal) Finish(ctx context.Context) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.finished {
		return nil
	}
	j.finished = true
	j.stmt.Close()

	var failed int64
	for kind, n := range j.counts {
		if kind.Failed() {
			failed += n
		}
	}

	_, err := j.tx.ExecContext(ctx, `
		UPDATE runs SET
			finished_at = ?,
			converted = ?,
			not_sparse = ?,
			not_fully_allocated = ?,
			failed = ?
		WHERE run_id = ?
	`,
		time.Now().Unix(),
		j.counts[models.Converted],
		j.counts[models.NotSparse],
		j.counts[models.NotFullyAllocated],
		failed,
		j.RunID,
	)
	if err != nil {
		if rbErr := j.tx.Rollback(); rbErr != nil {
			log.Printf("Error rolling back journal transaction: %v", rbErr)
		}
		return fmt.Errorf("failed to finish run: %w", err)
	}

	if err := j.tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit journal: %w", err)
	}
	return nil
}
