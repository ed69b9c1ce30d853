package app

import (
	"context"
	"database/sql"
	"log"
	"sync"
	"time"

	"github.com/nrtkbb/desparse/db"
	"github.com/nrtkbb/desparse/metrics"
	"github.com/nrtkbb/desparse/models"
)

// AppContext owns the resources of one convert invocation that must be
// released exactly once, whether the run ends normally or on a signal.
type AppContext struct {
	DB             *sql.DB
	Journal        *db.Journal
	Stats          *models.ProgressStats
	MetricsOut     string
	TracerShutdown func(context.Context) error
	Context        context.Context
	Cancel         context.CancelFunc
	Cleanup        sync.Once
}

func NewAppContext(parentCtx context.Context) *AppContext {
	ctx, cancel := context.WithCancel(parentCtx)
	return &AppContext{
		Context: ctx,
		Cancel:  cancel,
		Stats:   NewProgressStats(),
	}
}

func NewProgressStats() *models.ProgressStats {
	return &models.ProgressStats{
		Outcomes:  make(map[models.OutcomeKind]int64),
		StartTime: time.Now(),
	}
}

func (app *AppContext) PerformCleanup() {
	app.Cleanup.Do(func() {
		ctx := context.Background()

		if app.Journal != nil {
			log.Printf("Committing journal run %s...", app.Journal.RunID)
			if err := app.Journal.Finish(ctx); err != nil {
				log.Printf("Error finishing journal: %v", err)
			}
		}

		if app.DB != nil {
			// Force WAL checkpoint before closing
			if _, err := app.DB.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
				log.Printf("Error executing WAL checkpoint: %v", err)
			}
			if err := app.DB.Close(); err != nil {
				log.Printf("Error closing journal: %v", err)
			}
		}

		if app.MetricsOut != "" {
			if err := metrics.WriteTextfile(app.MetricsOut); err != nil {
				log.Printf("Error writing metrics to %s: %v", app.MetricsOut, err)
			}
		}

		if app.TracerShutdown != nil {
			if err := app.TracerShutdown(ctx); err != nil {
				log.Printf("Error shutting down tracer provider: %v", err)
			}
		}

		if app.Cancel != nil {
			app.Cancel()
		}
	})
}
