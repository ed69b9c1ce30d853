package convert

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/google/subcommands"
	"github.com/nrtkbb/desparse/app"
	"github.com/nrtkbb/desparse/cmd/version"
	"github.com/nrtkbb/desparse/db"
	"github.com/nrtkbb/desparse/models"
	"github.com/nrtkbb/desparse/sparse"
)

type Command struct {
	dbPath     string
	recursive  bool
	streams    bool
	tracePath  string
	metricsOut string

	// Status lines and faults go to os.Stdout and os.Stderr when nil.
	stdout io.Writer
	stderr io.Writer
}

func (*Command) Name() string     { return "convert" }
func (*Command) Synopsis() string { return "Clear the sparse flag of fully allocated files" }
func (*Command) Usage() string {
	return `convert [-db <journal>] [-r] [-s] [-trace <file>] [-metrics-out <file>] path...:
  Remove the sparse attribute from every sparse file whose logical size
  equals its allocated size, optionally recording each outcome in a journal.
`
}

func (c *Command) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.dbPath, "db", "", "journal file to record outcomes in")
	f.BoolVar(&c.recursive, "r", false, "recursively desparse on directories")
	f.BoolVar(&c.streams, "s", false, "desparse all alternate streams")
	f.StringVar(&c.tracePath, "trace", "", "write OpenTelemetry spans to this file")
	f.StringVar(&c.metricsOut, "metrics-out", "", "write Prometheus metrics to this textfile when done")
}

func (c *Command) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() == 0 {
		f.Usage()
		return subcommands.ExitUsageError
	}

	appCtx := app.NewAppContext(ctx)
	defer appCtx.PerformCleanup()

	setupSignalHandling(appCtx)

	if err := c.run(appCtx, os.Args[1:], f.Args()); err != nil {
		log.Print(err)
		return subcommands.ExitFailure
	}

	return subcommands.ExitSuccess
}

// run converts paths and releases every resource of appCtx before returning.
// arguments is the command line stored with the journal run.
func (c *Command) run(appCtx *app.AppContext, arguments, paths []string) error {
	defer appCtx.PerformCleanup()
	appCtx.MetricsOut = c.metricsOut

	if c.tracePath != "" {
		shutdown, err := app.InitTracer(c.tracePath, version.Version)
		if err != nil {
			return fmt.Errorf("failed to set up tracing: %w", err)
		}
		appCtx.TracerShutdown = shutdown
	}

	opts := []sparse.Option{sparse.WithRecorder(appCtx.Stats)}
	if c.dbPath != "" {
		database, err := db.SetupDatabase(c.dbPath)
		if err != nil {
			return fmt.Errorf("failed to setup journal: %w", err)
		}
		appCtx.DB = database

		journal, err := db.StartRun(appCtx.Context, database, db.RunParams{
			Arguments: arguments,
			Recursive: c.recursive,
			Streams:   c.streams,
		})
		if err != nil {
			return fmt.Errorf("failed to start journal run: %w", err)
		}
		appCtx.Journal = journal
		opts = append(opts, sparse.WithRecorder(journal))
		log.Printf("Recording run %s in %s", journal.RunID, c.dbPath)
	}

	stdout, stderr := c.stdout, c.stderr
	if stdout == nil {
		stdout = os.Stdout
	}
	if stderr == nil {
		stderr = os.Stderr
	}

	e := sparse.New(sparse.NewOSFS(), stdout, stderr, opts...)
	for _, path := range paths {
		e.Process(appCtx.Context, path, sparse.Options{Recursive: c.recursive, Streams: c.streams})
	}

	appCtx.PerformCleanup()
	logSummary(appCtx.Stats)
	return nil
}

func logSummary(stats *models.ProgressStats) {
	log.Printf("Conversion completed in %v", time.Since(stats.StartTime))
	for _, kind := range models.OutcomeKinds {
		if n := stats.Outcomes[kind]; n > 0 {
			log.Printf("  %-24s %d", kind, n)
		}
	}
	if n := stats.Failures(); n > 0 {
		log.Printf("%d paths could not be processed", n)
	}
}

// setupSignalHandling commits what the journal holds so far on the first
// signal and exits. The walk itself cannot be interrupted.
func setupSignalHandling(app *app.AppContext) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	var shuttingDown atomic.Bool

	go func() {
		for sig := range sigChan {
			log.Printf("Received signal: %v", sig)
			if shuttingDown.Swap(true) {
				log.Println("Forcing immediate shutdown...")
				os.Exit(1)
			}
			log.Println("Press Ctrl+C again to force quit. Committing the journal...")
			app.PerformCleanup()
			os.Exit(1)
		}
	}()
}
