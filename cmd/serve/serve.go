package serve

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"log"
	"net/http"

	"github.com/google/subcommands"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/nrtkbb/desparse/api"
	"github.com/nrtkbb/desparse/cmd/cmdutil"
	"github.com/nrtkbb/desparse/db"
	"github.com/nrtkbb/desparse/metrics"
)

type Command struct {
	dbPath string
	port   string
}

func (*Command) Name() string     { return "serve" }
func (*Command) Synopsis() string { return "Serve the conversion journal over HTTP" }
func (*Command) Usage() string {
	return `serve -db <journal> [-port <port>]:
  Expose recorded conversion runs as a JSON API, plus Prometheus metrics on
  /metrics.
`
}

func (c *Command) SetFlags(f *flag.FlagSet) {
	cmdutil.JournalFlag(f, &c.dbPath)
	f.StringVar(&c.port, "port", "8080", "port to listen on")
}

func (c *Command) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if !cmdutil.Required(f, c.dbPath) {
		return subcommands.ExitUsageError
	}

	journal, err := db.SetupDatabase(c.dbPath)
	if err != nil {
		log.Printf("Failed to open journal: %v", err)
		return subcommands.ExitFailure
	}
	defer journal.Close()

	e := newServer(journal)
	log.Printf("Serving %s on port %s...", c.dbPath, c.port)
	if err := e.Start(":" + c.port); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Printf("Failed to start server: %v", err)
		return subcommands.ExitFailure
	}

	return subcommands.ExitSuccess
}

// newServer wires the middleware chain and the journal routes.
func newServer(journal *sql.DB) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(metrics.EchoMiddleware())

	api.RegisterRoutes(e, api.NewHandler(journal))
	return e
}
