package migrate

import (
	"context"
	"flag"
	"log"

	"github.com/google/subcommands"
	"github.com/nrtkbb/desparse/cmd/cmdutil"
	"github.com/nrtkbb/desparse/db"
)

type Command struct {
	dbPath string
}

func (*Command) Name() string     { return "migrate" }
func (*Command) Synopsis() string { return "Run journal migrations" }
func (*Command) Usage() string {
	return `migrate -db <journal>:
  Bring the conversion journal schema up to date. convert and serve do this
  on their own when the journal is new.
`
}

func (c *Command) SetFlags(f *flag.FlagSet) {
	cmdutil.JournalFlag(f, &c.dbPath)
}

func (c *Command) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if !cmdutil.Required(f, c.dbPath) {
		return subcommands.ExitUsageError
	}

	if err := db.RunMigrations(c.dbPath); err != nil {
		log.Printf("Failed to migrate %s: %v", c.dbPath, err)
		return subcommands.ExitFailure
	}
	log.Printf("Journal %s is up to date", c.dbPath)

	return subcommands.ExitSuccess
}
