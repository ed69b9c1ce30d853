package merge

import (
	"context"
	"flag"
	"log"

	"github.com/google/subcommands"
	"github.com/nrtkbb/desparse/cmd/cmdutil"
	"github.com/nrtkbb/desparse/db"
)

type Command struct {
	sourceDB string
	destDB   string
}

func (*Command) Name() string     { return "merge" }
func (*Command) Synopsis() string { return "Merge one conversion journal into another" }
func (*Command) Usage() string {
	return `merge -source <source.db> -dest <dest.db>:
  Copy every run of the source journal that the destination does not
  already contain.
`
}

func (c *Command) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.sourceDB, "source", "", "source journal file (required)")
	f.StringVar(&c.destDB, "dest", "", "destination journal file (required)")
}

func (c *Command) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if !cmdutil.Required(f, c.sourceDB, c.destDB) {
		return subcommands.ExitUsageError
	}

	n, err := db.MergeJournals(ctx, c.sourceDB, c.destDB)
	if err != nil {
		log.Printf("Merge failed: %v", err)
		return subcommands.ExitFailure
	}
	log.Printf("Merged %d runs from %s into %s", n, c.sourceDB, c.destDB)

	return subcommands.ExitSuccess
}
