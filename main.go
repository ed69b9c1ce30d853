package main

import (
	"context"
	"flag"
	"os"
	"path/filepath"

	"github.com/google/subcommands"
	"github.com/nrtkbb/desparse/cmd/convert"
	"github.com/nrtkbb/desparse/cmd/merge"
	"github.com/nrtkbb/desparse/cmd/migrate"
	"github.com/nrtkbb/desparse/cmd/serve"
	"github.com/nrtkbb/desparse/cmd/testdata"
	"github.com/nrtkbb/desparse/cmd/version"
	"github.com/nrtkbb/desparse/sparse"
)

func main() {
	ctx := context.Background()

	// Register subcommands
	commands := []subcommands.Command{
		subcommands.HelpCommand(),
		subcommands.FlagsCommand(),
		subcommands.CommandsCommand(),
		&convert.Command{},
		&merge.Command{},
		&migrate.Command{},
		&serve.Command{},
		&version.Command{},
		&testdata.Command{},
	}
	names := make(map[string]bool, len(commands))
	for _, cmd := range commands {
		subcommands.Register(cmd, "")
		names[cmd.Name()] = true
	}

	// Anything that does not start with a subcommand name is the classic
	// `desparse [-rsh] path...` command line.
	if len(os.Args) < 2 || !names[os.Args[1]] {
		prog := filepath.Base(os.Args[0])
		os.Exit(convert.RunLegacy(ctx, sparse.NewOSFS(), prog, os.Args[1:], os.Stdout, os.Stderr))
	}

	// Execute the specified subcommand
	flag.Parse()
	os.Exit(int(subcommands.Execute(ctx)))
}
