// Package cmdutil holds flag helpers shared by the journal subcommands.
package cmdutil

import "flag"

// JournalFlag registers the -db flag naming the conversion journal.
func JournalFlag(f *flag.FlagSet, p *string) {
	f.StringVar(p, "db", "", "journal file path (required)")
}

// Required reports whether every value is set. Otherwise it prints the
// usage of f, and the caller should return subcommands.ExitUsageError.
func Required(f *flag.FlagSet, values ...string) bool {
	for _, v := range values {
		if v == "" {
			f.Usage()
			return false
		}
	}
	return true
}
