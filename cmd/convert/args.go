package convert

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/nrtkbb/desparse/sparse"
	"github.com/spf13/pflag"
)

// Invocation is the resolved form of a legacy command line.
type Invocation struct {
	Paths     []string
	Recursive bool
	Streams   bool
	Help      bool
}

// UnknownOptionError reports a flag the legacy shell does not know.
type UnknownOptionError struct {
	// Option is the flag as typed: "-x" for a letter, "--name" for a long flag.
	Option string
}

func (e *UnknownOptionError) Error() string {
	return "unknown option: " + e.Option
}

func newFlagSet(inv *Invocation) *pflag.FlagSet {
	fs := pflag.NewFlagSet("desparse", pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.Usage = func() {}
	fs.BoolVarP(&inv.Recursive, "recursive", "r", false, "recursively desparse on directories")
	fs.BoolVarP(&inv.Streams, "streams", "s", false, "desparse all alternate streams")
	fs.BoolVarP(&inv.Help, "help", "h", false, "this message")
	return fs
}

// ParseArgs resolves the legacy `[-rsh] [--] path...` syntax. Flag letters may
// be bundled and apply to every path regardless of position. Every argument
// after the first "--" is a path, even one that begins with '-'. A lone "-"
// before "--" is an empty flag group and is ignored.
func ParseArgs(args []string) (Invocation, error) {
	var inv Invocation
	fs := newFlagSet(&inv)
	if err := fs.Parse(args); err != nil {
		var notExist *pflag.NotExistError
		if errors.As(err, &notExist) {
			if notExist.GetSpecifiedShortnames() != "" {
				return Invocation{}, &UnknownOptionError{Option: "-" + notExist.GetSpecifiedName()}
			}
			return Invocation{}, &UnknownOptionError{Option: "--" + notExist.GetSpecifiedName()}
		}
		return Invocation{}, err
	}

	rest := fs.Args()
	dash := fs.ArgsLenAtDash()
	if dash < 0 {
		dash = len(rest)
	}
	for i, arg := range rest {
		if i < dash && arg == "-" {
			continue
		}
		inv.Paths = append(inv.Paths, arg)
	}
	return inv, nil
}

// WriteUsage prints the legacy usage text.
func WriteUsage(w io.Writer, prog string) {
	fmt.Fprintf(w, "usage: %s [-rsh] files ...\n", prog)
	fmt.Fprint(w, "opts:\n")
	fmt.Fprint(w, "  -r\trecursively desparse on directories\n")
	fmt.Fprint(w, "  -s\tdesparse all alternate streams\n")
	fmt.Fprint(w, "  -h\tthis message\n")
	fmt.Fprint(w, "  --\tstop option parsing\n")
}

// RunLegacy executes the legacy command line against fsys and returns the
// process exit status. Per-path failures never change the status; only an
// unknown flag yields 1, and then no path is touched.
func RunLegacy(ctx context.Context, fsys sparse.FS, prog string, args []string, stdout, stderr io.Writer) int {
	inv, err := ParseArgs(args)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	if inv.Help || len(inv.Paths) == 0 {
		WriteUsage(stdout, prog)
		return 0
	}

	e := sparse.New(fsys, stdout, stderr)
	for _, path := range inv.Paths {
		e.Process(ctx, path, sparse.Options{Recursive: inv.Recursive, Streams: inv.Streams})
	}
	return 0
}
