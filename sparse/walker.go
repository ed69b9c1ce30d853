package sparse

import (
	"context"
	"errors"
	"io"
	"os"

	"github.com/nrtkbb/desparse/models"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Options selects how a top-level path is processed.
type Options struct {
	Recursive bool
	Streams   bool
}

type frame struct {
	dir    string
	lister DirLister
}

// Walk visits every entry below dir depth-first, in listing order, and
// converts the sparse ones. Subdirectories are entered as they are listed,
// so a directory is finished before the walk returns to its parent.
//
// ErrNotDirectory is returned untouched when dir is a file. Any other
// failure to list dir is reported and returned. Failures below dir are
// reported and skipped.
func (e *Engine) Walk(ctx context.Context, dir string, streams bool) error {
	ctx, span := e.tracer.Start(ctx, "sparse.Walk",
		trace.WithAttributes(attribute.String("path", dir), attribute.Bool("streams", streams)))
	defer span.End()

	root, err := e.openDir(dir)
	if err != nil {
		return err
	}

	// Open listers live on the heap, one per level of the current branch.
	stack := []frame{{dir: dir, lister: root}}
	var dirs, entries int
	for len(stack) > 0 {
		top := stack[len(stack)-1]

		ent, err := top.lister.Next()
		if err != nil {
			if err != io.EOF {
				e.faultf("listing", "reading directory %s failed: %v", top.dir, err)
			}
			top.lister.Close()
			stack = stack[:len(stack)-1]
			dirs++
			continue
		}
		if ent.Name == "." || ent.Name == ".." {
			continue
		}
		entries++

		child := joinPath(top.dir, ent.Name)
		if ent.Err != nil {
			e.faultf("listing", "can't get attributes of %s: %v", child, ent.Err)
			continue
		}
		switch {
		case ent.Attributes.IsDir():
			l, err := e.fs.OpenDir(child)
			if err != nil {
				e.faultf("listing", "listing %s failed: %v", child, err)
				continue
			}
			stack = append(stack, frame{dir: child, lister: l})
		case ent.Attributes.IsSparse():
			if streams {
				e.ConvertStreams(ctx, child)
			} else {
				e.Convert(ctx, child)
			}
		default:
			e.emit(ctx, models.Outcome{Path: child, Kind: models.NotSparse})
		}
	}

	span.SetAttributes(attribute.Int("directories", dirs), attribute.Int("entries", entries))
	return nil
}

func (e *Engine) openDir(dir string) (DirLister, error) {
	l, err := e.fs.OpenDir(dir)
	if err == nil {
		return l, nil
	}
	if !errors.Is(err, ErrNotDirectory) {
		e.faultf("listing", "listing %s failed: %v", dir, err)
	}
	return nil, err
}

// Process handles one top-level path. With Recursive set, directories are
// walked and plain files fall through to direct conversion.
func (e *Engine) Process(ctx context.Context, path string, opts Options) {
	if opts.Recursive {
		err := e.Walk(ctx, path, opts.Streams)
		if !errors.Is(err, ErrNotDirectory) {
			return
		}
	}
	if opts.Streams {
		e.ConvertStreams(ctx, path)
	} else {
		e.Convert(ctx, path)
	}
}

func joinPath(dir, name string) string {
	if dir != "" && os.IsPathSeparator(dir[len(dir)-1]) {
		return dir + name
	}
	return dir + string(os.PathSeparator) + name
}
