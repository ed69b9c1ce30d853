// Package sparse clears the sparse attribute from files that no longer
// contain holes.
//
// A file is converted only when it carries the sparse attribute and its
// logical size equals its allocated size. Clearing the flag on a file that
// still has holes would make the filesystem allocate them as real zeroes, so
// such files are reported and left untouched.
package sparse

import (
	"context"
	"fmt"
	"io"

	"github.com/nrtkbb/desparse/metrics"
	"github.com/nrtkbb/desparse/models"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Recorder receives every outcome after its status line was printed.
type Recorder interface {
	Record(ctx context.Context, o models.Outcome)
}

type Option func(*Engine)

// WithRecorder adds r to the recorders notified of each outcome.
func WithRecorder(r Recorder) Option {
	return func(e *Engine) {
		e.recorders = append(e.recorders, r)
	}
}

// Engine converts files, streams and directory trees. It is not safe for
// concurrent use; every call runs to completion before returning.
type Engine struct {
	fs        FS
	out       io.Writer
	errOut    io.Writer
	recorders []Recorder
	tracer    trace.Tracer
}

// New returns an engine over fsys. Status lines go to out, listing and
// enumeration faults to errOut.
func New(fsys FS, out, errOut io.Writer, opts ...Option) *Engine {
	e := &Engine{
		fs:     fsys,
		out:    out,
		errOut: errOut,
		tracer: otel.Tracer("desparse/sparse"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Convert clears the sparse attribute of path if it is sparse and fully
// allocated, and prints one status line either way.
func (e *Engine) Convert(ctx context.Context, path string) models.Outcome {
	ctx, span := e.tracer.Start(ctx, "sparse.Convert",
		trace.WithAttributes(attribute.String("path", path)))
	defer span.End()

	o := e.convert(path)

	span.SetAttributes(attribute.String("outcome", o.Kind.String()))
	if o.HaveSizes {
		span.SetAttributes(
			attribute.Int64("logical_size", int64(o.Logical)),
			attribute.Int64("allocated_size", int64(o.Allocated)),
		)
	}
	if o.Err != nil {
		span.RecordError(o.Err)
		span.SetStatus(codes.Error, o.Kind.String())
	}

	e.emit(ctx, o)
	return o
}

func (e *Engine) convert(path string) models.Outcome {
	o := models.Outcome{Path: path}

	attrs, err := e.fs.Attributes(path)
	if err != nil {
		return o.With(models.AttributeQueryFailed, err)
	}
	if !attrs.IsSparse() {
		return o.With(models.NotSparse, nil)
	}

	h, err := e.fs.Open(path)
	if err != nil {
		return o.With(models.OpenFailed, err)
	}
	defer h.Close()

	logical, err := h.Size()
	if err != nil {
		return o.With(models.SizeQueryFailed, err)
	}
	// Keyed by path, not by handle: a writer racing between Open and this
	// query can make the pair inconsistent.
	allocated, err := e.fs.AllocatedSize(path)
	if err != nil {
		return o.With(models.SizeQueryFailed, err)
	}
	o.Logical, o.Allocated, o.HaveSizes = logical, allocated, true

	if logical != allocated {
		return o.With(models.NotFullyAllocated, nil)
	}

	if err := h.ClearSparse(); err != nil {
		return o.With(models.ConversionFailed, err)
	}
	return o.With(models.Converted, nil)
}

func (e *Engine) emit(ctx context.Context, o models.Outcome) {
	fmt.Fprintln(e.out, o.String())

	metrics.OutcomesTotal.WithLabelValues(o.Kind.String()).Inc()
	if o.Kind == models.Converted {
		metrics.ConvertedBytesTotal.Add(float64(o.Logical))
	}
	for _, r := range e.recorders {
		r.Record(ctx, o)
	}
}

// faultf reports a listing or enumeration failure on the error stream.
func (e *Engine) faultf(kind, format string, args ...any) {
	metrics.WalkFaultsTotal.WithLabelValues(kind).Inc()
	fmt.Fprintf(e.errOut, format+"\n", args...)
}
