package sparse

import (
	"context"
	"io"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// ForEachStream calls visit with the address of every named alternate
// stream of path. The default stream is never visited. A failure to
// enumerate is reported and returned; visits already made stand.
func (e *Engine) ForEachStream(ctx context.Context, path string, visit func(addr string)) error {
	sl, err := e.fs.Streams(path)
	if err != nil {
		e.faultf("streams", "enumerating streams of %s failed: %v", path, err)
		return err
	}
	defer sl.Close()

	for {
		name, err := sl.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			e.faultf("streams", "enumerating streams of %s failed: %v", path, err)
			return err
		}
		// name already starts with the stream separator
		visit(path + name)
	}
}

// ConvertStreams converts the default stream of path, then each of its
// alternate streams.
func (e *Engine) ConvertStreams(ctx context.Context, path string) {
	ctx, span := e.tracer.Start(ctx, "sparse.ConvertStreams",
		trace.WithAttributes(attribute.String("path", path)))
	defer span.End()

	e.Convert(ctx, path)

	var n int
	err := e.ForEachStream(ctx, path, func(addr string) {
		n++
		e.Convert(ctx, addr)
	})
	span.SetAttributes(attribute.Int("streams", n))
	if err != nil {
		span.RecordError(err)
	}
}
