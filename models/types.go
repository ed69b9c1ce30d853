package models

import (
	"context"
	"time"
)

type OutcomeKind int

const (
	Converted OutcomeKind = iota
	NotSparse
	NotFullyAllocated
	AttributeQueryFailed
	OpenFailed
	SizeQueryFailed
	ConversionFailed
)

var outcomeNames = [...]string{
	Converted:            "converted",
	NotSparse:            "not_sparse",
	NotFullyAllocated:    "not_fully_allocated",
	AttributeQueryFailed: "attribute_query_failed",
	OpenFailed:           "open_failed",
	SizeQueryFailed:      "size_query_failed",
	ConversionFailed:     "conversion_failed",
}

// OutcomeKinds lists every kind in declaration order.
var OutcomeKinds = []OutcomeKind{
	Converted, NotSparse, NotFullyAllocated,
	AttributeQueryFailed, OpenFailed, SizeQueryFailed, ConversionFailed,
}

func (k OutcomeKind) String() string {
	if k < 0 || int(k) >= len(outcomeNames) {
		return "unknown"
	}
	return outcomeNames[k]
}

// Failed reports whether the kind carries an OS error.
func (k OutcomeKind) Failed() bool {
	return k >= AttributeQueryFailed
}

// ParseOutcomeKind is the inverse of OutcomeKind.String.
func ParseOutcomeKind(s string) (OutcomeKind, bool) {
	for i, name := range outcomeNames {
		if name == s {
			return OutcomeKind(i), true
		}
	}
	return 0, false
}

// Outcome is the result of one conversion attempt on a file or stream.
type Outcome struct {
	Path      string
	Kind      OutcomeKind
	Err       error
	Logical   uint64
	Allocated uint64
	HaveSizes bool
}

// With returns a copy of o settled on kind.
func (o Outcome) With(kind OutcomeKind, err error) Outcome {
	o.Kind = kind
	o.Err = err
	return o
}

// Status is the phrase printed after the path on the status line.
func (o Outcome) Status() string {
	switch o.Kind {
	case Converted:
		return "removed sparse flag"
	case NotSparse:
		return "not a sparse file"
	case NotFullyAllocated:
		return "not fully filled"
	case AttributeQueryFailed:
		return "can't get attributes: " + errText(o.Err)
	case OpenFailed:
		return "open failed: " + errText(o.Err)
	case SizeQueryFailed:
		return "can't get size: " + errText(o.Err)
	case ConversionFailed:
		return "clearing sparse flag failed: " + errText(o.Err)
	}
	return o.Kind.String()
}

func (o Outcome) String() string {
	return o.Path + " " + o.Status()
}

func errText(err error) string {
	if err == nil {
		return "unknown error"
	}
	return err.Error()
}

type ProgressStats struct {
	Outcomes  map[OutcomeKind]int64
	StartTime time.Time
}

func (s *ProgressStats) Record(_ context.Context, o Outcome) {
	if s.Outcomes == nil {
		s.Outcomes = make(map[OutcomeKind]int64)
	}
	s.Outcomes[o.Kind]++
}

// Failures sums every kind that carries an OS error.
func (s *ProgressStats) Failures() int64 {
	var n int64
	for kind, count := range s.Outcomes {
		if kind.Failed() {
			n += count
		}
	}
	return n
}
