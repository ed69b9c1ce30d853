package sparse

import (
	"errors"
	"io"
)

// ErrNotDirectory is returned by OpenDir when the target exists but is a
// leaf file. Walk surfaces it so callers can fall back to converting the path.
var ErrNotDirectory = errors.New("not a directory")

// Attributes is the subset of file attributes the converter looks at.
type Attributes uint32

const (
	AttrDirectory Attributes = 1 << iota
	AttrSparse
)

func (a Attributes) IsDir() bool    { return a&AttrDirectory != 0 }
func (a Attributes) IsSparse() bool { return a&AttrSparse != 0 }

// DirEntry is one result of a directory listing cursor. Err is set when the
// entry was listed but its attributes could not be read.
type DirEntry struct {
	Name       string
	Attributes Attributes
	Err        error
}

// FS is the set of platform primitives the engine needs. The concrete
// binding is chosen per GOOS, see NewOSFS.
type FS interface {
	// Attributes queries the attribute bits of path.
	Attributes(path string) (Attributes, error)
	// Open opens path for read and write, sharing readers. Directories and
	// reparse points must be openable too.
	Open(path string) (Handle, error)
	// AllocatedSize reports the physical storage consumed by path.
	AllocatedSize(path string) (uint64, error)
	// OpenDir starts a listing of path. ErrNotDirectory means path is a file.
	OpenDir(path string) (DirLister, error)
	// Streams lists the named alternate streams of path, without the
	// default stream. Names carry their own leading separator.
	Streams(path string) (StreamLister, error)
}

// Handle is an open file-like object.
type Handle interface {
	Size() (uint64, error)
	ClearSparse() error
	Close() error
}

// DirLister is a forward-only listing cursor. Next returns io.EOF once the
// listing is exhausted. Entries may include "." and "..".
type DirLister interface {
	Next() (DirEntry, error)
	Close() error
}

// StreamLister is a forward-only stream enumeration cursor. Next returns
// io.EOF once the enumeration is exhausted.
type StreamLister interface {
	Next() (string, error)
	Close() error
}

// emptyStreams is returned on platforms without alternate streams.
type emptyStreams struct{}

func (emptyStreams) Next() (string, error) { return "", io.EOF }
func (emptyStreams) Close() error          { return nil }
