//go:build unix

package sparse

import (
	"errors"
	"io"
	"os"

	"golang.org/x/sys/unix"
)

type osFS struct{}

// NewOSFS returns the unix binding. Unix filesystems have no sparse
// attribute; a regular file counts as sparse when fewer bytes are allocated
// than its length. Such a file always has holes, so it is reported and never
// converted. Alternate streams do not exist.
func NewOSFS() FS {
	return osFS{}
}

func allocated(st *unix.Stat_t) uint64 {
	return uint64(st.Blocks) * 512
}

func fromStat(st *unix.Stat_t) Attributes {
	switch st.Mode & unix.S_IFMT {
	case unix.S_IFDIR:
		return AttrDirectory
	case unix.S_IFREG:
		if allocated(st) < uint64(st.Size) {
			return AttrSparse
		}
	}
	return 0
}

func (osFS) Attributes(path string) (Attributes, error) {
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		return 0, err
	}
	return fromStat(&st), nil
}

func (osFS) Open(path string) (Handle, error) {
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, err
	}
	return unixHandle{fd: fd}, nil
}

func (osFS) AllocatedSize(path string) (uint64, error) {
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		return 0, err
	}
	return allocated(&st), nil
}

// OpenDir checks the type before opening: opening a FIFO would block until
// a writer shows up.
func (osFS) OpenDir(path string) (DirLister, error) {
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		return nil, err
	}
	if st.Mode&unix.S_IFMT != unix.S_IFDIR {
		return nil, ErrNotDirectory
	}
	fd, err := unix.Open(path, unix.O_RDONLY|unix.O_DIRECTORY|unix.O_CLOEXEC, 0)
	if err != nil {
		if errors.Is(err, unix.ENOTDIR) {
			return nil, ErrNotDirectory
		}
		return nil, err
	}
	return &unixDirLister{dir: path, f: os.NewFile(uintptr(fd), path)}, nil
}

func (osFS) Streams(string) (StreamLister, error) {
	return emptyStreams{}, nil
}

type unixHandle struct {
	fd int
}

func (h unixHandle) Size() (uint64, error) {
	var st unix.Stat_t
	if err := unix.Fstat(h.fd, &st); err != nil {
		return 0, err
	}
	return uint64(st.Size), nil
}

func (unixHandle) ClearSparse() error {
	return errors.ErrUnsupported
}

func (h unixHandle) Close() error {
	return unix.Close(h.fd)
}

type unixDirLister struct {
	dir string
	f   *os.File
}

// Next reads one entry at a time so the walk never holds a whole listing.
// Attributes come from lstat, so symbolic links are never followed.
func (l *unixDirLister) Next() (DirEntry, error) {
	ents, err := l.f.ReadDir(1)
	if err != nil {
		if err == io.EOF {
			return DirEntry{}, io.EOF
		}
		return DirEntry{}, bare(err)
	}
	name := ents[0].Name()

	var st unix.Stat_t
	if err := unix.Lstat(joinPath(l.dir, name), &st); err != nil {
		return DirEntry{Name: name, Err: err}, nil
	}
	return DirEntry{Name: name, Attributes: fromStat(&st)}, nil
}

func (l *unixDirLister) Close() error {
	return l.f.Close()
}

// bare strips the path from os errors; status lines already carry it.
func bare(err error) error {
	var pe *os.PathError
	if errors.As(err, &pe) {
		return pe.Err
	}
	return err
}
