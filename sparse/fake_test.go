package sparse

import (
	"bytes"
	"context"
	"io"
	"io/fs"
	"strings"
	"testing"

	"github.com/nrtkbb/desparse/models"
)

type fakeFile struct {
	attrs     Attributes
	logical   uint64
	allocated uint64
	streams   []string

	attrErr   error
	openErr   error
	sizeErr   error
	allocErr  error
	clearErr  error
	entryErr  error
	streamErr error
	nextErr   error
}

// fakeFS is an in-memory FS. Directories list their children in insertion
// order, preceded by "." and "..".
type fakeFS struct {
	files    map[string]*fakeFile
	children map[string][]string

	opened  int
	closed  int
	cleared []string
	opens   []string
}

func newFakeFS() *fakeFS {
	return &fakeFS{
		files:    make(map[string]*fakeFile),
		children: make(map[string][]string),
	}
}

func (f *fakeFS) dir(path string) *fakeFile {
	d := &fakeFile{attrs: AttrDirectory}
	f.add(path, d)
	return d
}

func (f *fakeFS) file(path string, ff *fakeFile) *fakeFile {
	f.add(path, ff)
	return ff
}

// stream attaches an alternate stream named name (":name:$DATA") to path.
func (f *fakeFS) stream(path, name string, ff *fakeFile) {
	sn := ":" + name + ":$DATA"
	f.files[path].streams = append(f.files[path].streams, sn)
	f.files[path+sn] = ff
}

// full returns a sparse file with no holes.
func full(size uint64) *fakeFile {
	return &fakeFile{attrs: AttrSparse, logical: size, allocated: size}
}

// holey returns a sparse file with hole bytes missing from its allocation.
func holey(size, hole uint64) *fakeFile {
	return &fakeFile{attrs: AttrSparse, logical: size, allocated: size - hole}
}

func dense(size uint64) *fakeFile {
	return &fakeFile{logical: size, allocated: size}
}

func (f *fakeFS) add(path string, ff *fakeFile) {
	f.files[path] = ff
	if i := strings.LastIndexAny(path, `/\`); i > 0 {
		parent := path[:i]
		f.children[parent] = append(f.children[parent], path[i+1:])
	}
}

func (f *fakeFS) Attributes(path string) (Attributes, error) {
	ff, ok := f.files[path]
	if !ok {
		return 0, fs.ErrNotExist
	}
	if ff.attrErr != nil {
		return 0, ff.attrErr
	}
	return ff.attrs, nil
}

func (f *fakeFS) Open(path string) (Handle, error) {
	ff, ok := f.files[path]
	if !ok {
		return nil, fs.ErrNotExist
	}
	if ff.openErr != nil {
		return nil, ff.openErr
	}
	f.opened++
	f.opens = append(f.opens, path)
	return &fakeHandle{fs: f, path: path, file: ff}, nil
}

func (f *fakeFS) AllocatedSize(path string) (uint64, error) {
	ff, ok := f.files[path]
	if !ok {
		return 0, fs.ErrNotExist
	}
	if ff.allocErr != nil {
		return 0, ff.allocErr
	}
	return ff.allocated, nil
}

func (f *fakeFS) OpenDir(path string) (DirLister, error) {
	ff, ok := f.files[path]
	if !ok {
		return nil, fs.ErrNotExist
	}
	if !ff.attrs.IsDir() {
		return nil, ErrNotDirectory
	}
	if ff.openErr != nil {
		return nil, ff.openErr
	}
	f.opened++
	names := append([]string{".", ".."}, f.children[path]...)
	return &fakeDirLister{fs: f, dir: path, names: names, err: ff.nextErr}, nil
}

func (f *fakeFS) Streams(path string) (StreamLister, error) {
	ff, ok := f.files[path]
	if !ok {
		return nil, fs.ErrNotExist
	}
	if ff.streamErr != nil {
		return nil, ff.streamErr
	}
	f.opened++
	return &fakeStreamLister{fs: f, names: ff.streams, err: ff.nextErr}, nil
}

func (f *fakeFS) balanced(t *testing.T) {
	t.Helper()
	if f.opened != f.closed {
		t.Errorf("opened %d handles but closed %d", f.opened, f.closed)
	}
}

type fakeHandle struct {
	fs   *fakeFS
	path string
	file *fakeFile
}

func (h *fakeHandle) Size() (uint64, error) {
	if h.file.sizeErr != nil {
		return 0, h.file.sizeErr
	}
	return h.file.logical, nil
}

func (h *fakeHandle) ClearSparse() error {
	if h.file.clearErr != nil {
		return h.file.clearErr
	}
	h.file.attrs &^= AttrSparse
	h.fs.cleared = append(h.fs.cleared, h.path)
	return nil
}

func (h *fakeHandle) Close() error {
	h.fs.closed++
	return nil
}

type fakeDirLister struct {
	fs    *fakeFS
	dir   string
	names []string
	err   error
}

func (l *fakeDirLister) Next() (DirEntry, error) {
	if len(l.names) == 0 {
		if l.err != nil {
			return DirEntry{}, l.err
		}
		return DirEntry{}, io.EOF
	}
	name := l.names[0]
	l.names = l.names[1:]
	if name == "." || name == ".." {
		return DirEntry{Name: name, Attributes: AttrDirectory}, nil
	}
	ff := l.fs.files[joinPath(l.dir, name)]
	if ff.entryErr != nil {
		return DirEntry{Name: name, Err: ff.entryErr}, nil
	}
	return DirEntry{Name: name, Attributes: ff.attrs}, nil
}

func (l *fakeDirLister) Close() error {
	l.fs.closed++
	return nil
}

type fakeStreamLister struct {
	fs    *fakeFS
	names []string
	err   error
}

func (l *fakeStreamLister) Next() (string, error) {
	if len(l.names) == 0 {
		if l.err != nil {
			return "", l.err
		}
		return "", io.EOF
	}
	name := l.names[0]
	l.names = l.names[1:]
	return name, nil
}

func (l *fakeStreamLister) Close() error {
	l.fs.closed++
	return nil
}

type captureRecorder struct {
	outcomes []models.Outcome
}

func (r *captureRecorder) Record(_ context.Context, o models.Outcome) {
	r.outcomes = append(r.outcomes, o)
}

func newTestEngine(fsys FS, opts ...Option) (*Engine, *bytes.Buffer, *bytes.Buffer) {
	var stdout, stderr bytes.Buffer
	return New(fsys, &stdout, &stderr, opts...), &stdout, &stderr
}

func lines(buf *bytes.Buffer) []string {
	s := strings.TrimRight(buf.String(), "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

// p joins path elements with the platform separator.
func p(elems ...string) string {
	out := elems[0]
	for _, e := range elems[1:] {
		out = joinPath(out, e)
	}
	return out
}
