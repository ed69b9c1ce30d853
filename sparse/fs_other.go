//go:build !unix && !windows

package sparse

import "errors"

type osFS struct{}

// NewOSFS returns a binding that reports every query as unsupported.
func NewOSFS() FS {
	return osFS{}
}

func (osFS) Attributes(string) (Attributes, error) { return 0, errors.ErrUnsupported }
func (osFS) Open(string) (Handle, error)           { return nil, errors.ErrUnsupported }
func (osFS) AllocatedSize(string) (uint64, error)  { return 0, errors.ErrUnsupported }
func (osFS) OpenDir(string) (DirLister, error)     { return nil, errors.ErrUnsupported }
func (osFS) Streams(string) (StreamLister, error)  { return emptyStreams{}, nil }
