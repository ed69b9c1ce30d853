//go:build windows

package sparse

import (
	"errors"
	"io"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	modkernel32                = windows.NewLazySystemDLL("kernel32.dll")
	procGetCompressedFileSizeW = modkernel32.NewProc("GetCompressedFileSizeW")
	procFindFirstStreamW       = modkernel32.NewProc("FindFirstStreamW")
	procFindNextStreamW        = modkernel32.NewProc("FindNextStreamW")
)

const (
	invalidFileSize        = 0xFFFFFFFF
	findStreamInfoStandard = 0
	defaultStreamName      = "::$DATA"
)

// WIN32_FIND_STREAM_DATA
type findStreamData struct {
	StreamSize int64
	StreamName [windows.MAX_PATH + 36]uint16
}

// FILE_STANDARD_INFO
type fileStandardInfo struct {
	AllocationSize int64
	EndOfFile      int64
	NumberOfLinks  uint32
	DeletePending  bool
	Directory      bool
}

type osFS struct{}

// NewOSFS returns the NTFS binding: attribute bits from GetFileAttributes,
// allocated size from GetCompressedFileSize, FSCTL_SET_SPARSE to clear.
func NewOSFS() FS {
	return osFS{}
}

func fromWin32(raw uint32) Attributes {
	var a Attributes
	if raw&windows.FILE_ATTRIBUTE_DIRECTORY != 0 {
		a |= AttrDirectory
	}
	if raw&windows.FILE_ATTRIBUTE_SPARSE_FILE != 0 {
		a |= AttrSparse
	}
	return a
}

func (osFS) Attributes(path string) (Attributes, error) {
	p, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return 0, err
	}
	raw, err := windows.GetFileAttributes(p)
	if err != nil {
		return 0, err
	}
	return fromWin32(raw), nil
}

func (osFS) Open(path string) (Handle, error) {
	p, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return nil, err
	}
	h, err := windows.CreateFile(p,
		windows.GENERIC_READ|windows.GENERIC_WRITE,
		windows.FILE_SHARE_READ,
		nil,
		windows.OPEN_EXISTING,
		windows.FILE_FLAG_BACKUP_SEMANTICS,
		0)
	if err != nil {
		return nil, err
	}
	return winHandle{h: h}, nil
}

func (osFS) AllocatedSize(path string) (uint64, error) {
	p, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return 0, err
	}
	var high uint32
	low, _, callErr := procGetCompressedFileSizeW.Call(
		uintptr(unsafe.Pointer(p)),
		uintptr(unsafe.Pointer(&high)),
	)
	// INVALID_FILE_SIZE is also a legal low word, so the last error decides.
	if uint32(low) == invalidFileSize {
		if errno, ok := callErr.(windows.Errno); ok && errno != windows.ERROR_SUCCESS {
			return 0, errno
		}
	}
	return uint64(high)<<32 | uint64(uint32(low)), nil
}

func (fsys osFS) OpenDir(path string) (DirLister, error) {
	p, err := windows.UTF16PtrFromString(joinPath(path, "*"))
	if err != nil {
		return nil, err
	}
	l := &winDirLister{pending: true}
	l.h, err = windows.FindFirstFile(p, &l.data)
	if err != nil {
		if errors.Is(err, windows.ERROR_DIRECTORY) {
			return nil, ErrNotDirectory
		}
		// "file\*" can also surface as a missing path.
		if errors.Is(err, windows.ERROR_PATH_NOT_FOUND) {
			if attrs, aerr := fsys.Attributes(path); aerr == nil && !attrs.IsDir() {
				return nil, ErrNotDirectory
			}
		}
		return nil, err
	}
	return l, nil
}

func (osFS) Streams(path string) (StreamLister, error) {
	p, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return nil, err
	}
	l := &winStreamLister{pending: true}
	r, _, callErr := procFindFirstStreamW.Call(
		uintptr(unsafe.Pointer(p)),
		findStreamInfoStandard,
		uintptr(unsafe.Pointer(&l.data)),
		0,
	)
	l.h = windows.Handle(r)
	if l.h == windows.InvalidHandle {
		if errors.Is(callErr, windows.ERROR_HANDLE_EOF) {
			return emptyStreams{}, nil
		}
		return nil, callErr
	}
	return l, nil
}

type winHandle struct {
	h windows.Handle
}

// Size uses FILE_STANDARD_INFO because it reports the end of file of the
// opened stream, not of the whole file.
func (w winHandle) Size() (uint64, error) {
	var info fileStandardInfo
	err := windows.GetFileInformationByHandleEx(w.h, windows.FileStandardInfo,
		(*byte)(unsafe.Pointer(&info)), uint32(unsafe.Sizeof(info)))
	if err != nil {
		return 0, err
	}
	return uint64(info.EndOfFile), nil
}

func (w winHandle) ClearSparse() error {
	// FILE_SET_SPARSE_BUFFER{SetSparse: FALSE}
	var buf [1]byte
	var returned uint32
	return windows.DeviceIoControl(w.h, windows.FSCTL_SET_SPARSE,
		&buf[0], uint32(len(buf)), nil, 0, &returned, nil)
}

func (w winHandle) Close() error {
	return windows.CloseHandle(w.h)
}

type winDirLister struct {
	h       windows.Handle
	data    windows.Win32finddata
	pending bool
}

func (l *winDirLister) Next() (DirEntry, error) {
	if !l.pending {
		if err := windows.FindNextFile(l.h, &l.data); err != nil {
			if errors.Is(err, windows.ERROR_NO_MORE_FILES) {
				return DirEntry{}, io.EOF
			}
			return DirEntry{}, err
		}
	}
	l.pending = false
	return DirEntry{
		Name:       windows.UTF16ToString(l.data.FileName[:]),
		Attributes: fromWin32(l.data.FileAttributes),
	}, nil
}

func (l *winDirLister) Close() error {
	return windows.FindClose(l.h)
}

type winStreamLister struct {
	h       windows.Handle
	data    findStreamData
	pending bool
}

func (l *winStreamLister) Next() (string, error) {
	for {
		if !l.pending {
			r, _, callErr := procFindNextStreamW.Call(
				uintptr(l.h),
				uintptr(unsafe.Pointer(&l.data)),
			)
			if r == 0 {
				if errors.Is(callErr, windows.ERROR_HANDLE_EOF) {
					return "", io.EOF
				}
				return "", callErr
			}
		}
		l.pending = false

		name := windows.UTF16ToString(l.data.StreamName[:])
		if name == defaultStreamName {
			continue
		}
		return name, nil
	}
}

func (l *winStreamLister) Close() error {
	return windows.FindClose(l.h)
}
