package testdata

import (
	"os"
	"unsafe"

	"golang.org/x/sys/windows"
)

type fileZeroDataInformation struct {
	FileOffset      int64
	BeyondFinalZero int64
}

func markSparse(f *os.File) error {
	var bytesReturned uint32
	return windows.DeviceIoControl(windows.Handle(f.Fd()), windows.FSCTL_SET_SPARSE,
		nil, 0, nil, 0, &bytesReturned, nil)
}

// writeHoley writes data densely, then deallocates the zeroed range.
func writeHoley(f *os.File, data []byte, off, length int64) error {
	if _, err := f.Write(data); err != nil {
		return err
	}
	zero := fileZeroDataInformation{FileOffset: off, BeyondFinalZero: off + length}
	var bytesReturned uint32
	return windows.DeviceIoControl(windows.Handle(f.Fd()), windows.FSCTL_SET_ZERO_DATA,
		(*byte)(unsafe.Pointer(&zero)), uint32(unsafe.Sizeof(zero)), nil, 0, &bytesReturned, nil)
}
