//go:build windows

package wakelock

import (
	"runtime"
	"strings"
	"syscall"
	"unsafe"

	"golang.org/x/sys/windows"
)

const (
	powerRequestContextVersion      = 0
	powerRequestContextSimpleString = 0x1
)

var (
	modkernel32 = windows.NewLazySystemDLL("kernel32.dll")

	procPowerCreateRequest = modkernel32.NewProc("PowerCreateRequest")
	procPowerSetRequest    = modkernel32.NewProc("PowerSetRequest")
	procPowerClearRequest  = modkernel32.NewProc("PowerClearRequest")
)

// reasonContext is REASON_CONTEXT with the simple-string union member. The
// padding covers the larger detailed member of the union.
type reasonContext struct {
	version            uint32
	flags              uint32
	simpleReasonString *uint16
	_                  [2]uint32
	_                  uintptr
}

type kernelPowerRequests struct{}

func (kernelPowerRequests) available() bool {
	return procPowerCreateRequest.Find() == nil &&
		procPowerSetRequest.Find() == nil &&
		procPowerClearRequest.Find() == nil
}

func (kernelPowerRequests) create(reason string) (uintptr, error) {
	text, err := windows.UTF16PtrFromString(strings.ReplaceAll(reason, "\x00", ""))
	if err != nil {
		return 0, err
	}
	ctx := reasonContext{
		version:            powerRequestContextVersion,
		flags:              powerRequestContextSimpleString,
		simpleReasonString: text,
	}
	r1, _, e1 := procPowerCreateRequest.Call(uintptr(unsafe.Pointer(&ctx)))
	runtime.KeepAlive(text)
	if windows.Handle(r1) == windows.InvalidHandle || r1 == 0 {
		return 0, errnoErr(e1)
	}
	return r1, nil
}

func (kernelPowerRequests) set(h uintptr, t powerRequestType) error {
	r1, _, e1 := procPowerSetRequest.Call(h, uintptr(t))
	if r1 == 0 {
		return errnoErr(e1)
	}
	return nil
}

func (kernelPowerRequests) clear(h uintptr, t powerRequestType) error {
	r1, _, e1 := procPowerClearRequest.Call(h, uintptr(t))
	if r1 == 0 {
		return errnoErr(e1)
	}
	return nil
}

func (kernelPowerRequests) close(h uintptr) error {
	return windows.CloseHandle(windows.Handle(h))
}

func errnoErr(err error) error {
	if errno, ok := err.(syscall.Errno); ok && errno != 0 {
		return errno
	}
	return syscall.EINVAL
}
