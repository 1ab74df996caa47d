package wakelock

import (
	"errors"
	"syscall"
)

// powerRequestType mirrors POWER_REQUEST_TYPE.
type powerRequestType uint32

const (
	powerRequestDisplayRequired powerRequestType = 0
	powerRequestSystemRequired  powerRequestType = 1
)

func (t powerRequestType) String() string {
	switch t {
	case powerRequestDisplayRequired:
		return "display-required"
	case powerRequestSystemRequired:
		return "system-required"
	}
	return "unknown"
}

// Set in this order, cleared in reverse.
var heldRequestTypes = []powerRequestType{
	powerRequestSystemRequired,
	powerRequestDisplayRequired,
}

// powerRequestAPI is the slice of kernel32 the Windows backend needs.
// Errors are syscall.Errno values from GetLastError.
type powerRequestAPI interface {
	available() bool
	create(reason string) (uintptr, error)
	set(h uintptr, t powerRequestType) error
	clear(h uintptr, t powerRequestType) error
	close(h uintptr) error
}

// windowsBackend holds one power request object per guard. Power requests
// are kernel objects, so unlike SetThreadExecutionState they do not depend
// on which OS thread the goroutine happens to run on.
type windowsBackend struct {
	api powerRequestAPI
}

func (b *windowsBackend) platform() string { return "windows" }

func (b *windowsBackend) supported() bool {
	return b.api.available()
}

func (b *windowsBackend) acquire(reason string, _ LinuxOptions) (handle, error) {
	if !b.api.available() {
		return nil, unsupported("kernel32 does not export the power request API")
	}
	h, err := b.api.create(reason)
	if err != nil {
		return nil, win32Error("PowerCreateRequest", err)
	}
	req := &powerRequest{api: b.api, h: h}
	for _, t := range heldRequestTypes {
		if err := b.api.set(h, t); err != nil {
			_ = req.release()
			return nil, win32Error("PowerSetRequest", err)
		}
		req.held = append(req.held, t)
	}
	return req, nil
}

type powerRequest struct {
	api  powerRequestAPI
	h    uintptr
	held []powerRequestType
}

func (r *powerRequest) kind() string { return "power-request" }

func (r *powerRequest) release() error {
	var errs []error
	for i := len(r.held) - 1; i >= 0; i-- {
		if err := r.api.clear(r.h, r.held[i]); err != nil {
			errs = append(errs, win32Error("PowerClearRequest", err))
		}
	}
	r.held = nil
	if err := r.api.close(r.h); err != nil {
		errs = append(errs, win32Error("CloseHandle", err))
	}
	return errors.Join(errs...)
}

func win32Error(op string, err error) *PlatformError {
	pe := &PlatformError{Op: op, Message: err.Error(), Err: err}
	var errno syscall.Errno
	if errors.As(err, &errno) {
		pe.Code = int64(errno)
	}
	return pe
}
