package wakelock

import "fmt"

// assertionTypeNoDisplaySleep is kIOPMAssertionTypeNoDisplaySleep.
const assertionTypeNoDisplaySleep = "NoDisplaySleepAssertion"

// IOReturn values used by the macOS backend.
const (
	ioReturnSuccess  int32 = 0
	ioReturnError    int32 = -0x1FFFFD44 // kIOReturnError, 0xE00002BC
	ioReturnNotFound int32 = -0x1FFFFD10 // kIOReturnNotFound, 0xE00002F0
)

// assertionAPI is the IOKit power-assertion surface.
type assertionAPI interface {
	available() bool
	create(assertionType, name string) (id uint32, ret int32)
	release(id uint32) int32
}

type darwinBackend struct {
	api assertionAPI
}

func (b *darwinBackend) platform() string { return "darwin" }

func (b *darwinBackend) supported() bool {
	return b.api.available()
}

func (b *darwinBackend) acquire(reason string, _ LinuxOptions) (handle, error) {
	if !b.api.available() {
		return nil, unsupported("no power assertion mechanism available")
	}
	id, rc := b.api.create(assertionTypeNoDisplaySleep, reason)
	if rc != ioReturnSuccess {
		return nil, assertionError("IOPMAssertionCreateWithName", rc)
	}
	return &powerAssertion{api: b.api, id: id}, nil
}

type powerAssertion struct {
	api assertionAPI
	id  uint32
}

func (a *powerAssertion) kind() string { return "iokit-assertion" }

func (a *powerAssertion) release() error {
	if rc := a.api.release(a.id); rc != ioReturnSuccess {
		return assertionError("IOPMAssertionRelease", rc)
	}
	return nil
}

func assertionError(op string, rc int32) *PlatformError {
	return &PlatformError{
		Op:      op,
		Code:    int64(rc),
		Message: fmt.Sprintf("IOReturn=0x%08x", uint32(rc)),
	}
}
