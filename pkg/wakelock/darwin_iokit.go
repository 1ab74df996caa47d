//go:build darwin && cgo

package wakelock

/*
#cgo LDFLAGS: -framework IOKit -framework CoreFoundation
#include <stdlib.h>
#include <CoreFoundation/CoreFoundation.h>
#include <IOKit/pwr_mgt/IOPMLib.h>

static IOReturn createAssertion(const char *type, const char *name, IOPMAssertionID *id) {
	CFStringRef t = CFStringCreateWithCString(kCFAllocatorDefault, type, kCFStringEncodingUTF8);
	CFStringRef n = CFStringCreateWithCString(kCFAllocatorDefault, name, kCFStringEncodingUTF8);
	if (n == NULL) {
		n = CFSTR("");
		CFRetain(n);
	}
	IOReturn rc = IOPMAssertionCreateWithName(t, kIOPMAssertionLevelOn, n, id);
	CFRelease(t);
	CFRelease(n);
	return rc;
}
*/
import "C"

import "unsafe"

type iokitAssertions struct{}

func newAssertionAPI() assertionAPI {
	return iokitAssertions{}
}

func (iokitAssertions) available() bool { return true }

func (iokitAssertions) create(assertionType, name string) (uint32, int32) {
	ctype := C.CString(assertionType)
	cname := C.CString(name)
	defer C.free(unsafe.Pointer(ctype))
	defer C.free(unsafe.Pointer(cname))

	var id C.IOPMAssertionID
	rc := C.createAssertion(ctype, cname, &id)
	return uint32(id), int32(rc)
}

func (iokitAssertions) release(id uint32) int32 {
	return int32(C.IOPMAssertionRelease(C.IOPMAssertionID(id)))
}
