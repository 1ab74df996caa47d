//go:build !windows && !darwin && !linux

package wakelock

import "runtime"

func newPlatformBackend(Options) backend {
	return unsupportedBackend{goos: runtime.GOOS}
}
