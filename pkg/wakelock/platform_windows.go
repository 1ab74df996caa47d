//go:build windows

package wakelock

func newPlatformBackend(Options) backend {
	return &windowsBackend{api: kernelPowerRequests{}}
}
