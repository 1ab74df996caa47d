//go:build darwin

package wakelock

func newPlatformBackend(Options) backend {
	return &darwinBackend{api: newAssertionAPI()}
}
