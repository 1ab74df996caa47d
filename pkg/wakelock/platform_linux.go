//go:build linux

package wakelock

func newPlatformBackend(opts Options) backend {
	return newLinuxBackend(dialBus, opts)
}
