package wakelock

type unsupportedBackend struct {
	goos string
}

func (b unsupportedBackend) platform() string { return b.goos }

func (b unsupportedBackend) supported() bool { return false }

func (b unsupportedBackend) acquire(string, LinuxOptions) (handle, error) {
	return nil, unsupported("no display wake lock backend for %s", b.goos)
}
