package wakelock

import (
	"log/slog"
	"runtime"
	"sync"
)

// backend is one platform mechanism for inhibiting display idle.
type backend interface {
	platform() string
	supported() bool
	acquire(reason string, linux LinuxOptions) (handle, error)
}

// handle is a held native inhibition. release is called at most once.
type handle interface {
	kind() string
	release() error
}

// Manager acquires wake locks through the backend compiled for this OS.
// It is safe for concurrent use.
type Manager struct {
	backend backend
	log     *slog.Logger
	linux   LinuxOptions
}

// New returns a Manager for the current platform.
func New(opts Options) *Manager {
	opts = opts.withDefaults()
	return newManager(newPlatformBackend(opts), opts)
}

func newManager(b backend, opts Options) *Manager {
	opts = opts.withDefaults()
	return &Manager{
		backend: b,
		log:     opts.Logger.With("component", "wakelock"),
		linux:   opts.Linux,
	}
}

// Platform names the backend in use ("windows", "darwin", "linux", or the
// GOOS of an unsupported platform).
func (m *Manager) Platform() string {
	return m.backend.platform()
}

// IsSupported reports whether a wake lock can be acquired here. It never
// creates an inhibition and is safe to call repeatedly.
func (m *Manager) IsSupported() bool {
	return m.backend.supported()
}

// Acquire inhibits display idle until the returned guard is released.
func (m *Manager) Acquire(reason string) (*Guard, error) {
	return m.AcquireWithLinuxOptions(reason, m.linux)
}

// AcquireWithLinuxOptions is Acquire with Linux inhibitor options. The
// options are ignored on other platforms.
func (m *Manager) AcquireWithLinuxOptions(reason string, linux LinuxOptions) (*Guard, error) {
	h, err := m.backend.acquire(reason, linux.withDefaults())
	if err != nil {
		m.log.Debug("wake lock not acquired", "platform", m.Platform(), "reason", reason, "error", err)
		return nil, err
	}
	g := newGuard(reason, h, m.log)
	m.log.Debug("wake lock acquired", "backend", h.kind(), "reason", reason)
	return g, nil
}

// Hold keeps the display awake while fn runs. The guard is released on every
// exit path, including a panic in fn. fn's error takes precedence over a
// release error.
func (m *Manager) Hold(reason string, fn func() error) (err error) {
	g, err := m.Acquire(reason)
	if err != nil {
		return err
	}
	defer func() {
		if rerr := g.Release(); rerr != nil && err == nil {
			err = rerr
		}
	}()
	return fn()
}

// Guard is a held wake lock. The display stays awake until Release.
type Guard struct {
	st      *lockState
	cleanup runtime.Cleanup
}

// lockState is kept apart from Guard so the GC cleanup can reach the handle
// without keeping the Guard alive.
type lockState struct {
	mu       sync.Mutex
	h        handle
	reason   string
	kind     string
	released bool
	log      *slog.Logger
}

func newGuard(reason string, h handle, log *slog.Logger) *Guard {
	st := &lockState{h: h, reason: reason, kind: h.kind(), log: log}
	g := &Guard{st: st}
	g.cleanup = runtime.AddCleanup(g, releaseUnreachable, st)
	return g
}

// release reports whether this call performed the native release.
func (s *lockState) release() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.released {
		return false, nil
	}
	s.released = true
	err := s.h.release()
	s.h = nil
	return true, err
}

func releaseUnreachable(st *lockState) {
	done, err := st.release()
	if !done {
		return
	}
	st.log.Warn("wake lock was never released; released by garbage collector",
		"backend", st.kind, "reason", st.reason)
	if err != nil {
		st.log.Error("wake lock cleanup failed", "backend", st.kind, "error", err)
	}
}

// Release ends the inhibition. The first call returns the native release
// error, if any; every later call returns ErrAlreadyReleased without
// touching the OS.
func (g *Guard) Release() error {
	done, err := g.st.release()
	if !done {
		return ErrAlreadyReleased
	}
	g.cleanup.Stop()
	if err != nil {
		g.st.log.Warn("wake lock release failed", "backend", g.st.kind, "error", err)
		return err
	}
	g.st.log.Debug("wake lock released", "backend", g.st.kind, "reason", g.st.reason)
	return nil
}

// Released reports whether Release has run.
func (g *Guard) Released() bool {
	g.st.mu.Lock()
	defer g.st.mu.Unlock()
	return g.st.released
}

// Reason returns the reason the guard was acquired with.
func (g *Guard) Reason() string {
	return g.st.reason
}

// Backend names the native mechanism holding the lock, such as
// "power-request", "iokit-assertion" or "gnome-session".
func (g *Guard) Backend() string {
	return g.st.kind
}

var (
	defaultOnce    sync.Once
	defaultManager *Manager
)

// Default returns the package-level Manager used by the top-level functions.
// It logs through slog.Default().
func Default() *Manager {
	defaultOnce.Do(func() {
		defaultManager = New(Options{})
	})
	return defaultManager
}

// IsSupported reports whether the default Manager can acquire a wake lock.
func IsSupported() bool {
	return Default().IsSupported()
}

// Acquire acquires a wake lock through the default Manager.
func Acquire(reason string) (*Guard, error) {
	return Default().Acquire(reason)
}

// AcquireWithLinuxOptions acquires a wake lock through the default Manager
// with Linux inhibitor options.
func AcquireWithLinuxOptions(reason string, linux LinuxOptions) (*Guard, error) {
	return Default().AcquireWithLinuxOptions(reason, linux)
}

// Hold keeps the display awake while fn runs, using the default Manager.
func Hold(reason string, fn func() error) error {
	return Default().Hold(reason, fn)
}
