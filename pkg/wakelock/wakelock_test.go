package wakelock

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeBackend struct {
	ok         bool
	acquireErr error
	releaseErr error

	mu       sync.Mutex
	reasons  []string
	options  []LinuxOptions
	releases atomic.Int32
}

func (b *fakeBackend) platform() string { return "fake" }

func (b *fakeBackend) supported() bool { return b.ok }

func (b *fakeBackend) acquire(reason string, linux LinuxOptions) (handle, error) {
	if b.acquireErr != nil {
		return nil, b.acquireErr
	}
	b.mu.Lock()
	b.reasons = append(b.reasons, reason)
	b.options = append(b.options, linux)
	b.mu.Unlock()
	return &fakeHandle{b: b}, nil
}

type fakeHandle struct {
	b *fakeBackend
}

func (h *fakeHandle) kind() string { return "fake" }

func (h *fakeHandle) release() error {
	h.b.releases.Add(1)
	return h.b.releaseErr
}

func newTestManager(b backend) *Manager {
	return newManager(b, Options{Logger: testLogger()})
}

func TestAcquireRelease(t *testing.T) {
	b := &fakeBackend{ok: true}
	m := newTestManager(b)

	g, err := m.Acquire("Playing video")
	require.NoError(t, err)
	assert.Equal(t, "Playing video", g.Reason())
	assert.Equal(t, "fake", g.Backend())
	assert.False(t, g.Released())

	require.NoError(t, g.Release())
	assert.True(t, g.Released())
	assert.Equal(t, int32(1), b.releases.Load())
}

func TestAcquireReleaseLogOnlyAtDebug(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
	m := newManager(&fakeBackend{ok: true}, Options{Logger: logger})

	g, err := m.Acquire("quiet")
	require.NoError(t, err)
	require.NoError(t, g.Release())
	assert.Empty(t, buf.String())

	logger = slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	m = newManager(&fakeBackend{ok: true}, Options{Logger: logger})
	g, err = m.Acquire("verbose")
	require.NoError(t, err)
	require.NoError(t, g.Release())
	assert.Contains(t, buf.String(), "wake lock acquired")
	assert.Contains(t, buf.String(), "wake lock released")
}

func TestReleaseTwiceReleasesOnce(t *testing.T) {
	b := &fakeBackend{ok: true}
	m := newTestManager(b)

	g, err := m.Acquire("build")
	require.NoError(t, err)

	require.NoError(t, g.Release())
	assert.ErrorIs(t, g.Release(), ErrAlreadyReleased)
	assert.ErrorIs(t, g.Release(), ErrAlreadyReleased)
	assert.Equal(t, int32(1), b.releases.Load())
}

func TestReleaseErrorIsReturnedOnce(t *testing.T) {
	failure := errors.New("boom")
	b := &fakeBackend{ok: true, releaseErr: failure}
	m := newTestManager(b)

	g, err := m.Acquire("build")
	require.NoError(t, err)

	assert.ErrorIs(t, g.Release(), failure)
	assert.ErrorIs(t, g.Release(), ErrAlreadyReleased)
	assert.Equal(t, int32(1), b.releases.Load())
}

func TestAcquireFailureReturnsNoGuard(t *testing.T) {
	b := &fakeBackend{acquireErr: unsupported("test")}
	m := newTestManager(b)

	g, err := m.Acquire("anything")
	assert.Nil(t, g)
	assert.ErrorIs(t, err, ErrUnsupported)
	assert.Equal(t, int32(0), b.releases.Load())
}

func TestConcurrentReleaseCallsNativeOnce(t *testing.T) {
	b := &fakeBackend{ok: true}
	m := newTestManager(b)

	g, err := m.Acquire("race")
	require.NoError(t, err)

	const n = 32
	var (
		wg        sync.WaitGroup
		succeeded atomic.Int32
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := g.Release(); err == nil {
				succeeded.Add(1)
			} else {
				assert.ErrorIs(t, err, ErrAlreadyReleased)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), succeeded.Load())
	assert.Equal(t, int32(1), b.releases.Load())
}

func acquireAndDrop(t *testing.T, m *Manager) {
	t.Helper()
	_, err := m.Acquire("dropped")
	require.NoError(t, err)
}

func TestDroppedGuardIsReleasedOnce(t *testing.T) {
	b := &fakeBackend{ok: true}
	m := newTestManager(b)

	acquireAndDrop(t, m)

	require.Eventually(t, func() bool {
		runtime.GC()
		return b.releases.Load() == 1
	}, 5*time.Second, 10*time.Millisecond)

	runtime.GC()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(1), b.releases.Load())
}

func TestReleasedGuardIsNotReleasedAgainByCleanup(t *testing.T) {
	b := &fakeBackend{ok: true}
	m := newTestManager(b)

	func() {
		g, err := m.Acquire("explicit")
		require.NoError(t, err)
		require.NoError(t, g.Release())
	}()

	for i := 0; i < 5; i++ {
		runtime.GC()
		time.Sleep(5 * time.Millisecond)
	}
	assert.Equal(t, int32(1), b.releases.Load())
}

func TestHold(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		b := &fakeBackend{ok: true}
		m := newTestManager(b)

		ran := false
		err := m.Hold("job", func() error {
			ran = true
			assert.Equal(t, int32(0), b.releases.Load())
			return nil
		})
		require.NoError(t, err)
		assert.True(t, ran)
		assert.Equal(t, int32(1), b.releases.Load())
	})

	t.Run("fn error wins", func(t *testing.T) {
		failure := errors.New("job failed")
		b := &fakeBackend{ok: true, releaseErr: errors.New("release failed")}
		m := newTestManager(b)

		err := m.Hold("job", func() error { return failure })
		assert.ErrorIs(t, err, failure)
		assert.Equal(t, int32(1), b.releases.Load())
	})

	t.Run("release error surfaces", func(t *testing.T) {
		releaseErr := errors.New("release failed")
		b := &fakeBackend{ok: true, releaseErr: releaseErr}
		m := newTestManager(b)

		err := m.Hold("job", func() error { return nil })
		assert.ErrorIs(t, err, releaseErr)
	})

	t.Run("panic", func(t *testing.T) {
		b := &fakeBackend{ok: true}
		m := newTestManager(b)

		assert.Panics(t, func() {
			_ = m.Hold("job", func() error { panic("kaboom") })
		})
		assert.Equal(t, int32(1), b.releases.Load())
	})

	t.Run("acquire failure skips fn", func(t *testing.T) {
		b := &fakeBackend{acquireErr: unsupported("test")}
		m := newTestManager(b)

		err := m.Hold("job", func() error {
			t.Fatal("fn must not run without a wake lock")
			return nil
		})
		assert.ErrorIs(t, err, ErrUnsupported)
	})
}

func TestManagerAppliesLinuxDefaults(t *testing.T) {
	b := &fakeBackend{ok: true}
	m := newManager(b, Options{
		Logger: testLogger(),
		Linux:  LinuxOptions{ApplicationID: "org.example.Player"},
	})

	g, err := m.Acquire("video")
	require.NoError(t, err)
	require.NoError(t, g.Release())

	g, err = m.AcquireWithLinuxOptions("video", LinuxOptions{Inhibit: InhibitSuspend})
	require.NoError(t, err)
	require.NoError(t, g.Release())

	require.Len(t, b.options, 2)
	assert.Equal(t, LinuxOptions{ApplicationID: "org.example.Player", Inhibit: InhibitIdle}, b.options[0])
	assert.Equal(t, LinuxOptions{ApplicationID: DefaultApplicationID, Inhibit: InhibitIdle | InhibitSuspend}, b.options[1])
}

func TestUnsupportedBackend(t *testing.T) {
	m := newTestManager(unsupportedBackend{goos: "plan9"})

	assert.False(t, m.IsSupported())
	assert.Equal(t, "plan9", m.Platform())

	g, err := m.Acquire("x")
	assert.Nil(t, g)
	assert.ErrorIs(t, err, ErrUnsupported)

	var pe *PlatformError
	assert.False(t, errors.As(err, &pe))
}

func TestPlatformErrorMessage(t *testing.T) {
	err := &PlatformError{Op: "PowerCreateRequest", Code: 5, Message: "Access is denied."}
	assert.Equal(t, "PowerCreateRequest failed (code=5): Access is denied.", err.Error())

	inner := errors.New("no reply")
	err = &PlatformError{Op: "org.freedesktop.ScreenSaver.Inhibit", Err: inner}
	assert.Equal(t, "org.freedesktop.ScreenSaver.Inhibit failed: no reply", err.Error())
	assert.ErrorIs(t, err, inner)
}

func TestInhibitFlagsLogindWhat(t *testing.T) {
	assert.Equal(t, "idle", InhibitIdle.logindWhat())
	assert.Equal(t, "idle:sleep", (InhibitIdle | InhibitSuspend).logindWhat())
	assert.True(t, (InhibitIdle | InhibitLogout).Has(InhibitLogout))
	assert.False(t, InhibitIdle.Has(InhibitSuspend))
}
