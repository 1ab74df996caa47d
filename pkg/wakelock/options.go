package wakelock

import (
	"log/slog"
	"time"
)

// DefaultApplicationID is sent to Linux inhibitor services when
// LinuxOptions.ApplicationID is empty.
const DefaultApplicationID = "screen_wake_lock"

// DefaultBusTimeout bounds a single D-Bus round-trip. It matches the reply
// timeout used by the reference D-Bus implementation.
const DefaultBusTimeout = 25 * time.Second

// InhibitFlags selects what a Linux inhibitor should block. Values follow the
// GNOME SessionManager and XDG portal bit layout.
type InhibitFlags uint32

const (
	InhibitLogout     InhibitFlags = 1
	InhibitUserSwitch InhibitFlags = 2
	InhibitSuspend    InhibitFlags = 4
	InhibitIdle       InhibitFlags = 8
)

// Has reports whether all bits of f2 are set in f.
func (f InhibitFlags) Has(f2 InhibitFlags) bool {
	return f&f2 == f2
}

// logindWhat maps the flags onto a colon-separated logind "what" list.
func (f InhibitFlags) logindWhat() string {
	what := "idle"
	if f.Has(InhibitSuspend) {
		what += ":sleep"
	}
	return what
}

// LinuxOptions carries Linux-only inhibitor knobs. Other platforms accept and
// ignore them.
type LinuxOptions struct {
	// ApplicationID is the application name reported to the inhibitor
	// service, often reverse-DNS. Empty means DefaultApplicationID.
	ApplicationID string

	// Reason, when set, replaces the reason passed to Acquire.
	Reason string

	// Inhibit selects what to block. Zero means InhibitIdle.
	Inhibit InhibitFlags
}

func (o LinuxOptions) withDefaults() LinuxOptions {
	if o.ApplicationID == "" {
		o.ApplicationID = DefaultApplicationID
	}
	if o.Inhibit == 0 {
		o.Inhibit = InhibitIdle
	}
	// The display must stay awake whatever else is requested.
	o.Inhibit |= InhibitIdle
	return o
}

// Options configures a Manager.
type Options struct {
	// Logger receives diagnostics. Nil means slog.Default().
	Logger *slog.Logger

	// BusTimeout bounds each D-Bus call on Linux. Zero means DefaultBusTimeout.
	BusTimeout time.Duration

	// Linux holds the defaults used by Acquire on Linux.
	Linux LinuxOptions
}

func (o Options) withDefaults() Options {
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.BusTimeout <= 0 {
		o.BusTimeout = DefaultBusTimeout
	}
	return o
}
