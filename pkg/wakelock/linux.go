package wakelock

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/godbus/dbus/v5"
)

// inhibitProtocol selects the call shape of an inhibitor service.
type inhibitProtocol int

const (
	// Inhibit(app s, toplevel u, reason s, flags u) -> cookie u; Uninhibit(cookie)
	protoGnomeSession inhibitProtocol = iota
	// Inhibit(app s, reason s) -> cookie u; UnInhibit(cookie)
	protoCookie
	// Inhibit(window s, flags u, options a{sv}) -> request o; Request.Close()
	protoPortal
	// Inhibit(what s, who s, why s, mode s) -> fd h; close(fd)
	protoLogind
)

type inhibitService struct {
	name  string
	bus   busKind
	proto inhibitProtocol
	dest  string
	path  dbus.ObjectPath
	iface string
}

const portalRequestInterface = "org.freedesktop.portal.Request"

// linuxInhibitServices are tried in order; the first that answers wins.
var linuxInhibitServices = []inhibitService{
	{
		name:  "gnome-session",
		bus:   sessionBus,
		proto: protoGnomeSession,
		dest:  "org.gnome.SessionManager",
		path:  "/org/gnome/SessionManager",
		iface: "org.gnome.SessionManager",
	},
	{
		name:  "fdo-screensaver",
		bus:   sessionBus,
		proto: protoCookie,
		dest:  "org.freedesktop.ScreenSaver",
		path:  "/org/freedesktop/ScreenSaver",
		iface: "org.freedesktop.ScreenSaver",
	},
	{
		name:  "fdo-power-management",
		bus:   sessionBus,
		proto: protoCookie,
		dest:  "org.freedesktop.PowerManagement",
		path:  "/org/freedesktop/PowerManagement/Inhibit",
		iface: "org.freedesktop.PowerManagement.Inhibit",
	},
	{
		name:  "xdg-portal",
		bus:   sessionBus,
		proto: protoPortal,
		dest:  "org.freedesktop.portal.Desktop",
		path:  "/org/freedesktop/portal/desktop",
		iface: "org.freedesktop.portal.Inhibit",
	},
	{
		name:  "logind",
		bus:   systemBus,
		proto: protoLogind,
		dest:  "org.freedesktop.login1",
		path:  "/org/freedesktop/login1",
		iface: "org.freedesktop.login1.Manager",
	},
}

// inhibitToken is whatever the service handed back to identify the
// inhibition: a cookie, a portal request path or a logind fd.
type inhibitToken struct {
	cookie  uint32
	request dbus.ObjectPath
	fd      dbus.UnixFD
}

type inhibitRequest struct {
	app    string
	reason string
	flags  InhibitFlags
}

func (s *inhibitService) inhibit(ctx context.Context, c busConn, req inhibitRequest) (inhibitToken, error) {
	var tok inhibitToken
	method := s.iface + ".Inhibit"
	switch s.proto {
	case protoGnomeSession:
		err := c.call(ctx, s.dest, s.path, method,
			[]any{req.app, uint32(0), req.reason, uint32(req.flags)}, &tok.cookie)
		return tok, err
	case protoCookie:
		err := c.call(ctx, s.dest, s.path, method, []any{req.app, req.reason}, &tok.cookie)
		return tok, err
	case protoPortal:
		options := map[string]dbus.Variant{
			"reason": dbus.MakeVariant(req.reason),
		}
		err := c.call(ctx, s.dest, s.path, method,
			[]any{"", uint32(req.flags), options}, &tok.request)
		return tok, err
	case protoLogind:
		err := c.call(ctx, s.dest, s.path, method,
			[]any{req.flags.logindWhat(), req.app, req.reason, "block"}, &tok.fd)
		return tok, err
	}
	return tok, errors.New("unknown inhibitor protocol")
}

func (s *inhibitService) uninhibit(ctx context.Context, c busConn, tok inhibitToken, closeFD func(dbus.UnixFD) error) error {
	switch s.proto {
	case protoGnomeSession:
		return c.call(ctx, s.dest, s.path, s.iface+".Uninhibit", []any{tok.cookie})
	case protoCookie:
		return c.call(ctx, s.dest, s.path, s.iface+".UnInhibit", []any{tok.cookie})
	case protoPortal:
		return c.call(ctx, s.dest, tok.request, portalRequestInterface+".Close", nil)
	case protoLogind:
		return closeFD(tok.fd)
	}
	return errors.New("unknown inhibitor protocol")
}

func (s *inhibitService) releaseOp() string {
	switch s.proto {
	case protoGnomeSession:
		return s.iface + ".Uninhibit"
	case protoPortal:
		return portalRequestInterface + ".Close"
	case protoLogind:
		return "close inhibitor fd"
	}
	return s.iface + ".UnInhibit"
}

// D-Bus errors meaning "nobody here implements this", as opposed to a
// service that exists and refused.
var absentServiceErrors = map[string]bool{
	"org.freedesktop.DBus.Error.ServiceUnknown":           true,
	"org.freedesktop.DBus.Error.NameHasNoOwner":           true,
	"org.freedesktop.DBus.Error.UnknownMethod":            true,
	"org.freedesktop.DBus.Error.UnknownObject":            true,
	"org.freedesktop.DBus.Error.UnknownInterface":         true,
	"org.freedesktop.DBus.Error.Spawn.ServiceNotFound":    true,
	"org.freedesktop.DBus.Error.Spawn.ExecFailed":         true,
	"org.freedesktop.DBus.Error.Spawn.ChildExited":        true,
	"org.freedesktop.DBus.Error.Spawn.FileInvalid":        true,
	"org.freedesktop.DBus.Error.Spawn.ConfigInvalid":      true,
	"org.freedesktop.DBus.Error.Spawn.PermissionsInvalid": true,
}

func serviceAbsent(err error) bool {
	name, ok := dbusErrorName(err)
	return ok && absentServiceErrors[name]
}

func busError(op string, err error) *PlatformError {
	pe := &PlatformError{Op: op, Message: err.Error(), Err: err}
	if name, ok := dbusErrorName(err); ok && name != pe.Message {
		pe.Message = name + ": " + pe.Message
	}
	return pe
}

// linuxBackend inhibits idle through the first reachable inhibitor service.
type linuxBackend struct {
	pools    [2]*busPool
	services []inhibitService
	timeout  time.Duration
	closeFD  func(dbus.UnixFD) error
	log      *slog.Logger
}

func newLinuxBackend(dial busDialer, opts Options) *linuxBackend {
	opts = opts.withDefaults()
	log := opts.Logger.With("component", "wakelock", "platform", "linux")
	return &linuxBackend{
		pools: [2]*busPool{
			sessionBus: newBusPool(sessionBus, dial, log),
			systemBus:  newBusPool(systemBus, dial, log),
		},
		services: linuxInhibitServices,
		timeout:  opts.BusTimeout,
		closeFD:  closeFD,
		log:      log,
	}
}

func (b *linuxBackend) platform() string { return "linux" }

func (b *linuxBackend) supported() bool {
	for _, kind := range []busKind{sessionBus, systemBus} {
		pool := b.pools[kind]
		// A connection the bus already dropped is replaced once.
		for attempt := 0; attempt < 2; attempt++ {
			pc, err := pool.get()
			if err != nil {
				b.log.Debug("bus unreachable", "bus", kind, "error", err)
				break
			}
			found, stale := b.probe(pc, kind)
			if stale {
				pool.invalidate(pc)
			}
			pool.put(pc)
			if found {
				return true
			}
			if !stale {
				break
			}
		}
	}
	return false
}

// probe reports whether any service for kind is present on c, and whether c
// turned out to be closed.
func (b *linuxBackend) probe(c busConn, kind busKind) (found, stale bool) {
	for i := range b.services {
		s := &b.services[i]
		if s.bus != kind {
			continue
		}
		ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
		ok, err := c.hasName(ctx, s.dest)
		cancel()
		if errors.Is(err, dbus.ErrClosed) {
			return false, true
		}
		if err != nil {
			b.log.Debug("name lookup failed", "bus", kind, "name", s.dest, "error", err)
			continue
		}
		if ok {
			return true, false
		}
	}
	return false, false
}

func (b *linuxBackend) acquire(reason string, linux LinuxOptions) (handle, error) {
	if linux.Reason != "" {
		reason = linux.Reason
	}
	req := inhibitRequest{app: linux.ApplicationID, reason: reason, flags: linux.Inhibit}

	var (
		failure error
		reached bool
	)
	for _, kind := range []busKind{sessionBus, systemBus} {
		pool := b.pools[kind]
		for attempt := 0; attempt < 2; attempt++ {
			pc, err := pool.get()
			if err != nil {
				b.log.Debug("bus unreachable", "bus", kind, "error", err)
				break
			}
			reached = true

			h, stale, ferr := b.inhibitOn(pool, pc, kind, req)
			if h != nil {
				return h, nil
			}
			if stale {
				pool.invalidate(pc)
			}
			pool.put(pc)
			if stale && attempt == 0 {
				b.log.Debug("bus connection closed, redialing", "bus", kind)
				continue
			}
			if failure == nil {
				failure = ferr
			}
			break
		}
	}

	if failure != nil {
		return nil, failure
	}
	if !reached {
		return nil, unsupported("neither the session nor the system bus is reachable")
	}
	return nil, unsupported("no idle inhibitor service on the session or system bus")
}

// inhibitOn walks the services of one bus on pc. On success the returned
// handle owns the reference on pc. It stops early when pc is closed.
func (b *linuxBackend) inhibitOn(pool *busPool, pc *pooledConn, kind busKind, req inhibitRequest) (h handle, stale bool, failure error) {
	for i := range b.services {
		s := &b.services[i]
		if s.bus != kind {
			continue
		}
		ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
		tok, err := s.inhibit(ctx, pc, req)
		cancel()
		if err == nil {
			return &busInhibitor{backend: b, pool: pool, conn: pc, svc: s, tok: tok}, false, nil
		}
		if serviceAbsent(err) {
			b.log.Debug("inhibitor service absent", "service", s.name, "error", err)
			continue
		}
		if errors.Is(err, dbus.ErrClosed) {
			if failure == nil {
				failure = busError(s.iface+".Inhibit", err)
			}
			return nil, true, failure
		}
		b.log.Debug("inhibitor service failed", "service", s.name, "error", err)
		if failure == nil {
			failure = busError(s.iface+".Inhibit", err)
		}
	}
	return nil, false, failure
}

// busInhibitor holds one cookie (or portal request, or logind fd) plus a
// reference on the pooled connection it was obtained on.
type busInhibitor struct {
	backend *linuxBackend
	pool    *busPool
	conn    *pooledConn
	svc     *inhibitService
	tok     inhibitToken
}

func (h *busInhibitor) kind() string { return h.svc.name }

func (h *busInhibitor) release() error {
	defer h.pool.put(h.conn)

	ctx, cancel := context.WithTimeout(context.Background(), h.backend.timeout)
	defer cancel()

	err := h.svc.uninhibit(ctx, h.conn, h.tok, h.backend.closeFD)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, dbus.ErrClosed):
		// The connection is gone and the service dropped our cookie with it.
		h.pool.invalidate(h.conn)
		return nil
	case serviceAbsent(err):
		// Service exited or the portal already completed the request.
		return nil
	}
	return busError(h.svc.releaseOp(), err)
}
