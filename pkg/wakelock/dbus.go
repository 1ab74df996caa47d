package wakelock

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"

	"github.com/godbus/dbus/v5"
)

// dbusConn adapts a private godbus connection. Private connections are used
// so the pool can close them; dbus.SessionBus() is process-wide and must
// never be closed by a library.
type dbusConn struct {
	conn *dbus.Conn
}

func dialBus(kind busKind) (busConn, error) {
	var (
		conn *dbus.Conn
		err  error
	)
	switch kind {
	case systemBus:
		conn, err = dbus.ConnectSystemBus()
	default:
		var addr string
		addr, err = sessionBusAddress()
		if err != nil {
			return nil, err
		}
		conn, err = dbus.Connect(addr)
	}
	if err != nil {
		return nil, err
	}
	return &dbusConn{conn: conn}, nil
}

// sessionBusAddress resolves the session bus without falling back to
// autolaunch, which would start a bus as a side effect of probing.
func sessionBusAddress() (string, error) {
	if addr := os.Getenv("DBUS_SESSION_BUS_ADDRESS"); addr != "" {
		return addr, nil
	}
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		path := filepath.Join(dir, "bus")
		if _, err := os.Stat(path); err == nil {
			return "unix:path=" + path, nil
		}
	}
	return "", errors.New("no session bus address (DBUS_SESSION_BUS_ADDRESS unset)")
}

func (c *dbusConn) call(ctx context.Context, dest string, path dbus.ObjectPath, method string, args []any, ret ...any) error {
	call := c.conn.Object(dest, path).CallWithContext(ctx, method, 0, args...)
	if call.Err != nil {
		return call.Err
	}
	if len(ret) == 0 {
		return nil
	}
	return call.Store(ret...)
}

func (c *dbusConn) hasName(ctx context.Context, name string) (bool, error) {
	bus := c.conn.BusObject()

	var owned bool
	if err := bus.CallWithContext(ctx, "org.freedesktop.DBus.NameHasOwner", 0, name).Store(&owned); err != nil {
		return false, err
	}
	if owned {
		return true, nil
	}

	var activatable []string
	if err := bus.CallWithContext(ctx, "org.freedesktop.DBus.ListActivatableNames", 0).Store(&activatable); err != nil {
		return false, err
	}
	return slices.Contains(activatable, name), nil
}

func (c *dbusConn) close() error {
	return c.conn.Close()
}

// dbusErrorName returns the D-Bus error name carried by err, if any.
func dbusErrorName(err error) (string, bool) {
	var derr dbus.Error
	if errors.As(err, &derr) {
		return derr.Name, true
	}
	var pderr *dbus.Error
	if errors.As(err, &pderr) && pderr != nil {
		return pderr.Name, true
	}
	return "", false
}
