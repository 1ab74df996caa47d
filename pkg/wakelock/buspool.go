package wakelock

import (
	"context"
	"log/slog"
	"sync"

	"github.com/godbus/dbus/v5"
)

type busKind int

const (
	sessionBus busKind = iota
	systemBus
)

func (k busKind) String() string {
	if k == systemBus {
		return "system"
	}
	return "session"
}

// busConn is the part of a D-Bus connection the Linux backend uses.
type busConn interface {
	call(ctx context.Context, dest string, path dbus.ObjectPath, method string, args []any, ret ...any) error
	// hasName reports whether name is owned or activatable on the bus.
	hasName(ctx context.Context, name string) (bool, error)
	close() error
}

type busDialer func(kind busKind) (busConn, error)

// pooledConn counts the guards (and in-flight probes) using a connection.
// refs is guarded by the owning pool's mutex.
type pooledConn struct {
	busConn
	refs int
}

// busPool shares one connection per bus among all guards. Guards own their
// cookies; the pool owns the connection and closes it once the last
// reference is returned.
type busPool struct {
	kind busKind
	dial busDialer
	log  *slog.Logger

	mu  sync.Mutex
	cur *pooledConn
}

func newBusPool(kind busKind, dial busDialer, log *slog.Logger) *busPool {
	return &busPool{kind: kind, dial: dial, log: log}
}

// get returns the shared connection, dialing if there is none, and takes a
// reference on it.
func (p *busPool) get() (*pooledConn, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cur == nil {
		c, err := p.dial(p.kind)
		if err != nil {
			return nil, err
		}
		p.cur = &pooledConn{busConn: c}
		p.log.Debug("bus connection opened", "bus", p.kind)
	}
	p.cur.refs++
	return p.cur, nil
}

// put drops a reference taken by get.
func (p *busPool) put(pc *pooledConn) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if pc.refs == 0 {
		return
	}
	pc.refs--
	if pc.refs > 0 {
		return
	}
	if p.cur == pc {
		p.cur = nil
	}
	if err := pc.close(); err != nil {
		p.log.Debug("bus connection close failed", "bus", p.kind, "error", err)
		return
	}
	p.log.Debug("bus connection closed", "bus", p.kind)
}

// invalidate stops handing out pc after the bus dropped it. Holders keep
// their references until they put them back.
func (p *busPool) invalidate(pc *pooledConn) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cur == pc {
		p.cur = nil
	}
}
