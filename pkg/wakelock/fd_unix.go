//go:build unix

package wakelock

import (
	"github.com/godbus/dbus/v5"
	"golang.org/x/sys/unix"
)

func closeFD(fd dbus.UnixFD) error {
	return unix.Close(int(fd))
}
