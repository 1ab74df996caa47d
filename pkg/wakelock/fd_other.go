//go:build !unix

package wakelock

import (
	"errors"

	"github.com/godbus/dbus/v5"
)

func closeFD(dbus.UnixFD) error {
	return errors.New("file descriptor passing is not supported on this platform")
}
