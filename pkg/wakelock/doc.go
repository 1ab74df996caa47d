// Package wakelock keeps the display from idling while a Guard is held.
//
// A Guard owns exactly one native inhibition: a power request on Windows, an
// IOKit power assertion on macOS, or an inhibitor cookie obtained over D-Bus
// on Linux. The inhibition lasts until Release is called; releasing twice
// never reaches the OS a second time.
//
//	guard, err := wakelock.Acquire("Playing video")
//	if err != nil {
//		return err
//	}
//	defer guard.Release()
//
// Hold wraps the same pattern for a single function call. Guards dropped
// without Release are released when the garbage collector notices them, but
// that is a safety net, not a lifetime model.
//
// Acquisition and release are synchronous. On Linux they perform a D-Bus
// round-trip bounded by Options.BusTimeout.
package wakelock
