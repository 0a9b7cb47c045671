package nav

import "sync/atomic"

var debugChecks atomic.Bool

// SetDebugChecks turns invariant violations (heap index desync, broken parent
// chains, waypoint bookkeeping) into panics instead of logged errors.
func SetDebugChecks(on bool) {
	debugChecks.Store(on)
}

func DebugChecks() bool {
	return debugChecks.Load()
}

// Check panics on err when debug checks are on and returns it otherwise.
func Check(err error) error {
	if err != nil && debugChecks.Load() {
		panic(err)
	}
	return err
}
