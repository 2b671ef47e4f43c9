package transcribe

import "sync/atomic"

// StartGuard prevents a recognizer from being started twice concurrently.
// Each strategy instance owns its own guard.
type StartGuard struct {
	busy atomic.Bool
}

// Acquire claims the guard, reporting false if it is already held.
func (g *StartGuard) Acquire() bool {
	return g.busy.CompareAndSwap(false, true)
}

// Release frees the guard. Releasing a free guard is a no-op.
func (g *StartGuard) Release() {
	g.busy.Store(false)
}

// Busy reports whether the guard is held.
func (g *StartGuard) Busy() bool {
	return g.busy.Load()
}
