// Package retention abstracts the deferred, fire-and-forget deletion of
// delivered messages after their configured lifetime.
package retention

import "time"

// Scheduler runs a function once after a delay. The dispatcher never waits
// on scheduled work; a run completes regardless of pending expirations.
type Scheduler interface {
	ScheduleOnce(d time.Duration, fn func())
}

// Timers backs Scheduler with process-local OS timers. Pending expirations
// are lost on restart; message lifetime is best-effort by design.
type Timers struct{}

func (Timers) ScheduleOnce(d time.Duration, fn func()) {
	time.AfterFunc(d, fn)
}
