//go:build !(rp2040 || rp2350)

package platform

import (
	"errors"
	"sync"
	"time"

	"timefountain-go/timebase"
)

var (
	ErrAlarmUnbound = errors.New("platform: alarm has no handler")
	ErrAlarmStopped = errors.New("platform: alarm stopped")
)

// Clock is the host monotonic clock.
type Clock = timebase.Host

func NewClock() *Clock { return timebase.NewHost() }

// SoftAlarm emulates a one-shot timer alarm with a runtime timer. Timing
// jitter is that of the Go scheduler; pair it with a generous tolerance.
type SoftAlarm struct {
	clock   timebase.Clock
	mu      sync.Mutex
	run     sync.Mutex // serialises handler calls
	t       *time.Timer
	fn      func()
	stopped bool
}

func NewSoftAlarm(clock timebase.Clock) *SoftAlarm {
	return &SoftAlarm{clock: clock}
}

func (a *SoftAlarm) Bind(fn func()) {
	a.mu.Lock()
	a.fn = fn
	a.mu.Unlock()
}

func (a *SoftAlarm) Arm(at timebase.Tick) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.stopped {
		return ErrAlarmStopped
	}
	if a.fn == nil {
		return ErrAlarmUnbound
	}
	var d time.Duration
	if diff := at.Diff(a.clock.Now()); diff > 0 {
		d = timebase.Duration(uint32(diff))
	}
	if a.t != nil {
		a.t.Stop()
	}
	a.t = time.AfterFunc(d, a.fire)
	return nil
}

func (a *SoftAlarm) fire() {
	a.mu.Lock()
	fn, stopped := a.fn, a.stopped
	a.mu.Unlock()
	if stopped || fn == nil {
		return
	}
	a.run.Lock()
	defer a.run.Unlock()
	fn()
}

// Stop cancels the pending alarm; later Arm calls fail.
func (a *SoftAlarm) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stopped = true
	if a.t != nil {
		a.t.Stop()
	}
}
