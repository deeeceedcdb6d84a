// Package timebase is the single time source of the strobe engine.
//
// A Tick is one microsecond. The counter is 32 bits wide and wraps every
// 2^32 ticks (about 71.6 minutes). All arithmetic on ticks is modular:
// differences are valid while the compared ticks lie within 2^31 of each
// other, so no tick is lost across the wrap.
package timebase

import (
	"math"
	"time"
)

// Tick counts microseconds since an arbitrary origin, modulo 2^32.
type Tick uint32

const (
	TicksPerSecond = 1_000_000
	TickDuration   = time.Microsecond
)

// Clock is the injection boundary for time. Now must be monotonic (modulo
// wrap), non-blocking and safe from interrupt context.
type Clock interface {
	Now() Tick
}

// Add returns t advanced by d ticks.
func (t Tick) Add(d uint32) Tick { return t + Tick(d) }

// Since returns the ticks elapsed from 'from' to t.
func (t Tick) Since(from Tick) uint32 { return uint32(t - from) }

// Diff returns the signed distance t-other.
func (t Tick) Diff(other Tick) int32 { return int32(t - other) }

func (t Tick) Before(other Tick) bool { return int32(t-other) < 0 }
func (t Tick) After(other Tick) bool  { return int32(t-other) > 0 }

// Duration converts a tick count to a time.Duration.
func Duration(ticks uint32) time.Duration { return time.Duration(ticks) * TickDuration }

// FromDuration converts d to ticks, saturating at the 32-bit range.
func FromDuration(d time.Duration) uint32 {
	if d <= 0 {
		return 0
	}
	n := d / TickDuration
	if n > math.MaxUint32 {
		return math.MaxUint32
	}
	return uint32(n)
}

// FromHz returns the period in ticks of a frequency, rounded to the
// nearest tick. Non-positive or non-finite input yields 0.
func FromHz(hz float64) uint32 {
	if !(hz > 0) || math.IsInf(hz, 0) {
		return 0
	}
	p := math.Round(TicksPerSecond / hz)
	if p > math.MaxUint32 {
		return math.MaxUint32
	}
	return uint32(p)
}

// Hz returns the frequency of a period given in ticks.
func Hz(period uint32) float64 {
	if period == 0 {
		return 0
	}
	return TicksPerSecond / float64(period)
}
