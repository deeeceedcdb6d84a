package timebase

import (
	"sync/atomic"
	"time"
)

// Host derives ticks from the Go monotonic clock.
type Host struct {
	start time.Time
}

func NewHost() *Host { return &Host{start: time.Now()} }

func (h *Host) Now() Tick {
	return Tick(uint64(time.Since(h.start) / TickDuration))
}

// Manual is a settable clock for deterministic tests.
type Manual struct {
	t atomic.Uint32
}

func NewManual(start Tick) *Manual {
	m := &Manual{}
	m.t.Store(uint32(start))
	return m
}

func (m *Manual) Now() Tick  { return Tick(m.t.Load()) }
func (m *Manual) Set(t Tick) { m.t.Store(uint32(t)) }

// Advance moves the clock forward by d ticks and returns the new value.
func (m *Manual) Advance(d uint32) Tick { return Tick(m.t.Add(d)) }
