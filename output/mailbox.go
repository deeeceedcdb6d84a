// Package output hands rendered frames from the alarm handler to the LED
// strip. The producer never blocks: a frame that has not been picked up
// when the next one is posted is dropped and counted.
package output

import (
	"context"
	"image/color"
	"sync/atomic"
)

// Strip is the physical LED strip.
type Strip interface {
	WriteColors(buf []color.RGBA) error
}

// Mailbox is a two-buffer latest-frame hand-off for one producer (the
// alarm handler) and one consumer (Run).
//
// state packs two buffer references, each 0 (none) or index+1:
// bits 0..7 the published frame, bits 8..15 the frame being written out.
type Mailbox struct {
	bufs  [2][]color.RGBA
	state atomic.Uint32
	back  uint32 // producer only: index of the buffer being rendered
	wake  chan struct{}

	posted  atomic.Uint32
	dropped atomic.Uint32
	written atomic.Uint32
	errors  atomic.Uint32
}

func NewMailbox(leds int) *Mailbox {
	return &Mailbox{
		bufs: [2][]color.RGBA{make([]color.RGBA, leds), make([]color.RGBA, leds)},
		wake: make(chan struct{}, 1),
	}
}

func (m *Mailbox) Len() int { return len(m.bufs[0]) }

// Buffer returns a buffer the producer may render into. A published but
// unconsumed frame in that buffer is withdrawn and counted as dropped.
func (m *Mailbox) Buffer() []color.RGBA {
	for {
		st := m.state.Load()
		ready, busy := st&0xff, (st>>8)&0xff
		b := uint32(0)
		switch {
		case busy != 0:
			b = 2 - busy // the other one
		case ready == 1:
			b = 1
		}
		if ready != b+1 {
			m.back = b
			return m.bufs[b]
		}
		if m.state.CompareAndSwap(st, st&^0xff) {
			m.dropped.Add(1)
			m.back = b
			return m.bufs[b]
		}
	}
}

// Post publishes the buffer returned by the last Buffer call.
func (m *Mailbox) Post() {
	for {
		st := m.state.Load()
		if m.state.CompareAndSwap(st, st&^0xff|(m.back+1)) {
			if st&0xff != 0 {
				m.dropped.Add(1)
			}
			break
		}
	}
	m.posted.Add(1)
	select {
	case m.wake <- struct{}{}:
	default:
	}
}

// take claims the published frame, if any.
func (m *Mailbox) take() ([]color.RGBA, bool) {
	for {
		st := m.state.Load()
		ready := st & 0xff
		if ready == 0 {
			return nil, false
		}
		if m.state.CompareAndSwap(st, ready<<8) {
			return m.bufs[ready-1], true
		}
	}
}

func (m *Mailbox) release() {
	for {
		st := m.state.Load()
		if m.state.CompareAndSwap(st, st&0xff) {
			return
		}
	}
}

// Run writes published frames to strip until ctx is done. Write errors
// are counted; the next frame is tried regardless.
func (m *Mailbox) Run(ctx context.Context, strip Strip) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-m.wake:
		}
		for {
			buf, ok := m.take()
			if !ok {
				break
			}
			if err := strip.WriteColors(buf); err != nil {
				m.errors.Add(1)
			} else {
				m.written.Add(1)
			}
			m.release()
		}
	}
}

// Counters.
func (m *Mailbox) Posted() uint32  { return m.posted.Load() }
func (m *Mailbox) Dropped() uint32 { return m.dropped.Load() }
func (m *Mailbox) Written() uint32 { return m.written.Load() }
func (m *Mailbox) Errors() uint32  { return m.errors.Load() }
