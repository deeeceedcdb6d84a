package fountain

import (
	"timefountain-go/timebase"
	"timefountain-go/x/mathx"
)

// Phase is a Q0.32 fraction of a period: value/2^32 in [0, 1).
type Phase uint32

func (p Phase) Float() float64 { return float64(p) / (1 << 32) }

// Slot returns floor(p*n).
func (p Phase) Slot(n int) int {
	if n <= 0 {
		return 0
	}
	return int(uint64(p) * uint64(n) >> 32)
}

// clock is one periodic reference. Positions are kept in micro-ticks
// (1e6 per tick) so an offset period is represented exactly.
type clock struct {
	anchor timebase.Tick
	rem    uint64 // position at anchor, micro-ticks, < period
	period uint64 // micro-ticks
}

func (c *clock) seed(now timebase.Tick, period, rem uint64) {
	c.anchor = now
	c.period = period
	c.rem = rem % period
}

// at returns the position at now. Forward queries fold the anchor to now
// so the anchor never ages past the tick wrap.
func (c *clock) at(now timebase.Tick) uint64 {
	d := now.Diff(c.anchor)
	if d >= 0 {
		pos := (c.rem + uint64(d)*micro) % c.period
		c.anchor, c.rem = now, pos
		return pos
	}
	back := uint64(-int64(d)) * micro % c.period
	return (c.rem + c.period - back) % c.period
}

// retune switches to a new period at now keeping the phase fraction.
func (c *clock) retune(now timebase.Tick, period uint64) {
	pos := c.at(now)
	c.seed(now, period, mathx.MulDiv(pos, period, c.period))
}

func (c *clock) phase(now timebase.Tick) Phase {
	return Phase(mathx.MulDiv(c.at(now), 1<<32, c.period))
}

// Accumulator turns ticks into phases for the strobe clock, the droplet
// clock and the stream clocks of a Snapshot. When the snapshot's periods
// change it re-anchors at the query tick, so the phase is continuous.
type Accumulator struct {
	strobe  clock
	drop    clock
	streams [MaxStreams]clock
	cfg     [MaxStreams]Stream
	begin   [MaxStreams]timebase.Tick // first burst of a pending stream
	pending [MaxStreams]bool
	active  int
	ready   bool
}

// Reset puts both main clocks at phase zero at now.
func (a *Accumulator) Reset(now timebase.Tick, s *Snapshot) {
	a.strobe.seed(now, s.strobeQ, 0)
	a.drop.seed(now, s.dropQ, 0)
	a.active = 0
	a.syncStreams(now, s)
	a.ready = true
}

func (a *Accumulator) sync(now timebase.Tick, s *Snapshot) {
	if !a.ready {
		a.Reset(now, s)
		return
	}
	if a.strobe.period != s.strobeQ {
		a.strobe.retune(now, s.strobeQ)
	}
	if a.drop.period != s.dropQ {
		a.drop.retune(now, s.dropQ)
	}
	a.syncStreams(now, s)
}

// syncStreams seeds streams that are new or have a new start, and retunes
// those whose period changed. A stream's clock starts at its first burst,
// Start ticks after it was configured.
func (a *Accumulator) syncStreams(now timebase.Tick, s *Snapshot) {
	for i := 0; i < s.nstreams; i++ {
		st, p := s.Streams[i], s.streams[i].period
		c := &a.streams[i]
		switch {
		case i >= a.active || a.cfg[i].Start != st.Start:
			a.begin[i] = now.Add(st.Start)
			a.pending[i] = st.Start > 0
			c.seed(a.begin[i], p, 0)
		case c.period == p:
		case a.pending[i] && now.Before(a.begin[i]):
			c.seed(a.begin[i], p, 0)
		default:
			a.pending[i] = false
			c.retune(now, p)
		}
		a.cfg[i] = st
	}
	a.active = s.nstreams
}

// streamPos is stream i's position at now in micro-ticks. It reports
// false before the stream's first burst.
func (a *Accumulator) streamPos(i int, now timebase.Tick) (uint64, bool) {
	if a.pending[i] {
		if now.Before(a.begin[i]) {
			return 0, false
		}
		a.pending[i] = false
	}
	return a.streams[i].at(now), true
}

// Advance returns the strobe clock phase at now. Calling it again with
// the same tick and snapshot returns the same phase.
func (a *Accumulator) Advance(now timebase.Tick, s *Snapshot) Phase {
	a.sync(now, s)
	return a.strobe.phase(now)
}

// Fountain returns the droplet clock phase at now.
func (a *Accumulator) Fountain(now timebase.Tick, s *Snapshot) Phase {
	a.sync(now, s)
	return a.drop.phase(now)
}

// Stream returns the phase of stream i at now, 0 before its first burst.
func (a *Accumulator) Stream(i int, now timebase.Tick, s *Snapshot) Phase {
	a.sync(now, s)
	if i < 0 || i >= a.active {
		return 0
	}
	pos, ok := a.streamPos(i, now)
	if !ok {
		return 0
	}
	return Phase(mathx.MulDiv(pos, 1<<32, a.streams[i].period))
}

// StreamLit reports whether stream i is inside its burst at now.
func (a *Accumulator) StreamLit(i int, now timebase.Tick, s *Snapshot) bool {
	a.sync(now, s)
	if i < 0 || i >= a.active {
		return false
	}
	pos, ok := a.streamPos(i, now)
	return ok && pos < s.streams[i].litQ
}

// StreamEdge returns the ticks from now to the next burst start or end
// of any stream, rounded up so the new state holds at the returned tick.
// It reports false when no stream ever changes.
func (a *Accumulator) StreamEdge(now timebase.Tick, s *Snapshot) (uint32, bool) {
	a.sync(now, s)
	var best uint32
	found := false
	for i := 0; i < a.active; i++ {
		var d uint32
		p, lit := s.streams[i].period, s.streams[i].litQ
		if pos, ok := a.streamPos(i, now); !ok {
			d = uint32(a.begin[i].Diff(now))
		} else if lit >= p {
			continue
		} else {
			q := p - pos
			if pos < lit {
				q = lit - pos
			}
			d = uint32((q + micro - 1) / micro)
		}
		if !found || d < best {
			best, found = d, true
		}
	}
	return best, found
}
