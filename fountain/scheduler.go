package fountain

import "timefountain-go/timebase"

// State of the Scheduler.
type State uint8

const (
	Armed State = iota
	Firing
)

func (s State) String() string {
	if s == Firing {
		return "firing"
	}
	return "armed"
}

// Outcome of a Fire call.
type Outcome uint8

const (
	Early   Outcome = iota // alarm before the fire tick; still armed, no event
	Fired                  // on time; event is valid
	Skipped                // late beyond tolerance; frame dropped, schedule restarted from now
)

// StrobeEvent describes one flash.
type StrobeEvent struct {
	FireTick timebase.Tick
	Phase    Phase // strobe clock phase at FireTick
	Fountain Phase // droplet clock phase at FireTick
	Streams  [MaxStreams]Phase
	Lit      uint8 // bit i set when stream i is inside its burst
	Index    uint32 // count of fired strobes before this one
	Late     uint32 // ticks between FireTick and the handler running
}

// Scheduler decides the fire ticks. On-time strobes are spaced from the
// ideal previous fire tick with an exact micro-tick carry, so the
// schedule does not drift. A late strobe is skipped and the schedule
// restarts from the observed time; it never catches up. In the streams
// pattern the fire ticks are the stream burst edges instead.
type Scheduler struct {
	acc    Accumulator
	state  State
	next   timebase.Tick
	carry  uint64
	gen    uint32
	fired  uint32
	missed uint32
}

// NewScheduler arms the first strobe one interval after now and puts the
// strobe clock at phase zero at now.
func NewScheduler(now timebase.Tick, s *Snapshot) *Scheduler {
	sc := &Scheduler{gen: s.Gen}
	sc.acc.Reset(now, s)
	sc.next = now.Add(sc.delay(now, s))
	return sc
}

func (sc *Scheduler) State() State        { return sc.state }
func (sc *Scheduler) Next() timebase.Tick { return sc.next }
func (sc *Scheduler) Missed() uint32      { return sc.missed }
func (sc *Scheduler) Fired() uint32       { return sc.fired }

func (sc *Scheduler) Accumulator() *Accumulator { return &sc.acc }

// step returns the ticks to the next strobe and keeps the remainder.
func (sc *Scheduler) step(s *Snapshot) uint32 {
	div := uint64(s.Strobes) * micro
	total := s.strobeQ + sc.carry
	sc.carry = total % div
	return uint32(total / div)
}

// delay returns the ticks from at to the next fire.
func (sc *Scheduler) delay(at timebase.Tick, s *Snapshot) uint32 {
	if s.Pattern == PatternStreams {
		if d, ok := sc.acc.StreamEdge(at, s); ok && d > 0 {
			sc.carry = 0
			return d
		}
	}
	return sc.step(s)
}

// retime adopts a new generation. A pending fire further away than one
// new interval is pulled in to now plus that interval.
func (sc *Scheduler) retime(now timebase.Tick, s *Snapshot) {
	sc.gen = s.Gen
	sc.carry = 0
	if !now.Before(sc.next) {
		return
	}
	if at := now.Add(sc.delay(now, s)); at.Before(sc.next) {
		sc.next = at
	}
	sc.carry = 0
}

// Fire handles an alarm observed at now.
func (sc *Scheduler) Fire(now timebase.Tick, s *Snapshot) (StrobeEvent, Outcome) {
	if s.Gen != sc.gen {
		sc.retime(now, s)
	}
	if now.Before(sc.next) {
		return StrobeEvent{}, Early
	}
	sc.state = Firing

	late := now.Since(sc.next)
	if late > s.Tolerance {
		sc.missed++
		sc.carry = 0
		sc.next = now.Add(sc.delay(now, s))
		sc.state = Armed
		return StrobeEvent{FireTick: now, Late: late}, Skipped
	}

	at := sc.next
	ev := StrobeEvent{
		FireTick: at,
		Phase:    sc.acc.Advance(at, s),
		Fountain: sc.acc.Fountain(at, s),
		Index:    sc.fired,
		Late:     late,
	}
	for i := 0; i < s.nstreams; i++ {
		ev.Streams[i] = sc.acc.Stream(i, at, s)
		if sc.acc.StreamLit(i, at, s) {
			ev.Lit |= 1 << i
		}
	}
	sc.fired++
	sc.next = at.Add(sc.delay(at, s))
	sc.state = Armed
	return ev, Fired
}
