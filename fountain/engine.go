package fountain

import (
	"errors"
	"image/color"
	"sync/atomic"

	"timefountain-go/timebase"
)

// Alarm is the hardware timer boundary. Arm schedules one call of the
// bound handler at tick at; a tick already reached fires as soon as
// possible. An error means the timer cannot be trusted.
type Alarm interface {
	Arm(at timebase.Tick) error
}

// FrameSink receives rendered frames. Buffer returns the frame to render
// into and Post hands it over. Neither may block.
type FrameSink interface {
	Buffer() []color.RGBA
	Post()
}

// Stats are engine counters, readable from any context.
type Stats struct {
	Fired   uint32 // strobes rendered
	Skipped uint32 // late strobes dropped
	Early   uint32 // spurious alarms
	Dropped uint32 // frames superseded before output
	Faults  uint32 // alarm failures
	Gen     uint32 // generation of the current snapshot
	Halted  bool
}

var ErrNotStarted = errors.New("engine not started")

// Engine binds clock, scheduler, renderer, alarm and output.
type Engine struct {
	clock timebase.Clock
	alarm Alarm
	sink  FrameSink
	store *Store
	sched *Scheduler

	// Owned by the alarm handler.
	blanking bool
	blankAt  timebase.Tick

	started atomic.Bool
	kicked  atomic.Bool
	fired   atomic.Uint32
	skipped atomic.Uint32
	early   atomic.Uint32
	faults  atomic.Uint32
	halted  atomic.Bool
}

func New(clock timebase.Clock, alarm Alarm, sink FrameSink, s Settings) *Engine {
	return &Engine{
		clock: clock,
		alarm: alarm,
		sink:  sink,
		store: NewStore(s),
	}
}

// Start puts the strobe clock at phase zero now and arms the first fire.
func (e *Engine) Start() error {
	e.sched = NewScheduler(e.clock.Now(), e.store.Load())
	e.blanking = false
	e.halted.Store(false)
	e.started.Store(true)
	if err := e.alarm.Arm(e.sched.Next()); err != nil {
		e.fault()
		return err
	}
	return nil
}

// Resume restarts a halted engine. It is a no-op while running.
func (e *Engine) Resume() error {
	if !e.started.Load() {
		return ErrNotStarted
	}
	if !e.halted.Load() {
		return nil
	}
	return e.Start()
}

// OnAlarm is the timer interrupt handler.
func (e *Engine) OnAlarm() {
	if e.halted.Load() || e.sched == nil {
		return
	}
	kicked := e.kicked.Swap(false)
	now := e.clock.Now()
	s := e.store.Load()

	if e.blanking {
		if now.Before(e.blankAt) {
			if !kicked {
				e.early.Add(1)
			}
			e.arm(e.blankAt)
			return
		}
		e.blanking = false
		Blank(e.sink.Buffer())
		e.sink.Post()
		if now.Before(e.sched.Next()) {
			e.arm(e.sched.Next())
			return
		}
	}

	ev, out := e.sched.Fire(now, s)
	switch out {
	case Early:
		if !kicked {
			e.early.Add(1)
		}
	case Skipped:
		e.skipped.Add(1)
	case Fired:
		Render(e.sink.Buffer(), ev, s)
		e.sink.Post()
		e.fired.Add(1)
		if s.Pulse > 0 && s.Pattern != PatternOff && s.Pattern != PatternStreams {
			e.blanking = true
			e.blankAt = ev.FireTick.Add(s.Pulse)
			e.arm(e.blankAt)
			return
		}
	}
	e.arm(e.sched.Next())
}

func (e *Engine) arm(at timebase.Tick) {
	if err := e.alarm.Arm(at); err != nil {
		e.fault()
	}
}

// fault leaves the strip dark and stops strobing until Resume.
func (e *Engine) fault() {
	e.faults.Add(1)
	e.halted.Store(true)
	Blank(e.sink.Buffer())
	e.sink.Post()
}

// Apply clamps s and publishes it. It always succeeds. A running engine
// is woken so a shorter interval does not wait out the old one.
func (e *Engine) Apply(s Settings) *Snapshot {
	snap := e.store.Apply(s)
	e.kick()
	return snap
}

// Update edits a copy of the current settings and publishes it.
func (e *Engine) Update(fn func(*Settings)) *Snapshot {
	snap := e.store.Update(fn)
	e.kick()
	return snap
}

// kick runs the alarm handler now so the scheduler sees the new
// snapshot. A failed Arm is left to the next handler run.
func (e *Engine) kick() {
	if !e.started.Load() || e.halted.Load() {
		return
	}
	e.kicked.Store(true)
	_ = e.alarm.Arm(e.clock.Now())
}

func (e *Engine) Snapshot() *Snapshot { return e.store.Load() }

func (e *Engine) Halted() bool { return e.halted.Load() }

func (e *Engine) Stats() Stats {
	st := Stats{
		Fired:   e.fired.Load(),
		Skipped: e.skipped.Load(),
		Early:   e.early.Load(),
		Faults:  e.faults.Load(),
		Gen:     e.store.Load().Gen,
		Halted:  e.halted.Load(),
	}
	if d, ok := e.sink.(interface{ Dropped() uint32 }); ok {
		st.Dropped = d.Dropped()
	}
	return st
}
