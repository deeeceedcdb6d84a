// Package fountain is the phase-locked strobe and pattern engine.
//
// Two clocks run side by side. The droplet clock has the configured base
// period. The strobe clock has the effective period
//
//	base * (1 + OffsetPPM/1e6)
//
// held exactly as an integer number of micro-ticks (base * (1e6+OffsetPPM)),
// so phases never accumulate rounding error however long the device runs.
//
// Sign convention: a positive OffsetPPM lengthens the strobe period. Every
// flash then samples the droplet clock OffsetPPM/1e6 of a period later than
// the flash before it, so the fountain phase advances, the droplet slot
// index grows and, with slots laid out bottom to top along the strip, the
// pattern climbs. A negative offset makes it fall. Every layer (console,
// bus, simulator) passes OffsetPPM through unchanged.
//
// The hot path (Engine.OnAlarm) runs in interrupt context: it loads one
// immutable Snapshot, fires the Scheduler, renders into a preallocated
// frame and re-arms the alarm. It never allocates or blocks.
package fountain
