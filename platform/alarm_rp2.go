//go:build rp2040 || rp2350

package platform

import (
	"errors"
	"runtime/interrupt"

	"timefountain-go/timebase"
)

const alarmBit = 1 << 1 // ALARM1

var ErrAlarmNotArmed = errors.New("platform: timer alarm did not arm")

// Clock reads the low word of the free-running 1 MHz timer.
type Clock struct{}

func NewClock() *Clock { return &Clock{} }

func (Clock) Now() timebase.Tick { return timebase.Tick(tmr.TIMERAWL.Get()) }

// Alarm is TIMER alarm 1. There is one per chip; NewAlarm must be called
// once.
type Alarm struct{}

var alarmHandler func()

func NewAlarm() *Alarm {
	tmr.INTR.Set(alarmBit)
	tmr.INTE.SetBits(alarmBit)
	intr := interrupt.New(timerIRQ, handleAlarm)
	intr.SetPriority(0x00)
	intr.Enable()
	return &Alarm{}
}

// Bind sets the interrupt handler. Call before the first Arm.
func (a *Alarm) Bind(fn func()) { alarmHandler = fn }

func handleAlarm(interrupt.Interrupt) {
	tmr.INTR.Set(alarmBit)
	tmr.INTF.ClearBits(alarmBit)
	if h := alarmHandler; h != nil {
		h()
	}
}

// Arm sets the alarm for tick at. The hardware matches the low 32 bits
// exactly, so a tick that is already due is raised by forcing the IRQ.
func (a *Alarm) Arm(at timebase.Tick) error {
	tmr.ALARM1.Set(uint32(at))
	now := timebase.Tick(tmr.TIMERAWL.Get())
	if !now.Before(at) {
		tmr.INTF.SetBits(alarmBit)
		return nil
	}
	if tmr.ARMED.Get()&alarmBit == 0 && tmr.INTR.Get()&alarmBit == 0 {
		return ErrAlarmNotArmed
	}
	return nil
}

// Disarm cancels a pending alarm.
func (a *Alarm) Disarm() {
	tmr.ARMED.Set(alarmBit)
	tmr.INTF.ClearBits(alarmBit)
}
