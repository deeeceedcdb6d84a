// Package platform supplies the hardware pieces the engine is written
// against: a tick clock, a one-shot alarm and a serial console port.
//
// On RP2040/RP2350 the clock is the 1 MHz system timer and the alarm is
// TIMER alarm 1 (alarm 0 belongs to the TinyGo runtime). Elsewhere the
// clock is the Go monotonic clock and the alarm is a runtime timer.
package platform
