//go:build rp2040

package platform

import "device/rp"

var tmr = rp.TIMER

const timerIRQ = rp.IRQ_TIMER_IRQ_1
