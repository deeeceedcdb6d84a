//go:build rp2350

package platform

import "device/rp"

var tmr = rp.TIMER0

const timerIRQ = rp.IRQ_TIMER0_IRQ_1
