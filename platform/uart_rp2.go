//go:build rp2040 || rp2350

package platform

import (
	"machine"

	"github.com/jangala-dev/tinygo-uartx/uartx"
)

// ConsoleUART configures UART0 on its default pins for the console.
func ConsoleUART(baud uint32) *uartx.UART {
	u := uartx.UART0
	_ = u.Configure(uartx.UARTConfig{
		BaudRate: baud,
		TX:       machine.UART0_TX_PIN,
		RX:       machine.UART0_RX_PIN,
	})
	return u
}
