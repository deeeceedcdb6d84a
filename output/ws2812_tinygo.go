//go:build tinygo

package output

import (
	"image/color"
	"machine"

	"tinygo.org/x/drivers/ws2812"
)

// WS2812 drives a WS2812 strip on one GPIO pin.
type WS2812 struct {
	dev ws2812.Device
}

func NewWS2812(pin machine.Pin) *WS2812 {
	pin.Configure(machine.PinConfig{Mode: machine.PinOutput})
	return &WS2812{dev: ws2812.New(pin)}
}

func (w *WS2812) WriteColors(buf []color.RGBA) error {
	return w.dev.WriteColors(buf)
}
