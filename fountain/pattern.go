package fountain

import (
	"image/color"

	"timefountain-go/x/mathx"
)

// Frame is one colour per physical LED, index 0 at the bottom of the strip.
type Frame []color.RGBA

var black = color.RGBA{A: 0xff}

// Render fills dst for the event. It reads nothing but its arguments, so
// equal inputs give byte-identical frames.
func Render(dst Frame, ev StrobeEvent, s *Snapshot) {
	switch s.Pattern {
	case PatternFrozen:
		fill(dst, s.Color)
	case PatternMulti, PatternRainbow:
		renderSlots(dst, ev, s)
	case PatternStreams:
		fill(dst, mixStreams(&ev, s))
	default:
		fill(dst, black)
		return
	}
	if s.bright < 256 {
		for i := range dst {
			c := &dst[i]
			c.R = mathx.ScaleU8(c.R, s.bright)
			c.G = mathx.ScaleU8(c.G, s.bright)
			c.B = mathx.ScaleU8(c.B, s.bright)
		}
	}
}

// Blank sets every LED to black.
func Blank(dst Frame) { fill(dst, black) }

func fill(dst Frame, c color.RGBA) {
	c.A = 0xff
	for i := range dst {
		dst[i] = c
	}
}

// renderSlots maps LED i to row i*N/L and offsets the row by the droplet
// slot visible at this flash.
func renderSlots(dst Frame, ev StrobeEvent, s *Snapshot) {
	n, l := s.Slots, len(dst)
	base := ev.Fountain.Slot(n)
	shift := uint32(ev.FireTick) >> s.HueShift
	for i := range dst {
		row := i * n / l
		if s.Reverse {
			row = n - 1 - row
		}
		slot := (row + base) % n
		var c color.RGBA
		if s.Pattern == PatternRainbow {
			c = s.hues[uint8(uint32(slot*256/n)+shift)]
		} else {
			c = s.palette[slot%len(s.palette)]
		}
		c.A = 0xff
		dst[i] = c
	}
}
