package fountain

import "image/color"

// mixStreams adds the colours of the streams lit at this flash. When a
// channel overflows, all channels are scaled so the largest is 255.
func mixStreams(ev *StrobeEvent, s *Snapshot) color.RGBA {
	var r, g, b uint32
	for i := 0; i < s.nstreams; i++ {
		if ev.Lit&(1<<i) == 0 {
			continue
		}
		c := s.Streams[i].Color
		r += uint32(c.R)
		g += uint32(c.G)
		b += uint32(c.B)
	}
	return normalise(r, g, b)
}

func normalise(r, g, b uint32) color.RGBA {
	m := r
	if g > m {
		m = g
	}
	if b > m {
		m = b
	}
	if m > 255 {
		r = r * 255 / m
		g = g * 255 / m
		b = b * 255 / m
	}
	return color.RGBA{R: uint8(r), G: uint8(g), B: uint8(b), A: 0xff}
}
