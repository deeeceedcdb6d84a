package fountain

import (
	"errors"
	"image/color"
	"strconv"
	"strings"
	"sync"

	"github.com/lucasb-eyer/go-colorful"
)

var ErrBadColor = errors.New("bad colour, want #rrggbb")

var (
	huesOnce sync.Once
	hues     [256]color.RGBA
)

// hueTable returns the 256-step fully saturated hue wheel. It is built on
// first use from task context (snapshot construction), never from the
// interrupt path.
func hueTable() *[256]color.RGBA {
	huesOnce.Do(func() {
		for i := range hues {
			r, g, b := colorful.Hsv(float64(i)*360/256, 1, 1).Clamped().RGB255()
			hues[i] = color.RGBA{R: r, G: g, B: b, A: 0xff}
		}
	})
	return &hues
}

// ParseColor accepts "#rrggbb", "rrggbb", "#rgb" and a few names.
func ParseColor(s string) (color.RGBA, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "red":
		return Red, nil
	case "green":
		return Green, nil
	case "cyan":
		return Cyan, nil
	case "white":
		return White, nil
	case "black", "off":
		return color.RGBA{A: 0xff}, nil
	}
	s = strings.TrimPrefix(s, "#")
	if len(s) == 3 {
		s = string([]byte{s[0], s[0], s[1], s[1], s[2], s[2]})
	}
	if len(s) != 6 {
		return color.RGBA{}, ErrBadColor
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return color.RGBA{}, ErrBadColor
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}, nil
}

const hexDigits = "0123456789abcdef"

// FormatColor renders c as "#rrggbb".
func FormatColor(c color.RGBA) string {
	b := [7]byte{'#'}
	for i, v := range [3]uint8{c.R, c.G, c.B} {
		b[1+2*i] = hexDigits[v>>4]
		b[2+2*i] = hexDigits[v&0x0f]
	}
	return string(b[:])
}
