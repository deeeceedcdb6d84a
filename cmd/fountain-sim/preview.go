//go:build !tinygo

package main

import (
	"context"
	"image/color"
	"strconv"

	"github.com/gdamore/tcell/v2"

	core "timefountain-go/fountain"
	"timefountain-go/output"
)

const cellsPerLED = 2

// runPreview draws each frame the strip receives as a row of coloured
// blocks with a status line below. q, Esc or Ctrl-C quits.
func runPreview(ctx context.Context, rec *output.Recorder, eng *core.Engine) error {
	s, err := tcell.NewScreen()
	if err != nil {
		return err
	}
	if err := s.Init(); err != nil {
		return err
	}
	defer s.Fini()
	s.SetStyle(tcell.StyleDefault)
	s.Clear()

	frames := make(chan []color.RGBA, 1)
	rec.OnWrite(func(f []color.RGBA) {
		select {
		case frames <- f:
		default:
			// Keep the newest frame only.
			select {
			case <-frames:
			default:
			}
			select {
			case frames <- f:
			default:
			}
		}
	})
	defer rec.OnWrite(nil)

	quit := make(chan struct{})
	go func() {
		defer close(quit)
		for {
			switch ev := s.PollEvent().(type) {
			case nil:
				return
			case *tcell.EventKey:
				if ev.Key() == tcell.KeyEscape || ev.Key() == tcell.KeyCtrlC || ev.Rune() == 'q' {
					return
				}
			case *tcell.EventResize:
				s.Sync()
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-quit:
			return nil
		case f := <-frames:
			drawFrame(s, f)
			drawStatus(s, 2, statusLine(eng))
			s.Show()
		}
	}
}

func drawFrame(s tcell.Screen, f []color.RGBA) {
	for i, c := range f {
		st := tcell.StyleDefault.Foreground(tcell.NewRGBColor(int32(c.R), int32(c.G), int32(c.B)))
		for k := 0; k < cellsPerLED; k++ {
			s.SetContent(i*cellsPerLED+k, 0, '█', nil, st)
		}
	}
}

func drawStatus(s tcell.Screen, y int, text string) {
	w, _ := s.Size()
	x := 0
	for _, r := range text {
		if x >= w {
			break
		}
		s.SetContent(x, y, r, nil, tcell.StyleDefault)
		x++
	}
	for ; x < w; x++ {
		s.SetContent(x, y, ' ', nil, tcell.StyleDefault)
	}
}

func statusLine(eng *core.Engine) string {
	snap := eng.Snapshot()
	st := eng.Stats()
	b := append([]byte(snap.Pattern.String()), " period="...)
	b = strconv.AppendUint(b, uint64(snap.BasePeriod), 10)
	b = append(b, " offset="...)
	b = strconv.AppendInt(b, int64(snap.OffsetPPM), 10)
	b = append(b, "ppm fired="...)
	b = strconv.AppendUint(b, uint64(st.Fired), 10)
	b = append(b, " skipped="...)
	b = strconv.AppendUint(b, uint64(st.Skipped), 10)
	b = append(b, " dropped="...)
	b = strconv.AppendUint(b, uint64(st.Dropped), 10)
	if st.Halted {
		b = append(b, " HALTED"...)
	}
	b = append(b, "   q to quit"...)
	return string(b)
}
