package output

import (
	"image/color"
	"sync"
)

// Recorder is a Strip that keeps the last frame written and an optional
// bounded history. The simulator preview and tests read from it.
type Recorder struct {
	mu      sync.Mutex
	last    []color.RGBA
	history [][]color.RGBA
	keep    int
	writes  int
	onWrite func([]color.RGBA)
}

// NewRecorder keeps up to keep frames of history (0 keeps none).
func NewRecorder(keep int) *Recorder { return &Recorder{keep: keep} }

// OnWrite registers fn to be called with a copy of every frame.
func (r *Recorder) OnWrite(fn func([]color.RGBA)) {
	r.mu.Lock()
	r.onWrite = fn
	r.mu.Unlock()
}

func (r *Recorder) WriteColors(buf []color.RGBA) error {
	cp := append([]color.RGBA(nil), buf...)
	r.mu.Lock()
	r.last = cp
	r.writes++
	if r.keep > 0 {
		if len(r.history) == r.keep {
			r.history = append(r.history[:0], r.history[1:]...)
		}
		r.history = append(r.history, cp)
	}
	fn := r.onWrite
	r.mu.Unlock()
	if fn != nil {
		fn(cp)
	}
	return nil
}

// Last returns the most recent frame (nil before the first write).
func (r *Recorder) Last() []color.RGBA {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last
}

func (r *Recorder) History() [][]color.RGBA {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][]color.RGBA(nil), r.history...)
}

func (r *Recorder) Writes() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.writes
}
