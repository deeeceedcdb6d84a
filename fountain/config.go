package fountain

import (
	"image/color"
	"math"
	"sync"
	"sync/atomic"

	"timefountain-go/x/mathx"
)

// Limits applied by Clamp.
const (
	MinBasePeriod    = 500
	MaxBasePeriod    = 10_000_000
	MaxOffsetPPM     = 100_000
	MaxStrobes       = 32
	MaxSlots         = 64
	MaxPalette       = 16
	MaxStreams       = 4
	MaxHueShift      = 24
	DefaultTolerance = 20
	DefaultBurst     = 4000
	DefaultPulse     = 400
	MaxStreamStart   = 60_000_000

	micro = 1_000_000
)

// PatternKind selects one of a closed set of renderers.
type PatternKind uint8

const (
	PatternOff PatternKind = iota
	PatternFrozen
	PatternMulti
	PatternRainbow
	PatternStreams
)

var patternNames = [...]string{
	PatternOff:     "off",
	PatternFrozen:  "frozen",
	PatternMulti:   "multi",
	PatternRainbow: "rainbow",
	PatternStreams: "streams",
}

func (k PatternKind) String() string {
	if int(k) < len(patternNames) {
		return patternNames[k]
	}
	return "unknown"
}

// ParsePattern maps a name to a PatternKind. "float" and "floating" are
// accepted for frozen, which floats once an offset is set.
func ParsePattern(s string) (PatternKind, bool) {
	for i, n := range patternNames {
		if n == s {
			return PatternKind(i), true
		}
	}
	switch s {
	case "float", "floating":
		return PatternFrozen, true
	case "cycle", "colour-cycle", "color-cycle":
		return PatternRainbow, true
	}
	return PatternOff, false
}

// Stream is one additively mixed droplet train.
type Stream struct {
	Color     color.RGBA
	OffsetPPM int32  // drift of this stream relative to the droplet clock
	Burst     uint32 // lit window per stream period, ticks
	Start     uint32 // delay from configuration to the first burst, ticks, at most MaxStreamStart
}

// Settings is the writable, unvalidated parameter set.
type Settings struct {
	BasePeriod uint32 // droplet generation period, ticks
	OffsetPPM  int32
	Pattern    PatternKind
	Brightness float32 // 0..1
	Strobes    int     // flashes per effective period
	Slots      int     // visible droplet rows
	Color      color.RGBA
	Palette    []color.RGBA
	HueShift   uint8 // rainbow cycles one hue step every 2^HueShift ticks
	Streams    []Stream
	Tolerance  uint32 // accepted lateness before a frame is skipped, ticks
	Pulse      uint32 // blank the strip this long after a flash; 0 holds the frame
	Reverse    bool   // strip mounted top to bottom
}

var (
	Red   = color.RGBA{R: 0xff, A: 0xff}
	Green = color.RGBA{G: 0xff, A: 0xff}
	Cyan  = color.RGBA{G: 0xff, B: 0xff, A: 0xff}
	White = color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
)

// DefaultSettings is a 60 Hz frozen white strobe with a short flash.
func DefaultSettings() Settings {
	return Settings{
		BasePeriod: 16667,
		Pattern:    PatternFrozen,
		Brightness: 1,
		Strobes:    1,
		Slots:      5,
		Color:      White,
		Palette:    []color.RGBA{Red, Cyan, Green},
		HueShift:   16,
		Tolerance:  DefaultTolerance,
		Pulse:      DefaultPulse,
	}
}

// Clamp forces every field into its safe range. It never fails.
func Clamp(s Settings) Settings {
	s.BasePeriod = mathx.Clamp(s.BasePeriod, MinBasePeriod, MaxBasePeriod)
	s.OffsetPPM = mathx.Clamp(s.OffsetPPM, -MaxOffsetPPM, MaxOffsetPPM)
	if s.Pattern > PatternStreams {
		s.Pattern = PatternOff
	}
	s.Brightness = float32(mathx.ClampFloat(float64(s.Brightness), 0, 1))
	s.Strobes = mathx.Clamp(s.Strobes, 1, MaxStrobes)
	s.Slots = mathx.Clamp(s.Slots, 1, MaxSlots)
	s.HueShift = mathx.Clamp(s.HueShift, 0, MaxHueShift)

	n := len(s.Palette)
	if n > MaxPalette {
		n = MaxPalette
	}
	pal := make([]color.RGBA, n)
	copy(pal, s.Palette)
	s.Palette = pal

	n = len(s.Streams)
	if n > MaxStreams {
		n = MaxStreams
	}
	st := make([]Stream, n)
	for i := range st {
		x := s.Streams[i]
		x.OffsetPPM = mathx.Clamp(x.OffsetPPM, -MaxOffsetPPM, MaxOffsetPPM)
		if x.Burst == 0 {
			x.Burst = DefaultBurst
		}
		x.Burst = mathx.Clamp(x.Burst, 1, s.BasePeriod)
		x.Start = mathx.Clamp(x.Start, 0, MaxStreamStart)
		st[i] = x
	}
	s.Streams = st

	if s.Tolerance == 0 {
		s.Tolerance = DefaultTolerance
	}
	iv := interval(strobeQ(s), s.Strobes)
	if s.Tolerance > iv/4 {
		s.Tolerance = iv / 4
	}
	// The strip must go dark before the next flash.
	if s.Pulse >= iv {
		s.Pulse = iv - iv/4
	}
	return s
}

func strobeQ(s Settings) uint64 {
	return uint64(s.BasePeriod) * uint64(micro+int64(s.OffsetPPM))
}

// interval is the mean strobe spacing in whole ticks.
func interval(q uint64, strobes int) uint32 {
	return uint32(q / (uint64(strobes) * micro))
}

// streamParams is the precomputed form of a Stream.
type streamParams struct {
	period uint64 // micro-ticks
	litQ   uint64 // lit window from the start of each period, micro-ticks, <= period
}

// Snapshot is an immutable, clamped configuration. The interrupt path
// reads one Snapshot per fire event and never sees a partial update.
type Snapshot struct {
	Settings
	Gen uint32

	strobeQ  uint64 // strobe period, micro-ticks
	dropQ    uint64 // droplet period, micro-ticks
	interval uint32
	bright   uint16 // Q8, 256 = full
	palette  []color.RGBA
	streams  [MaxStreams]streamParams
	nstreams int
	hues     *[256]color.RGBA
}

func newSnapshot(gen uint32, in Settings) *Snapshot {
	s := &Snapshot{Settings: Clamp(in), Gen: gen}
	s.strobeQ = strobeQ(s.Settings)
	s.dropQ = uint64(s.BasePeriod) * micro
	s.interval = interval(s.strobeQ, s.Strobes)
	s.bright = uint16(math.Round(float64(s.Brightness) * 256))
	s.palette = s.Palette
	if len(s.palette) == 0 {
		s.palette = []color.RGBA{s.Color}
	}
	for i, st := range s.Streams {
		p := uint64(s.BasePeriod) * uint64(micro+int64(st.OffsetPPM))
		lit := uint64(st.Burst) * micro
		if lit > p {
			lit = p
		}
		s.streams[i] = streamParams{period: p, litQ: lit}
	}
	s.nstreams = len(s.Streams)
	if s.Pattern == PatternRainbow {
		s.hues = hueTable()
	}
	return s
}

// Interval is the mean strobe spacing in ticks.
func (s *Snapshot) Interval() uint32 { return s.interval }

// EffectivePeriod is the strobe clock period in ticks, rounded down.
func (s *Snapshot) EffectivePeriod() uint32 { return uint32(s.strobeQ / micro) }

// Store publishes snapshots. Writers serialise on a mutex; the reader
// only ever performs an atomic pointer load.
type Store struct {
	mu  sync.Mutex
	gen uint32
	cur atomic.Pointer[Snapshot]
}

func NewStore(s Settings) *Store {
	st := &Store{}
	st.cur.Store(newSnapshot(0, s))
	return st
}

// Load returns the current snapshot. Safe from interrupt context.
func (st *Store) Load() *Snapshot { return st.cur.Load() }

// Apply clamps s and swaps it in as the new snapshot.
func (st *Store) Apply(s Settings) *Snapshot {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.publish(s)
}

// Update applies fn to a copy of the current settings.
func (st *Store) Update(fn func(*Settings)) *Snapshot {
	st.mu.Lock()
	defer st.mu.Unlock()
	s := st.cur.Load().Settings
	s.Palette = append([]color.RGBA(nil), s.Palette...)
	s.Streams = append([]Stream(nil), s.Streams...)
	fn(&s)
	return st.publish(s)
}

func (st *Store) publish(s Settings) *Snapshot {
	st.gen++
	snap := newSnapshot(st.gen, s)
	st.cur.Store(snap)
	return snap
}
