package types

// ------------------------
// Fountain configuration (retained at config/fountain)
// ------------------------

// StreamSpec configures one additive droplet stream. Either Hz or
// OffsetPPM sets its drift; Hz wins when both are present.
type StreamSpec struct {
	Color      string  `json:"color"`                 // "#rrggbb"
	Hz         float64 `json:"hz,omitempty"`          // absolute stream frequency
	OffsetPPM  int32   `json:"offset_ppm,omitempty"`  // relative to the base period
	BurstTicks uint32  `json:"burst_ticks,omitempty"` // lit window, 0 => 4000
	StartTicks uint32  `json:"start_ticks,omitempty"` // delay to first burst
}

type FountainConfig struct {
	PeriodTicks     uint32       `json:"period_ticks"`
	OffsetPPM       int32        `json:"offset_ppm"`
	Pattern         string       `json:"pattern"`
	Brightness      *float32     `json:"brightness,omitempty"`
	Strobes         int          `json:"strobes"`
	Slots           int          `json:"slots"`
	Color           string       `json:"color,omitempty"`
	Palette         []string     `json:"palette,omitempty"`
	HueShift        uint8        `json:"hue_shift,omitempty"`
	Streams         []StreamSpec `json:"streams,omitempty"`
	ToleranceTicks  uint32       `json:"tolerance_ticks,omitempty"`
	PulseTicks      *uint32      `json:"pulse_ticks,omitempty"` // 0 holds each frame
	Reverse         bool         `json:"reverse,omitempty"`
	StatsIntervalMs uint32       `json:"stats_interval_ms,omitempty"`
}

// ------------------------
// Controls (fountain/control/<verb>)
// ------------------------

// FountainSet is a partial update; nil fields are left unchanged.
type FountainSet struct {
	PeriodTicks    *uint32       `json:"period_ticks,omitempty"`
	Hz             *float64      `json:"hz,omitempty"`
	OffsetPPM      *int32        `json:"offset_ppm,omitempty"`
	Pattern        *string       `json:"pattern,omitempty"`
	Brightness     *float32      `json:"brightness,omitempty"`
	Strobes        *int          `json:"strobes,omitempty"`
	Slots          *int          `json:"slots,omitempty"`
	Color          *string       `json:"color,omitempty"`
	Palette        []string      `json:"palette,omitempty"`
	HueShift       *uint8        `json:"hue_shift,omitempty"`
	Streams        []StreamSpec  `json:"streams,omitempty"`
	ClearStreams   bool          `json:"clear_streams,omitempty"`
	Stream         *StreamUpdate `json:"stream,omitempty"`
	ToleranceTicks *uint32       `json:"tolerance_ticks,omitempty"`
	PulseTicks     *uint32       `json:"pulse_ticks,omitempty"`
	Reverse        *bool         `json:"reverse,omitempty"`
}

// StreamUpdate replaces (or appends) the stream at Index.
type StreamUpdate struct {
	Index int        `json:"index"`
	Spec  StreamSpec `json:"spec"`
}

// ------------------------
// State and stats (fountain/state retained, fountain/stats periodic)
// ------------------------

type FountainState struct {
	FountainConfig
	Gen            uint32  `json:"gen"`
	EffectiveTicks uint32  `json:"effective_ticks"`
	IntervalTicks  uint32  `json:"interval_ticks"`
	Hz             float64 `json:"hz"`
	Halted         bool    `json:"halted"`
	TS             int64   `json:"ts_ms"`
}

type FountainStats struct {
	Fired   uint32 `json:"fired"`
	Skipped uint32 `json:"skipped"`
	Early   uint32 `json:"early"`
	Dropped uint32 `json:"dropped"`
	Faults  uint32 `json:"faults"`
	Gen     uint32 `json:"gen"`
	Halted  bool   `json:"halted"`
	TS      int64  `json:"ts_ms"`
}

// ServiceState is the retained lifecycle state of a service.
type ServiceState struct {
	Level  string `json:"level"`  // "idle", "running", "halted", "stopped"
	Status string `json:"status"` // short code
	TS     int64  `json:"ts_ms"`
}
