package fountain

import (
	"image/color"
	"math"

	"timefountain-go/errcode"
	core "timefountain-go/fountain"
	"timefountain-go/timebase"
	"timefountain-go/types"
	"timefountain-go/x/mathx"
)

// FromConfig builds settings from a full configuration. Zero or absent
// fields keep their defaults.
func FromConfig(cfg types.FountainConfig) (core.Settings, error) {
	s := core.DefaultSettings()
	if cfg.PeriodTicks != 0 {
		s.BasePeriod = cfg.PeriodTicks
	}
	s.OffsetPPM = cfg.OffsetPPM
	if cfg.Pattern != "" {
		k, ok := core.ParsePattern(cfg.Pattern)
		if !ok {
			return s, &errcode.E{C: errcode.InvalidParams, Op: "pattern", Msg: cfg.Pattern}
		}
		s.Pattern = k
	}
	if cfg.Brightness != nil {
		s.Brightness = *cfg.Brightness
	}
	if cfg.Strobes != 0 {
		s.Strobes = cfg.Strobes
	}
	if cfg.Slots != 0 {
		s.Slots = cfg.Slots
	}
	if cfg.Color != "" {
		c, err := parseColor("color", cfg.Color)
		if err != nil {
			return s, err
		}
		s.Color = c
	}
	if len(cfg.Palette) > 0 {
		pal, err := parsePalette(cfg.Palette)
		if err != nil {
			return s, err
		}
		s.Palette = pal
	}
	if cfg.HueShift != 0 {
		s.HueShift = cfg.HueShift
	}
	s.Streams = nil
	for _, spec := range cfg.Streams {
		st, err := streamFrom(spec, s.BasePeriod)
		if err != nil {
			return s, err
		}
		s.Streams = append(s.Streams, st)
	}
	if cfg.ToleranceTicks != 0 {
		s.Tolerance = cfg.ToleranceTicks
	}
	if cfg.PulseTicks != nil {
		s.Pulse = *cfg.PulseTicks
	}
	s.Reverse = cfg.Reverse
	return s, nil
}

// ApplySet applies a partial update to s. On error s may be partly
// modified; callers work on a copy.
func ApplySet(s *core.Settings, set types.FountainSet) error {
	if set.PeriodTicks != nil {
		s.BasePeriod = *set.PeriodTicks
	}
	if set.Hz != nil {
		p := timebase.FromHz(*set.Hz)
		if p == 0 {
			return &errcode.E{C: errcode.InvalidParams, Op: "hz", Msg: "must be > 0"}
		}
		s.BasePeriod = p
	}
	if set.OffsetPPM != nil {
		s.OffsetPPM = *set.OffsetPPM
	}
	if set.Pattern != nil {
		k, ok := core.ParsePattern(*set.Pattern)
		if !ok {
			return &errcode.E{C: errcode.InvalidParams, Op: "pattern", Msg: *set.Pattern}
		}
		s.Pattern = k
	}
	if set.Brightness != nil {
		s.Brightness = *set.Brightness
	}
	if set.Strobes != nil {
		s.Strobes = *set.Strobes
	}
	if set.Slots != nil {
		s.Slots = *set.Slots
	}
	if set.Color != nil {
		c, err := parseColor("color", *set.Color)
		if err != nil {
			return err
		}
		s.Color = c
	}
	if len(set.Palette) > 0 {
		pal, err := parsePalette(set.Palette)
		if err != nil {
			return err
		}
		s.Palette = pal
	}
	if set.HueShift != nil {
		s.HueShift = *set.HueShift
	}
	if set.ClearStreams {
		s.Streams = nil
	}
	if len(set.Streams) > 0 {
		s.Streams = s.Streams[:0:0]
		for _, spec := range set.Streams {
			st, err := streamFrom(spec, s.BasePeriod)
			if err != nil {
				return err
			}
			s.Streams = append(s.Streams, st)
		}
	}
	if u := set.Stream; u != nil {
		if u.Index < 0 || u.Index > len(s.Streams) || u.Index >= core.MaxStreams {
			return &errcode.E{C: errcode.InvalidParams, Op: "stream", Msg: "index out of range"}
		}
		st, err := streamFrom(u.Spec, s.BasePeriod)
		if err != nil {
			return err
		}
		if u.Index == len(s.Streams) {
			s.Streams = append(s.Streams, st)
		} else {
			s.Streams[u.Index] = st
		}
	}
	if set.ToleranceTicks != nil {
		s.Tolerance = *set.ToleranceTicks
	}
	if set.PulseTicks != nil {
		s.Pulse = *set.PulseTicks
	}
	if set.Reverse != nil {
		s.Reverse = *set.Reverse
	}
	return nil
}

// StateOf reports a snapshot in wire form.
func StateOf(snap *core.Snapshot, halted bool, statsMs uint32, ts int64) types.FountainState {
	b, p := snap.Brightness, snap.Pulse
	st := types.FountainState{
		FountainConfig: types.FountainConfig{
			PeriodTicks:     snap.BasePeriod,
			OffsetPPM:       snap.OffsetPPM,
			Pattern:         snap.Pattern.String(),
			Brightness:      &b,
			Strobes:         snap.Strobes,
			Slots:           snap.Slots,
			Color:           core.FormatColor(snap.Color),
			HueShift:        snap.HueShift,
			ToleranceTicks:  snap.Tolerance,
			PulseTicks:      &p,
			Reverse:         snap.Reverse,
			StatsIntervalMs: statsMs,
		},
		Gen:            snap.Gen,
		EffectiveTicks: snap.EffectivePeriod(),
		IntervalTicks:  snap.Interval(),
		Hz:             timebase.Hz(snap.BasePeriod),
		Halted:         halted,
		TS:             ts,
	}
	for _, c := range snap.Palette {
		st.Palette = append(st.Palette, core.FormatColor(c))
	}
	for _, x := range snap.Streams {
		st.Streams = append(st.Streams, types.StreamSpec{
			Color:      core.FormatColor(x.Color),
			OffsetPPM:  x.OffsetPPM,
			BurstTicks: x.Burst,
			StartTicks: x.Start,
		})
	}
	return st
}

// StatsOf converts engine counters.
func StatsOf(st core.Stats, ts int64) types.FountainStats {
	return types.FountainStats{
		Fired:   st.Fired,
		Skipped: st.Skipped,
		Early:   st.Early,
		Dropped: st.Dropped,
		Faults:  st.Faults,
		Gen:     st.Gen,
		Halted:  st.Halted,
		TS:      ts,
	}
}

// streamFrom converts a stream spec. An absolute Hz is turned into a
// drift relative to base: period(hz) = base * (1 + ppm/1e6).
func streamFrom(spec types.StreamSpec, base uint32) (core.Stream, error) {
	c, err := parseColor("stream", spec.Color)
	if err != nil {
		return core.Stream{}, err
	}
	ppm := spec.OffsetPPM
	if spec.Hz != 0 {
		if !(spec.Hz > 0) || base == 0 {
			return core.Stream{}, &errcode.E{C: errcode.InvalidParams, Op: "stream", Msg: "hz must be > 0"}
		}
		r := (float64(timebase.TicksPerSecond)/spec.Hz/float64(base) - 1) * 1e6
		ppm = int32(mathx.ClampFloat(math.Round(r), -core.MaxOffsetPPM, core.MaxOffsetPPM))
	}
	return core.Stream{Color: c, OffsetPPM: ppm, Burst: spec.BurstTicks, Start: spec.StartTicks}, nil
}

func parseColor(op, s string) (color.RGBA, error) {
	c, err := core.ParseColor(s)
	if err != nil {
		return c, &errcode.E{C: errcode.InvalidParams, Op: op, Msg: s, Err: err}
	}
	return c, nil
}

func parsePalette(in []string) ([]color.RGBA, error) {
	pal := make([]color.RGBA, 0, len(in))
	for _, h := range in {
		c, err := parseColor("palette", h)
		if err != nil {
			return nil, err
		}
		pal = append(pal, c)
	}
	return pal, nil
}
