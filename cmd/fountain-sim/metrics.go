//go:build !tinygo

package main

import (
	"github.com/prometheus/client_golang/prometheus"

	core "timefountain-go/fountain"
	"timefountain-go/output"
)

const namespace = "fountain"

// registerMetrics exposes engine and mailbox counters. Values are read on
// scrape; nothing is recorded on the strobe path.
func registerMetrics(reg prometheus.Registerer, eng *core.Engine, mbox *output.Mailbox) error {
	counter := func(name, help string, fn func() uint32) prometheus.Collector {
		return prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace, Name: name, Help: help,
		}, func() float64 { return float64(fn()) })
	}
	gauge := func(name, help string, fn func() float64) prometheus.Collector {
		return prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace, Name: name, Help: help,
		}, fn)
	}

	cs := []prometheus.Collector{
		counter("strobes_fired_total", "Flashes rendered on schedule.", func() uint32 { return eng.Stats().Fired }),
		counter("strobes_skipped_total", "Frames skipped after a late alarm.", func() uint32 { return eng.Stats().Skipped }),
		counter("alarms_early_total", "Alarms that arrived before the fire tick.", func() uint32 { return eng.Stats().Early }),
		counter("timer_faults_total", "Alarm arm failures.", func() uint32 { return eng.Stats().Faults }),
		counter("frames_posted_total", "Frames handed to the output mailbox.", mbox.Posted),
		counter("frames_dropped_total", "Frames superseded before transmission.", mbox.Dropped),
		counter("frames_written_total", "Frames written to the strip.", mbox.Written),
		counter("strip_errors_total", "Strip write errors.", mbox.Errors),
		gauge("config_generation", "Generation of the active snapshot.", func() float64 {
			return float64(eng.Snapshot().Gen)
		}),
		gauge("halted", "1 while the engine is halted by a timer fault.", func() float64 {
			if eng.Halted() {
				return 1
			}
			return 0
		}),
		gauge("effective_period_ticks", "Strobe period including the offset.", func() float64 {
			return float64(eng.Snapshot().EffectivePeriod())
		}),
		gauge("strobe_interval_ticks", "Ticks between flashes.", func() float64 {
			return float64(eng.Snapshot().Interval())
		}),
	}
	for _, c := range cs {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}
