// Package heartbeat logs a periodic liveness line with uptime and the
// most recent fountain/stats.
package heartbeat

import (
	"context"
	"strconv"
	"time"

	"timefountain-go/bus"
	"timefountain-go/types"
	"timefountain-go/x/jsonx"
	"timefountain-go/x/timex"
)

var (
	topicConfigHeartbeat = bus.T("config", "heartbeat")
	topicFountainStats   = bus.T("fountain", "stats")
)

const defaultInterval = 30 * time.Second

type config struct {
	Interval float64 `json:"interval"` // seconds
}

type Service struct {
	// Log receives each heartbeat line; nil means println.
	Log func(string)

	interval time.Duration
	start    int64
	last     *types.FountainStats
}

func (s *Service) logf(line string) {
	if s.Log != nil {
		s.Log(line)
		return
	}
	println(line)
}

func (s *Service) serviceLoop(ctx context.Context, conn *bus.Connection) {
	cfgSub := conn.Subscribe(topicConfigHeartbeat)
	statsSub := conn.Subscribe(topicFountainStats)
	defer conn.Unsubscribe(cfgSub)
	defer conn.Unsubscribe(statsSub)

	if s.interval <= 0 {
		s.interval = defaultInterval
	}
	s.start = timex.NowMs()
	tick := time.NewTimer(s.interval)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logf("[heartbeat] stopping")
			return
		case <-tick.C:
			s.logf(s.line(timex.NowMs()))
			tick.Reset(s.interval)
		case msg := <-statsSub.Channel():
			if st, ok := msg.Payload.(types.FountainStats); ok {
				s.last = &st
			}
		case msg := <-cfgSub.Channel():
			var c config
			if err := jsonx.Decode(msg.Payload, &c); err != nil || c.Interval <= 0 {
				s.logf("[heartbeat] ignoring bad config")
				continue
			}
			s.interval = time.Duration(c.Interval * float64(time.Second))
			timex.ResetTimer(tick, s.interval)
			s.logf("[heartbeat] interval " + s.interval.String())
		}
	}
}

func (s *Service) line(now int64) string {
	b := append([]byte("[heartbeat] up="), strconv.FormatInt((now-s.start)/1000, 10)...)
	b = append(b, 's')
	if st := s.last; st != nil {
		b = append(b, " fired="...)
		b = strconv.AppendUint(b, uint64(st.Fired), 10)
		b = append(b, " skipped="...)
		b = strconv.AppendUint(b, uint64(st.Skipped), 10)
		b = append(b, " dropped="...)
		b = strconv.AppendUint(b, uint64(st.Dropped), 10)
		b = append(b, " faults="...)
		b = strconv.AppendUint(b, uint64(st.Faults), 10)
		if st.Halted {
			b = append(b, " HALTED"...)
		}
	}
	return string(b)
}

// Start the heartbeat service.
func (s *Service) Start(ctx context.Context, conn *bus.Connection) error {
	go s.serviceLoop(ctx, conn)
	return nil
}
