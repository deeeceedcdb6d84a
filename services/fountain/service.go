// Package fountain is the bus front end of the strobe engine: it applies
// config/fountain, answers fountain/control/<verb> requests and publishes
// fountain/state (retained), fountain/status (retained) and fountain/stats.
package fountain

import (
	"context"
	"image/color"
	"time"

	"timefountain-go/bus"
	"timefountain-go/errcode"
	core "timefountain-go/fountain"
	"timefountain-go/types"
	"timefountain-go/x/jsonx"
	"timefountain-go/x/timex"
)

const (
	TokConfig   = "config"
	TokFountain = "fountain"
	TokControl  = "control"
	TokState    = "state"
	TokStatus   = "status"
	TokStats    = "stats"

	VerbSet    = "set"
	VerbGet    = "get"
	VerbStats  = "stats"
	VerbOff    = "off"
	VerbOn     = "on"
	VerbResume = "resume"

	defaultStatsEvery = 5 * time.Second
)

var (
	topicConfig  = bus.T(TokConfig, TokFountain)
	topicControl = bus.T(TokFountain, TokControl, "+")
	topicState   = bus.T(TokFountain, TokState)
	topicStatus  = bus.T(TokFountain, TokStatus)
	topicStats   = bus.T(TokFountain, TokStats)
)

// ControlTopic is the request topic for a verb.
func ControlTopic(verb string) bus.Topic { return bus.T(TokFountain, TokControl, verb) }

// Engine is what the service drives; *fountain.Engine implements it.
type Engine interface {
	Apply(core.Settings) *core.Snapshot
	Snapshot() *core.Snapshot
	Stats() core.Stats
	Halted() bool
	Resume() error
}

type Service struct {
	conn       *bus.Connection
	eng        Engine
	statsEvery time.Duration
	statsMs    uint32
	lastOn     core.PatternKind
	wasHalted  bool
}

func New(conn *bus.Connection, eng Engine) *Service {
	return &Service{
		conn:       conn,
		eng:        eng,
		statsEvery: defaultStatsEvery,
		lastOn:     core.PatternFrozen,
	}
}

func (s *Service) Run(ctx context.Context) {
	cfgSub := s.conn.Subscribe(topicConfig)
	ctrlSub := s.conn.Subscribe(topicControl)
	defer s.conn.Unsubscribe(cfgSub)
	defer s.conn.Unsubscribe(ctrlSub)

	s.publishStatus("idle", "awaiting_config")
	s.publishState()

	timer := time.NewTimer(s.statsEvery)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			s.publishStatus("stopped", "context_cancelled")
			return

		case msg := <-cfgSub.Channel():
			if err := s.applyConfig(msg.Payload); err != nil {
				println("[fountain] config rejected:", err.Error())
				s.publishStatus("error", string(errcode.Of(err)))
				continue
			}
			timex.ResetTimer(timer, s.statsEvery)
			s.publishState()
			s.publishRunStatus()

		case msg := <-ctrlSub.Channel():
			s.handleControl(msg)

		case <-timer.C:
			s.conn.Publish(s.conn.NewMessage(topicStats, StatsOf(s.eng.Stats(), timex.NowMs()), false))
			if h := s.eng.Halted(); h != s.wasHalted {
				s.publishRunStatus()
			}
			timer.Reset(s.statsEvery)
		}
	}
}

func (s *Service) applyConfig(payload any) error {
	var cfg types.FountainConfig
	if err := jsonx.Decode(payload, &cfg); err != nil {
		return errcode.Wrap(errcode.InvalidPayload, "config", err)
	}
	st, err := FromConfig(cfg)
	if err != nil {
		return err
	}
	s.statsMs = cfg.StatsIntervalMs
	s.statsEvery = timex.Millis(cfg.StatsIntervalMs, defaultStatsEvery)
	s.apply(st)
	println("[fountain] config applied: pattern", st.Pattern.String(), "period", st.BasePeriod, "ppm", st.OffsetPPM)
	return nil
}

func (s *Service) apply(st core.Settings) {
	if st.Pattern != core.PatternOff {
		s.lastOn = st.Pattern
	}
	s.eng.Apply(st)
}

func (s *Service) handleControl(msg *bus.Message) {
	if len(msg.Topic) != 3 {
		s.replyErr(msg, errcode.InvalidTopic)
		return
	}
	verb, _ := msg.Topic[2].(string)

	switch verb {
	case VerbSet:
		var set types.FountainSet
		if err := jsonx.Decode(msg.Payload, &set); err != nil {
			s.replyErr(msg, errcode.InvalidPayload)
			return
		}
		st := copySettings(s.eng.Snapshot().Settings)
		if err := ApplySet(&st, set); err != nil {
			s.replyErr(msg, errcode.Of(err))
			return
		}
		s.apply(st)
		s.publishState()
		s.replyOK(msg)

	case VerbGet:
		s.conn.Reply(msg, s.state(), false)

	case VerbStats:
		s.conn.Reply(msg, StatsOf(s.eng.Stats(), timex.NowMs()), false)

	case VerbOff:
		st := copySettings(s.eng.Snapshot().Settings)
		if st.Pattern != core.PatternOff {
			s.lastOn = st.Pattern
		}
		st.Pattern = core.PatternOff
		s.eng.Apply(st)
		s.publishState()
		s.replyOK(msg)

	case VerbOn:
		st := copySettings(s.eng.Snapshot().Settings)
		if st.Pattern == core.PatternOff {
			st.Pattern = s.lastOn
			s.eng.Apply(st)
			s.publishState()
		}
		s.replyOK(msg)

	case VerbResume:
		if err := s.eng.Resume(); err != nil {
			println("[fountain] resume failed:", err.Error())
			s.replyErr(msg, errcode.TimerFault)
			s.publishRunStatus()
			return
		}
		s.publishRunStatus()
		s.replyOK(msg)

	default:
		s.replyErr(msg, errcode.UnknownCommand)
	}
}

func (s *Service) state() types.FountainState {
	return StateOf(s.eng.Snapshot(), s.eng.Halted(), s.statsMs, timex.NowMs())
}

func (s *Service) publishState() {
	s.conn.Publish(s.conn.NewMessage(topicState, s.state(), true))
}

func (s *Service) publishRunStatus() {
	s.wasHalted = s.eng.Halted()
	if s.wasHalted {
		s.publishStatus("halted", string(errcode.TimerFault))
		return
	}
	s.publishStatus("running", "ok")
}

func (s *Service) publishStatus(level, status string) {
	s.conn.Publish(s.conn.NewMessage(topicStatus,
		types.ServiceState{Level: level, Status: status, TS: timex.NowMs()}, true))
}

func (s *Service) replyOK(m *bus.Message) {
	if m.CanReply() {
		s.conn.Reply(m, types.OKReply{OK: true}, false)
	}
}

func (s *Service) replyErr(m *bus.Message, code errcode.Code) {
	if !m.CanReply() {
		return
	}
	if code == "" {
		code = errcode.Error
	}
	s.conn.Reply(m, types.ErrorReply{OK: false, Error: string(code)}, false)
}

func copySettings(st core.Settings) core.Settings {
	st.Palette = append([]color.RGBA(nil), st.Palette...)
	st.Streams = append([]core.Stream(nil), st.Streams...)
	return st
}
