package fountain

import (
	"context"
	"errors"
	"testing"
	"time"

	"timefountain-go/bus"
	"timefountain-go/errcode"
	core "timefountain-go/fountain"
	"timefountain-go/output"
	"timefountain-go/timebase"
	"timefountain-go/types"
)

type testAlarm struct{ err error }

func (a *testAlarm) Arm(timebase.Tick) error { return a.err }

type rig struct {
	conn  *bus.Connection
	eng   *core.Engine
	alarm *testAlarm
}

func start(t *testing.T) *rig {
	t.Helper()
	b := bus.NewBus(16)
	svcConn := b.NewConnection("fountain")
	conn := b.NewConnection("test")

	al := &testAlarm{}
	eng := core.New(timebase.NewManual(0), al, output.NewMailbox(8), core.DefaultSettings())
	if err := eng.Start(); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go New(svcConn, eng).Run(ctx)
	return &rig{conn: conn, eng: eng, alarm: al}
}

func (r *rig) request(t *testing.T, verb string, payload any) any {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	reply, err := r.conn.RequestWait(ctx, r.conn.NewMessage(ControlTopic(verb), payload, false))
	if err != nil {
		t.Fatalf("%s: %v", verb, err)
	}
	return reply.Payload
}

func expectOK(t *testing.T, p any) {
	t.Helper()
	if ok, isOK := p.(types.OKReply); !isOK || !ok.OK {
		t.Fatalf("want OKReply, got %#v", p)
	}
}

func expectErr(t *testing.T, p any, code errcode.Code) {
	t.Helper()
	e, ok := p.(types.ErrorReply)
	if !ok || e.OK || e.Error != string(code) {
		t.Fatalf("want error %q, got %#v", code, p)
	}
}

func waitState(t *testing.T, sub *bus.Subscription, pred func(types.FountainState) bool) types.FountainState {
	t.Helper()
	deadline := time.After(time.Second)
	for {
		select {
		case m := <-sub.Channel():
			if st, ok := m.Payload.(types.FountainState); ok && pred(st) {
				return st
			}
		case <-deadline:
			t.Fatal("timeout waiting for fountain/state")
		}
	}
}

func TestServiceAppliesRetainedConfig(t *testing.T) {
	r := start(t)
	stateSub := r.conn.Subscribe(topicState)

	r.conn.Publish(r.conn.NewMessage(topicConfig, map[string]any{
		"period_ticks": 10000,
		"offset_ppm":   5000,
		"pattern":      "multi",
		"brightness":   0.5,
		"strobes":      2,
		"slots":        5,
		"palette":      []any{"#ff0000", "#00ffff", "#00ff00"},
	}, true))

	st := waitState(t, stateSub, func(s types.FountainState) bool { return s.Pattern == "multi" })
	if st.PeriodTicks != 10000 || st.OffsetPPM != 5000 || st.EffectiveTicks != 10050 || st.IntervalTicks != 5025 {
		t.Fatalf("state = %+v", st)
	}
	if st.Brightness == nil || *st.Brightness != 0.5 || len(st.Palette) != 3 || st.Palette[1] != "#00ffff" {
		t.Fatalf("state = %+v", st)
	}
	if snap := r.eng.Snapshot(); snap.Pattern != core.PatternMulti || snap.Strobes != 2 {
		t.Fatalf("engine not updated: %+v", snap.Settings)
	}
}

func TestServiceRejectsBadConfig(t *testing.T) {
	r := start(t)
	statusSub := r.conn.Subscribe(topicStatus)
	r.conn.Publish(r.conn.NewMessage(topicConfig, map[string]any{"pattern": "plasma"}, true))

	deadline := time.After(time.Second)
	for {
		select {
		case m := <-statusSub.Channel():
			if s, ok := m.Payload.(types.ServiceState); ok && s.Level == "error" {
				if s.Status != string(errcode.InvalidParams) {
					t.Fatalf("status = %+v", s)
				}
				return
			}
		case <-deadline:
			t.Fatal("no error status")
		}
	}
}

func TestServiceSetGetAndErrors(t *testing.T) {
	r := start(t)

	ppm := int32(-2500)
	pat := "rainbow"
	expectOK(t, r.request(t, VerbSet, types.FountainSet{OffsetPPM: &ppm, Pattern: &pat}))
	if s := r.eng.Snapshot(); s.OffsetPPM != -2500 || s.Pattern != core.PatternRainbow {
		t.Fatalf("set not applied: %+v", s.Settings)
	}

	// JSON payloads work too.
	expectOK(t, r.request(t, VerbSet, `{"hz": 50, "slots": 7}`))
	if s := r.eng.Snapshot(); s.BasePeriod != 20000 || s.Slots != 7 || s.OffsetPPM != -2500 {
		t.Fatalf("json set: %+v", s.Settings)
	}

	bad := "#zz"
	expectErr(t, r.request(t, VerbSet, types.FountainSet{Color: &bad}), errcode.InvalidParams)
	expectErr(t, r.request(t, VerbSet, `{"slots": "many"}`), errcode.InvalidPayload)
	if s := r.eng.Snapshot(); s.Slots != 7 {
		t.Fatal("failed set leaked into the engine")
	}

	st, ok := r.request(t, VerbGet, nil).(types.FountainState)
	if !ok || st.Pattern != "rainbow" || st.Hz != 50 {
		t.Fatalf("get = %#v", st)
	}

	expectErr(t, r.request(t, "explode", nil), errcode.UnknownCommand)
}

func TestServiceOffAndOnRestorePattern(t *testing.T) {
	r := start(t)
	pat := "multi"
	expectOK(t, r.request(t, VerbSet, types.FountainSet{Pattern: &pat}))

	expectOK(t, r.request(t, VerbOff, nil))
	if r.eng.Snapshot().Pattern != core.PatternOff {
		t.Fatal("off did not blank")
	}
	expectOK(t, r.request(t, VerbOn, nil))
	if r.eng.Snapshot().Pattern != core.PatternMulti {
		t.Fatalf("on restored %v, want multi", r.eng.Snapshot().Pattern)
	}
}

func TestServiceStreamEdits(t *testing.T) {
	r := start(t)
	expectOK(t, r.request(t, VerbSet, types.FountainSet{
		Stream: &types.StreamUpdate{Index: 0, Spec: types.StreamSpec{Color: "#ff0000", Hz: 60}},
	}))
	expectOK(t, r.request(t, VerbSet, types.FountainSet{
		Stream: &types.StreamUpdate{Index: 1, Spec: types.StreamSpec{Color: "#00ff00", OffsetPPM: 300}},
	}))
	expectErr(t, r.request(t, VerbSet, types.FountainSet{
		Stream: &types.StreamUpdate{Index: 5, Spec: types.StreamSpec{Color: "#00ff00"}},
	}), errcode.InvalidParams)

	s := r.eng.Snapshot()
	if len(s.Streams) != 2 || s.Streams[0].Color != core.Red || s.Streams[1].OffsetPPM != 300 {
		t.Fatalf("streams = %+v", s.Streams)
	}
	// 60 Hz against the default 16 667 tick base: 16 666.67 / 16 667 - 1.
	if s.Streams[0].OffsetPPM != -20 {
		t.Fatalf("60 Hz stream ppm = %d, want -20", s.Streams[0].OffsetPPM)
	}

	expectOK(t, r.request(t, VerbSet, types.FountainSet{ClearStreams: true}))
	if n := len(r.eng.Snapshot().Streams); n != 0 {
		t.Fatalf("streams after clear = %d", n)
	}
}

func TestServiceResumeAfterTimerFault(t *testing.T) {
	r := start(t)
	r.alarm.err = errors.New("stuck")
	r.eng.OnAlarm() // Early, re-arm fails
	if !r.eng.Halted() {
		t.Fatal("engine should be halted")
	}
	expectErr(t, r.request(t, VerbResume, nil), errcode.TimerFault)

	r.alarm.err = nil
	expectOK(t, r.request(t, VerbResume, nil))
	if r.eng.Halted() {
		t.Fatal("still halted")
	}
	if st := r.request(t, VerbStats, nil).(types.FountainStats); st.Faults != 2 || st.Halted {
		t.Fatalf("stats = %+v", st)
	}
}

func TestServicePublishesStatsPeriodically(t *testing.T) {
	r := start(t)
	statsSub := r.conn.Subscribe(topicStats)
	r.conn.Publish(r.conn.NewMessage(topicConfig, types.FountainConfig{StatsIntervalMs: 10}, true))

	for i := 0; i < 2; i++ {
		select {
		case m := <-statsSub.Channel():
			if _, ok := m.Payload.(types.FountainStats); !ok {
				t.Fatalf("payload %#v", m.Payload)
			}
		case <-time.After(time.Second):
			t.Fatal("no periodic stats")
		}
	}
}
