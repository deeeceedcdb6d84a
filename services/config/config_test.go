package config

import (
	"context"
	"errors"
	"testing"
	"time"

	"timefountain-go/bus"
	"timefountain-go/errcode"
	"timefountain-go/types"
	"timefountain-go/x/jsonx"
)

func TestConfig_PublishEmbedded_RetainedPerKey(t *testing.T) {
	oldLookup := EmbeddedConfigLookup
	EmbeddedConfigLookup = func(device string) ([]byte, bool) {
		if device != "pico" {
			return nil, false
		}
		return []byte(`{
			"mode": "dev",
			"debug": true,
			"region": {"code": "eu"}
		}`), true
	}
	t.Cleanup(func() { EmbeddedConfigLookup = oldLookup })

	b := bus.NewBus(16)
	conn := b.NewConnection("test-config")
	svc := NewConfigService()

	ctx := context.WithValue(context.Background(), CtxDeviceKey, "pico")
	svc.Start(ctx, conn)

	// Subscribe; retained messages should arrive even if published first.
	sub := conn.Subscribe(bus.T(configPrefix, "#"))

	got := map[string]any{}
	deadline := time.Now().Add(600 * time.Millisecond)
	for len(got) < 3 && time.Now().Before(deadline) {
		select {
		case m := <-sub.Channel():
			if len(m.Topic) != 2 || m.Topic[0] != configPrefix {
				t.Fatalf("unexpected topic: %v", m.Topic)
			}
			key, ok := m.Topic[1].(string)
			if !ok {
				t.Fatalf("topic[1] type %T, want string", m.Topic[1])
			}
			if !m.Retained {
				t.Fatalf("%s not retained", key)
			}
			got[key] = m.Payload
		case <-time.After(10 * time.Millisecond):
		}
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 retained messages, got %d (%v)", len(got), got)
	}
	if s, _ := got["mode"].(string); s != "dev" {
		t.Fatalf("mode = %#v", got["mode"])
	}
	if v, _ := got["debug"].(bool); !v {
		t.Fatalf("debug = %#v", got["debug"])
	}
	if m, ok := got["region"].(map[string]any); !ok || m["code"] != "eu" {
		t.Fatalf("region = %#v", got["region"])
	}
}

func TestConfig_PicoFountainDecodes(t *testing.T) {
	b := bus.NewBus(8)
	conn := b.NewConnection("test-pico")
	ctx := context.WithValue(context.Background(), CtxDeviceKey, "pico")
	if n, err := NewConfigService().Publish(ctx, conn); err != nil || n != 2 {
		t.Fatalf("Publish: n=%d err=%v", n, err)
	}

	sub := conn.Subscribe(bus.T(configPrefix, "fountain"))
	select {
	case m := <-sub.Channel():
		var cfg types.FountainConfig
		if err := jsonx.Decode(m.Payload, &cfg); err != nil {
			t.Fatal(err)
		}
		if cfg.PeriodTicks != 16667 || cfg.Pattern != "frozen" || cfg.Slots != 5 || len(cfg.Palette) != 3 {
			t.Fatalf("unexpected fountain config: %+v", cfg)
		}
		if cfg.Brightness == nil || *cfg.Brightness != 1 {
			t.Fatalf("brightness = %v", cfg.Brightness)
		}
		if cfg.PulseTicks == nil || *cfg.PulseTicks == 0 {
			t.Fatalf("pico config holds the strip lit: pulse = %v", cfg.PulseTicks)
		}
	case <-time.After(200 * time.Millisecond):
		t.Fatal("no retained config/fountain")
	}
}

func TestConfig_PublishConfig_MissingDevice(t *testing.T) {
	b := bus.NewBus(4)
	conn := b.NewConnection("test-missing-device")
	if _, err := NewConfigService().Publish(context.Background(), conn); !errors.Is(err, ErrNoDevice) {
		t.Fatalf("want ErrNoDevice, got %v", err)
	}
}

func TestConfig_PublishConfig_NoConfigFound(t *testing.T) {
	oldLookup := EmbeddedConfigLookup
	EmbeddedConfigLookup = func(device string) ([]byte, bool) { return nil, false }
	t.Cleanup(func() { EmbeddedConfigLookup = oldLookup })

	b := bus.NewBus(4)
	conn := b.NewConnection("test-no-config")
	ctx := context.WithValue(context.Background(), CtxDeviceKey, "unknown-device")
	_, err := NewConfigService().Publish(ctx, conn)
	if !errors.Is(err, ErrNotFound) || errcode.Of(err) != errcode.NotReady {
		t.Fatalf("want NotReady/ErrNotFound, got %v", err)
	}
}

func TestConfig_PublishConfig_BadJSON(t *testing.T) {
	oldLookup := EmbeddedConfigLookup
	EmbeddedConfigLookup = func(string) ([]byte, bool) { return []byte(`[1,2`), true }
	t.Cleanup(func() { EmbeddedConfigLookup = oldLookup })

	b := bus.NewBus(4)
	ctx := context.WithValue(context.Background(), CtxDeviceKey, "pico")
	if _, err := NewConfigService().Publish(ctx, b.NewConnection("x")); errcode.Of(err) != errcode.InvalidPayload {
		t.Fatalf("want invalid_payload, got %v", err)
	}
}
