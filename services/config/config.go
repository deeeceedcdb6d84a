// Package config publishes the embedded per-device configuration as
// retained config/<key> messages at boot.
package config

import (
	"context"
	"encoding/json"
	"errors"

	"timefountain-go/bus"
	"timefountain-go/errcode"
)

const (
	serviceName  = "config"
	configPrefix = "config"
	CtxDeviceKey = "device" // context key used for device ID
)

var (
	ErrNoDevice = errors.New("missing device ID in context")
	ErrNotFound = errors.New("no embedded config for device")
)

// EmbeddedConfigLookup allows overriding how configs are resolved.
var EmbeddedConfigLookup = func(device string) ([]byte, bool) {
	b, ok := embeddedConfigs[device]
	return b, ok
}

type ConfigService struct {
	Name string
}

func NewConfigService() *ConfigService {
	return &ConfigService{Name: serviceName}
}

// Publish decodes the device's embedded JSON object and publishes each
// top-level key as a retained message. It returns the number published.
func (s *ConfigService) Publish(ctx context.Context, conn *bus.Connection) (int, error) {
	device, _ := ctx.Value(CtxDeviceKey).(string)
	if device == "" {
		return 0, ErrNoDevice
	}
	raw, ok := EmbeddedConfigLookup(device)
	if !ok || len(raw) == 0 {
		return 0, &errcode.E{C: errcode.NotReady, Op: serviceName, Msg: device, Err: ErrNotFound}
	}

	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return 0, errcode.Wrap(errcode.InvalidPayload, serviceName, err)
	}
	for k, v := range m {
		conn.Publish(conn.NewMessage(bus.T(configPrefix, k), v, true))
	}
	return len(m), nil
}

// Start launches the publisher in a goroutine.
func (s *ConfigService) Start(ctx context.Context, conn *bus.Connection) {
	go func() {
		n, err := s.Publish(ctx, conn)
		if err != nil {
			println("[config] publish failed:", err.Error())
			return
		}
		println("[config] published", n, "keys")
	}()
}
