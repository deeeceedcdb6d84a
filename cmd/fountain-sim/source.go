//go:build !tinygo

package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"

	"timefountain-go/bus"
	"timefountain-go/services/config"
	"timefountain-go/types"
	"timefountain-go/x/jsonx"
)

// configSource publishes retained config/<key> messages from a TOML file
// or, without one, from the embedded device configuration.
type configSource struct {
	conn      *bus.Connection
	path      string
	device    string
	tolerance uint32
}

func (s *configSource) load() (map[string]any, error) {
	if s.path == "" {
		raw, ok := config.EmbeddedConfigLookup(s.device)
		if !ok {
			return nil, fmt.Errorf("no embedded config for device %q", s.device)
		}
		var m map[string]any
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, fmt.Errorf("embedded config %q: %w", s.device, err)
		}
		return m, nil
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse TOML config: %w", err)
	}
	return m, nil
}

// publish loads and publishes every top-level table. The fountain table
// is decoded first so a bad file leaves the running configuration alone.
func (s *configSource) publish() error {
	m, err := s.load()
	if err != nil {
		return err
	}
	if raw, ok := m["fountain"]; ok {
		var cfg types.FountainConfig
		if err := jsonx.Decode(raw, &cfg); err != nil {
			return fmt.Errorf("fountain table: %w", err)
		}
		if cfg.ToleranceTicks < s.tolerance {
			cfg.ToleranceTicks = s.tolerance
		}
		m["fountain"] = cfg
	}
	for k, v := range m {
		s.conn.Publish(s.conn.NewMessage(bus.T("config", k), v, true))
	}
	return nil
}
