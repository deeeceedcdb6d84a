package config

// Embedded configuration, keyed by the device ID placed in ctx under
// CtxDeviceKey. Each top-level key becomes a retained config/<key>.

const cfgPico = `{
  "fountain": {
    "period_ticks": 16667,
    "offset_ppm": 0,
    "pattern": "frozen",
    "brightness": 1.0,
    "strobes": 1,
    "slots": 5,
    "color": "#ffffff",
    "palette": ["#ff0000", "#00ffff", "#00ff00"],
    "hue_shift": 16,
    "tolerance_ticks": 20,
    "pulse_ticks": 400,
    "stats_interval_ms": 5000
  },
  "heartbeat": {
    "interval": 30
  }
}`

var embeddedConfigs = map[string][]byte{
	"pico": []byte(cfgPico),
}
