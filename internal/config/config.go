package config

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
)

// EngineConfig carries the tunables of the room engine.
type EngineConfig struct {
	// AutoStartDelaySeconds is how long a full room waits before the
	// game starts. The delay is tick-based and never blocks the loop.
	AutoStartDelaySeconds int `json:"auto_start_delay_seconds"`
	// TickRate is the match loop frequency handed to the runtime.
	TickRate int `json:"tick_rate"`
}

const (
	defaultAutoStartDelaySeconds = 2
	defaultTickRate              = 10
)

var (
	cfg      *EngineConfig
	loadOnce sync.Once
	loadErr  error
)

// LoadEngineConfig loads the engine configuration from the given path.
func LoadEngineConfig(path string) error {
	loadOnce.Do(func() {
		data, err := os.ReadFile(path)
		if err != nil {
			loadErr = fmt.Errorf("failed to read engine config: %w", err)
			return
		}

		var c EngineConfig
		if err := json.Unmarshal(data, &c); err != nil {
			loadErr = fmt.Errorf("failed to unmarshal engine config: %w", err)
			return
		}
		cfg = &c
	})
	return loadErr
}

// AutoStartDelaySeconds returns the configured start delay or the
// default.
func AutoStartDelaySeconds() int {
	if cfg == nil || cfg.AutoStartDelaySeconds <= 0 {
		return defaultAutoStartDelaySeconds
	}
	return cfg.AutoStartDelaySeconds
}

// TickRate returns the configured match tick rate or the default.
func TickRate() int {
	if cfg == nil || cfg.TickRate <= 0 {
		return defaultTickRate
	}
	return cfg.TickRate
}
