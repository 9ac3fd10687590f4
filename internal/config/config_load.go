package config

import (
	"fmt"
	"os"

	"github.com/fsnotify/fsnotify"
	"github.com/titanous/json5"
)

// Load reads a JSON5 config file at path, falling back to Default() fields
// for anything left unset, then layers on environment-variable overrides
// for secrets. Mirrors goclaw's config.Load shape (json5 + env overlay).
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("config: read %s: %w", path, err)
			}
		} else if err := json5.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)

	if cfg.Tick.PerSecond <= 0 {
		return nil, fmt.Errorf("config: tick.per_second must be positive, got %d", cfg.Tick.PerSecond)
	}

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if dsn := os.Getenv("TICKFORGE_POSTGRES_DSN"); dsn != "" {
		cfg.Store.PostgresDSN = dsn
	}
	if ep := os.Getenv("TICKFORGE_OTLP_ENDPOINT"); ep != "" {
		cfg.Trace.OTLPEndpoint = ep
	}
}

// Watch watches path for edits and invokes onChange with the freshly
// reloaded config each time it changes. Only the host/TLS/accept-rate
// fields are meant to be hot-reloaded in practice (tick/world rates are
// read once at startup) — callers decide what to act on.
func Watch(path string, onChange func(*Config)) (stop func() error, err error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("config: watch %s: %w", path, err)
	}
	if err := watcher.Add(path); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("config: watch %s: %w", path, err)
	}

	go func() {
		for event := range watcher.Events {
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			cfg, err := Load(path)
			if err != nil {
				continue
			}
			onChange(cfg)
		}
	}()

	return watcher.Close, nil
}
