// Package config implements TickForge's configuration layer, adapted from
// goclaw's internal/config: a Default() constructor, a json5-backed Load,
// and env-variable overrides for secrets that never belong in a committed
// config file.
package config

// Config is the top-level server configuration.
type Config struct {
	Server ServerConfig `json:"server"`
	Tick   TickConfig   `json:"tick"`
	World  WorldConfig  `json:"world"`
	Store  StoreConfig  `json:"store"`
	Trace  TraceConfig  `json:"trace"`
}

// ServerConfig is the listener configuration.
type ServerConfig struct {
	Host        string `json:"host"`
	Port        int    `json:"port"`
	TLSCertFile string `json:"tls_cert_file,omitempty"`
	TLSKeyFile  string `json:"tls_key_file,omitempty"`
	// AcceptRatePerSecond bounds new-connection acceptance; 0 disables
	// limiting.
	AcceptRatePerSecond float64 `json:"accept_rate_per_second"`
}

// TickConfig controls the packet-routing tick loop.
type TickConfig struct {
	PerSecond int `json:"per_second"`
}

// WorldConfig controls the optional world-frame loop.
type WorldConfig struct {
	FPS int `json:"fps"`
}

// StoreConfig selects and configures the persistent-store backend.
type StoreConfig struct {
	// PostgresDSN comes from the environment only (TICKFORGE_POSTGRES_DSN),
	// never from the config file, matching goclaw's secret-handling rule
	// for its own database DSN.
	PostgresDSN string `json:"-"`
	SQLitePath  string `json:"sqlite_path,omitempty"`
}

// TraceConfig controls OpenTelemetry export.
type TraceConfig struct {
	OTLPEndpoint string `json:"otlp_endpoint,omitempty"`
	// Protocol selects the OTLP exporter transport: "grpc" (default) or
	// "http". Operators behind an ingress that only forwards HTTP/1.1 use
	// "http"; everyone else uses the lower-overhead grpc exporter.
	Protocol    string `json:"protocol,omitempty"`
	ServiceName string `json:"service_name"`
}

// Default returns a Config with sensible defaults for local development.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:                "0.0.0.0",
			Port:                9191,
			AcceptRatePerSecond: 50,
		},
		Tick: TickConfig{PerSecond: 20},
		World: WorldConfig{FPS: 60},
		Store: StoreConfig{SQLitePath: "tickforge.sqlite3"},
		Trace: TraceConfig{ServiceName: "tickforge", Protocol: "grpc"},
	}
}
