package domain

// Config holds the complete Kestrel configuration.
type Config struct {
	// Server settings
	Server ServerConfig `toml:"server"`

	// Component configurations
	Repository RepositoryConfig `toml:"repository"`
	Cache      CacheConfig      `toml:"cache"`
	EventBus   EventBusConfig   `toml:"event_bus"`

	// Monitoring settings
	Monitor MonitorConfig `toml:"monitor"`

	// Observability
	Logging LoggingConfig `toml:"logging"`
	Tracing TracingConfig `toml:"tracing"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string `toml:"host"`
	Port         int    `toml:"port"`
	ReadTimeout  int    `toml:"read_timeout"`  // seconds
	WriteTimeout int    `toml:"write_timeout"` // seconds
}

// MonitorConfig holds assessment pipeline settings.
type MonitorConfig struct {
	// Workers is the number of concurrent screen rule evaluations.
	Workers int `toml:"workers"`

	// SweepInterval is how often the background worker re-assesses
	// at-risk users, in seconds. Zero disables the sweep.
	SweepInterval int `toml:"sweep_interval"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `toml:"level"`  // debug, info, warn, error
	Format string `toml:"format"` // json, text
}

// TracingConfig holds OpenTelemetry settings.
type TracingConfig struct {
	Enabled      bool   `toml:"enabled"`
	ServiceName  string `toml:"service_name"`
	ExporterType string `toml:"exporter_type"` // stdout, otlp, jaeger
	Endpoint     string `toml:"endpoint"`
}

// DefaultConfig returns a configuration suitable for single-node use:
// SQLite storage, in-memory cache, channel bus.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  30,
			WriteTimeout: 30,
		},
		Repository: RepositoryConfig{
			Driver:     "sqlite",
			SQLitePath: "./kestrel.db",
		},
		Cache: CacheConfig{
			Type:         "memory",
			LocalMaxSize: 10000,
			LocalTTL:     300,
		},
		EventBus: EventBusConfig{
			Type:              "channel",
			ChannelBufferSize: 1000,
		},
		Monitor: MonitorConfig{
			Workers:       8,
			SweepInterval: 300,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Tracing: TracingConfig{
			Enabled:     false,
			ServiceName: "kestrel",
		},
	}
}

// ProductionConfig returns a configuration for multi-node deployments:
// PostgreSQL storage, two-phase Redis cache, NATS bus.
func ProductionConfig() *Config {
	cfg := DefaultConfig()
	cfg.Repository = RepositoryConfig{
		Driver:       "postgres",
		PostgresHost: "localhost",
		PostgresPort: 5432,
		PostgresDB:   "kestrel",
	}
	cfg.Cache = CacheConfig{
		Type:           "redis",
		RedisAddr:      "localhost:6379",
		EnableTwoPhase: true,
		LocalMaxSize:   1000,
	}
	cfg.EventBus = EventBusConfig{
		Type:              "nats",
		NATSUrl:           "nats://localhost:4222",
		NATSMaxReconnects: 10,
		NATSReconnectWait: 5,
	}
	cfg.Tracing.Enabled = true
	return cfg
}
