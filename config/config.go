package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"

	"github.com/Ramsey-B/fern/db"
	"github.com/Ramsey-B/fern/internal/server"
	"github.com/Ramsey-B/fern/pkg/conflict"
	"github.com/Ramsey-B/fern/pkg/database"
	"github.com/Ramsey-B/fern/pkg/graph"
	"github.com/Ramsey-B/fern/pkg/kafka"
	"github.com/Ramsey-B/fern/pkg/matching"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/redis"
	"github.com/Ramsey-B/fern/pkg/resolution"
	"github.com/Ramsey-B/fern/pkg/tracing"
	"github.com/Ramsey-B/fern/pkg/tracing/exporters"
)

const (
	AppName = "fern"
	// EnvPrefix prefixes every environment override
	EnvPrefix = "FERN_"
)

type Logging struct {
	Level  string `toml:"level" validate:"oneof=debug info warn error"`
	Format string `toml:"format" validate:"oneof=json console"`
}

type Database struct {
	Driver                 string `toml:"driver" validate:"oneof=postgres sqlite"`
	DSN                    string `toml:"dsn" validate:"required"`
	MaxOpenConns           int    `toml:"max_open_conns" validate:"gte=0"`
	MaxIdleConns           int    `toml:"max_idle_conns" validate:"gte=0"`
	ConnMaxLifetimeSeconds int    `toml:"conn_max_lifetime_seconds" validate:"gte=0"`
	MigrationVersion       uint   `toml:"migration_version"`
	MigrationForce         int    `toml:"migration_force"`
	MigrationAutoRollback  bool   `toml:"migration_auto_rollback"`
}

type Redis struct {
	Enabled bool `toml:"enabled"`
	redis.Config
}

type Kafka struct {
	Enabled bool `toml:"enabled"`
	kafka.Config
}

type Graph struct {
	Enabled bool `toml:"enabled"`
	graph.Config
}

type Tracing struct {
	Exporter    string  `toml:"exporter" validate:"oneof=none otlp"`
	Endpoint    string  `toml:"endpoint"`
	Protocol    string  `toml:"protocol" validate:"oneof=grpc http"`
	Insecure    bool    `toml:"insecure"`
	SampleRatio float64 `toml:"sample_ratio" validate:"gte=0,lte=1"`
}

type Resolution struct {
	Folder             string   `toml:"folder"`
	CallTimeoutSeconds int      `toml:"call_timeout_seconds" validate:"gte=0"`
	BatchPauseMillis   int      `toml:"batch_pause_ms" validate:"gte=0"`
	URLExpressions     []string `toml:"url_expressions"`
	TextExpressions    []string `toml:"text_expressions"`
}

type Conflict struct {
	DefaultStrategy string `toml:"default_strategy"`
	TieBreak        string `toml:"tie_break"`
	ToleranceMillis int    `toml:"tolerance_ms" validate:"gt=0"`
}

type Documents struct {
	Dir             string   `toml:"dir" validate:"required"`
	Extensions      []string `toml:"extensions"`
	MaxBytes        int64    `toml:"max_bytes" validate:"gte=0"`
	CacheTTLSeconds int      `toml:"cache_ttl_seconds" validate:"gte=0"`
}

// Config is the complete service configuration.
//
// Sections:
//   - Server: HTTP listener
//   - Database: match store backend and migrations
//   - Redis: transcript text cache (optional)
//   - Kafka: decision and conflict events (optional)
//   - Graph: Neo4j projection of confirmed transcripts (optional)
//   - Matching: ranker weights, optionally overridden by MatchingFile
//   - Resolution, Conflict, Documents: waterfall, reconciler and source settings
type Config struct {
	Version            string          `toml:"-"`
	StartupMaxAttempts int             `toml:"startup_max_attempts" validate:"gte=1"`
	MatchingFile       string          `toml:"matching_file"`
	Logging            Logging         `toml:"logging"`
	Server             server.Config   `toml:"server"`
	Database           Database        `toml:"database"`
	Redis              Redis           `toml:"redis"`
	Kafka              Kafka           `toml:"kafka"`
	Graph              Graph           `toml:"graph"`
	Tracing            Tracing         `toml:"tracing"`
	Matching           matching.Config `toml:"matching"`
	Resolution         Resolution      `toml:"resolution"`
	Conflict           Conflict        `toml:"conflict"`
	Documents          Documents       `toml:"documents"`
}

// Default returns a configuration that runs locally against SQLite with
// every optional backend disabled.
func Default() Config {
	res := resolution.DefaultConfig()
	cf := conflict.DefaultConfig()

	return Config{
		Version:            "dev",
		StartupMaxAttempts: 5,
		Logging:            Logging{Level: "info", Format: "json"},
		Server: server.Config{
			Host:            "0.0.0.0",
			Port:            8080,
			ServiceName:     AppName,
			BodyLimit:       "2M",
			ShutdownTimeout: 10,
		},
		Database: Database{
			Driver:                 database.DriverSQLite,
			DSN:                    "file:fern.db?_pragma=busy_timeout(5000)",
			MaxOpenConns:           25,
			MaxIdleConns:           10,
			ConnMaxLifetimeSeconds: 300,
			MigrationAutoRollback:  true,
		},
		Redis: Redis{Config: redis.Config{Host: "localhost", Port: 6379, KeyPrefix: AppName}},
		Kafka: Kafka{Config: kafka.Config{Brokers: []string{"localhost:9092"}, Topic: "fern-events"}},
		Graph: Graph{Config: graph.Config{Host: "localhost", Port: 7687, Database: "neo4j"}},
		Tracing: Tracing{
			Exporter: "none",
			Endpoint: "localhost:4317",
			Protocol: "grpc",
			Insecure: true,
		},
		Matching: matching.DefaultConfig(),
		Resolution: Resolution{
			CallTimeoutSeconds: int(res.CallTimeout / time.Second),
			BatchPauseMillis:   int(res.BatchPause / time.Millisecond),
			URLExpressions:     res.URLExpressions,
			TextExpressions:    res.TextExpressions,
		},
		Conflict: Conflict{
			DefaultStrategy: string(cf.DefaultStrategy),
			TieBreak:        string(cf.TieBreak),
			ToleranceMillis: int(cf.Tolerance / time.Millisecond),
		},
		Documents: Documents{
			Dir:             "transcripts",
			MaxBytes:        4 << 20,
			CacheTTLSeconds: 3600,
		},
	}
}

var validate = validator.New()

// Load builds the configuration from defaults, the TOML file at path (when
// it exists), a .env file in the working directory and FERN_* environment
// variables, in that order.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config: %w", err)
		default:
			if err := toml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	if err := bindEnv(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if _, err := c.ConflictConfig(); err != nil {
		return err
	}
	if c.Redis.Enabled && c.Redis.Host == "" {
		return errors.New("invalid config: redis.host is required when redis is enabled")
	}
	if c.Kafka.Enabled && (len(c.Kafka.Brokers) == 0 || c.Kafka.Topic == "") {
		return errors.New("invalid config: kafka.brokers and kafka.topic are required when kafka is enabled")
	}
	if c.Graph.Enabled && c.Graph.Host == "" {
		return errors.New("invalid config: graph.host is required when graph is enabled")
	}
	return nil
}

func (c *Config) DatabaseConfig() database.Config {
	return database.Config{
		Driver:          c.Database.Driver,
		DSN:             c.Database.DSN,
		MaxOpenConns:    c.Database.MaxOpenConns,
		MaxIdleConns:    c.Database.MaxIdleConns,
		ConnMaxLifetime: time.Duration(c.Database.ConnMaxLifetimeSeconds) * time.Second,
	}
}

// MigrationDir is the embedded migration directory for the configured driver
func (c *Config) MigrationDir() string {
	if c.Database.Driver == database.DriverPostgres {
		return db.PostgresDir
	}
	return db.SQLiteDir
}

func (c *Config) ResolutionConfig() resolution.Config {
	return resolution.Config{
		Folder:          c.Resolution.Folder,
		CallTimeout:     time.Duration(c.Resolution.CallTimeoutSeconds) * time.Second,
		BatchPause:      time.Duration(c.Resolution.BatchPauseMillis) * time.Millisecond,
		URLExpressions:  c.Resolution.URLExpressions,
		TextExpressions: c.Resolution.TextExpressions,
	}
}

func (c *Config) ConflictConfig() (conflict.Config, error) {
	cfg := conflict.Config{
		DefaultStrategy: models.ConflictStrategy(c.Conflict.DefaultStrategy),
		TieBreak:        conflict.TieBreak(c.Conflict.TieBreak),
		Tolerance:       time.Duration(c.Conflict.ToleranceMillis) * time.Millisecond,
	}
	if err := cfg.Validate(); err != nil {
		return conflict.Config{}, err
	}
	return cfg, nil
}

func (c *Config) TracingConfig() tracing.ProviderConfig {
	return tracing.ProviderConfig{
		ServiceName: c.Server.ServiceName,
		Version:     c.Version,
		Exporter:    c.Tracing.Exporter,
		SampleRatio: c.Tracing.SampleRatio,
		OTLP: exporters.OTLPConfig{
			Endpoint: c.Tracing.Endpoint,
			Protocol: c.Tracing.Protocol,
			Insecure: c.Tracing.Insecure,
			Timeout:  10 * time.Second,
		},
	}
}

func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Documents.CacheTTLSeconds) * time.Second
}

func normalizeList(values []string) []string {
	var out []string
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
