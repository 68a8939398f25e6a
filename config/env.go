package config

import (
	"fmt"
	"strings"

	"github.com/Gobusters/ectoenv"

	"github.com/Ramsey-B/fern/pkg/kafka"
)

// envConfig carries the FERN_* overrides. It is seeded from the file
// configuration before binding, so unset variables keep the file values.
type envConfig struct {
	Version            string `env:"FERN_VERSION"`
	StartupMaxAttempts int    `env:"FERN_STARTUP_MAX_ATTEMPTS"`
	MatchingFile       string `env:"FERN_MATCHING_FILE"`
	LogLevel           string `env:"FERN_LOG_LEVEL"`
	LogFormat          string `env:"FERN_LOG_FORMAT"`

	HTTPHost string `env:"FERN_HTTP_HOST"`
	HTTPPort int    `env:"FERN_HTTP_PORT"`

	DatabaseDriver         string `env:"FERN_DB_DRIVER"`
	DatabaseDSN            string `env:"FERN_DB_DSN"`
	DatabaseMaxOpenConns   int    `env:"FERN_DB_MAX_OPEN_CONNS"`
	DatabaseMaxIdleConns   int    `env:"FERN_DB_MAX_IDLE_CONNS"`
	DatabaseMigrationForce int    `env:"FERN_DB_MIGRATION_FORCE"`

	RedisEnabled  bool   `env:"FERN_REDIS_ENABLED"`
	RedisHost     string `env:"FERN_REDIS_HOST"`
	RedisPort     int    `env:"FERN_REDIS_PORT"`
	RedisPassword string `env:"FERN_REDIS_PASSWORD"`
	RedisDB       int    `env:"FERN_REDIS_DB"`

	KafkaEnabled bool   `env:"FERN_KAFKA_ENABLED"`
	KafkaBrokers string `env:"FERN_KAFKA_BROKERS"`
	KafkaTopic   string `env:"FERN_KAFKA_TOPIC"`

	GraphEnabled  bool   `env:"FERN_GRAPH_ENABLED"`
	GraphHost     string `env:"FERN_GRAPH_HOST"`
	GraphPort     int    `env:"FERN_GRAPH_PORT"`
	GraphUsername string `env:"FERN_GRAPH_USERNAME"`
	GraphPassword string `env:"FERN_GRAPH_PASSWORD"`

	OTLPExporter string  `env:"FERN_OTLP_EXPORTER"`
	OTLPEndpoint string  `env:"FERN_OTLP_ENDPOINT"`
	OTLPProtocol string  `env:"FERN_OTLP_PROTOCOL"`
	OTLPInsecure bool    `env:"FERN_OTLP_INSECURE"`
	OTLPSample   float64 `env:"FERN_OTLP_SAMPLE_RATIO"`

	ResolutionFolder      string `env:"FERN_RESOLUTION_FOLDER"`
	ResolutionCallTimeout int    `env:"FERN_RESOLUTION_CALL_TIMEOUT"`
	ResolutionBatchPause  int    `env:"FERN_RESOLUTION_BATCH_PAUSE"`

	ConflictStrategy  string `env:"FERN_CONFLICT_STRATEGY"`
	ConflictTieBreak  string `env:"FERN_CONFLICT_TIE_BREAK"`
	ConflictTolerance int    `env:"FERN_CONFLICT_TOLERANCE"`

	DocumentsDir        string `env:"FERN_DOCUMENTS_DIR"`
	DocumentsExtensions string `env:"FERN_DOCUMENTS_EXTENSIONS"`
	DocumentsCacheTTL   int    `env:"FERN_DOCUMENTS_CACHE_TTL"`
}

func newEnvConfig(c *Config) envConfig {
	return envConfig{
		Version:                c.Version,
		StartupMaxAttempts:     c.StartupMaxAttempts,
		MatchingFile:           c.MatchingFile,
		LogLevel:               c.Logging.Level,
		LogFormat:              c.Logging.Format,
		HTTPHost:               c.Server.Host,
		HTTPPort:               c.Server.Port,
		DatabaseDriver:         c.Database.Driver,
		DatabaseDSN:            c.Database.DSN,
		DatabaseMaxOpenConns:   c.Database.MaxOpenConns,
		DatabaseMaxIdleConns:   c.Database.MaxIdleConns,
		DatabaseMigrationForce: c.Database.MigrationForce,
		RedisEnabled:           c.Redis.Enabled,
		RedisHost:              c.Redis.Host,
		RedisPort:              c.Redis.Port,
		RedisPassword:          c.Redis.Password,
		RedisDB:                c.Redis.DB,
		KafkaEnabled:           c.Kafka.Enabled,
		KafkaBrokers:           strings.Join(c.Kafka.Brokers, ","),
		KafkaTopic:             c.Kafka.Topic,
		GraphEnabled:           c.Graph.Enabled,
		GraphHost:              c.Graph.Host,
		GraphPort:              c.Graph.Port,
		GraphUsername:          c.Graph.Username,
		GraphPassword:          c.Graph.Password,
		OTLPExporter:           c.Tracing.Exporter,
		OTLPEndpoint:           c.Tracing.Endpoint,
		OTLPProtocol:           c.Tracing.Protocol,
		OTLPInsecure:           c.Tracing.Insecure,
		OTLPSample:             c.Tracing.SampleRatio,
		ResolutionFolder:       c.Resolution.Folder,
		ResolutionCallTimeout:  c.Resolution.CallTimeoutSeconds,
		ResolutionBatchPause:   c.Resolution.BatchPauseMillis,
		ConflictStrategy:       c.Conflict.DefaultStrategy,
		ConflictTieBreak:       c.Conflict.TieBreak,
		ConflictTolerance:      c.Conflict.ToleranceMillis,
		DocumentsDir:           c.Documents.Dir,
		DocumentsExtensions:    strings.Join(c.Documents.Extensions, ","),
		DocumentsCacheTTL:      c.Documents.CacheTTLSeconds,
	}
}

func (e envConfig) apply(c *Config) {
	c.Version = e.Version
	c.StartupMaxAttempts = e.StartupMaxAttempts
	c.MatchingFile = e.MatchingFile
	c.Logging.Level = strings.ToLower(e.LogLevel)
	c.Logging.Format = strings.ToLower(e.LogFormat)
	c.Server.Host = e.HTTPHost
	c.Server.Port = e.HTTPPort
	c.Database.Driver = e.DatabaseDriver
	c.Database.DSN = e.DatabaseDSN
	c.Database.MaxOpenConns = e.DatabaseMaxOpenConns
	c.Database.MaxIdleConns = e.DatabaseMaxIdleConns
	c.Database.MigrationForce = e.DatabaseMigrationForce
	c.Redis.Enabled = e.RedisEnabled
	c.Redis.Host = e.RedisHost
	c.Redis.Port = e.RedisPort
	c.Redis.Password = e.RedisPassword
	c.Redis.DB = e.RedisDB
	c.Kafka.Enabled = e.KafkaEnabled
	c.Kafka.Brokers = kafka.ParseBrokers(e.KafkaBrokers)
	c.Kafka.Topic = e.KafkaTopic
	c.Graph.Enabled = e.GraphEnabled
	c.Graph.Host = e.GraphHost
	c.Graph.Port = e.GraphPort
	c.Graph.Username = e.GraphUsername
	c.Graph.Password = e.GraphPassword
	c.Tracing.Exporter = e.OTLPExporter
	c.Tracing.Endpoint = e.OTLPEndpoint
	c.Tracing.Protocol = e.OTLPProtocol
	c.Tracing.Insecure = e.OTLPInsecure
	c.Tracing.SampleRatio = e.OTLPSample
	c.Resolution.Folder = e.ResolutionFolder
	c.Resolution.CallTimeoutSeconds = e.ResolutionCallTimeout
	c.Resolution.BatchPauseMillis = e.ResolutionBatchPause
	c.Conflict.DefaultStrategy = e.ConflictStrategy
	c.Conflict.TieBreak = e.ConflictTieBreak
	c.Conflict.ToleranceMillis = e.ConflictTolerance
	c.Documents.Dir = e.DocumentsDir
	c.Documents.Extensions = normalizeList(strings.Split(e.DocumentsExtensions, ","))
	c.Documents.CacheTTLSeconds = e.DocumentsCacheTTL
}

// bindEnv overlays FERN_* environment variables onto cfg.
func bindEnv(cfg *Config) error {
	env := newEnvConfig(cfg)
	if err := ectoenv.BindEnv(&env); err != nil {
		return fmt.Errorf("invalid environment: %w", err)
	}
	env.apply(cfg)
	return nil
}
