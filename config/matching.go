package config

import (
	"os"

	"github.com/Gobusters/ectologger"
	"github.com/pelletier/go-toml/v2"

	"github.com/Ramsey-B/fern/pkg/matching"
)

// LoadMatching reads per-user matching weights layered over base. Any read,
// parse or validation failure logs a warning and returns the defaults.
func LoadMatching(path string, base matching.Config, logger ectologger.Logger) matching.Config {
	if err := base.Validate(); err != nil {
		logger.WithError(err).Warn("Configured matching weights are invalid, using defaults")
		base = matching.DefaultConfig()
	}
	if path == "" {
		return base
	}

	log := logger.WithField("path", path)

	data, err := os.ReadFile(path)
	if err != nil {
		log.WithError(err).Warn("Could not read matching config, using defaults")
		return base
	}

	cfg := base
	if err := toml.Unmarshal(data, &cfg); err != nil {
		log.WithError(err).Warn("Could not parse matching config, using defaults")
		return base
	}
	if err := cfg.Validate(); err != nil {
		log.WithError(err).Warn("Matching config is invalid, using defaults")
		return base
	}

	log.Info("Loaded matching config")
	return cfg
}
