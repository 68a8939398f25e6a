package main

import (
	"strings"
	"sync"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/fern/config"
	"github.com/Ramsey-B/fern/pkg/logging"
	"github.com/Ramsey-B/fern/pkg/matching"
)

const defaultConfigPath = "fern.toml"

type commandContext struct {
	configFlag   *string
	matchingFlag *string

	configOnce sync.Once
	config     *config.Config
	logger     ectologger.Logger
	syncLogger func() error
	configErr  error
}

func newCommandContext(configFlag, matchingFlag *string) *commandContext {
	return &commandContext{
		configFlag:   configFlag,
		matchingFlag: matchingFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		path := defaultConfigPath
		if c.configFlag != nil && strings.TrimSpace(*c.configFlag) != "" {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if c.matchingFlag != nil && strings.TrimSpace(*c.matchingFlag) != "" {
			cfg.MatchingFile = strings.TrimSpace(*c.matchingFlag)
		}

		logger, syncLogger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
		if err != nil {
			c.configErr = err
			return
		}

		c.config = cfg
		c.logger = logger
		c.syncLogger = syncLogger
	})
	return c.config, c.configErr
}

// matchingConfig layers the per-user weights file over the configured weights
func (c *commandContext) matchingConfig() matching.Config {
	return config.LoadMatching(c.config.MatchingFile, c.config.Matching, c.logger)
}

func (c *commandContext) close() error {
	if c.syncLogger == nil {
		return nil
	}
	// stderr sync fails on some terminals
	_ = c.syncLogger()
	return nil
}
