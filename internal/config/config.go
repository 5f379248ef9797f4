// Package config loads the application configuration and initializes the
// global logger.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store   StoreConfig   `yaml:"store" mapstructure:"store"`
	Datalad DataladConfig `yaml:"datalad" mapstructure:"datalad"`
	Catalog CatalogConfig `yaml:"catalog" mapstructure:"catalog"`
	Cohort  CohortConfig  `yaml:"cohort" mapstructure:"cohort"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the run-journal backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// DataladConfig configures the version-control client wrapper.
type DataladConfig struct {
	Binary string `yaml:"binary" mapstructure:"binary"`
}

// CatalogConfig configures the known-dataset catalog.
type CatalogConfig struct {
	// Listing overrides the built-in OpenNeuro listing TSV.
	Listing string `yaml:"listing" mapstructure:"listing"`
}

// CohortConfig holds defaults for cohort construction.
type CohortConfig struct {
	Space string `yaml:"space" mapstructure:"space"`
	Task  string `yaml:"task" mapstructure:"task"`
	Jobs  int    `yaml:"jobs" mapstructure:"jobs"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("COHORT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "cohort_creator.db")
	v.SetDefault("datalad.binary", "datalad")
	v.SetDefault("cohort.space", "MNI152NLin2009cAsym")
	v.SetDefault("cohort.task", "")
	v.SetDefault("cohort.jobs", 6)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
