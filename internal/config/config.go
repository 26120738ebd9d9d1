// Package config loads application configuration from file and environment
// and initializes the global logger.
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
	Census  CensusConfig  `yaml:"census" mapstructure:"census"`
	Profile ProfileConfig `yaml:"profile" mapstructure:"profile"`
	Trends  TrendsConfig  `yaml:"trends" mapstructure:"trends"`
	Agents  AgentsConfig  `yaml:"agents" mapstructure:"agents"`
	Sim     SimConfig     `yaml:"sim" mapstructure:"sim"`
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// CensusConfig holds Census Bureau API settings shared by the geocoder and
// the ACS statistics client.
type CensusConfig struct {
	APIKey          string  `yaml:"api_key" mapstructure:"api_key"`
	GeocoderRPS     float64 `yaml:"geocoder_rps" mapstructure:"geocoder_rps"`
	ACSRPS          float64 `yaml:"acs_rps" mapstructure:"acs_rps"`
	TimeoutSecs     int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	GeocoderBaseURL string  `yaml:"geocoder_base_url" mapstructure:"geocoder_base_url"`
	ACSBaseURL      string  `yaml:"acs_base_url" mapstructure:"acs_base_url"`
}

// ProfileConfig selects the demographic profile source strategy.
type ProfileConfig struct {
	// Source is "live" (ACS API) or "cached" (preloaded tract reference table).
	Source string `yaml:"source" mapstructure:"source"`
	// MarketYear is the ACS vintage for the market-analysis variable set.
	MarketYear int `yaml:"market_year" mapstructure:"market_year"`
	// DetailedYear is the ACS vintage for the detailed residential variable set.
	DetailedYear int `yaml:"detailed_year" mapstructure:"detailed_year"`
}

// TrendsConfig configures the search-trend provider.
type TrendsConfig struct {
	BaseURL   string `yaml:"base_url" mapstructure:"base_url"`
	Geo       string `yaml:"geo" mapstructure:"geo"`
	Timeframe string `yaml:"timeframe" mapstructure:"timeframe"`
	// RequestIntervalSecs is the provider-imposed minimum spacing between
	// requests. The provider throttles faster callers.
	RequestIntervalSecs int `yaml:"request_interval_secs" mapstructure:"request_interval_secs"`
}

// AgentsConfig configures the narrative-agent service client.
type AgentsConfig struct {
	BaseURL     string `yaml:"base_url" mapstructure:"base_url"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// SimConfig configures simulation session defaults.
type SimConfig struct {
	StartYear int `yaml:"start_year" mapstructure:"start_year"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
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
	v.SetEnvPrefix("BIZSIM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 2)
	v.SetDefault("census.geocoder_base_url", "https://geocoding.geo.census.gov/geocoder")
	v.SetDefault("census.acs_base_url", "https://api.census.gov/data")
	v.SetDefault("census.geocoder_rps", 5)
	v.SetDefault("census.acs_rps", 5)
	v.SetDefault("census.timeout_secs", 10)
	v.SetDefault("profile.source", "live")
	v.SetDefault("profile.market_year", 2022)
	v.SetDefault("profile.detailed_year", 2021)
	v.SetDefault("trends.base_url", "https://trends.google.com")
	v.SetDefault("trends.geo", "US-NY")
	v.SetDefault("trends.timeframe", "today 1-m")
	v.SetDefault("trends.request_interval_secs", 1)
	v.SetDefault("agents.base_url", "http://localhost:3000")
	v.SetDefault("agents.timeout_secs", 60)
	v.SetDefault("sim.start_year", 2024)
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

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

// Validate checks that the loaded configuration is usable.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case "postgres", "sqlite":
		if c.Store.DatabaseURL == "" {
			return eris.Errorf("config: store.database_url is required for the %s driver", c.Store.Driver)
		}
	default:
		return eris.Errorf("config: unknown store driver %q", c.Store.Driver)
	}

	switch c.Profile.Source {
	case "live":
		if c.Census.APIKey == "" {
			return eris.New("config: census.api_key is required for the live profile source")
		}
	case "cached":
	default:
		return eris.Errorf("config: unknown profile source %q", c.Profile.Source)
	}

	return nil
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
