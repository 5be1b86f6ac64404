package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Bounds   BoundsConfig   `yaml:"bounds" mapstructure:"bounds"`
	Cache    CacheConfig    `yaml:"cache" mapstructure:"cache"`
	Model    ModelConfig    `yaml:"model" mapstructure:"model"`
	Overpass OverpassConfig `yaml:"overpass" mapstructure:"overpass"`
	Dataset  DatasetConfig  `yaml:"dataset" mapstructure:"dataset"`
	Collect  CollectConfig  `yaml:"collect" mapstructure:"collect"`
	Synth    SynthConfig    `yaml:"synth" mapstructure:"synth"`
	Train    TrainConfig    `yaml:"train" mapstructure:"train"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// ServerConfig configures the prediction HTTP server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// BoundsConfig defines the geographic region the system operates within.
// Defaults cover Hulhumalé.
type BoundsConfig struct {
	MinLat float64 `yaml:"min_lat" mapstructure:"min_lat"`
	MaxLat float64 `yaml:"max_lat" mapstructure:"max_lat"`
	MinLon float64 `yaml:"min_lon" mapstructure:"min_lon"`
	MaxLon float64 `yaml:"max_lon" mapstructure:"max_lon"`
}

// CacheConfig configures the on-disk POI feature cache.
type CacheConfig struct {
	Dir      string `yaml:"dir" mapstructure:"dir"`
	TTLHours int    `yaml:"ttl_hours" mapstructure:"ttl_hours"`
}

// TTL returns the cache expiry as a duration.
func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLHours) * time.Hour
}

// ModelConfig locates the trained classifier artifact.
type ModelConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// OverpassConfig configures the Overpass API client used by offline collection.
type OverpassConfig struct {
	Endpoint       string  `yaml:"endpoint" mapstructure:"endpoint"`
	RadiusMeters   int     `yaml:"radius_m" mapstructure:"radius_m"`
	RateLimitRPS   float64 `yaml:"rate_limit_rps" mapstructure:"rate_limit_rps"`
	MaxRetries     int     `yaml:"max_retries" mapstructure:"max_retries"`
	RetryDelaySecs int     `yaml:"retry_delay_secs" mapstructure:"retry_delay_secs"`
	TimeoutSecs    int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// DatasetConfig configures the training-sample store backend.
type DatasetConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	Path        string `yaml:"path" mapstructure:"path"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// CollectConfig configures the real-data survey run.
type CollectConfig struct {
	SpacingDeg float64 `yaml:"spacing_deg" mapstructure:"spacing_deg"`
	Workers    int     `yaml:"workers" mapstructure:"workers"`
}

// SynthConfig configures synthetic dataset generation.
type SynthConfig struct {
	SpacingDeg float64 `yaml:"spacing_deg" mapstructure:"spacing_deg"`
}

// TrainConfig configures classifier training.
type TrainConfig struct {
	Trees       int     `yaml:"trees" mapstructure:"trees"`
	MaxDepth    int     `yaml:"max_depth" mapstructure:"max_depth"`
	MinLeaf     int     `yaml:"min_leaf" mapstructure:"min_leaf"`
	Seed        uint64  `yaml:"seed" mapstructure:"seed"`
	HoldoutFrac float64 `yaml:"holdout_frac" mapstructure:"holdout_frac"`
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
	v.SetEnvPrefix("SITEPLANNER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("bounds.min_lat", 4.2090)
	v.SetDefault("bounds.max_lat", 4.2400)
	v.SetDefault("bounds.min_lon", 73.5350)
	v.SetDefault("bounds.max_lon", 73.5450)
	v.SetDefault("cache.dir", "./data/poi_cache")
	v.SetDefault("cache.ttl_hours", 24)
	v.SetDefault("model.path", "./data/model.json")
	v.SetDefault("overpass.endpoint", "https://overpass-api.de/api/interpreter")
	v.SetDefault("overpass.radius_m", 200)
	v.SetDefault("overpass.rate_limit_rps", 0.5)
	v.SetDefault("overpass.max_retries", 3)
	v.SetDefault("overpass.retry_delay_secs", 10)
	v.SetDefault("overpass.timeout_secs", 60)
	v.SetDefault("dataset.driver", "sqlite")
	v.SetDefault("dataset.path", "./data/siteplanner.db")
	v.SetDefault("collect.spacing_deg", 0.001)
	v.SetDefault("collect.workers", 4)
	v.SetDefault("synth.spacing_deg", 0.0005)
	v.SetDefault("train.trees", 100)
	v.SetDefault("train.max_depth", 12)
	v.SetDefault("train.min_leaf", 2)
	v.SetDefault("train.seed", 42)
	v.SetDefault("train.holdout_frac", 0.2)
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
