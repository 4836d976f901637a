// Package config loads service configuration from a YAML file and
// environment variables.
//
// Every tunable of the queue engine (queue sizes, stable zone, debounce,
// scoring weights) lives here rather than as a constant, so deployments can
// change product thresholds without a rebuild.
//
// Environment variables use the BR prefix with dots replaced by underscores,
// e.g. BR_QUEUE_MIN_SIZE overrides queue.min_size.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the root configuration object.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Redis   RedisConfig   `mapstructure:"redis"`
	Auth    AuthConfig    `mapstructure:"auth"`
	Catalog CatalogConfig `mapstructure:"catalog"`
	Queue   QueueConfig   `mapstructure:"queue"`
	Scoring ScoringConfig `mapstructure:"scoring"`
	Regen   RegenConfig   `mapstructure:"regen"`
	Profile ProfileConfig `mapstructure:"profile"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	PoolTimeout  time.Duration `mapstructure:"pool_timeout"`
	MaxRetries   int           `mapstructure:"max_retries"`
}

// AuthConfig holds authentication settings.
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
}

// CatalogConfig holds music catalog client settings.
type CatalogConfig struct {
	// RequestsPerMinute bounds outbound catalog calls. Spotify enforces
	// roughly 150-180 requests per minute per client.
	RequestsPerMinute int           `mapstructure:"requests_per_minute"`
	Burst             int           `mapstructure:"burst"`
	Market            string        `mapstructure:"market"`
	MaxRetries        int           `mapstructure:"max_retries"`
	RetryInitialWait  time.Duration `mapstructure:"retry_initial_wait"`
	RetryMaxWait      time.Duration `mapstructure:"retry_max_wait"`
	BreakerMaxFails   int           `mapstructure:"breaker_max_fails"`
	BreakerTimeout    time.Duration `mapstructure:"breaker_timeout"`
}

// QueueConfig holds queue engine thresholds.
type QueueConfig struct {
	// MinSize is the length below which repopulation triggers.
	MinSize int `mapstructure:"min_size"`
	// MaxSize is the length repopulation tops the queue up to.
	MaxSize int `mapstructure:"max_size"`
	// StableZone is the number of leading positions protected from
	// regeneration (K).
	StableZone int `mapstructure:"stable_zone"`
	// TracksPerArtist bounds how many candidates one artist contributes.
	TracksPerArtist int `mapstructure:"tracks_per_artist"`
	// DiversityWindow is how many recently queued tracks the scorer's
	// same-artist penalty looks back over.
	DiversityWindow int `mapstructure:"diversity_window"`
}

// ScoringConfig holds track scoring weights. ArtistWeight, GenreWeight and
// LikeWeight together define the achievable base score; DiversityPenalty is
// the fraction of the base score subtracted per recent same-artist track.
type ScoringConfig struct {
	ArtistWeight     float64 `mapstructure:"artist_weight"`
	GenreWeight      float64 `mapstructure:"genre_weight"`
	LikeWeight       float64 `mapstructure:"like_weight"`
	DiversityPenalty float64 `mapstructure:"diversity_penalty"`
}

// RegenConfig holds background regeneration settings.
type RegenConfig struct {
	// Debounce is the quiet period after a membership change before the
	// queue regenerates.
	Debounce time.Duration `mapstructure:"debounce"`
	// Timeout bounds a single regeneration run.
	Timeout time.Duration `mapstructure:"timeout"`
}

// ProfileConfig holds taste profile settings.
type ProfileConfig struct {
	// CacheTTL is the freshness window of a cached taste profile.
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
	// TopLimit is how many top tracks/artists are fetched per user.
	TopLimit int `mapstructure:"top_limit"`
}

// Load reads configuration from the given file (optional) and environment.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("BR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// Config file is optional if all required values are in env.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// Default returns a Config populated with defaults only. Used by tests.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("default config unmarshal: %v", err))
	}
	return &cfg
}

func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", 8010)
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 10*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)
	v.SetDefault("server.shutdown_timeout", 5*time.Second)

	// Redis defaults
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.min_idle_conns", 5)
	v.SetDefault("redis.dial_timeout", 5*time.Second)
	v.SetDefault("redis.read_timeout", 3*time.Second)
	v.SetDefault("redis.write_timeout", 3*time.Second)
	v.SetDefault("redis.pool_timeout", 4*time.Second)
	v.SetDefault("redis.max_retries", 3)

	// Catalog defaults
	v.SetDefault("catalog.requests_per_minute", 150)
	v.SetDefault("catalog.burst", 10)
	v.SetDefault("catalog.market", "US")
	v.SetDefault("catalog.max_retries", 3)
	v.SetDefault("catalog.retry_initial_wait", 200*time.Millisecond)
	v.SetDefault("catalog.retry_max_wait", 5*time.Second)
	v.SetDefault("catalog.breaker_max_fails", 5)
	v.SetDefault("catalog.breaker_timeout", 30*time.Second)

	// Queue engine defaults
	v.SetDefault("queue.min_size", 10)
	v.SetDefault("queue.max_size", 20)
	v.SetDefault("queue.stable_zone", 3)
	v.SetDefault("queue.tracks_per_artist", 8)
	v.SetDefault("queue.diversity_window", 5)

	// Scoring weights: artist match is the dominant signal, genre overlap
	// secondary, liked-artist boost the smallest share. They sum to 100.
	v.SetDefault("scoring.artist_weight", 50.0)
	v.SetDefault("scoring.genre_weight", 30.0)
	v.SetDefault("scoring.like_weight", 20.0)
	v.SetDefault("scoring.diversity_penalty", 0.3)

	// Regeneration defaults
	v.SetDefault("regen.debounce", 5*time.Second)
	v.SetDefault("regen.timeout", 30*time.Second)

	// Profile defaults
	v.SetDefault("profile.cache_ttl", time.Hour)
	v.SetDefault("profile.top_limit", 20)
}

// Validate checks configuration invariants.
func (c *Config) Validate() error {
	if c.Queue.MinSize <= 0 {
		return fmt.Errorf("queue.min_size must be positive, got %d", c.Queue.MinSize)
	}
	if c.Queue.MaxSize < c.Queue.MinSize {
		return fmt.Errorf("queue.max_size (%d) must be >= queue.min_size (%d)", c.Queue.MaxSize, c.Queue.MinSize)
	}
	if c.Queue.StableZone < 0 {
		return fmt.Errorf("queue.stable_zone must be >= 0, got %d", c.Queue.StableZone)
	}
	if c.Queue.TracksPerArtist <= 0 {
		return fmt.Errorf("queue.tracks_per_artist must be positive, got %d", c.Queue.TracksPerArtist)
	}
	if c.Queue.DiversityWindow < 0 {
		return fmt.Errorf("queue.diversity_window must be >= 0, got %d", c.Queue.DiversityWindow)
	}
	if c.Scoring.ArtistWeight < 0 || c.Scoring.GenreWeight < 0 || c.Scoring.LikeWeight < 0 {
		return fmt.Errorf("scoring weights must be non-negative")
	}
	if c.Scoring.DiversityPenalty < 0 || c.Scoring.DiversityPenalty > 1 {
		return fmt.Errorf("scoring.diversity_penalty must be in [0,1], got %f", c.Scoring.DiversityPenalty)
	}
	if c.Regen.Debounce <= 0 {
		return fmt.Errorf("regen.debounce must be positive")
	}
	if c.Regen.Timeout <= 0 {
		return fmt.Errorf("regen.timeout must be positive")
	}
	if c.Profile.CacheTTL <= 0 {
		return fmt.Errorf("profile.cache_ttl must be positive")
	}
	if c.Catalog.RequestsPerMinute <= 0 {
		return fmt.Errorf("catalog.requests_per_minute must be positive")
	}
	return nil
}
