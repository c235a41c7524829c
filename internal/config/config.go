// Package config provides unified configuration loading for the Pitch Analyzer.
// Supports YAML files, environment variables, and programmatic overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the Pitch Analyzer. It is built once at
// process start and passed to every component that needs it.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Gateway       GatewayConfig       `yaml:"gateway"`
	PitchDeck     PitchDeckConfig     `yaml:"pitch_deck"`
	Media         MediaConfig         `yaml:"media"`
	Database      DatabaseConfig      `yaml:"database"`
	Cache         CacheConfig         `yaml:"cache"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host             string        `yaml:"host"`
	Port             int           `yaml:"port"`
	ReadTimeout      time.Duration `yaml:"read_timeout"`
	WriteTimeout     time.Duration `yaml:"write_timeout"`
	IdleTimeout      time.Duration `yaml:"idle_timeout"`
	RequestTimeout   time.Duration `yaml:"request_timeout"`
	GracefulShutdown time.Duration `yaml:"graceful_shutdown"`
	MaxUploadBytes   int64         `yaml:"max_upload_bytes"`
	CORSOrigins      []string      `yaml:"cors_origins"`
}

// GatewayConfig holds model gateway settings.
type GatewayConfig struct {
	APIKey            string        `yaml:"api_key"`
	BaseURL           string        `yaml:"base_url"`
	Model             string        `yaml:"model"`
	EmbeddingModel    string        `yaml:"embedding_model"`
	Timeout           time.Duration `yaml:"timeout"`
	MaxRetries        int           `yaml:"max_retries"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	Burst             int           `yaml:"burst"`
}

// PitchDeckConfig holds pitch-deck pipeline settings.
type PitchDeckConfig struct {
	DPI              float64 `yaml:"dpi"`
	JPEGQuality      int     `yaml:"jpeg_quality"`
	MaxFileBytes     int64   `yaml:"max_file_bytes"`
	MaxConcurrency   int     `yaml:"max_concurrency"`
	EmbeddingEnabled bool    `yaml:"embedding_enabled"`
	ResultsDir       string  `yaml:"results_dir"`
}

// MediaConfig holds audio/video handling settings.
type MediaConfig struct {
	TempDir          string            `yaml:"temp_dir"`
	Extractors       []ExtractorConfig `yaml:"extractors"`
	YTDLPPath        string            `yaml:"ytdlp_path"`
	DownloadTimeout  time.Duration     `yaml:"download_timeout"`
	MaxDownloadBytes int64             `yaml:"max_download_bytes"`
}

// ExtractorConfig describes one audio-extraction command. Command arguments
// may contain the {input} and {output} placeholders.
type ExtractorConfig struct {
	Name    string   `yaml:"name"`
	Command []string `yaml:"command"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	Driver   string         `yaml:"driver"` // sqlite or postgres
	SQLite   SQLiteConfig   `yaml:"sqlite"`
	Postgres PostgresConfig `yaml:"postgres"`
}

// SQLiteConfig holds SQLite-specific settings.
type SQLiteConfig struct {
	Path         string `yaml:"path"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	JournalMode  string `yaml:"journal_mode"`
}

// PostgresConfig holds Postgres-specific settings.
type PostgresConfig struct {
	DSN             string        `yaml:"dsn"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// CacheConfig holds cache settings.
type CacheConfig struct {
	Driver     string        `yaml:"driver"` // memory or redis
	TTL        time.Duration `yaml:"ttl"`
	MaxEntries int           `yaml:"max_entries"`
	Redis      RedisConfig   `yaml:"redis"`
}

// RedisConfig holds Redis-specific settings.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
	Prefix   string `yaml:"prefix"`
}

// ObservabilityConfig holds logging settings.
type ObservabilityConfig struct {
	LogLevel    string `yaml:"log_level"`
	LogFormat   string `yaml:"log_format"`
	ServiceName string `yaml:"service_name"`
}

// Load reads configuration from a YAML file and applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}

		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// DefaultConfig returns a configuration with sensible defaults for development.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:             "0.0.0.0",
			Port:             8000,
			ReadTimeout:      60 * time.Second,
			WriteTimeout:     10 * time.Minute,
			IdleTimeout:      120 * time.Second,
			RequestTimeout:   10 * time.Minute,
			GracefulShutdown: 15 * time.Second,
			MaxUploadBytes:   200 << 20,
			CORSOrigins:      []string{"http://localhost:3000", "http://127.0.0.1:3000"},
		},
		Gateway: GatewayConfig{
			BaseURL:           "https://generativelanguage.googleapis.com/v1beta/openai/",
			Model:             "gemini-2.0-flash",
			EmbeddingModel:    "text-embedding-004",
			Timeout:           3 * time.Minute,
			MaxRetries:        0,
			RequestsPerSecond: 5,
			Burst:             5,
		},
		PitchDeck: PitchDeckConfig{
			DPI:              150,
			JPEGQuality:      85,
			MaxFileBytes:     100 << 20,
			MaxConcurrency:   4,
			EmbeddingEnabled: true,
			ResultsDir:       "results",
		},
		Media: MediaConfig{
			TempDir: os.TempDir(),
			Extractors: []ExtractorConfig{
				{
					Name:    "ffmpeg",
					Command: []string{"ffmpeg", "-y", "-i", "{input}", "-vn", "-acodec", "pcm_s16le", "-ar", "16000", "-ac", "1", "{output}"},
				},
				{
					Name:    "ffmpeg-resample",
					Command: []string{"ffmpeg", "-y", "-err_detect", "ignore_err", "-i", "{input}", "-map", "0:a:0", "-af", "aresample=async=1", "-ar", "16000", "-ac", "1", "-f", "wav", "{output}"},
				},
			},
			YTDLPPath:        "yt-dlp",
			DownloadTimeout:  10 * time.Minute,
			MaxDownloadBytes: 2 << 30,
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
			SQLite: SQLiteConfig{
				Path:         "pitch-analyzer.db",
				MaxOpenConns: 1,
				JournalMode:  "WAL",
			},
			Postgres: PostgresConfig{
				MaxOpenConns:    25,
				MaxIdleConns:    5,
				ConnMaxLifetime: 5 * time.Minute,
			},
		},
		Cache: CacheConfig{
			Driver:     "memory",
			TTL:        24 * time.Hour,
			MaxEntries: 1000,
			Redis: RedisConfig{
				Addr:     "localhost:6379",
				DB:       0,
				PoolSize: 10,
				Prefix:   "pitch:",
			},
		},
		Observability: ObservabilityConfig{
			LogLevel:    "info",
			LogFormat:   "json",
			ServiceName: "pitch-analyzer",
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Gateway.APIKey) == "" {
		return fmt.Errorf("gateway api key is required (set GOOGLE_API_KEY)")
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Gateway.Model == "" {
		return fmt.Errorf("gateway model is required")
	}

	if c.Gateway.MaxRetries < 0 {
		return fmt.Errorf("gateway max_retries cannot be negative")
	}

	if c.PitchDeck.DPI <= 0 {
		return fmt.Errorf("pitch_deck dpi must be positive")
	}

	if c.PitchDeck.JPEGQuality < 1 || c.PitchDeck.JPEGQuality > 100 {
		return fmt.Errorf("pitch_deck jpeg_quality must be between 1 and 100, got %d", c.PitchDeck.JPEGQuality)
	}

	if c.PitchDeck.MaxConcurrency < 1 {
		return fmt.Errorf("pitch_deck max_concurrency must be at least 1")
	}

	if c.PitchDeck.ResultsDir == "" {
		return fmt.Errorf("pitch_deck results_dir is required")
	}

	if len(c.Media.Extractors) == 0 {
		return fmt.Errorf("media requires at least one audio extractor")
	}
	for _, ex := range c.Media.Extractors {
		if len(ex.Command) == 0 {
			return fmt.Errorf("audio extractor %q has no command", ex.Name)
		}
	}

	if c.Database.Driver != "sqlite" && c.Database.Driver != "postgres" {
		return fmt.Errorf("invalid database driver: %s", c.Database.Driver)
	}

	if c.Database.Driver == "postgres" && c.Database.Postgres.DSN == "" {
		return fmt.Errorf("postgres dsn is required")
	}

	if c.Cache.Driver != "memory" && c.Cache.Driver != "redis" {
		return fmt.Errorf("invalid cache driver: %s", c.Cache.Driver)
	}

	return nil
}

// DatabaseDSN returns the appropriate database connection string.
func (c *Config) DatabaseDSN() string {
	if c.Database.Driver == "sqlite" {
		return c.Database.SQLite.Path
	}
	return c.Database.Postgres.DSN
}

// applyEnvOverrides applies environment variable overrides to config.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		cfg.Gateway.APIKey = v
	}

	if v := os.Getenv("GOOGLE_API_KEY"); v != "" {
		cfg.Gateway.APIKey = v
	}

	if v := os.Getenv("GATEWAY_BASE_URL"); v != "" {
		cfg.Gateway.BaseURL = v
	}

	if v := os.Getenv("GATEWAY_MODEL"); v != "" {
		cfg.Gateway.Model = v
	}

	if v := os.Getenv("EMBEDDING_MODEL"); v != "" {
		cfg.Gateway.EmbeddingModel = v
	}

	if v := os.Getenv("SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}

	if v := os.Getenv("SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}

	if v := os.Getenv("RESULTS_DIR"); v != "" {
		cfg.PitchDeck.ResultsDir = v
	}

	if v := os.Getenv("DATABASE_URL"); v != "" {
		if strings.HasPrefix(v, "sqlite:") {
			cfg.Database.Driver = "sqlite"
			cfg.Database.SQLite.Path = strings.TrimPrefix(v, "sqlite:")
		} else if strings.HasPrefix(v, "postgres") {
			cfg.Database.Driver = "postgres"
			cfg.Database.Postgres.DSN = v
		}
	}

	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Cache.Driver = "redis"
		// Parse redis://host:port format
		cfg.Cache.Redis.Addr = strings.TrimPrefix(v, "redis://")
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Observability.LogLevel = v
	}

	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Observability.LogFormat = v
	}

	if v := os.Getenv("YTDLP_PATH"); v != "" {
		cfg.Media.YTDLPPath = v
	}

	if v := os.Getenv("MEDIA_TEMP_DIR"); v != "" {
		cfg.Media.TempDir = v
	}
}
