package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the full application configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Detector DetectorConfig `mapstructure:"detector"`
	LogLevel string         `mapstructure:"log_level"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// DatabaseConfig configures the Postgres connection.
type DatabaseConfig struct {
	URL string `mapstructure:"url"`
}

// RedisConfig configures the optional match cache.
type RedisConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	Addr    string        `mapstructure:"addr"`
	TTL     time.Duration `mapstructure:"ttl"`
}

// DetectorConfig selects and configures the vision backend.
// Backend is "gemini" or "local".
type DetectorConfig struct {
	Backend      string `mapstructure:"backend"`
	GeminiAPIKey string `mapstructure:"gemini_api_key"`
	LocalURL     string `mapstructure:"local_url"`
	LocalModel   string `mapstructure:"local_model"`
}

// Load reads configuration from .env and the environment.
func Load() (*Config, error) {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	setDefaults()

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.BindEnv("server.port", "PORT")
	viper.BindEnv("database.url", "DATABASE_URL")
	viper.BindEnv("redis.enabled", "REDIS_ENABLED")
	viper.BindEnv("redis.addr", "REDIS_ADDR")
	viper.BindEnv("redis.ttl", "REDIS_TTL")
	viper.BindEnv("detector.backend", "DETECTOR_BACKEND")
	viper.BindEnv("detector.gemini_api_key", "GEMINI_API_KEY")
	viper.BindEnv("detector.local_url", "LOCAL_VISION_URL")
	viper.BindEnv("detector.local_model", "LOCAL_VISION_MODEL")
	viper.BindEnv("log_level", "LOG_LEVEL")

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", "30s")
	viper.SetDefault("server.write_timeout", "30s")
	viper.SetDefault("server.idle_timeout", "120s")

	viper.SetDefault("redis.enabled", false)
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.ttl", "10m")

	viper.SetDefault("detector.backend", "gemini")
	viper.SetDefault("detector.local_url", "http://localhost:1234/v1/chat/completions")

	viper.SetDefault("log_level", "info")
}

func validate(config *Config) error {
	if config.Server.Port == 0 {
		return fmt.Errorf("server port is required")
	}
	if config.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	switch config.Detector.Backend {
	case "gemini":
		if config.Detector.GeminiAPIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY is required for the gemini detector")
		}
	case "local":
	default:
		return fmt.Errorf("unknown detector backend %q", config.Detector.Backend)
	}
	if config.Redis.Enabled && config.Redis.TTL <= 0 {
		return fmt.Errorf("invalid redis ttl")
	}
	return nil
}
