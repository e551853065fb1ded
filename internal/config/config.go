package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// ConfigError reports a missing or malformed configuration value
type ConfigError struct {
	Env    string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s %s", e.Env, e.Reason)
}

// Config holds all application configuration
type Config struct {
	Server   ServerConfig
	Gemini   GeminiConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Session  SessionConfig
	Log      LogConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port string
	Host string
}

// GeminiConfig holds generative-language API configuration
type GeminiConfig struct {
	APIKey      string
	Model       string
	BaseURL     string
	Temperature float64
	Timeout     time.Duration
}

// DatabaseConfig holds PostgreSQL configuration. An empty Host disables
// prediction history.
type DatabaseConfig struct {
	Host           string
	Port           string
	User           string
	Password       string
	DBName         string
	SSLMode        string
	MigrationsPath string
	Retention      time.Duration
}

// RedisConfig holds prediction cache configuration. An empty Addr
// disables the cache.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// KafkaConfig holds Kafka configuration. No brokers disables events.
type KafkaConfig struct {
	Brokers []string
	Topic   string
	GroupID string
}

// SessionConfig holds browser session configuration
type SessionConfig struct {
	IdleTTL   time.Duration
	SweepSpec string
}

// LogConfig holds logger configuration
type LogConfig struct {
	Level  string
	Pretty bool
}

// Load reads configuration from an optional .env file and the environment.
// A missing API key is reported as a *ConfigError.
func Load() (*Config, error) {
	cfg, err := load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadRecorder reads configuration for the history recorder, which needs
// Kafka and PostgreSQL but no API key
func LoadRecorder() (*Config, error) {
	cfg, err := load()
	if err != nil {
		return nil, err
	}
	if !cfg.Database.Enabled() {
		return nil, &ConfigError{Env: "DB_HOST", Reason: "is required"}
	}
	if !cfg.Kafka.Enabled() {
		return nil, &ConfigError{Env: "KAFKA_BROKERS", Reason: "is required"}
	}
	return cfg, nil
}

func load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8080"),
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
		},
		Gemini: GeminiConfig{
			APIKey:  getEnv("GEMINI_API_KEY", os.Getenv("API_KEY")),
			Model:   getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
			BaseURL: getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com"),
		},
		Database: DatabaseConfig{
			Host:           getEnv("DB_HOST", ""),
			Port:           getEnv("DB_PORT", "5432"),
			User:           getEnv("DB_USER", "postgres"),
			Password:       getEnv("DB_PASSWORD", "postgres"),
			DBName:         getEnv("DB_NAME", "assetpredictor"),
			SSLMode:        getEnv("DB_SSLMODE", "disable"),
			MigrationsPath: getEnv("DB_MIGRATIONS_PATH", "db/migrations"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
		},
		Kafka: KafkaConfig{
			Brokers: splitList(getEnv("KAFKA_BROKERS", "")),
			Topic:   getEnv("KAFKA_TOPIC", "prediction-events"),
			GroupID: getEnv("KAFKA_GROUP_ID", "prediction-recorder"),
		},
		Session: SessionConfig{
			SweepSpec: getEnv("SESSION_SWEEP_SPEC", "@every 1m"),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}

	var err error
	if cfg.Gemini.Temperature, err = getFloat("GEMINI_TEMPERATURE", 0.2); err != nil {
		return nil, err
	}
	if cfg.Gemini.Timeout, err = getDuration("GEMINI_TIMEOUT", 60*time.Second); err != nil {
		return nil, err
	}
	if cfg.Redis.DB, err = getInt("REDIS_DB", 0); err != nil {
		return nil, err
	}
	if cfg.Redis.TTL, err = getDuration("PREDICTION_CACHE_TTL", 10*time.Minute); err != nil {
		return nil, err
	}
	if cfg.Database.Retention, err = getDuration("HISTORY_RETENTION", 0); err != nil {
		return nil, err
	}
	if cfg.Session.IdleTTL, err = getDuration("SESSION_IDLE_TTL", 30*time.Minute); err != nil {
		return nil, err
	}
	if cfg.Log.Pretty, err = getBool("LOG_PRETTY", false); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that all required fields are set
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Gemini.APIKey) == "" {
		return &ConfigError{Env: "GEMINI_API_KEY", Reason: "is required"}
	}
	if c.Gemini.Temperature < 0 || c.Gemini.Temperature > 2 {
		return &ConfigError{Env: "GEMINI_TEMPERATURE", Reason: "must be between 0 and 2"}
	}
	return nil
}

// Addr returns the host:port the HTTP server listens on
func (s *ServerConfig) Addr() string {
	return s.Host + ":" + s.Port
}

// Enabled reports whether prediction history is configured
func (d *DatabaseConfig) Enabled() bool {
	return d.Host != ""
}

// ConnectionString returns the PostgreSQL connection string
func (d *DatabaseConfig) ConnectionString() string {
	return "postgres://" + d.User + ":" + d.Password + "@" + d.Host + ":" + d.Port + "/" + d.DBName + "?sslmode=" + d.SSLMode
}

// Enabled reports whether the prediction cache is configured
func (r *RedisConfig) Enabled() bool {
	return r.Addr != ""
}

// Enabled reports whether prediction events are published
func (k *KafkaConfig) Enabled() bool {
	return len(k.Brokers) > 0
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getFloat(key string, defaultValue float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, &ConfigError{Env: key, Reason: "must be a number"}
	}
	return f, nil
}

func getInt(key string, defaultValue int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, &ConfigError{Env: key, Reason: "must be an integer"}
	}
	return n, nil
}

func getBool(key string, defaultValue bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, &ConfigError{Env: key, Reason: "must be true or false"}
	}
	return b, nil
}

func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, &ConfigError{Env: key, Reason: "must be a duration such as 30s"}
	}
	return d, nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
