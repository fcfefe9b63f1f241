// Package config loads servicedesk settings: defaults, then a YAML file, then
// SERVICEDESK_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is read when no explicit config file is given.
const DefaultPath = "servicedesk.yaml"

type Config struct {
	ServiceNow ServiceNowConfig  `yaml:"servicenow"`
	LocalMode  bool              `yaml:"local_mode"`
	Priorities map[string]string `yaml:"priorities"`
	Sessions   SessionsConfig    `yaml:"sessions"`
	Records    RecordsConfig     `yaml:"records"`
	Redis      RedisConfig       `yaml:"redis"`
	Kafka      KafkaConfig       `yaml:"kafka"`
	HTTP       HTTPConfig        `yaml:"http"`
	Responses  string            `yaml:"responses"`
	LogLevel   string            `yaml:"log_level"`
}

type ServiceNowConfig struct {
	Instance string        `yaml:"instance"`
	BaseURL  string        `yaml:"base_url"`
	User     string        `yaml:"user"`
	Password string        `yaml:"password"`
	Timeout  time.Duration `yaml:"timeout"`
}

// SessionsConfig selects the session store: memory, file or redis.
// A non-empty EncryptionKey (base64, 32 bytes) seals sessions at rest.
type SessionsConfig struct {
	Backend       string        `yaml:"backend"`
	Dir           string        `yaml:"dir"`
	TTL           time.Duration `yaml:"ttl"`
	EncryptionKey string        `yaml:"encryption_key"`
	FallbackKeys  []string      `yaml:"fallback_keys"`
}

// RecordsConfig selects the record store: memory, file, redis or postgres.
type RecordsConfig struct {
	Backend     string `yaml:"backend"`
	Dir         string `yaml:"dir"`
	PostgresDSN string `yaml:"postgres_dsn"`
	Table       string `yaml:"table"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

// KafkaConfig enables outcome publishing when Brokers is non-empty.
type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// Default returns the built-in configuration: local mode, in-memory stores.
func Default() *Config {
	return &Config{
		ServiceNow: ServiceNowConfig{
			Timeout: 30 * time.Second,
		},
		Sessions: SessionsConfig{
			Backend: "memory",
			Dir:     ".servicedesk/sessions",
		},
		Records: RecordsConfig{
			Backend: "memory",
			Dir:     ".servicedesk/records",
			Table:   "servicedesk_records",
		},
		Redis: RedisConfig{
			Addr:   "localhost:6379",
			Prefix: "servicedesk:",
		},
		Kafka: KafkaConfig{
			Topic: "servicedesk-outcomes",
		},
		HTTP: HTTPConfig{
			Addr: ":8080",
		},
		LogLevel: "info",
	}
}

// Load builds the configuration. An empty path reads DefaultPath if present.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	case explicit || !errors.Is(err, fs.ErrNotExist):
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	str := func(key string, dst *string) {
		if v := os.Getenv("SERVICEDESK_" + key); v != "" {
			*dst = v
		}
	}

	str("SERVICENOW_INSTANCE", &c.ServiceNow.Instance)
	str("SERVICENOW_BASE_URL", &c.ServiceNow.BaseURL)
	str("SERVICENOW_USER", &c.ServiceNow.User)
	str("SERVICENOW_PASSWORD", &c.ServiceNow.Password)
	str("SESSIONS_BACKEND", &c.Sessions.Backend)
	str("SESSIONS_DIR", &c.Sessions.Dir)
	str("SESSIONS_KEY", &c.Sessions.EncryptionKey)
	str("RECORDS_BACKEND", &c.Records.Backend)
	str("RECORDS_DIR", &c.Records.Dir)
	str("POSTGRES_DSN", &c.Records.PostgresDSN)
	str("REDIS_ADDR", &c.Redis.Addr)
	str("REDIS_PASSWORD", &c.Redis.Password)
	str("REDIS_PREFIX", &c.Redis.Prefix)
	str("KAFKA_TOPIC", &c.Kafka.Topic)
	str("HTTP_ADDR", &c.HTTP.Addr)
	str("RESPONSES", &c.Responses)
	str("LOG_LEVEL", &c.LogLevel)

	if v := os.Getenv("SERVICEDESK_KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("SERVICEDESK_LOCALMODE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("SERVICEDESK_LOCALMODE: %w", err)
		}
		c.LocalMode = b
	}
	if v := os.Getenv("SERVICEDESK_REDIS_DB"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("SERVICEDESK_REDIS_DB: %w", err)
		}
		c.Redis.DB = n
	}
	if v := os.Getenv("SERVICEDESK_SESSIONS_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("SERVICEDESK_SESSIONS_TTL: %w", err)
		}
		c.Sessions.TTL = d
	}
	if v := os.Getenv("SERVICEDESK_SERVICENOW_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("SERVICEDESK_SERVICENOW_TIMEOUT: %w", err)
		}
		c.ServiceNow.Timeout = d
	}
	return nil
}

// IsLocal reports whether the ticketing backend is simulated: either asked
// for explicitly or no instance is configured.
func (c *Config) IsLocal() bool {
	return c.LocalMode || (c.ServiceNow.Instance == "" && c.ServiceNow.BaseURL == "")
}

// Level maps LogLevel to a slog level, defaulting to info.
func (c *Config) Level() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}
