package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

const (
	EnvDev   = "dev"
	EnvStage = "stage"
	EnvProd  = "prod"
)

const (
	StorageMemory   = "memory"
	StorageSQLite   = "sqlite"
	StoragePostgres = "postgres"
)

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	Env        string     `yaml:"env" env:"ENV"`
	LogLevel   string     `yaml:"log_level" env:"LOG_LEVEL"`
	HTTPServer HTTPServer `yaml:"http_server" envPrefix:"HTTP_SERVER_"`
	Storage    Storage    `yaml:"storage" envPrefix:"STORAGE_"`
	EventLog   EventLog   `yaml:"eventlog" envPrefix:"EVENTLOG_"`
	Redirect   Redirect   `yaml:"redirect" envPrefix:"REDIRECT_"`
	// RateLimit is a formatted rate for batch submissions, e.g. "10-S".
	// Empty disables rate limiting.
	RateLimit string `yaml:"rate_limit" env:"RATE_LIMIT"`
}

// SlogLevel returns the configured level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

type HTTPServer struct {
	Port           int           `yaml:"port" env:"PORT"`
	ReadTimeout    time.Duration `yaml:"read_timeout" env:"READ_TIMEOUT"`
	WriteTimeout   time.Duration `yaml:"write_timeout" env:"WRITE_TIMEOUT"`
	IdleTimeout    time.Duration `yaml:"idle_timeout" env:"IDLE_TIMEOUT"`
	MaxHeaderBytes int           `yaml:"max_header_bytes" env:"MAX_HEADER_BYTES"`
	CertFile       string        `yaml:"cert_file" env:"CERT_FILE"`
	KeyFile        string        `yaml:"key_file" env:"KEY_FILE"`
}

// The write timeout has to outlast the redirect countdown.
var defaultHTTPServer = HTTPServer{
	Port:           8080,
	ReadTimeout:    5 * time.Second,
	WriteTimeout:   15 * time.Second,
	IdleTimeout:    time.Minute,
	MaxHeaderBytes: 1 << 20,
}

func (s *HTTPServer) Addr() string {
	return fmt.Sprintf(":%d", s.Port)
}

type Storage struct {
	Type     string   `yaml:"type" env:"TYPE"`
	Memory   Memory   `yaml:"memory" envPrefix:"MEMORY_"`
	SQLite   SQLite   `yaml:"sqlite" envPrefix:"SQLITE_"`
	Postgres Postgres `yaml:"postgres" envPrefix:"POSTGRES_"`
}

type Memory struct {
	CapacityBytes int `yaml:"capacity_bytes" env:"CAPACITY_BYTES"`
}

type SQLite struct {
	Path string `yaml:"path" env:"PATH"`
}

type Postgres struct {
	User            string        `yaml:"user" env:"USER"`
	Password        string        `yaml:"password" env:"PASSWORD"`
	Host            string        `yaml:"host" env:"HOST"`
	Port            int           `yaml:"port" env:"PORT"`
	DB              string        `yaml:"db" env:"DB"`
	SSLMode         string        `yaml:"sslmode" env:"SSLMODE"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time" env:"CONN_MAX_IDLE_TIME"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" env:"CONN_MAX_LIFETIME"`
	MaxIdleConns    int           `yaml:"max_idle_conns" env:"MAX_IDLE_CONNS"`
	MaxOpenConns    int           `yaml:"max_open_conns" env:"MAX_OPEN_CONNS"`
	// MaxValueBytes caps a single stored value. Zero means no limit.
	MaxValueBytes   int           `yaml:"max_value_bytes" env:"MAX_VALUE_BYTES"`
}

var defaultStorage = Storage{
	Type: StorageMemory,
	Memory: Memory{
		CapacityBytes: 5 << 20,
	},
	SQLite: SQLite{
		Path: "url-shortener.db",
	},
	Postgres: Postgres{
		Host:            "localhost",
		Port:            5432,
		SSLMode:         "disable",
		ConnMaxIdleTime: 5 * time.Minute,
		ConnMaxLifetime: 30 * time.Minute,
		MaxIdleConns:    2,
		MaxOpenConns:    4,
	},
}

func (p *Postgres) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		p.User, p.Password, p.Host, p.Port, p.DB, p.SSLMode)
}

type EventLog struct {
	Capacity int `yaml:"capacity" env:"CAPACITY"`
}

type Redirect struct {
	Countdown int           `yaml:"countdown" env:"COUNTDOWN"`
	Tick      time.Duration `yaml:"tick" env:"TICK"`
}

// Load reads the config file at path over the defaults and applies
// environment overrides. An empty path skips the file.
func Load(path string) (*Config, error) {
	const op = "config.Load"

	var cfg Config
	setDefaults(&cfg)

	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to open config file: %w", op, err)
		}
		defer f.Close()

		if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
			return nil, fmt.Errorf("%s: failed to decode config file: %w", op, err)
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("%s: failed to parse environment: %w", op, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Env {
	case EnvDev, EnvStage, EnvProd:
	default:
		return fmt.Errorf("unknown env %q: %w", c.Env, ErrInvalidConfig)
	}

	switch c.Storage.Type {
	case StorageMemory, StorageSQLite, StoragePostgres:
	default:
		return fmt.Errorf("unknown storage type %q: %w", c.Storage.Type, ErrInvalidConfig)
	}

	if c.Redirect.Countdown < 0 {
		return fmt.Errorf("negative redirect countdown: %w", ErrInvalidConfig)
	}

	if c.Redirect.Tick <= 0 {
		return fmt.Errorf("redirect tick must be positive: %w", ErrInvalidConfig)
	}

	return nil
}

func setDefaults(cfg *Config) {
	cfg.Env = EnvDev
	cfg.LogLevel = "info"
	cfg.HTTPServer = defaultHTTPServer
	cfg.Storage = defaultStorage
	cfg.EventLog = EventLog{Capacity: 1000}
	cfg.Redirect = Redirect{Countdown: 3, Tick: time.Second}
}
