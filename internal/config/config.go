package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is read when neither --config nor CONFIG_PATH is given. It is
// optional.
const DefaultPath = "config.yaml"

type Server struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	StaticDir    string        `yaml:"static_dir"` // empty serves the embedded page
}

type Redis struct {
	Addr          string `yaml:"addr"` // empty disables the bus
	Password      string `yaml:"password"`
	DB            int    `yaml:"db"`
	ChannelPrefix string `yaml:"channel_prefix"`
}

type Relay struct {
	SendBuffer     int           `yaml:"send_buffer"`
	MaxMessageSize int64         `yaml:"max_message_size"`
	PingPeriod     time.Duration `yaml:"ping_period"`
	Redis          Redis         `yaml:"redis"`
}

type Logging struct {
	Env       string `yaml:"env"`     // dev|stage|prod
	Service   string `yaml:"service"` // mindful-paint
	Version   string `yaml:"version"`
	Backend   string `yaml:"backend"` // std|zap
	AddSource bool   `yaml:"add_source"`
	Debug     bool   `yaml:"debug"`
}

type Canvas struct {
	Width        int `yaml:"width"`
	Height       int `yaml:"height"`
	HistoryLimit int `yaml:"history_limit"`
}

type Config struct {
	Server  Server  `yaml:"server"`
	Relay   Relay   `yaml:"relay"`
	Logging Logging `yaml:"logging"`
	Canvas  Canvas  `yaml:"canvas"`
}

// Default returns the configuration used when nothing is overridden.
func Default() Config {
	return Config{
		Server: Server{
			Host:         "0.0.0.0",
			Port:         3000,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
		},
		Relay: Relay{
			SendBuffer:     256,
			MaxMessageSize: 64 * 1024,
			PingPeriod:     54 * time.Second,
			Redis:          Redis{ChannelPrefix: "paint"},
		},
		Logging: Logging{
			Service: "mindful-paint",
		},
		Canvas: Canvas{
			Width:        800,
			Height:       600,
			HistoryLimit: 20,
		},
	}
}

// Load reads the YAML file at path over the defaults, then applies the
// environment. An empty path falls back to CONFIG_PATH and then to
// DefaultPath; only the latter may be missing.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = os.Getenv("CONFIG_PATH")
		explicit = path != ""
	}
	if !explicit {
		path = DefaultPath
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PORT %q: %w", v, err)
		}
		c.Server.Port = port
	}
	c.Server.Host = getEnvOrDefault("SERVER_HOST", c.Server.Host)
	c.Relay.Redis.Addr = getEnvOrDefault("REDIS_ADDR", c.Relay.Redis.Addr)
	c.Logging.Backend = getEnvOrDefault("LOG_BACKEND", c.Logging.Backend)
	c.Logging.Env = getEnvOrDefault("APP_ENV", c.Logging.Env)
	return nil
}

// Validate checks the values that would otherwise fail at runtime.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.ReadTimeout < 0 || c.Server.WriteTimeout < 0 {
		return errors.New("server timeouts must not be negative")
	}
	if c.Relay.SendBuffer <= 0 {
		return fmt.Errorf("relay.send_buffer must be positive: %d", c.Relay.SendBuffer)
	}
	if c.Relay.MaxMessageSize <= 0 {
		return fmt.Errorf("relay.max_message_size must be positive: %d", c.Relay.MaxMessageSize)
	}
	if c.Relay.PingPeriod <= 0 {
		return errors.New("relay.ping_period must be positive")
	}
	switch c.Logging.Backend {
	case "", "std", "zap":
	default:
		return fmt.Errorf("unknown logging backend %q", c.Logging.Backend)
	}
	if c.Canvas.Width <= 0 || c.Canvas.Height <= 0 {
		return fmt.Errorf("invalid canvas size %dx%d", c.Canvas.Width, c.Canvas.Height)
	}
	if c.Canvas.HistoryLimit <= 0 {
		return fmt.Errorf("canvas.history_limit must be positive: %d", c.Canvas.HistoryLimit)
	}
	return nil
}

// ServerAddress returns the listen address.
func (c *Config) ServerAddress() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.Port))
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
