// Package logger configures the process-wide slog logger.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

type Backend string

const (
	BackendStd Backend = "std" // text handler
	BackendZap Backend = "zap" // zap JSON core through slog-zap
)

type Env string

const (
	EnvDev   Env = "dev"
	EnvStage Env = "stage"
	EnvProd  Env = "prod"
)

type Config struct {
	Service    string
	Version    string
	InstanceID string

	Level   slog.Level
	Env     Env
	Backend Backend // default: std in dev, zap otherwise
	Debug   bool

	// zap sampling per second
	SampleInitial    int
	SampleThereafter int

	AddSource bool

	// Output defaults to stderr so that stdout stays free for command output.
	Output io.Writer
}

// DetectEnv reads APP_ENV.
func DetectEnv() Env {
	raw := strings.ToLower(strings.TrimSpace(os.Getenv("APP_ENV")))

	switch raw {
	case "prod", "production":
		return EnvProd
	case "stage", "staging", "preprod", "pre-production":
		return EnvStage
	default:
		return EnvDev
	}
}

// ParseBackend accepts "", "std" and "zap".
func ParseBackend(s string) (Backend, bool) {
	switch b := Backend(strings.ToLower(strings.TrimSpace(s))); b {
	case "", BackendStd, BackendZap:
		return b, true
	}
	return "", false
}

// Init builds the logger described by cfg, installs it as the slog default
// and returns it.
func Init(cfg Config) *slog.Logger {
	if cfg.Env == "" {
		cfg.Env = DetectEnv()
	}
	if cfg.Service == "" {
		cfg.Service = "mindful-paint"
	}
	if cfg.Output == nil {
		cfg.Output = os.Stderr
	}
	cfg.InstanceID = ensureInstanceID(cfg.InstanceID)

	if cfg.Backend == "" {
		if cfg.Env == EnvDev {
			cfg.Backend = BackendStd
		} else {
			cfg.Backend = BackendZap
		}
	}

	var h slog.Handler
	switch cfg.Backend {
	case BackendZap:
		h = newZapHandler(cfg)
	default:
		h = newStdHandler(cfg)
	}

	h = h.WithAttrs(commonAttr(cfg))

	base := slog.New(h)
	slog.SetDefault(base)
	return base
}

func level(cfg Config) slog.Level {
	if cfg.Debug && cfg.Level == 0 {
		return slog.LevelDebug
	}
	return cfg.Level
}
