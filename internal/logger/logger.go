package logger

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Environments understood by NewLogger.
const (
	EnvProd  = "prod"
	EnvLocal = "local"
	EnvCLI   = "cli"
	EnvTUI   = "tui"
)

// NewLogger builds the zap logger for env.
//
// prod logs JSON at info. local, dev and docker log colored console output
// at debug. cli logs warnings to stderr so stdout carries only results.
// tui logs errors only, since anything written under the full-screen UI
// corrupts it. A non-empty level replaces the environment's default.
func NewLogger(env, level string) (*zap.Logger, error) {
	cfg, err := configFor(env)
	if err != nil {
		return nil, err
	}
	if level != "" {
		lvl, err := zapcore.ParseLevel(level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", level, err)
		}
		cfg.Level = zap.NewAtomicLevelAt(lvl)
	}

	l, err := cfg.Build(zap.AddStacktrace(zapcore.ErrorLevel))
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return l, nil
}

func configFor(env string) (zap.Config, error) {
	switch env {
	case EnvProd:
		return zap.NewProductionConfig(), nil
	case EnvLocal, "dev", "docker":
		cfg := zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		return cfg, nil
	case EnvCLI, EnvTUI:
		cfg := zap.NewDevelopmentConfig()
		cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
		if env == EnvTUI {
			cfg.Level = zap.NewAtomicLevelAt(zapcore.ErrorLevel)
		}
		cfg.OutputPaths = []string{"stderr"}
		cfg.DisableStacktrace = true
		return cfg, nil
	default:
		return zap.Config{}, fmt.Errorf("unknown environment %q for logger", env)
	}
}
