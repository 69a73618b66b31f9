// Package cli implements the coursefind command line.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/coursefind/internal/app"
	"github.com/kailas-cloud/coursefind/internal/config"
	logpkg "github.com/kailas-cloud/coursefind/internal/logger"
)

var (
	cfgFile    string
	envName    string
	corpusPath string
	rankerName string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:           "coursefind",
	Short:         "coursefind: semantic search over a course catalog",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&cfgFile, "config", "c", "", "config file (default: config/<env>.yaml)")
	pf.StringVarP(&envName, "env", "e", "", "environment name (default: $ENV or local)")
	pf.StringVar(&corpusPath, "corpus", "", "course catalog (.json or .db), overrides corpus.path")
	pf.StringVar(&rankerName, "ranker", "", "ranker (exact, hnsw), overrides index.ranker")
	pf.StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
}

// environment returns the --env flag or $ENV.
func environment() string {
	if envName != "" {
		return envName
	}
	return config.GetEnv()
}

// loadConfig reads the config file and applies flag overrides.
func loadConfig() (config.Config, error) {
	var (
		cfg config.Config
		err error
	)
	if cfgFile != "" {
		cfg, err = config.LoadFile(cfgFile)
	} else {
		cfg, err = config.Load(environment())
	}
	if err != nil {
		return config.Config{}, err
	}

	if corpusPath != "" {
		cfg.Corpus.Path = corpusPath
		cfg.Corpus.Format = ""
	}
	if rankerName != "" {
		cfg.Index.Ranker = rankerName
	}
	if snapshotPath != "" {
		cfg.Index.SnapshotPath = snapshotPath
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("invalid flags: %w", err)
	}
	return cfg, nil
}

// newLogger builds the logger for a command. Terminal commands keep their
// quiet stderr default unless --log-level is given.
func newLogger(cfg config.Config, loggerEnv string) (*zap.Logger, error) {
	level := logLevel
	if level == "" && loggerEnv != logpkg.EnvCLI && loggerEnv != logpkg.EnvTUI {
		level = cfg.Logging.Level
	}
	return logpkg.NewLogger(loggerEnv, level)
}

// session is a wired application plus the logger it writes to.
type session struct {
	cfg    config.Config
	app    *app.App
	logger *zap.Logger
}

func (s *session) Close() {
	if err := s.app.Close(); err != nil {
		s.logger.Warn("Failed to close stores", zap.Error(err))
	}
	_ = s.logger.Sync()
}

// openSession loads config, builds the logger and wires the application.
func openSession(ctx context.Context, loggerEnv string) (*session, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	logger, err := newLogger(cfg, loggerEnv)
	if err != nil {
		return nil, err
	}
	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		_ = logger.Sync()
		return nil, err
	}
	return &session{cfg: cfg, app: a, logger: logger}, nil
}
