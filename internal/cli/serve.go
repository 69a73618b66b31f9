package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	chiTransport "github.com/kailas-cloud/coursefind/internal/transport/chi"
	"github.com/kailas-cloud/coursefind/internal/version"
)

var (
	servePort   int
	serveWarmup bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP search API",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "listen port, overrides http.port")
	serveCmd.Flags().BoolVar(&serveWarmup, "warmup", true, "build the index before accepting requests")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	s, err := openSession(ctx, environment())
	if err != nil {
		return err
	}
	defer s.Close()

	cfg := s.cfg
	if servePort > 0 {
		cfg.HTTP.Port = servePort
	}
	logger := s.logger

	logger.Info("Starting coursefind API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", environment()),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("corpus", cfg.Corpus.Path),
		zap.String("encoder", s.app.Encoder),
		zap.String("ranker", s.app.Ranker.Name()),
	)

	if serveWarmup {
		idx, err := s.app.Indexes.Index(ctx)
		if err != nil {
			return fmt.Errorf("warm up index: %w", err)
		}
		logger.Info("Index ready", zap.Int("courses", idx.Len()))
	}

	server := chiTransport.NewServer(s.app.Search, s.app.Indexes, s.app.Health, logger).
		WithDefaultTopK(cfg.HTTP.DefaultTopK)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      server.Router(cfg.Auth.AdminKeys),
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(quit)

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-quit:
		logger.Info("Received shutdown signal")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
	return nil
}
