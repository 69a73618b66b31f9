package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/coursefind/internal/domain"
	logpkg "github.com/kailas-cloud/coursefind/internal/logger"
	"github.com/kailas-cloud/coursefind/internal/repository/snapshot"
)

var snapshotPath string

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Manage the precomputed course index",
}

// indexBuildCmd encodes the catalog and stores the snapshot that serve and
// search load on startup.
var indexBuildCmd = &cobra.Command{
	Use:   "build",
	Short: "Encode the catalog and write the index snapshot",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		s, err := openSession(cmd.Context(), logpkg.EnvCLI)
		if err != nil {
			return err
		}
		defer s.Close()

		if s.cfg.Index.SnapshotPath == "" {
			s.logger.Warn("index.snapshot_path is not set, the index will not be persisted")
		}

		start := time.Now()
		idx, err := s.app.Indexes.Refresh(cmd.Context())
		if err != nil {
			return fmt.Errorf("build index: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Indexed %d courses in %s\n", idx.Len(), time.Since(start).Round(time.Millisecond))
		fmt.Fprintf(out, "Encoder:     %s\n", idx.Encoder())
		fmt.Fprintf(out, "Dimension:   %d\n", idx.Dimension())
		fmt.Fprintf(out, "Fingerprint: %s\n", idx.Fingerprint())
		if s.cfg.Index.SnapshotPath != "" {
			fmt.Fprintf(out, "Snapshot:    %s\n", s.cfg.Index.SnapshotPath)
		}
		return nil
	},
}

var indexInfoCmd = &cobra.Command{
	Use:   "info",
	Short: "Describe the stored index snapshot",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		path := cfg.Index.SnapshotPath
		if path == "" {
			return errors.New("no snapshot configured: set index.snapshot_path or --snapshot")
		}

		store, err := snapshot.Open(path)
		if err != nil {
			return fmt.Errorf("open snapshot: %w", err)
		}
		defer func() { _ = store.Close() }()

		meta, err := store.Meta(cmd.Context())
		if errors.Is(err, domain.ErrSnapshotNotFound) {
			return fmt.Errorf("%s holds no index yet, run `coursefind index build`", path)
		}
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Snapshot:    %s\n", path)
		fmt.Fprintf(out, "Courses:     %d\n", meta.Count)
		fmt.Fprintf(out, "Encoder:     %s\n", meta.Encoder)
		fmt.Fprintf(out, "Dimension:   %d\n", meta.Dimension)
		fmt.Fprintf(out, "Fingerprint: %s\n", meta.Fingerprint)
		fmt.Fprintf(out, "Saved at:    %s\n", meta.SavedAt.Format(time.RFC3339))
		return nil
	},
}

func init() {
	indexCmd.PersistentFlags().StringVar(&snapshotPath, "snapshot", "", "snapshot file, overrides index.snapshot_path")
	indexCmd.AddCommand(indexBuildCmd, indexInfoCmd)
	rootCmd.AddCommand(indexCmd)
}
