package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	logpkg "github.com/kailas-cloud/coursefind/internal/logger"
	"github.com/kailas-cloud/coursefind/internal/transport/tui"
)

var (
	tuiTopK    int
	tuiTimeout time.Duration
)

// runTUI is replaced in tests.
var runTUI = tui.Run

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Interactive search loop in the terminal",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		s, err := openSession(cmd.Context(), logpkg.EnvTUI)
		if err != nil {
			return err
		}
		defer s.Close()

		idx, err := s.app.Indexes.Index(cmd.Context())
		if err != nil {
			return fmt.Errorf("build index: %w", err)
		}
		summary := fmt.Sprintf("%d courses · %s · %s ranker", idx.Len(), s.app.Encoder, s.app.Ranker.Name())

		return runTUI(tui.New(s.app.Search, tuiTopK, tuiTimeout, summary))
	},
}

func init() {
	tuiCmd.Flags().IntVarP(&tuiTopK, "top", "k", tui.DefaultTopK, "number of results per query")
	tuiCmd.Flags().DurationVar(&tuiTimeout, "timeout", 30*time.Second, "per-query timeout")
	rootCmd.AddCommand(tuiCmd)
}
