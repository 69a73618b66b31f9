package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/kailas-cloud/coursefind/internal/domain"
	"github.com/kailas-cloud/coursefind/internal/domain/search/request"
	"github.com/kailas-cloud/coursefind/internal/domain/search/result"
	logpkg "github.com/kailas-cloud/coursefind/internal/logger"
	"github.com/kailas-cloud/coursefind/internal/transport/tui"
)

var (
	searchTopK     int
	searchMinScore float64
	searchJSON     bool
)

var (
	titleStyle     = color.New(color.FgCyan, color.Bold).SprintFunc()
	labelStyle     = color.New(color.Bold).SprintFunc()
	relevanceStyle = color.New(color.FgGreen).SprintFunc()
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search the catalog once and print the top courses",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if searchTopK <= 0 {
			return fmt.Errorf("--top must be positive, got %d: %w", searchTopK, domain.ErrInvalidRequest)
		}
		s, err := openSession(cmd.Context(), logpkg.EnvCLI)
		if err != nil {
			return err
		}
		defer s.Close()

		req, err := request.New(strings.Join(args, " "), searchTopK, searchMinScore)
		if err != nil {
			return err
		}
		ctx := logpkg.ContextWithLogger(cmd.Context(), s.logger)
		results, err := s.app.Search.SearchRequest(ctx, &req)
		if err != nil {
			return err
		}

		if searchJSON {
			return writeResultsJSON(cmd.OutOrStdout(), results)
		}
		printResults(cmd.OutOrStdout(), results)
		return nil
	},
}

func init() {
	searchCmd.Flags().IntVarP(&searchTopK, "top", "k", tui.DefaultTopK, "number of results")
	searchCmd.Flags().Float64Var(&searchMinScore, "min-score", request.NoMinScore, "drop results scoring below this")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "print results as JSON")
	rootCmd.AddCommand(searchCmd)
}

// printResults renders results the way the terminal search loop does.
func printResults(w io.Writer, results []result.Result) {
	if len(results) == 0 {
		fmt.Fprintln(w, "No matching courses found. Please try another query.")
		return
	}
	fmt.Fprintln(w, "\nTop Results:")
	fmt.Fprintln(w)
	for i := range results {
		r := &results[i]
		c := r.Course()
		desc := c.Description()
		if desc == "" {
			desc = "No description available."
		}
		fmt.Fprintf(w, "%d. %s %s\n", r.Rank(), labelStyle("Title:"), titleStyle(c.Title()))
		fmt.Fprintf(w, "   %s %s\n", labelStyle("Description:"), desc)
		fmt.Fprintf(w, "   %s %s\n", labelStyle("Link:"), c.Link())
		fmt.Fprintf(w, "   %s %s\n", labelStyle("Relevance:"), relevanceStyle(fmt.Sprintf("%.2f%%", relevance(r.Score()))))
		fmt.Fprintln(w, strings.Repeat("-", 50))
	}
}

type resultJSON struct {
	Rank        int     `json:"rank"`
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	ImageURL    string  `json:"image_url"`
	CourseLink  string  `json:"course_link"`
	Score       float64 `json:"score"`
	Relevance   float64 `json:"relevance"`
}

func writeResultsJSON(w io.Writer, results []result.Result) error {
	out := make([]resultJSON, len(results))
	for i := range results {
		r := &results[i]
		c := r.Course()
		out[i] = resultJSON{
			Rank:        r.Rank(),
			ID:          c.ID(),
			Title:       c.Title(),
			Description: c.Description(),
			ImageURL:    c.ImageURL(),
			CourseLink:  c.Link(),
			Score:       r.Score(),
			Relevance:   relevance(r.Score()),
		}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("encode results: %w", err)
	}
	return nil
}

// relevance is the score as a percentage rounded to two decimals.
func relevance(score float64) float64 {
	return math.Round(score*10000) / 100
}
