package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	courserepo "github.com/kailas-cloud/coursefind/internal/repository/course"
)

// importCmd loads a scraped JSON catalog into a SQLite database, replacing
// its courses table.
var importCmd = &cobra.Command{
	Use:   "import <catalog.json> <courses.db>",
	Short: "Import a JSON catalog into a SQLite database",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(filepath.Clean(args[0]))
		if err != nil {
			return fmt.Errorf("read catalog: %w", err)
		}
		courses, err := courserepo.ParseJSON(data)
		if err != nil {
			return fmt.Errorf("parse %s: %w", args[0], err)
		}

		db, err := courserepo.OpenSQLite(cmd.Context(), args[1])
		if err != nil {
			return err
		}
		defer func() { _ = db.Close() }()

		if err := db.Replace(cmd.Context(), courses); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Imported %d courses into %s\n", len(courses), args[1])
		return nil
	},
}

// exportCmd writes the courses of a SQLite database back out as a JSON catalog.
var exportCmd = &cobra.Command{
	Use:   "export <courses.db> <catalog.json>",
	Short: "Export a SQLite course database as a JSON catalog",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := courserepo.OpenSQLite(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		defer func() { _ = db.Close() }()

		courses, err := db.Load(cmd.Context())
		if err != nil {
			return err
		}
		if err := courserepo.WriteJSON(args[1], courses); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Exported %d courses to %s\n", len(courses), args[1])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(importCmd, exportCmd)
}
