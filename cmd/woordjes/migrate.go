package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"woordjes/internal/log"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	Long:  `Opening the repository applies every pending migration, so this only opens it, reports the schema version and word count, and exits.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, repo, err := bootstrap(cmd.Context(), log.ComponentStorage)
		if err != nil {
			return err
		}
		defer repo.Close()

		n, err := repo.CountWords(cmd.Context())
		if err != nil {
			return fmt.Errorf("count words: %w", err)
		}
		schema := repo.Schema()
		logger.Info("Migrations applied", "backend", cfg.DataBackend, "schema_version", schema.String(), "words", n)
		if schema.Dirty {
			return fmt.Errorf("schema version %s is dirty: fix the failed migration by hand", schema)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
