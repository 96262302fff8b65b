package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"woordjes/internal/cli"
	"woordjes/internal/config"
	"woordjes/internal/log"
	"woordjes/internal/storage"
)

var rootCmd = &cobra.Command{
	Use:   "woordjes",
	Short: "Dutch vocabulary flashcards",
	Long: `woordjes serves the flashcard game and manages its word list,
medals and reported issues. Configuration comes from the environment,
with a .env file loaded for local development.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		cli.LoadEnvFile()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// bootstrap loads config, sets up logging and opens the repository. Every
// subcommand except sheets auth goes through it.
func bootstrap(ctx context.Context, component string) (*config.Config, *log.Logger, *storage.Repository, error) {
	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		return nil, nil, nil, err
	}
	logger := cli.SetupLogger(cfg, component)
	repo, err := cli.OpenRepository(ctx, cfg, logger)
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, logger, repo, nil
}
