package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"woordjes/internal/config"
	"woordjes/internal/importer"
	"woordjes/internal/log"
	gsheet "woordjes/internal/sheets/google"
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import words from a spreadsheet",
	Long: `Upserts words from a CSV or XLSX file, or from a Google Sheets range.
Rows are english, dutch, category, difficulty and optional examples. A
header row is detected and skipped. Bad rows are reported by line and do
not stop the import.`,
	Example: `  woordjes import --file words.xlsx --sheet Words
  woordjes import --file words.csv
  woordjes import --google-sheet "Words!A:F"`,
	RunE: runImport,
}

func init() {
	importCmd.Flags().String("file", "", "CSV or XLSX file to import")
	importCmd.Flags().String("sheet", "", "worksheet name inside an XLSX file (default: first sheet)")
	importCmd.Flags().String("google-sheet", "", "Google Sheets range to import, e.g. Words!A:F")
	importCmd.MarkFlagsMutuallyExclusive("file", "google-sheet")
	importCmd.MarkFlagsOneRequired("file", "google-sheet")
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	file, _ := cmd.Flags().GetString("file")
	sheet, _ := cmd.Flags().GetString("sheet")
	rng, _ := cmd.Flags().GetString("google-sheet")

	cfg, logger, repo, err := bootstrap(ctx, log.ComponentImport)
	if err != nil {
		return err
	}
	defer repo.Close()

	var raw [][]string
	if file != "" {
		raw, err = importer.ReadFile(file, sheet)
	} else {
		var src *gsheet.Client
		src, err = gsheet.New(ctx, sheetsOptions(cfg), logger)
		if err != nil {
			return err
		}
		raw, err = importer.ReadSheet(ctx, src, rng)
	}
	if err != nil {
		return err
	}

	rows, rowErrs, err := importer.Parse(raw)
	if err != nil {
		return err
	}

	bar := progressbar.NewOptions(len(rows),
		progressbar.OptionSetDescription("Importing words"),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionClearOnFinish(),
	)
	res, err := importer.New(repo, logger).Import(ctx, rows, func() { _ = bar.Add(1) })
	_ = bar.Finish()
	if err != nil {
		return err
	}

	res.Errors = append(rowErrs, res.Errors...)
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Created %d, updated %d, failed %d\n", res.Created, res.Updated, res.Failed())
	for _, e := range res.Errors {
		fmt.Fprintf(out, "  %v\n", e)
	}
	if res.Created+res.Updated == 0 && res.Failed() > 0 {
		return errors.New("no rows could be imported")
	}
	return nil
}

func sheetsOptions(cfg *config.Config) gsheet.Options {
	return gsheet.Options{
		SpreadsheetID:   cfg.GoogleSpreadsheetID,
		SheetName:       cfg.GoogleSheetName,
		OAuthClientJSON: cfg.GoogleOAuthClientJSON,
		OAuthClientFile: cfg.GoogleOAuthClientFile,
		OAuthTokenJSON:  cfg.GoogleOAuthTokenJSON,
		OAuthTokenFile:  cfg.GoogleOAuthTokenFile,
	}
}
