package main

import (
	"fmt"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"woordjes/internal/core"
	"woordjes/internal/log"
	"woordjes/internal/services"
)

var issuesCmd = &cobra.Command{
	Use:   "issues",
	Short: "Review words reported by players",
}

var issuesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List reported word issues",
	RunE:  runIssuesList,
}

var issuesResolveCmd = &cobra.Command{
	Use:   "resolve <id>",
	Short: "Mark an issue as resolved",
	Args:  cobra.ExactArgs(1),
	RunE:  runIssuesResolve,
}

func init() {
	issuesListCmd.Flags().String("status", string(core.IssueOpen), "open, resolved or all")
	issuesCmd.AddCommand(issuesListCmd)
	issuesCmd.AddCommand(issuesResolveCmd)
	rootCmd.AddCommand(issuesCmd)
}

func runIssuesList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	status, _ := cmd.Flags().GetString("status")
	if status == "all" {
		status = ""
	}

	_, logger, repo, err := bootstrap(ctx, log.ComponentApp)
	if err != nil {
		return err
	}
	defer repo.Close()

	issues, err := services.NewIssueService(repo, logger).List(ctx, core.IssueStatus(status))
	if err != nil {
		return err
	}
	if len(issues) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No issues.")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tWORD\tSTATUS\tREPORTED\tDESCRIPTION")
	for _, is := range issues {
		word := strconv.FormatInt(is.WordID, 10)
		if wd, err := repo.GetWord(ctx, is.WordID); err == nil {
			word = wd.English + " / " + wd.Dutch
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", is.ID, word, is.Status, is.CreatedAt.Format(time.DateOnly), is.Description)
	}
	return w.Flush()
}

func runIssuesResolve(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id <= 0 {
		return fmt.Errorf("invalid issue id %q", args[0])
	}

	_, logger, repo, err := bootstrap(ctx, log.ComponentApp)
	if err != nil {
		return err
	}
	defer repo.Close()

	if err := services.NewIssueService(repo, logger).Resolve(ctx, id); err != nil {
		return fmt.Errorf("%s: %w", services.MessageOf(err), err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Issue %d resolved\n", id)
	return nil
}
