package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"woordjes/internal/amqp"
	"woordjes/internal/core"
	"woordjes/internal/log"
	"woordjes/internal/services"
)

var medalsCmd = &cobra.Command{
	Use:   "medals",
	Short: "Manage weekly and monthly medals",
}

var medalsAwardCmd = &cobra.Command{
	Use:   "award",
	Short: "Award the podium of a closed period",
	Long: `Awards gold, silver and bronze to the top three players of a closed week
or month. Without --kind both the last week and the last month are awarded.
Awarding a period twice changes nothing.`,
	Example: `  woordjes medals award
  woordjes medals award --kind weekly --period 2026-09-28`,
	RunE: runMedalsAward,
}

func init() {
	medalsAwardCmd.Flags().String("kind", "", "weekly or monthly (default: both)")
	medalsAwardCmd.Flags().String("period", "", "any day inside the period, YYYY-MM-DD (default: the last closed period)")
	medalsCmd.AddCommand(medalsAwardCmd)
	rootCmd.AddCommand(medalsCmd)
}

func runMedalsAward(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	kindFlag, _ := cmd.Flags().GetString("kind")
	periodFlag, _ := cmd.Flags().GetString("period")
	if kindFlag == "" && periodFlag != "" {
		return fmt.Errorf("--period needs --kind")
	}

	cfg, logger, repo, err := bootstrap(ctx, log.ComponentMedals)
	if err != nil {
		return err
	}
	defer repo.Close()

	var events services.EventPublisher
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			logger.Warn("AMQP unavailable, medal events disabled", log.FieldError, err)
		} else {
			defer client.Close()
			events = client
		}
	}
	medals := services.NewMedalService(repo, repo, events, logger)

	var awards []services.Award
	if kindFlag == "" {
		awards, err = medals.AwardClosedPeriods(ctx)
	} else {
		var kind core.MedalKind
		kind, err = core.ParseMedalKind(kindFlag)
		if err != nil {
			return err
		}
		at := core.PreviousPeriod(kind, time.Now().UTC())
		if periodFlag != "" {
			at, err = time.ParseInLocation(time.DateOnly, periodFlag, time.UTC)
			if err != nil {
				return fmt.Errorf("invalid --period %q: want YYYY-MM-DD", periodFlag)
			}
		}
		var a services.Award
		a, err = medals.AwardPeriod(ctx, kind, at)
		if err == nil {
			awards = append(awards, a)
		}
	}

	out := cmd.OutOrStdout()
	for _, a := range awards {
		fmt.Fprintf(out, "%s %s: %d new medal(s)\n", a.Kind, a.PeriodStart.Format(time.DateOnly), a.Inserted)
		for _, m := range a.Medals {
			fmt.Fprintf(out, "  %-6s %-20s %d\n", m.Type, m.Username, m.Score)
		}
	}
	if err != nil {
		return fmt.Errorf("%s: %w", services.MessageOf(err), err)
	}
	return nil
}
