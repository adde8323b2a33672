package commands

import (
	"fmt"

	"github.com/de-tools/posture-guard/pkg/models/domain"
	"github.com/de-tools/posture-guard/pkg/runtime/app"
	"github.com/de-tools/posture-guard/pkg/runtime/terminal/export"
	"github.com/spf13/cobra"
)

type AnalyzeCmd struct {
	open     Opener
	reporter *export.Reporter
}

func NewAnalyzeCmd(open Opener, reporter *export.Reporter) *cobra.Command {
	ac := &AnalyzeCmd{open: open, reporter: reporter}
	return &cobra.Command{
		Use:   "analyze",
		Short: "Score the whole inventory for risk",
		RunE:  ac.run,
	}
}

func (ac *AnalyzeCmd) run(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	return withApp(ctx, ac.open, func(a *app.App) error {
		result := a.Risk.ScoreAll(ctx)
		if err := ac.reporter.Scoring(result); err != nil {
			return err
		}
		if result.Outcome == domain.ScoringFailed {
			return fmt.Errorf("risk analysis failed: %w", result.Err)
		}
		return nil
	})
}

type RunsCmd struct {
	limit    int
	open     Opener
	reporter *export.Reporter
}

func NewRunsCmd(open Opener, reporter *export.Reporter) *cobra.Command {
	rc := &RunsCmd{open: open, reporter: reporter}
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Show the latest risk scoring runs",
		RunE:  rc.run,
	}
	cmd.Flags().IntVar(&rc.limit, "limit", 20, "Number of runs to show")
	return cmd
}

func (rc *RunsCmd) run(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	return withApp(ctx, rc.open, func(a *app.App) error {
		runs, err := a.Runs.ListRuns(ctx, rc.limit)
		if err != nil {
			return err
		}
		return rc.reporter.Runs(runs)
	})
}
