package commands

import (
	"github.com/de-tools/posture-guard/pkg/runtime/app"
	"github.com/de-tools/posture-guard/pkg/runtime/terminal/export"
	"github.com/spf13/cobra"
)

type RemediateCmd struct {
	open     Opener
	reporter *export.Reporter
}

func NewRemediateCmd(open Opener, reporter *export.Reporter) *cobra.Command {
	rc := &RemediateCmd{open: open, reporter: reporter}
	return &cobra.Command{
		Use:   "remediate <resource-id>",
		Short: "Apply the remediation rules to one resource",
		Args:  cobra.ExactArgs(1),
		RunE:  rc.run,
	}
}

func (rc *RemediateCmd) run(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	return withApp(ctx, rc.open, func(a *app.App) error {
		result, err := a.Remediation.Remediate(ctx, args[0])
		if err != nil {
			return err
		}
		return rc.reporter.Remediation(result)
	})
}
