package commands

import (
	"github.com/de-tools/posture-guard/pkg/runtime/app"
	"github.com/de-tools/posture-guard/pkg/runtime/terminal/export"
	"github.com/spf13/cobra"
)

type ResourcesCmd struct {
	open     Opener
	reporter *export.Reporter
}

func NewResourcesCmd(open Opener, reporter *export.Reporter) *cobra.Command {
	rc := &ResourcesCmd{open: open, reporter: reporter}
	return &cobra.Command{
		Use:   "resources",
		Short: "List the stored inventory with its risk scores",
		RunE:  rc.run,
	}
}

func (rc *ResourcesCmd) run(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	return withApp(ctx, rc.open, func(a *app.App) error {
		resources, err := a.Resources.FindAll(ctx)
		if err != nil {
			return err
		}
		return rc.reporter.Resources(resources)
	})
}
