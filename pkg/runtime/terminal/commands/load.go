package commands

import (
	"fmt"

	"github.com/de-tools/posture-guard/pkg/runtime/app"
	"github.com/de-tools/posture-guard/pkg/services/inventory"
	"github.com/spf13/cobra"
)

type LoadCmd struct {
	file  string
	reset bool
	open  Opener
}

func NewLoadCmd(open Opener) *cobra.Command {
	lc := &LoadCmd{open: open}
	cmd := &cobra.Command{
		Use:   "load",
		Short: "Load an inventory file into the store",
		RunE:  lc.run,
	}

	cmd.Flags().StringVarP(&lc.file, "file", "f", "cloud_resources.json", "Inventory file to load")
	cmd.Flags().BoolVar(&lc.reset, "reset", false, "Delete the stored inventory before loading")

	return cmd
}

func (lc *LoadCmd) run(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	resources, err := inventory.LoadFile(lc.file)
	if err != nil {
		return err
	}

	return withApp(ctx, lc.open, func(a *app.App) error {
		if err := inventory.Seed(ctx, a.Resources, resources, lc.reset); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Loaded %d resources from %s\n", len(resources), lc.file)
		return nil
	})
}
