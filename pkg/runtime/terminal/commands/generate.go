package commands

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/de-tools/posture-guard/pkg/services/inventory"
	"github.com/spf13/cobra"
)

type GenerateCmd struct {
	count  int
	seed   int64
	output string
}

func NewGenerateCmd() *cobra.Command {
	gc := &GenerateCmd{}
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a synthetic cloud inventory file",
		RunE:  gc.run,
	}

	cmd.Flags().IntVar(&gc.count, "count", 50, "Number of resources to generate")
	cmd.Flags().Int64Var(&gc.seed, "seed", 0, "Random seed (default: current time)")
	cmd.Flags().StringVarP(&gc.output, "output", "o", "cloud_resources.json", "Output file")

	return cmd
}

func (gc *GenerateCmd) run(cmd *cobra.Command, _ []string) error {
	if gc.count < 1 {
		return fmt.Errorf("count must be positive, got %d", gc.count)
	}

	seed := gc.seed
	if !cmd.Flags().Changed("seed") {
		seed = time.Now().UnixNano()
	}

	resources := inventory.Generate(gc.count, rand.New(rand.NewSource(seed)), time.Now())
	if err := inventory.WriteFile(gc.output, resources); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Generated %d resources in %s\n", len(resources), gc.output)
	return nil
}
