package terminal

import (
	"context"
	"io"
	"os"

	"github.com/de-tools/posture-guard/pkg/runtime/app"
	"github.com/de-tools/posture-guard/pkg/runtime/terminal/commands"
	"github.com/de-tools/posture-guard/pkg/runtime/terminal/export"
	"github.com/de-tools/posture-guard/pkg/services/config"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// CLI represents the command-line interface
type CLI struct {
	open     commands.Opener
	reporter *export.Reporter
	rootCmd  *cobra.Command
	logs     io.Writer
	cfgPath  string
	verbose  bool
}

// Options contain configuration for the CLI
type Options struct {
	// Open overrides how commands reach the store; by default the --config
	// file is loaded.
	Open   commands.Opener
	Output io.Writer
	Logs   io.Writer
}

// NewCLI creates a new CLI instance
func NewCLI(opts Options) *CLI {
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.Logs == nil {
		opts.Logs = os.Stderr
	}

	cli := &CLI{
		open:     opts.Open,
		reporter: export.NewReporter(opts.Output),
		logs:     opts.Logs,
	}
	if cli.open == nil {
		cli.open = cli.openFromConfig
	}

	cli.rootCmd = cli.newRootCmd()
	cli.rootCmd.SetOut(opts.Output)
	return cli
}

func (cli *CLI) Execute() error {
	return cli.ExecuteContext(context.Background())
}

func (cli *CLI) ExecuteContext(ctx context.Context) error {
	return cli.rootCmd.ExecuteContext(ctx)
}

// SetArgs overrides os.Args, for tests.
func (cli *CLI) SetArgs(args []string) {
	cli.rootCmd.SetArgs(args)
}

func (cli *CLI) newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "posture",
		Short:         "Cloud security posture remediation and risk scoring",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			level := zerolog.WarnLevel
			if cli.verbose {
				level = zerolog.DebugLevel
			}
			logger := zerolog.New(zerolog.ConsoleWriter{Out: cli.logs}).
				Level(level).
				With().
				Timestamp().
				Logger()
			cmd.SetContext(logger.WithContext(cmd.Context()))
		},
	}

	cmd.PersistentFlags().StringVarP(&cli.cfgPath, "config", "c", "", "Path to the YAML config file")
	cmd.PersistentFlags().BoolVarP(&cli.verbose, "verbose", "v", false, "Enable debug logging")

	cmd.AddCommand(commands.NewGenerateCmd())
	cmd.AddCommand(commands.NewLoadCmd(cli.open))
	cmd.AddCommand(commands.NewResourcesCmd(cli.open, cli.reporter))
	cmd.AddCommand(commands.NewRemediateCmd(cli.open, cli.reporter))
	cmd.AddCommand(commands.NewAnalyzeCmd(cli.open, cli.reporter))
	cmd.AddCommand(commands.NewRunsCmd(cli.open, cli.reporter))

	return cmd
}

func (cli *CLI) openFromConfig(_ context.Context) (*app.App, error) {
	cfg, err := config.Load(cli.cfgPath)
	if err != nil {
		return nil, err
	}
	return app.New(cfg)
}
