package terminal

import (
	"context"
	"io"
	"os"

	"github.com/de-tools/guest-lifecycle/pkg/runtime/terminal/commands"
	"github.com/de-tools/guest-lifecycle/pkg/runtime/terminal/export"
	"github.com/spf13/cobra"
)

// CLI represents the command-line interface
type CLI struct {
	factory  commands.BackendFactory
	reporter *export.Reporter
	global   *commands.GlobalOptions
	rootCmd  *cobra.Command
}

// Options contain configuration for the CLI
type Options struct {
	// Factory builds the service registry; nil selects the Graph-backed one.
	Factory commands.BackendFactory
	Output  io.Writer
}

// NewCLI creates a new CLI instance
func NewCLI(opts Options) *CLI {
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.Factory == nil {
		opts.Factory = commands.DefaultBackendFactory
	}

	cli := &CLI{
		factory:  opts.Factory,
		reporter: export.NewReporter(opts.Output),
		global:   &commands.GlobalOptions{},
	}

	cli.rootCmd = cli.newRootCmd()
	cli.rootCmd.SetOut(opts.Output)
	return cli
}

func (cli *CLI) Execute(ctx context.Context) error {
	return cli.rootCmd.ExecuteContext(ctx)
}

// SetArgs overrides os.Args for the next Execute.
func (cli *CLI) SetArgs(args []string) {
	cli.rootCmd.SetArgs(args)
}

func (cli *CLI) newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "guestctl",
		Short:         "Guest account lifecycle classification",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&cli.global.ConfigPath, "config", "", "Path to the settings file (yaml, json or toml)")
	flags.StringVar(&cli.global.ProfilePath, "profile-file", "", "Path to the profiles file (default is $HOME/.guestctl/profiles)")
	flags.StringVar(&cli.global.Profile, "profile", "default", "Profile to use from the profiles file")
	flags.StringVar(&cli.global.StorePath, "store", "", "Path to the run history database (overrides store.path)")

	cmd.AddCommand(commands.NewClassifyCmd(cli.global, cli.factory, cli.reporter))
	cmd.AddCommand(commands.NewExemptionsCmd(cli.global, cli.factory, cli.reporter))
	cmd.AddCommand(commands.NewRunsCmd(cli.global, cli.factory, cli.reporter))

	return cmd
}
