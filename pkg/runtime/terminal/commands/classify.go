package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/de-tools/guest-lifecycle/pkg/adapters"
	"github.com/de-tools/guest-lifecycle/pkg/models/domain"
	"github.com/de-tools/guest-lifecycle/pkg/runtime/terminal/export"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

const (
	FormatTable = "table"
	FormatCSV   = "csv"
)

type ClassifyCmd struct {
	global   *GlobalOptions
	factory  BackendFactory
	reporter *export.Reporter
	format   string
	outDir   string
	noRecord bool
}

func NewClassifyCmd(global *GlobalOptions, factory BackendFactory, reporter *export.Reporter) *cobra.Command {
	cc := &ClassifyCmd{global: global, factory: factory, reporter: reporter}
	cmd := &cobra.Command{
		Use:       "classify [disable|inactive|invites|all]",
		Short:     "List guest accounts due for lifecycle action",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"disable", "inactive", "invites", "all"},
		RunE:      cc.run,
	}

	cmd.Flags().StringVar(&cc.format, "format", FormatTable, "Output format (table or csv)")
	cmd.Flags().StringVar(&cc.outDir, "out-dir", "", "Write one <kind>.csv per run into this directory")
	cmd.Flags().BoolVar(&cc.noRecord, "no-record", false, "Do not record the runs in the run history")

	return cmd
}

func parseKinds(args []string) ([]domain.ClassificationKind, error) {
	if len(args) == 0 || args[0] == "all" {
		return domain.AllKinds, nil
	}
	kind, err := domain.ParseKind(args[0])
	if err != nil {
		return nil, err
	}
	return []domain.ClassificationKind{kind}, nil
}

func (cc *ClassifyCmd) run(cmd *cobra.Command, args []string) error {
	if cc.format != FormatTable && cc.format != FormatCSV {
		return fmt.Errorf("unsupported format %q, expected %s or %s", cc.format, FormatTable, FormatCSV)
	}
	kinds, err := parseKinds(args)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	backend, err := cc.factory(cc.global.registryOptions())
	if err != nil {
		return fmt.Errorf("failed to initialize: %w", err)
	}
	defer backend.Close()

	runner, err := backend.Runner(ctx, !cc.noRecord)
	if err != nil {
		return err
	}

	results, err := runner.RunAll(ctx, kinds)
	if err != nil {
		return err
	}

	for _, result := range results {
		run := adapters.MapClassificationDomainToRun(result)
		if err := cc.emit(cmd, run); err != nil {
			return err
		}
		if result.PartialFailure {
			zerolog.Ctx(ctx).Warn().
				Str("kind", string(result.Kind)).
				Err(result.Cause).
				Msgf("retrieval %s failed with %d users", result.FailureType(), result.Scanned)
		}
	}
	return nil
}

func (cc *ClassifyCmd) emit(cmd *cobra.Command, run domain.Run) error {
	switch {
	case cc.format == FormatTable:
		return cc.reporter.HandleRun(run)
	case cc.outDir == "":
		return export.WriteCSV(cmd.OutOrStdout(), run)
	}

	if err := os.MkdirAll(cc.outDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	path := filepath.Join(cc.outDir, string(run.Kind)+".csv")
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	if err := export.WriteCSV(f, run); err != nil {
		return err
	}
	zerolog.Ctx(cmd.Context()).Info().Str("path", path).Int("rows", len(run.Candidates)).Msg("csv written")
	return f.Close()
}
