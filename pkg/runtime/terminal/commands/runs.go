package commands

import (
	"fmt"

	"github.com/de-tools/guest-lifecycle/pkg/adapters"
	"github.com/de-tools/guest-lifecycle/pkg/models/domain"
	"github.com/de-tools/guest-lifecycle/pkg/runtime/terminal/export"
	"github.com/spf13/cobra"
)

type RunsCmd struct {
	global   *GlobalOptions
	factory  BackendFactory
	reporter *export.Reporter
	limit    int
}

func NewRunsCmd(global *GlobalOptions, factory BackendFactory, reporter *export.Reporter) *cobra.Command {
	rc := &RunsCmd{global: global, factory: factory, reporter: reporter}
	cmd := &cobra.Command{
		Use:   "runs [run-id]",
		Short: "Show the run history, or one run with its candidates",
		Args:  cobra.MaximumNArgs(1),
		RunE:  rc.run,
	}

	cmd.Flags().IntVar(&rc.limit, "limit", 20, "Number of most recent runs to list")

	return cmd
}

func (rc *RunsCmd) run(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	backend, err := rc.factory(rc.global.registryOptions())
	if err != nil {
		return fmt.Errorf("failed to initialize: %w", err)
	}
	defer backend.Close()

	runStore, err := backend.RunStore()
	if err != nil {
		return err
	}

	if len(args) == 1 {
		rec, err := runStore.GetRun(ctx, args[0])
		if err != nil {
			return err
		}
		return rc.reporter.HandleRun(adapters.MapStoreRunToDomain(*rec))
	}

	records, err := runStore.ListRuns(ctx, rc.limit)
	if err != nil {
		return err
	}
	history := make([]domain.Run, 0, len(records))
	for _, rec := range records {
		history = append(history, adapters.MapStoreRunToDomain(rec))
	}
	return rc.reporter.HandleRuns(history)
}
