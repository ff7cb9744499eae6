package commands

import (
	"fmt"

	"github.com/de-tools/guest-lifecycle/pkg/runtime/terminal/export"
	"github.com/de-tools/guest-lifecycle/pkg/services/guests"
	"github.com/spf13/cobra"
)

type ExemptionsCmd struct {
	global   *GlobalOptions
	factory  BackendFactory
	reporter *export.Reporter
	list     bool
}

func NewExemptionsCmd(global *GlobalOptions, factory BackendFactory, reporter *export.Reporter) *cobra.Command {
	ec := &ExemptionsCmd{global: global, factory: factory, reporter: reporter}
	cmd := &cobra.Command{
		Use:   "exemptions",
		Short: "Resolve the exemption set and print its size",
		Args:  cobra.NoArgs,
		RunE:  ec.run,
	}

	cmd.Flags().BoolVar(&ec.list, "list", false, "Print every exempt account id")

	return cmd
}

type memberLister interface {
	Members() guests.MemberSet
}

func (ec *ExemptionsCmd) run(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	backend, err := ec.factory(ec.global.registryOptions())
	if err != nil {
		return fmt.Errorf("failed to initialize: %w", err)
	}
	defer backend.Close()

	classifier, err := backend.Classifier(ctx)
	if err != nil {
		return err
	}

	strategy := classifier.Exemptions()
	summary := export.ExemptionSummary{
		Mode: string(strategy.Mode()),
		Size: strategy.Size(),
	}
	if lister, ok := strategy.(memberLister); ok && ec.list {
		summary.Members = lister.Members().Sorted()
	}
	return ec.reporter.HandleExemptions(summary)
}
