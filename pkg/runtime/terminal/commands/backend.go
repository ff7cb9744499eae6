package commands

import (
	"context"

	"github.com/de-tools/guest-lifecycle/pkg/services/guests"
	"github.com/de-tools/guest-lifecycle/pkg/services/registry"
	"github.com/de-tools/guest-lifecycle/pkg/services/workflow"
	"github.com/de-tools/guest-lifecycle/pkg/store/sqlite/runs"
)

// Backend is the part of the service registry the commands use.
type Backend interface {
	Classifier(ctx context.Context) (*guests.Classifier, error)
	Runner(ctx context.Context, record bool) (*workflow.Runner, error)
	RunStore() (runs.Store, error)
	Close() error
}

type BackendFactory func(opts registry.Options) (Backend, error)

// GlobalOptions are the persistent flags shared by every command.
type GlobalOptions struct {
	ConfigPath  string
	ProfilePath string
	Profile     string
	StorePath   string
}

func (o *GlobalOptions) registryOptions() registry.Options {
	return registry.Options{
		ConfigPath:  o.ConfigPath,
		ProfilePath: o.ProfilePath,
		Profile:     o.Profile,
		StorePath:   o.StorePath,
	}
}

func DefaultBackendFactory(opts registry.Options) (Backend, error) {
	r, err := registry.NewRegistry(opts)
	if err != nil {
		return nil, err
	}
	return r, nil
}
