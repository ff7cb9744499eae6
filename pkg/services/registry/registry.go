package registry

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/de-tools/guest-lifecycle/pkg/directory"
	"github.com/de-tools/guest-lifecycle/pkg/directory/graph"
	"github.com/de-tools/guest-lifecycle/pkg/services/config"
	"github.com/de-tools/guest-lifecycle/pkg/services/guests"
	"github.com/de-tools/guest-lifecycle/pkg/services/workflow"
	"github.com/de-tools/guest-lifecycle/pkg/store/sqlite"
	"github.com/de-tools/guest-lifecycle/pkg/store/sqlite/runs"
	"github.com/rs/zerolog"
)

type Options struct {
	// ConfigPath is optional; defaults and GUESTS_* variables apply without it.
	ConfigPath  string
	ProfilePath string
	Profile     string
	// StorePath overrides store.path from the settings.
	StorePath string
}

// Registry builds the service graph from settings and a profile. Components
// are created on first use and shared afterwards.
type Registry struct {
	settings *config.Settings
	profile  *config.Profile

	mu         sync.Mutex
	client     directory.Client
	classifier *guests.Classifier
	db         *sql.DB
	runStore   runs.Store
}

func NewRegistry(opts Options) (*Registry, error) {
	settings, err := config.LoadSettings(opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	if opts.StorePath != "" {
		settings.Store.Path = opts.StorePath
	}

	profilePath := opts.ProfilePath
	if profilePath == "" {
		profilePath, err = config.DefaultProfilePath()
		if err != nil {
			return nil, err
		}
	}
	profile, err := config.LoadProfile(profilePath, opts.Profile)
	if err != nil {
		return nil, err
	}
	if profile.Cloud != "" {
		settings.Directory.Cloud = profile.Cloud
	}

	return &Registry{
		settings: settings,
		profile:  profile,
	}, nil
}

// NewRegistryWithClient wires the registry to an existing directory client.
func NewRegistryWithClient(settings *config.Settings, client directory.Client) *Registry {
	return &Registry{
		settings: settings,
		client:   client,
	}
}

func (r *Registry) Settings() *config.Settings {
	return r.settings
}

func (r *Registry) Directory() (directory.Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.directoryLocked()
}

func (r *Registry) directoryLocked() (directory.Client, error) {
	if r.client != nil {
		return r.client, nil
	}

	ds := r.settings.Directory
	cred, err := r.profile.Credential(ds.Cloud)
	if err != nil {
		return nil, err
	}

	client, err := graph.NewClient(graph.Options{
		Endpoint:          graph.Endpoint(ds.Cloud, ds.Version),
		Credential:        cred,
		MaxAttempts:       ds.MaxAttempts,
		TryTimeout:        ds.Timeout,
		RequestsPerSecond: ds.RequestsPerSecond,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create directory client: %w", err)
	}
	r.client = client
	return client, nil
}

// Classifier resolves the exemption strategy once and returns the shared
// classifier. A missing exemption group fails here, before any run.
func (r *Registry) Classifier(ctx context.Context) (*guests.Classifier, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.classifier != nil {
		return r.classifier, nil
	}

	client, err := r.directoryLocked()
	if err != nil {
		return nil, err
	}

	policy := r.settings.BuildPolicy(ctx)
	zerolog.Ctx(ctx).Info().
		Int("stale_days", policy.StaleDays()).
		Int("removal_days", policy.RemovalDays()).
		Int("invite_stale_days", policy.InviteStaleDays()).
		Msg("lifecycle policy loaded")

	exemptions, err := guests.ResolveExemptions(ctx, client, policy.Exemption())
	if err != nil {
		return nil, fmt.Errorf("failed to resolve exemptions: %w", err)
	}

	classifier, err := guests.NewClassifier(
		guests.NewQueryRunner(client, r.settings.Query.PageSize),
		policy,
		exemptions,
	)
	if err != nil {
		return nil, err
	}
	r.classifier = classifier
	return classifier, nil
}

func (r *Registry) RunStore() (runs.Store, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.runStore != nil {
		return r.runStore, nil
	}

	db, err := sqlite.NewDB(sqlite.Settings{DbPath: r.settings.Store.Path})
	if err != nil {
		return nil, fmt.Errorf("failed to open run store: %w", err)
	}
	runStore, err := runs.NewStore(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	r.db = db
	r.runStore = runStore
	return runStore, nil
}

// Runner returns a workflow runner. With record unset, results are not
// written to the run history.
func (r *Registry) Runner(ctx context.Context, record bool) (*workflow.Runner, error) {
	classifier, err := r.Classifier(ctx)
	if err != nil {
		return nil, err
	}

	var runStore runs.Store
	if record {
		if runStore, err = r.RunStore(); err != nil {
			return nil, err
		}
	}
	return workflow.NewRunner(classifier, runStore, r.settings.Workers)
}

func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.db == nil {
		return nil
	}
	err := r.db.Close()
	r.db = nil
	r.runStore = nil
	return err
}
