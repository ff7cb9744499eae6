package workflow

import (
	"context"
	"fmt"

	"github.com/de-tools/guest-lifecycle/pkg/adapters"
	"github.com/de-tools/guest-lifecycle/pkg/models/domain"
	"github.com/de-tools/guest-lifecycle/pkg/store/sqlite/runs"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const DefaultWorkers = 10

type Classifier interface {
	Classify(ctx context.Context, kind domain.ClassificationKind) (domain.ClassificationResult, error)
}

// Runner executes classification runs and records them in the run history.
type Runner struct {
	classifier Classifier
	runStore   runs.Store
	workers    int
}

// NewRunner accepts a nil runStore, in which case results are not recorded.
func NewRunner(classifier Classifier, runStore runs.Store, workers int) (*Runner, error) {
	if classifier == nil {
		return nil, fmt.Errorf("classifier is nil")
	}
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &Runner{
		classifier: classifier,
		runStore:   runStore,
		workers:    workers,
	}, nil
}

// Run classifies one kind. A failure to record the run is logged and does
// not fail the classification.
func (r *Runner) Run(ctx context.Context, kind domain.ClassificationKind) (domain.ClassificationResult, error) {
	result, err := r.classifier.Classify(ctx, kind)
	if err != nil {
		return result, err
	}
	if r.runStore == nil {
		return result, nil
	}

	id, err := r.runStore.AddRun(ctx, adapters.MapDomainRunToStore(adapters.MapClassificationDomainToRun(result)))
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Str("kind", string(kind)).Msg("failed to record run")
		return result, nil
	}
	result.RunID = id
	return result, nil
}

// RunAll classifies every kind concurrently, bounded by the worker limit.
// Results keep the order of kinds.
func (r *Runner) RunAll(ctx context.Context, kinds []domain.ClassificationKind) ([]domain.ClassificationResult, error) {
	results := make([]domain.ClassificationResult, len(kinds))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for i, kind := range kinds {
		g.Go(func() error {
			res, err := r.Run(gctx, kind)
			if err != nil {
				return fmt.Errorf("failed to classify %s: %w", kind, err)
			}
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
