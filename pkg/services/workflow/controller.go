package workflow

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/de-tools/guest-lifecycle/pkg/models/domain"
	"github.com/rs/zerolog"
)

type Controller interface {
	Start(ctx context.Context) error
	Cancel(ctx context.Context) error
}

// ScheduleController repeats a set of classification runs on a fixed
// interval until cancelled.
type ScheduleController struct {
	runner   *Runner
	kinds    []domain.ClassificationKind
	interval time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewController(runner *Runner, kinds []domain.ClassificationKind, interval time.Duration) (*ScheduleController, error) {
	if runner == nil {
		return nil, fmt.Errorf("runner is nil")
	}
	if interval <= 0 {
		return nil, fmt.Errorf("schedule interval must be positive, got %s", interval)
	}
	if len(kinds) == 0 {
		kinds = domain.AllKinds
	}
	return &ScheduleController{
		runner:   runner,
		kinds:    kinds,
		interval: interval,
	}, nil
}

// Start runs the first round immediately and then on every tick.
func (c *ScheduleController) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cancel != nil {
		return fmt.Errorf("schedule already running")
	}

	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.done = make(chan struct{})

	go c.loop(ctx, c.done)
	return nil
}

func (c *ScheduleController) Cancel(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cancel == nil {
		return fmt.Errorf("schedule not running")
	}
	c.cancel()
	<-c.done

	c.cancel = nil
	c.done = nil
	return nil
}

func (c *ScheduleController) loop(ctx context.Context, done chan<- struct{}) {
	defer close(done)
	logger := zerolog.Ctx(ctx)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		results, err := c.runner.RunAll(ctx, c.kinds)
		if err != nil {
			logger.Error().Err(err).Msg("scheduled classification failed")
		} else {
			for _, r := range results {
				logger.Info().
					Str("kind", string(r.Kind)).
					Str("run_id", r.RunID).
					Int("matched", len(r.Users)).
					Msg("scheduled classification finished")
			}
		}

		select {
		case <-ctx.Done():
			logger.Info().Msg("classification schedule stopped")
			return
		case <-ticker.C:
		}
	}
}
