package guests

import (
	"context"
	"fmt"
	"time"

	"github.com/de-tools/guest-lifecycle/pkg/directory"
	"github.com/de-tools/guest-lifecycle/pkg/models/domain"
	"github.com/de-tools/guest-lifecycle/pkg/services/config"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/de-tools/guest-lifecycle/pkg/services/guests"

// predicate selects a record for action. A rejected record counts as
// excluded, and so does a record the predicate could not decide.
type predicate func(ctx context.Context, u domain.User) (bool, error)

// Classifier produces the disable, inactive and stale invite candidate
// lists. Entry points share no mutable state and may run concurrently.
type Classifier struct {
	runner     *QueryRunner
	policy     config.Policy
	exemptions ExemptionStrategy
	activity   ActivityEvaluator
	now        func() time.Time
	tracer     trace.Tracer
}

type Option func(*Classifier)

func WithClock(now func() time.Time) Option {
	return func(c *Classifier) {
		c.now = now
	}
}

func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *Classifier) {
		c.tracer = tp.Tracer(tracerName)
	}
}

func NewClassifier(runner *QueryRunner, policy config.Policy, exemptions ExemptionStrategy, opts ...Option) (*Classifier, error) {
	if runner == nil {
		return nil, fmt.Errorf("query runner is nil")
	}
	if exemptions == nil {
		return nil, fmt.Errorf("exemption strategy is nil")
	}

	c := &Classifier{
		runner:     runner,
		policy:     policy,
		exemptions: exemptions,
		now:        time.Now,
		tracer:     otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Classifier) Exemptions() ExemptionStrategy {
	return c.exemptions
}

// Classify dispatches to the entry point for kind.
func (c *Classifier) Classify(ctx context.Context, kind domain.ClassificationKind) (domain.ClassificationResult, error) {
	switch kind {
	case domain.KindDisable:
		return c.DisableCandidates(ctx), nil
	case domain.KindInactive:
		return c.InactiveEnabledGuests(ctx), nil
	case domain.KindInvites:
		return c.UnacceptedInvitees(ctx), nil
	default:
		return domain.ClassificationResult{}, fmt.Errorf("unsupported classification kind: %q", kind)
	}
}

// DisableCandidates returns disabled, accepted guests whose last activity
// is older than the removal range and who are not exempt.
func (c *Classifier) DisableCandidates(ctx context.Context) domain.ClassificationResult {
	threshold := c.policy.RemovalThreshold(c.now())
	return c.run(ctx, domain.KindDisable, acceptedGuestsFilter(false), threshold, c.staleAndNotExempt(threshold))
}

// InactiveEnabledGuests returns enabled, accepted guests whose last activity
// is older than the stale range and who are not exempt.
func (c *Classifier) InactiveEnabledGuests(ctx context.Context) domain.ClassificationResult {
	threshold := c.policy.StaleThreshold(c.now())
	return c.run(ctx, domain.KindInactive, acceptedGuestsFilter(true), threshold, c.staleAndNotExempt(threshold))
}

// UnacceptedInvitees returns pending invitations created before the invite
// range. The server-side filter is the whole policy here.
func (c *Classifier) UnacceptedInvitees(ctx context.Context) domain.ClassificationResult {
	threshold := c.policy.InviteThreshold(c.now())
	return c.run(ctx, domain.KindInvites, staleInvitesFilter(threshold), threshold, nil)
}

// staleAndNotExempt checks exemption first since in list and group mode it
// is a local set lookup. The order does not change the outcome.
func (c *Classifier) staleAndNotExempt(threshold time.Time) predicate {
	return func(ctx context.Context, u domain.User) (bool, error) {
		exempt, err := c.exemptions.IsExempt(ctx, u.ID)
		if err != nil {
			return false, fmt.Errorf("exemption undetermined for %s: %w", u.ID, err)
		}
		if exempt {
			return false, nil
		}
		return c.activity.IsPastThreshold(u, threshold), nil
	}
}

func (c *Classifier) run(
	ctx context.Context,
	kind domain.ClassificationKind,
	filter string,
	threshold time.Time,
	keep predicate,
) domain.ClassificationResult {
	ctx, span := c.tracer.Start(ctx, "guests.classify", trace.WithAttributes(
		attribute.String("guests.kind", string(kind)),
		attribute.String("guests.threshold", threshold.UTC().Format(time.RFC3339)),
	))
	defer span.End()

	logger := zerolog.Ctx(ctx).With().Str("kind", string(kind)).Logger()
	ctx = logger.WithContext(ctx)

	started := time.Now()
	result := domain.ClassificationResult{
		Kind:      kind,
		Users:     []domain.User{},
		Threshold: threshold,
		StartedAt: c.now(),
	}
	logger.Info().Time("threshold", threshold).Msg("processing started")

	var (
		undetermined int
		recordErr    error
	)
	stats := c.runner.RunFiltered(ctx, filter, c.policy.Fields(), func(u domain.User) bool {
		if keep == nil {
			result.Users = append(result.Users, u)
			return true
		}
		ok, err := keep(ctx, u)
		switch {
		case err != nil:
			undetermined++
			if recordErr == nil {
				recordErr = err
			}
			result.Excluded++
		case ok:
			result.Users = append(result.Users, u)
		default:
			result.Excluded++
		}
		return true
	})

	result.Scanned = stats.Count
	result.PartialFailure = stats.PartialFailure || recordErr != nil
	result.Cause = stats.Cause
	if result.Cause == nil && recordErr != nil {
		result.Cause = directory.Wrap("classify record", recordErr)
	}
	result.Elapsed = time.Since(started)
	if undetermined > 0 {
		logger.Warn().
			Err(recordErr).
			Int("undetermined", undetermined).
			Msgf("%d users left out because their exemption could not be determined", undetermined)
	}

	span.SetAttributes(
		attribute.Int("guests.scanned", result.Scanned),
		attribute.Int("guests.matched", len(result.Users)),
		attribute.Int("guests.excluded", result.Excluded),
		attribute.Bool("guests.partial_failure", result.PartialFailure),
	)
	if result.PartialFailure {
		span.RecordError(result.Cause)
		span.SetStatus(codes.Error, "classification "+result.FailureType()+" failed")
	}

	logger.Info().
		Int("scanned", result.Scanned).
		Int("excluded", result.Excluded).
		Bool("partial_failure", result.PartialFailure).
		Dur("elapsed", result.Elapsed).
		Msgf("total users in scope: %d users", len(result.Users))
	return result
}
