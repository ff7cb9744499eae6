package config

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Policy is the validated, immutable lifecycle policy. Thresholds are held
// as negative day offsets so that now.AddDate(0, 0, offset) yields the
// threshold instant.
type Policy struct {
	staleOffset       int
	removalOffset     int
	inviteStaleOffset int
	maxRetryAttempts  int
	fields            []string
	exemption         ExemptionSettings
}

// NewPolicy clamps every configured day range to its baseline.
func NewPolicy(ctx context.Context, s PolicySettings, maxRetryAttempts int, fields []string, exemption ExemptionSettings) Policy {
	return Policy{
		staleOffset:       ResolveThreshold(ctx, "stale_days", s.StaleDays, s.Baseline.StaleDays),
		removalOffset:     ResolveThreshold(ctx, "removal_days", s.RemovalDays, s.Baseline.RemovalDays),
		inviteStaleOffset: ResolveThreshold(ctx, "invite_stale_days", s.InviteStaleDays, s.Baseline.InviteStaleDays),
		maxRetryAttempts:  maxRetryAttempts,
		fields:            append([]string(nil), fields...),
		exemption:         exemption,
	}
}

// ResolveThreshold substitutes baseline for any value below it and returns
// the result as a negative day offset.
func ResolveThreshold(ctx context.Context, name string, value, baseline int) int {
	if value < baseline {
		zerolog.Ctx(ctx).Warn().
			Str("setting", name).
			Int("value", value).
			Int("baseline", baseline).
			Msgf("range %d is below minimum of %d, using baseline", value, baseline)
		value = baseline
	}
	return -value
}

func (p Policy) StaleDays() int {
	return -p.staleOffset
}

func (p Policy) RemovalDays() int {
	return -p.removalOffset
}

func (p Policy) InviteStaleDays() int {
	return -p.inviteStaleOffset
}

func (p Policy) MaxRetryAttempts() int {
	return p.maxRetryAttempts
}

// Fields returns a copy of the requested user projection.
func (p Policy) Fields() []string {
	return append([]string(nil), p.fields...)
}

func (p Policy) Exemption() ExemptionSettings {
	return p.exemption
}

func (p Policy) StaleThreshold(now time.Time) time.Time {
	return now.AddDate(0, 0, p.staleOffset)
}

func (p Policy) RemovalThreshold(now time.Time) time.Time {
	return now.AddDate(0, 0, p.removalOffset)
}

func (p Policy) InviteThreshold(now time.Time) time.Time {
	return now.AddDate(0, 0, p.inviteStaleOffset)
}
