package adapters

import (
	"errors"
	"testing"
	"time"

	"github.com/de-tools/guest-lifecycle/pkg/models/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapClassificationDomainToRun(t *testing.T) {
	started := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	interactive := started.AddDate(0, 0, -200)
	nonInteractive := started.AddDate(0, 0, -150)

	result := domain.ClassificationResult{
		RunID:          "run-1",
		Kind:           domain.KindDisable,
		StartedAt:      started,
		Elapsed:        2 * time.Second,
		Threshold:      started.AddDate(0, 0, -74),
		Scanned:        5,
		Excluded:       4,
		PartialFailure: true,
		Cause:          errors.New("next page (transient): 503"),
		Users: []domain.User{{
			ID:                "u1",
			UserPrincipalName: "a@contoso.com",
			SignInActivity: domain.SignInActivity{
				LastSignIn:               &interactive,
				LastNonInteractiveSignIn: &nonInteractive,
			},
		}},
	}

	run := MapClassificationDomainToRun(result)
	assert.Equal(t, "run-1", run.ID)
	assert.Equal(t, 1, run.Matched)
	assert.Equal(t, "partially", run.FailureType)
	require.NotNil(t, run.Error)
	assert.Equal(t, "next page (transient): 503", *run.Error)
	require.Len(t, run.Candidates, 1)
	assert.Equal(t, &nonInteractive, run.Candidates[0].LastActivity)

	stored := MapDomainRunToStore(run)
	assert.Equal(t, int64(2000), stored.ElapsedMs)
	assert.Equal(t, "disable", stored.Kind)

	back := MapStoreRunToDomain(*stored)
	assert.Equal(t, run, back)

	apiRun := MapRunDomainToApi(back)
	assert.Equal(t, int64(2000), apiRun.ElapsedMs)
	require.Len(t, apiRun.Candidates, 1)
	assert.Equal(t, "u1", apiRun.Candidates[0].Id)
}

func TestMapClassificationDomainToRun_RepeatedUser(t *testing.T) {
	result := domain.ClassificationResult{
		Kind: domain.KindInactive,
		Users: []domain.User{
			{ID: "u1", UserPrincipalName: "a@contoso.com"},
			{ID: "u2", UserPrincipalName: "b@fabrikam.com"},
			{ID: "u1", UserPrincipalName: "a@contoso.com"},
		},
	}

	run := MapClassificationDomainToRun(result)
	assert.Equal(t, 2, run.Matched)
	require.Len(t, run.Candidates, 2)
	assert.Equal(t, "u1", run.Candidates[0].ID)
	assert.Equal(t, "u2", run.Candidates[1].ID)
}

func TestMapClassificationDomainToApi_NoUsers(t *testing.T) {
	out := MapClassificationDomainToApi(domain.ClassificationResult{Kind: domain.KindInvites})
	assert.NotNil(t, out.Guests)
	assert.Empty(t, out.Guests)
	assert.Equal(t, "none", out.FailureType)
	assert.Empty(t, out.Error)
}
