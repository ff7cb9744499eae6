package adapters

import (
	"time"

	"github.com/de-tools/guest-lifecycle/pkg/models/api"
	"github.com/de-tools/guest-lifecycle/pkg/models/domain"
	"github.com/de-tools/guest-lifecycle/pkg/models/store"
)

// MapClassificationDomainToRun snapshots a result for the run history. A user
// returned more than once by the directory is recorded once.
func MapClassificationDomainToRun(r domain.ClassificationResult) domain.Run {
	run := domain.Run{
		ID:          r.RunID,
		Kind:        r.Kind,
		StartedAt:   r.StartedAt,
		Elapsed:     r.Elapsed,
		Threshold:   r.Threshold,
		Scanned:     r.Scanned,
		Excluded:    r.Excluded,
		FailureType: r.FailureType(),
		Candidates:  make([]domain.Candidate, 0, len(r.Users)),
	}
	if r.Cause != nil {
		msg := r.Cause.Error()
		run.Error = &msg
	}
	seen := make(map[string]struct{}, len(r.Users))
	for _, u := range r.Users {
		if _, dup := seen[u.ID]; dup {
			continue
		}
		seen[u.ID] = struct{}{}
		run.Candidates = append(run.Candidates, domain.Candidate{
			ID:                u.ID,
			UserPrincipalName: u.UserPrincipalName,
			DisplayName:       u.DisplayName,
			AccountEnabled:    u.AccountEnabled,
			LastActivity:      activity.LastActivity(u),
		})
	}
	run.Matched = len(run.Candidates)
	return run
}

func MapDomainRunToStore(r domain.Run) *store.Run {
	out := &store.Run{
		ID:          r.ID,
		Kind:        string(r.Kind),
		StartedAt:   r.StartedAt,
		ElapsedMs:   r.Elapsed.Milliseconds(),
		Threshold:   r.Threshold,
		Scanned:     r.Scanned,
		Matched:     r.Matched,
		Excluded:    r.Excluded,
		FailureType: r.FailureType,
		Error:       r.Error,
	}
	for _, c := range r.Candidates {
		out.Candidates = append(out.Candidates, store.RunCandidate{
			UserID:            c.ID,
			UserPrincipalName: c.UserPrincipalName,
			DisplayName:       c.DisplayName,
			AccountEnabled:    c.AccountEnabled,
			LastActivity:      c.LastActivity,
		})
	}
	return out
}

func MapStoreRunToDomain(r store.Run) domain.Run {
	out := domain.Run{
		ID:          r.ID,
		Kind:        domain.ClassificationKind(r.Kind),
		StartedAt:   r.StartedAt,
		Elapsed:     time.Duration(r.ElapsedMs) * time.Millisecond,
		Threshold:   r.Threshold,
		Scanned:     r.Scanned,
		Matched:     r.Matched,
		Excluded:    r.Excluded,
		FailureType: r.FailureType,
		Error:       r.Error,
	}
	for _, c := range r.Candidates {
		out.Candidates = append(out.Candidates, domain.Candidate{
			ID:                c.UserID,
			UserPrincipalName: c.UserPrincipalName,
			DisplayName:       c.DisplayName,
			AccountEnabled:    c.AccountEnabled,
			LastActivity:      c.LastActivity,
		})
	}
	return out
}

func MapRunDomainToApi(r domain.Run) api.Run {
	out := api.Run{
		Id:          r.ID,
		Kind:        string(r.Kind),
		StartedAt:   r.StartedAt,
		ElapsedMs:   r.Elapsed.Milliseconds(),
		Threshold:   r.Threshold,
		Scanned:     r.Scanned,
		Matched:     r.Matched,
		Excluded:    r.Excluded,
		FailureType: r.FailureType,
		Error:       r.Error,
	}
	for _, c := range r.Candidates {
		out.Candidates = append(out.Candidates, api.Candidate{
			Id:                c.ID,
			UserPrincipalName: c.UserPrincipalName,
			DisplayName:       c.DisplayName,
			AccountEnabled:    c.AccountEnabled,
			LastActivity:      c.LastActivity,
		})
	}
	return out
}
