package adapters

import (
	"github.com/de-tools/guest-lifecycle/pkg/models/api"
	"github.com/de-tools/guest-lifecycle/pkg/models/domain"
	"github.com/de-tools/guest-lifecycle/pkg/services/guests"
)

var activity guests.ActivityEvaluator

func MapUserDomainToApi(u domain.User) api.Guest {
	return api.Guest{
		Id:                u.ID,
		DisplayName:       u.DisplayName,
		UserPrincipalName: u.UserPrincipalName,
		AccountEnabled:    u.AccountEnabled,
		ExternalUserState: u.ExternalUserState,
		CreatedAt:         u.CreatedDateTime,
		LastActivity:      activity.LastActivity(u),
	}
}

func MapClassificationDomainToApi(r domain.ClassificationResult) api.Classification {
	out := api.Classification{
		RunId:          r.RunID,
		Kind:           string(r.Kind),
		Threshold:      r.Threshold,
		StartedAt:      r.StartedAt,
		ElapsedMs:      r.Elapsed.Milliseconds(),
		Scanned:        r.Scanned,
		Matched:        len(r.Users),
		Excluded:       r.Excluded,
		PartialFailure: r.PartialFailure,
		FailureType:    r.FailureType(),
		Guests:         make([]api.Guest, 0, len(r.Users)),
	}
	if r.Cause != nil {
		out.Error = r.Cause.Error()
	}
	for _, u := range r.Users {
		out.Guests = append(out.Guests, MapUserDomainToApi(u))
	}
	return out
}
