package guests

import (
	"fmt"
	"strings"
	"time"

	"github.com/de-tools/guest-lifecycle/pkg/models/domain"
)

const filterTimeLayout = "2006-01-02T15:04:05Z"

// filterBuilder joins OData filter clauses with "and".
type filterBuilder []string

func (f filterBuilder) eq(field, value string) filterBuilder {
	return append(f, fmt.Sprintf("%s eq '%s'", field, strings.ReplaceAll(value, "'", "''")))
}

func (f filterBuilder) eqBool(field string, value bool) filterBuilder {
	return append(f, fmt.Sprintf("%s eq %t", field, value))
}

func (f filterBuilder) le(field string, t time.Time) filterBuilder {
	return append(f, fmt.Sprintf("%s le %s", field, t.UTC().Format(filterTimeLayout)))
}

func (f filterBuilder) String() string {
	return strings.Join(f, " and ")
}

func acceptedGuestsFilter(enabled bool) string {
	return filterBuilder{}.
		eq("userType", domain.UserTypeGuest).
		eqBool("accountEnabled", enabled).
		eq("externalUserState", domain.ExternalStateAccepted).
		String()
}

func staleInvitesFilter(createdBefore time.Time) string {
	return filterBuilder{}.
		eq("userType", domain.UserTypeGuest).
		eq("externalUserState", domain.ExternalStatePendingAcceptance).
		le("createdDateTime", createdBefore).
		String()
}
