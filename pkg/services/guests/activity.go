package guests

import (
	"time"

	"github.com/de-tools/guest-lifecycle/pkg/models/domain"
)

// ActivityEvaluator derives a user's effective last activity from the
// timestamps the directory reports.
type ActivityEvaluator struct{}

// LastActivity applies a fixed priority:
//   - the later of the interactive and non-interactive sign-ins when both exist
//   - whichever sign-in exists when only one does
//   - signInSessionsValidFromDateTime, then createdDateTime
//
// It returns nil when none of them are known.
func (ActivityEvaluator) LastActivity(u domain.User) *time.Time {
	interactive := u.SignInActivity.LastSignIn
	nonInteractive := u.SignInActivity.LastNonInteractiveSignIn

	switch {
	case interactive != nil && nonInteractive != nil:
		if interactive.After(*nonInteractive) {
			return interactive
		}
		return nonInteractive
	case interactive != nil:
		return interactive
	case nonInteractive != nil:
		return nonInteractive
	case u.SignInSessionsValidFromDateTime != nil:
		return u.SignInSessionsValidFromDateTime
	default:
		return u.CreatedDateTime
	}
}

// IsPastThreshold reports whether the user's last activity is strictly
// before threshold. Unknown activity is never past the threshold.
func (e ActivityEvaluator) IsPastThreshold(u domain.User, threshold time.Time) bool {
	last := e.LastActivity(u)
	if last == nil {
		return false
	}
	return last.Before(threshold)
}
