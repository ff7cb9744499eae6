package domain

import "time"

const (
	UserTypeGuest = "Guest"

	ExternalStateAccepted          = "Accepted"
	ExternalStatePendingAcceptance = "PendingAcceptance"
)

// SignInActivity holds the sign-in timestamps reported by the directory.
type SignInActivity struct {
	LastSignIn               *time.Time
	LastNonInteractiveSignIn *time.Time
}

// User is a directory account as returned by a user query. The engine only
// reads it.
type User struct {
	ID                              string
	DisplayName                     string
	UserPrincipalName               string
	AccountEnabled                  bool
	UserType                        string
	ExternalUserState               string
	CreatedDateTime                 *time.Time
	SignInSessionsValidFromDateTime *time.Time
	SignInActivity                  SignInActivity
}

// TimeOr returns the value behind t, or def when t is nil.
func TimeOr(t *time.Time, def time.Time) time.Time {
	if t == nil {
		return def
	}
	return *t
}
