package domain

import (
	"fmt"
	"time"
)

type ClassificationKind string

const (
	KindDisable  ClassificationKind = "disable"
	KindInactive ClassificationKind = "inactive"
	KindInvites  ClassificationKind = "invites"
)

// AllKinds lists every classification entry point in execution order.
var AllKinds = []ClassificationKind{KindDisable, KindInactive, KindInvites}

func ParseKind(s string) (ClassificationKind, error) {
	for _, k := range AllKinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown classification kind: %q", s)
}

// ClassificationResult is produced fresh by every classification call.
type ClassificationResult struct {
	// RunID is set once the result has been recorded in the run history.
	RunID string
	Kind  ClassificationKind
	Users []User
	// Scanned counts every record returned by the directory.
	Scanned int
	// Excluded counts records dropped as exempt or recently active.
	Excluded       int
	PartialFailure bool
	Cause          error
	Threshold      time.Time
	StartedAt      time.Time
	Elapsed        time.Duration
}

// FailureType describes how much of the run was lost to a failure.
func (r ClassificationResult) FailureType() string {
	switch {
	case !r.PartialFailure:
		return "none"
	case r.Scanned > 0:
		return "partially"
	default:
		return "completely"
	}
}
