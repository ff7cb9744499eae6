package domain

import "time"

// Run is a persisted classification run.
type Run struct {
	ID          string
	Kind        ClassificationKind
	StartedAt   time.Time
	Elapsed     time.Duration
	Threshold   time.Time
	Scanned     int
	Matched     int
	Excluded    int
	FailureType string
	Error       *string
	Candidates  []Candidate
}

// Candidate is an account flagged by a run, with the activity timestamp the
// decision was based on.
type Candidate struct {
	ID                string
	UserPrincipalName string
	DisplayName       string
	AccountEnabled    bool
	LastActivity      *time.Time
}
