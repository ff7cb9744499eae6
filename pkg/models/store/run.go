package store

import "time"

type Run struct {
	ID          string
	Kind        string
	StartedAt   time.Time
	ElapsedMs   int64
	Threshold   time.Time
	Scanned     int
	Matched     int
	Excluded    int
	FailureType string
	Error       *string
	Candidates  []RunCandidate
}

type RunCandidate struct {
	UserID            string
	UserPrincipalName string
	DisplayName       string
	AccountEnabled    bool
	LastActivity      *time.Time
}
