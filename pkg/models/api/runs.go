package api

import "time"

type Run struct {
	Id          string      `json:"id"`
	Kind        string      `json:"kind"`
	StartedAt   time.Time   `json:"started_at"`
	ElapsedMs   int64       `json:"elapsed_ms"`
	Threshold   time.Time   `json:"threshold"`
	Scanned     int         `json:"scanned"`
	Matched     int         `json:"matched"`
	Excluded    int         `json:"excluded"`
	FailureType string      `json:"failure_type"`
	Error       *string     `json:"error,omitempty"`
	Candidates  []Candidate `json:"candidates,omitempty"`
}

type Candidate struct {
	Id                string     `json:"id"`
	UserPrincipalName string     `json:"user_principal_name"`
	DisplayName       string     `json:"display_name,omitempty"`
	AccountEnabled    bool       `json:"account_enabled"`
	LastActivity      *time.Time `json:"last_activity,omitempty"`
}
