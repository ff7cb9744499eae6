package api

import "time"

type Guest struct {
	Id                string     `json:"id"`
	DisplayName       string     `json:"display_name,omitempty"`
	UserPrincipalName string     `json:"user_principal_name"`
	AccountEnabled    bool       `json:"account_enabled"`
	ExternalUserState string     `json:"external_user_state,omitempty"`
	CreatedAt         *time.Time `json:"created_at,omitempty"`
	LastActivity      *time.Time `json:"last_activity,omitempty"`
}

type Classification struct {
	RunId          string    `json:"run_id,omitempty"`
	Kind           string    `json:"kind"`
	Threshold      time.Time `json:"threshold"`
	StartedAt      time.Time `json:"started_at"`
	ElapsedMs      int64     `json:"elapsed_ms"`
	Scanned        int       `json:"scanned"`
	Matched        int       `json:"matched"`
	Excluded       int       `json:"excluded"`
	PartialFailure bool      `json:"partial_failure"`
	FailureType    string    `json:"failure_type"`
	Error          string    `json:"error,omitempty"`
	Guests         []Guest   `json:"guests"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
