package model

import "time"

// ScopeRecord is the audit view of a closed scope.
type ScopeRecord struct {
	ID          string         `json:"id"`
	Principle   string         `json:"principle"`
	Comparative bool           `json:"comparative"`
	State       string         `json:"state"`
	ErrorKind   string         `json:"error_kind,omitempty"`
	Error       string         `json:"error,omitempty"`
	FinalOutput string         `json:"final_output,omitempty"`
	OpenedAt    time.Time      `json:"opened_at"`
	ClosedAt    time.Time      `json:"closed_at"`
	Calls       []OracleCall   `json:"calls"`
	Results     []OracleResult `json:"results"`
}
