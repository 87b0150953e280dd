package model

import "time"

type CallKind string

const (
	KindLLM      CallKind = "llm"
	KindWebFetch CallKind = "web_fetch"
	KindJudge    CallKind = "judge"
	// KindValue marks a result set explicitly by the contract block.
	KindValue CallKind = "value"
)

// OracleCall is one non-deterministic external request issued inside a scope.
// It is not modified after it is issued.
type OracleCall struct {
	ID       string    `json:"id"`
	Kind     CallKind  `json:"kind"`
	Input    string    `json:"input"` // prompt or URL
	IssuedBy string    `json:"issued_by"`
	IssuedAt time.Time `json:"issued_at"`
}

// OracleResult is the candidate a validator contributes to a scope: the value
// it set, or the raw output of its last oracle call.
type OracleResult struct {
	Call        OracleCall `json:"call"`
	RawOutput   string     `json:"raw_output"`
	// Kind is where RawOutput came from: the last call's kind, or KindValue.
	Kind        CallKind   `json:"kind"`
	ValidatorID string     `json:"validator_id"`
	Timestamp   time.Time  `json:"timestamp"`
}
