package model

import "time"

// AuditRecord is one tamper-evident step in a narrative's audit trail.
// Records are append-only and totally ordered within a narrative; the
// hash of each record covers the previous record's hash, so retroactive
// edits break the chain. The hashed field order is fixed: step_name,
// data_sources, reasoning, confidence, previous_hash, logged_at
// (current_hash is excluded from its own preimage).
type AuditRecord struct {
	LoggedAt     time.Time
	DataSources  map[string]any
	Reasoning    map[string]any
	StepName     string
	PreviousHash string
	CurrentHash  string
	NarrativeID  string
	Position     int
	Confidence   float64
}
