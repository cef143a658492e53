package model

import "time"

// NarrativeStatus is the lifecycle state of a generated narrative.
type NarrativeStatus string

// A narrative moves draft -> validated only when both validator checks
// pass, and validated -> approved only through an explicit approval
// action. Content never changes after creation; only the status does.
const (
	NarrativeStatusDraft     NarrativeStatus = "draft"
	NarrativeStatusValidated NarrativeStatus = "validated"
	NarrativeStatusApproved  NarrativeStatus = "approved"
)

// Narrative is one generated SAR narrative for a case.
type Narrative struct {
	GeneratedAt       time.Time
	ID                string
	CaseID            string
	Text              string
	Status            NarrativeStatus
	GenerationSeconds int
}
