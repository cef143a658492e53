// Package model defines the core domain models used throughout the application.
package model

import "time"

// CaseStatus tracks where a SAR case sits in its lifecycle.
type CaseStatus string

// Case status constants.
const (
	CaseStatusPending   CaseStatus = "pending"
	CaseStatusCompleted CaseStatus = "completed"
	CaseStatusFailed    CaseStatus = "failed"
)

// Case represents one suspicious-activity case raised against a customer.
type Case struct {
	CreatedAt  time.Time
	UpdatedAt  time.Time
	ID         string
	CustomerID string
	Status     CaseStatus
	Typologies []string
	RiskScore  float64
}

// CaseContext bundles everything one pipeline run operates on. It is
// created per request, owned by exactly one pipeline instance, and
// discarded after the run.
type CaseContext struct {
	Case         Case
	Customer     Customer
	Transactions []Transaction
}
