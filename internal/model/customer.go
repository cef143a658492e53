package model

import "time"

// Customer holds the KYC profile a case is generated against.
// Immutable within a single pipeline run.
type Customer struct {
	CustomerSince time.Time
	ID            string
	Name          string
	AccountNumber string
	Occupation    string
	StatedIncome  float64
}
