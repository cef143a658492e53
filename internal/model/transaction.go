package model

import (
	"crypto/sha256"
	"fmt"
	"time"
)

// Transaction represents a single financial transaction belonging to a case.
// Transactions are immutable once fetched into a pipeline run.
type Transaction struct {
	Date               time.Time
	ID                 string
	CustomerID         string
	SourceAccount      string
	DestinationAccount string
	Type               string // e.g. NEFT, IMPS, RTGS, CASH_DEPOSIT, UPI
	Hash               string
	Amount             float64
}

// GenerateHash creates a unique hash for duplicate detection on import.
func (t *Transaction) GenerateHash() string {
	data := fmt.Sprintf("%s:%.2f:%s:%s",
		t.Date.Format("2006-01-02"),
		t.Amount,
		t.SourceAccount,
		t.DestinationAccount)
	hash := sha256.Sum256([]byte(data))
	return fmt.Sprintf("%x", hash)
}
