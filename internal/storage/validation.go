package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/luminasar/luminasar/internal/model"
)

// Validation errors for storage inputs.
var (
	ErrNilContext      = errors.New("context cannot be nil")
	ErrEmptyString     = errors.New("string parameter cannot be empty")
	ErrNilRecord       = errors.New("record cannot be nil")
	ErrInvalidAmount   = errors.New("transaction amount must be positive")
	ErrMissingCustomer = errors.New("customer id is required")
)

func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

func validateString(value, name string) error {
	if value == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, name)
	}
	return nil
}

func validateTransactions(transactions []model.Transaction) error {
	for i, txn := range transactions {
		if txn.ID == "" {
			return fmt.Errorf("%w: transactions[%d].ID", ErrEmptyString, i)
		}
		if txn.Amount <= 0 {
			return fmt.Errorf("%w: transactions[%d] has amount %.2f", ErrInvalidAmount, i, txn.Amount)
		}
	}
	return nil
}

func validateAuditRecord(record model.AuditRecord) error {
	if record.NarrativeID == "" {
		return fmt.Errorf("%w: record.NarrativeID", ErrEmptyString)
	}
	if record.StepName == "" {
		return fmt.Errorf("%w: record.StepName", ErrEmptyString)
	}
	if record.CurrentHash == "" {
		return fmt.Errorf("%w: record.CurrentHash", ErrEmptyString)
	}
	return nil
}
