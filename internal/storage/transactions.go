package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/luminasar/luminasar/internal/model"
)

// SaveTransactions stores a batch of transactions, skipping any whose
// content hash already exists. Returns the number actually inserted.
func (s *SQLiteStorage) SaveTransactions(ctx context.Context, transactions []model.Transaction) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	if err := validateTransactions(transactions); err != nil {
		return 0, err
	}
	if len(transactions) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO transactions (id, hash, customer_id, amount, date, source_account, destination_account, transaction_type)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(hash) DO NOTHING`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	inserted := 0
	for _, txn := range transactions {
		hash := txn.Hash
		if hash == "" {
			hash = txn.GenerateHash()
		}

		result, err := stmt.ExecContext(ctx,
			txn.ID,
			hash,
			txn.CustomerID,
			txn.Amount,
			txn.Date.UTC().Format(time.RFC3339),
			txn.SourceAccount,
			txn.DestinationAccount,
			txn.Type,
		)
		if err != nil {
			return 0, fmt.Errorf("failed to insert transaction %s: %w", txn.ID, err)
		}
		if n, err := result.RowsAffected(); err == nil && n > 0 {
			inserted++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transactions: %w", err)
	}

	if skipped := len(transactions) - inserted; skipped > 0 {
		slog.Debug("Skipped duplicate transactions", "skipped", skipped, "inserted", inserted)
	}
	return inserted, nil
}

// GetTransactionsByCustomer returns a customer's transactions in date order.
func (s *SQLiteStorage) GetTransactionsByCustomer(ctx context.Context, customerID string) ([]model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(customerID, "customerID"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, hash, customer_id, amount, date, source_account, destination_account, transaction_type
		FROM transactions
		WHERE customer_id = ?
		ORDER BY date`, customerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var transactions []model.Transaction
	for rows.Next() {
		var (
			txn  model.Transaction
			date string
		)
		if err := rows.Scan(
			&txn.ID,
			&txn.Hash,
			&txn.CustomerID,
			&txn.Amount,
			&date,
			&txn.SourceAccount,
			&txn.DestinationAccount,
			&txn.Type,
		); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txn.Date = parseStoredTime(date)
		transactions = append(transactions, txn)
	}
	return transactions, rows.Err()
}
