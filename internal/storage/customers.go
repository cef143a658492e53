package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/luminasar/luminasar/internal/common"
	"github.com/luminasar/luminasar/internal/model"
)

// SaveCustomer inserts or updates a customer record.
func (s *SQLiteStorage) SaveCustomer(ctx context.Context, customer *model.Customer) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if customer == nil {
		return fmt.Errorf("%w: customer", ErrNilRecord)
	}
	if err := validateString(customer.ID, "customer.ID"); err != nil {
		return err
	}
	if err := validateString(customer.AccountNumber, "customer.AccountNumber"); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO customers (id, name, account_number, occupation, stated_income, customer_since)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			account_number = excluded.account_number,
			occupation = excluded.occupation,
			stated_income = excluded.stated_income,
			customer_since = excluded.customer_since`,
		customer.ID,
		customer.Name,
		customer.AccountNumber,
		customer.Occupation,
		customer.StatedIncome,
		customer.CustomerSince.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save customer: %w", err)
	}
	return nil
}

// GetCustomer loads one customer by id.
func (s *SQLiteStorage) GetCustomer(ctx context.Context, customerID string) (*model.Customer, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(customerID, "customerID"); err != nil {
		return nil, err
	}

	var (
		customer model.Customer
		since    string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, account_number, occupation, stated_income, customer_since
		FROM customers WHERE id = ?`, customerID).Scan(
		&customer.ID,
		&customer.Name,
		&customer.AccountNumber,
		&customer.Occupation,
		&customer.StatedIncome,
		&since,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("customer %s: %w", customerID, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load customer: %w", err)
	}

	customer.CustomerSince = parseStoredTime(since)
	return &customer, nil
}

// ListCustomers returns all customers ordered by name.
func (s *SQLiteStorage) ListCustomers(ctx context.Context) ([]model.Customer, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, account_number, occupation, stated_income, customer_since
		FROM customers ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list customers: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var customers []model.Customer
	for rows.Next() {
		var (
			customer model.Customer
			since    string
		)
		if err := rows.Scan(
			&customer.ID,
			&customer.Name,
			&customer.AccountNumber,
			&customer.Occupation,
			&customer.StatedIncome,
			&since,
		); err != nil {
			return nil, fmt.Errorf("failed to scan customer: %w", err)
		}
		customer.CustomerSince = parseStoredTime(since)
		customers = append(customers, customer)
	}
	return customers, rows.Err()
}

// parseStoredTime handles both RFC 3339 and the sqlite DATETIME default
// format; unparseable values come back zero rather than failing a read.
func parseStoredTime(value string) time.Time {
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	return time.Time{}
}
