package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/luminasar/luminasar/internal/common"
	"github.com/luminasar/luminasar/internal/model"
)

// SaveCase inserts a new case in pending status.
func (s *SQLiteStorage) SaveCase(ctx context.Context, c *model.Case) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if c == nil {
		return fmt.Errorf("%w: case", ErrNilRecord)
	}
	if err := validateString(c.ID, "case.ID"); err != nil {
		return err
	}
	if err := validateString(c.CustomerID, "case.CustomerID"); err != nil {
		return err
	}

	status := c.Status
	if status == "" {
		status = model.CaseStatusPending
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sar_cases (id, customer_id, status, risk_score, typologies)
		VALUES (?, ?, ?, ?, ?)`,
		c.ID,
		c.CustomerID,
		string(status),
		c.RiskScore,
		strings.Join(c.Typologies, ","),
	)
	if err != nil {
		return fmt.Errorf("failed to save case: %w", err)
	}
	return nil
}

// GetCase loads one case by id.
func (s *SQLiteStorage) GetCase(ctx context.Context, caseID string) (*model.Case, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(caseID, "caseID"); err != nil {
		return nil, err
	}

	var (
		c          model.Case
		status     string
		typologies string
		created    string
		updated    string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, customer_id, status, COALESCE(risk_score, 0), COALESCE(typologies, ''), created_at, updated_at
		FROM sar_cases WHERE id = ?`, caseID).Scan(
		&c.ID,
		&c.CustomerID,
		&status,
		&c.RiskScore,
		&typologies,
		&created,
		&updated,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("case %s: %w", caseID, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load case: %w", err)
	}

	c.Status = model.CaseStatus(status)
	c.Typologies = splitTypologies(typologies)
	c.CreatedAt = parseStoredTime(created)
	c.UpdatedAt = parseStoredTime(updated)
	return &c, nil
}

// ListCases returns all cases, most recently created first.
func (s *SQLiteStorage) ListCases(ctx context.Context) ([]model.Case, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, customer_id, status, COALESCE(risk_score, 0), COALESCE(typologies, ''), created_at, updated_at
		FROM sar_cases ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list cases: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var cases []model.Case
	for rows.Next() {
		var (
			c          model.Case
			status     string
			typologies string
			created    string
			updated    string
		)
		if err := rows.Scan(&c.ID, &c.CustomerID, &status, &c.RiskScore, &typologies, &created, &updated); err != nil {
			return nil, fmt.Errorf("failed to scan case: %w", err)
		}
		c.Status = model.CaseStatus(status)
		c.Typologies = splitTypologies(typologies)
		c.CreatedAt = parseStoredTime(created)
		c.UpdatedAt = parseStoredTime(updated)
		cases = append(cases, c)
	}
	return cases, rows.Err()
}

// UpdateCaseResult records the analysis outcome and terminal status of a
// pipeline run against its case.
func (s *SQLiteStorage) UpdateCaseResult(ctx context.Context, caseID string, riskScore float64, typologies []string, status model.CaseStatus) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(caseID, "caseID"); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE sar_cases
		SET status = ?, risk_score = ?, typologies = ?, updated_at = ?
		WHERE id = ?`,
		string(status),
		riskScore,
		strings.Join(typologies, ","),
		time.Now().UTC().Format(time.RFC3339),
		caseID,
	)
	if err != nil {
		return fmt.Errorf("failed to update case: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check case update: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("case %s: %w", caseID, common.ErrNotFound)
	}
	return nil
}

// Fetch assembles the full working context for one case: the case row,
// its customer, and the customer's transactions. A case referencing a
// missing customer surfaces as not found.
func (s *SQLiteStorage) Fetch(ctx context.Context, caseID string) (model.CaseContext, error) {
	c, err := s.GetCase(ctx, caseID)
	if err != nil {
		return model.CaseContext{}, err
	}

	customer, err := s.GetCustomer(ctx, c.CustomerID)
	if err != nil {
		return model.CaseContext{}, err
	}

	transactions, err := s.GetTransactionsByCustomer(ctx, c.CustomerID)
	if err != nil {
		return model.CaseContext{}, err
	}

	return model.CaseContext{
		Case:         *c,
		Customer:     *customer,
		Transactions: transactions,
	}, nil
}

func splitTypologies(value string) []string {
	if value == "" {
		return nil
	}
	return strings.Split(value, ",")
}
