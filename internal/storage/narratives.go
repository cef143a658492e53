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

// SaveNarrative persists a generated narrative. Narrative text is
// immutable once written; callers update only the status afterwards.
func (s *SQLiteStorage) SaveNarrative(ctx context.Context, narrative *model.Narrative) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if narrative == nil {
		return fmt.Errorf("%w: narrative", ErrNilRecord)
	}
	if err := validateString(narrative.ID, "narrative.ID"); err != nil {
		return err
	}
	if err := validateString(narrative.CaseID, "narrative.CaseID"); err != nil {
		return err
	}
	if narrative.Text == "" {
		return common.ErrEmptyNarrative
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sar_narratives (id, case_id, narrative_text, status, generated_at, generation_seconds)
		VALUES (?, ?, ?, ?, ?, ?)`,
		narrative.ID,
		narrative.CaseID,
		narrative.Text,
		string(narrative.Status),
		narrative.GeneratedAt.UTC().Format(time.RFC3339),
		narrative.GenerationSeconds,
	)
	if err != nil {
		return fmt.Errorf("failed to save narrative: %w", err)
	}
	return nil
}

// GetNarrative loads one narrative by id.
func (s *SQLiteStorage) GetNarrative(ctx context.Context, narrativeID string) (*model.Narrative, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(narrativeID, "narrativeID"); err != nil {
		return nil, err
	}
	return s.scanNarrative(s.db.QueryRowContext(ctx, `
		SELECT id, case_id, narrative_text, status, generated_at, generation_seconds
		FROM sar_narratives WHERE id = ?`, narrativeID), narrativeID)
}

// GetNarrativeByCase returns the most recent narrative for a case, if any.
func (s *SQLiteStorage) GetNarrativeByCase(ctx context.Context, caseID string) (*model.Narrative, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(caseID, "caseID"); err != nil {
		return nil, err
	}
	return s.scanNarrative(s.db.QueryRowContext(ctx, `
		SELECT id, case_id, narrative_text, status, generated_at, generation_seconds
		FROM sar_narratives
		WHERE case_id = ?
		ORDER BY generated_at DESC
		LIMIT 1`, caseID), caseID)
}

func (s *SQLiteStorage) scanNarrative(row *sql.Row, key string) (*model.Narrative, error) {
	var (
		narrative model.Narrative
		status    string
		generated string
	)
	err := row.Scan(
		&narrative.ID,
		&narrative.CaseID,
		&narrative.Text,
		&status,
		&generated,
		&narrative.GenerationSeconds,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("narrative %s: %w", key, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load narrative: %w", err)
	}

	narrative.Status = model.NarrativeStatus(status)
	narrative.GeneratedAt = parseStoredTime(generated)
	return &narrative, nil
}

// UpdateNarrativeStatus moves a narrative through its lifecycle. Only
// the status column changes; the text is immutable.
func (s *SQLiteStorage) UpdateNarrativeStatus(ctx context.Context, narrativeID string, status model.NarrativeStatus) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(narrativeID, "narrativeID"); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE sar_narratives SET status = ? WHERE id = ?`,
		string(status), narrativeID)
	if err != nil {
		return fmt.Errorf("failed to update narrative status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check narrative update: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("narrative %s: %w", narrativeID, common.ErrNotFound)
	}
	return nil
}
