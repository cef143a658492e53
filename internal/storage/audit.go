package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/luminasar/luminasar/internal/model"
)

// AppendAudit durably appends one record to a narrative's audit trail.
// The write is atomic: a partially written record is never observable.
// Appends within one trail are serialized through a per-narrative mutex,
// and the UNIQUE(narrative_id, position) constraint rejects any write
// that would break the total order.
func (s *SQLiteStorage) AppendAudit(ctx context.Context, record model.AuditRecord) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateAuditRecord(record); err != nil {
		return err
	}

	dataSources, err := json.Marshal(record.DataSources)
	if err != nil {
		return fmt.Errorf("failed to encode data sources: %w", err)
	}
	reasoning, err := json.Marshal(record.Reasoning)
	if err != nil {
		return fmt.Errorf("failed to encode reasoning: %w", err)
	}

	lock := s.narrativeLock(record.NarrativeID)
	lock.Lock()
	defer lock.Unlock()

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO audit_trail (narrative_id, position, step_name, data_sources, reasoning, confidence, previous_hash, current_hash, logged_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.NarrativeID,
		record.Position,
		record.StepName,
		string(dataSources),
		string(reasoning),
		record.Confidence,
		record.PreviousHash,
		record.CurrentHash,
		record.LoggedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to append audit record: %w", err)
	}
	return nil
}

// ListAudit returns a narrative's full trail in position order. The
// stored logged_at text round-trips bit-for-bit, so chain verification
// over the returned records recomputes the original hashes.
func (s *SQLiteStorage) ListAudit(ctx context.Context, narrativeID string) ([]model.AuditRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(narrativeID, "narrativeID"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT narrative_id, position, step_name, data_sources, reasoning, confidence, previous_hash, current_hash, logged_at
		FROM audit_trail
		WHERE narrative_id = ?
		ORDER BY position`, narrativeID)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit trail: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []model.AuditRecord
	for rows.Next() {
		var (
			record      model.AuditRecord
			dataSources string
			reasoning   string
			loggedAt    string
		)
		if err := rows.Scan(
			&record.NarrativeID,
			&record.Position,
			&record.StepName,
			&dataSources,
			&reasoning,
			&record.Confidence,
			&record.PreviousHash,
			&record.CurrentHash,
			&loggedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan audit record: %w", err)
		}

		if dataSources != "" {
			if err := json.Unmarshal([]byte(dataSources), &record.DataSources); err != nil {
				return nil, fmt.Errorf("corrupt data_sources at position %d: %w", record.Position, err)
			}
		}
		if reasoning != "" {
			if err := json.Unmarshal([]byte(reasoning), &record.Reasoning); err != nil {
				return nil, fmt.Errorf("corrupt reasoning at position %d: %w", record.Position, err)
			}
		}

		logged, err := time.Parse(time.RFC3339Nano, loggedAt)
		if err != nil {
			return nil, fmt.Errorf("corrupt logged_at at position %d: %w", record.Position, err)
		}
		record.LoggedAt = logged

		records = append(records, record)
	}
	return records, rows.Err()
}
