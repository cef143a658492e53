package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/luminasar/luminasar/internal/model"
)

// SaveTemplate inserts or replaces a narrative template by name.
func (s *SQLiteStorage) SaveTemplate(ctx context.Context, template *model.Template) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if template == nil {
		return fmt.Errorf("%w: template", ErrNilRecord)
	}
	if err := validateString(template.Name, "template.Name"); err != nil {
		return err
	}
	if err := validateString(template.Content, "template.Content"); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sar_templates (name, typologies, content)
		VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			typologies = excluded.typologies,
			content = excluded.content`,
		template.Name,
		strings.Join(template.Typologies, ","),
		template.Content,
	)
	if err != nil {
		return fmt.Errorf("failed to save template: %w", err)
	}
	return nil
}

// GetTemplatesByTypologies returns up to k template bodies ranked by how
// many of the requested typology tags each template carries. Templates
// with no overlap are excluded.
func (s *SQLiteStorage) GetTemplatesByTypologies(ctx context.Context, typologies []string, k int) ([]string, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if k <= 0 || len(typologies) == 0 {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT name, COALESCE(typologies, ''), content FROM sar_templates`)
	if err != nil {
		return nil, fmt.Errorf("failed to query templates: %w", err)
	}
	defer func() { _ = rows.Close() }()

	wanted := make(map[string]bool, len(typologies))
	for _, t := range typologies {
		wanted[t] = true
	}

	type ranked struct {
		name    string
		content string
		overlap int
	}
	var candidates []ranked
	for rows.Next() {
		var name, tags, content string
		if err := rows.Scan(&name, &tags, &content); err != nil {
			return nil, fmt.Errorf("failed to scan template: %w", err)
		}

		overlap := 0
		for _, tag := range splitTypologies(tags) {
			if wanted[tag] {
				overlap++
			}
		}
		if overlap > 0 {
			candidates = append(candidates, ranked{name: name, content: content, overlap: overlap})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Stable ranking: overlap first, then name for determinism.
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].overlap != candidates[j].overlap {
			return candidates[i].overlap > candidates[j].overlap
		}
		return candidates[i].name < candidates[j].name
	})

	if len(candidates) > k {
		candidates = candidates[:k]
	}
	contents := make([]string, 0, len(candidates))
	for _, c := range candidates {
		contents = append(contents, c.content)
	}
	return contents, nil
}

// CountTemplates returns the number of stored templates.
func (s *SQLiteStorage) CountTemplates(ctx context.Context) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}

	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sar_templates`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count templates: %w", err)
	}
	return count, nil
}
