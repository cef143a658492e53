// Package retrieval selects regulatory narrative templates relevant to a
// case's detected typologies. Retrieval is best-effort by design: the
// generation pipeline proceeds without templates when the store is empty
// or unavailable.
package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/luminasar/luminasar/internal/common"
	"github.com/luminasar/luminasar/internal/model"
)

// TemplateStore is the persistence surface retrieval reads from.
type TemplateStore interface {
	GetTemplatesByTypologies(ctx context.Context, typologies []string, k int) ([]string, error)
	SaveTemplate(ctx context.Context, template *model.Template) error
	CountTemplates(ctx context.Context) (int, error)
}

// StoreRetriever retrieves templates from the template store by typology
// tag overlap.
type StoreRetriever struct {
	store TemplateStore
}

// NewStoreRetriever creates a retriever backed by the given store.
func NewStoreRetriever(store TemplateStore) *StoreRetriever {
	return &StoreRetriever{store: store}
}

// Retrieve returns up to k template bodies for the given typologies.
// When no stored template overlaps, it falls back to the built-in
// general template so generation always has at least one exemplar.
// Transient store errors get a short bounded retry here; the pipeline
// itself never retries a stage.
func (r *StoreRetriever) Retrieve(ctx context.Context, typologies []string, k int) ([]string, error) {
	var templates []string
	err := common.WithRetry(ctx, func() error {
		var lookupErr error
		templates, lookupErr = r.store.GetTemplatesByTypologies(ctx, typologies, k)
		return lookupErr
	}, common.RetryOptions{
		MaxAttempts:  2,
		InitialDelay: 50 * time.Millisecond,
	})
	if err != nil {
		return nil, fmt.Errorf("template lookup failed: %w", err)
	}

	if len(templates) == 0 {
		slog.Debug("No matching templates, using general fallback", "typologies", typologies)
		return []string{generalTemplate}, nil
	}
	return templates, nil
}

// LoadDirectory ingests every *.txt file in dir as a template. The file
// name (minus extension) becomes the template name, and any typology
// tags are read from a leading "tags:" line.
func LoadDirectory(ctx context.Context, store TemplateStore, dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("failed to read template directory: %w", err)
	}

	loaded := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".txt") {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return loaded, fmt.Errorf("failed to read template %s: %w", entry.Name(), err)
		}

		name := strings.TrimSuffix(entry.Name(), ".txt")
		tags, content := parseTemplateFile(string(data))
		if content == "" {
			slog.Warn("Skipping empty template file", "file", entry.Name())
			continue
		}

		if err := store.SaveTemplate(ctx, &model.Template{
			Name:       name,
			Typologies: tags,
			Content:    content,
		}); err != nil {
			return loaded, fmt.Errorf("failed to store template %s: %w", name, err)
		}
		loaded++
	}
	return loaded, nil
}

// parseTemplateFile splits an optional leading "tags: a, b" line from
// the template body.
func parseTemplateFile(raw string) ([]string, string) {
	raw = strings.TrimSpace(raw)
	lines := strings.SplitN(raw, "\n", 2)

	first := strings.TrimSpace(lines[0])
	if tagged, ok := strings.CutPrefix(first, "tags:"); ok {
		var tags []string
		for _, tag := range strings.Split(tagged, ",") {
			if t := strings.TrimSpace(tag); t != "" {
				tags = append(tags, t)
			}
		}
		body := ""
		if len(lines) > 1 {
			body = strings.TrimSpace(lines[1])
		}
		return tags, body
	}
	return nil, raw
}

const generalTemplate = `The institution is filing this report to describe suspicious activity ` +
	`identified during routine transaction monitoring. Between the review period start and end dates, ` +
	`the subject conducted transactions inconsistent with the expected account profile. ` +
	`The activity included transfers whose volume, frequency, and counterparty distribution lacked ` +
	`apparent economic or lawful purpose. The institution reviewed account opening documentation, ` +
	`historical activity, and available public records, and was unable to establish a legitimate ` +
	`explanation for the observed pattern. The account remains under enhanced monitoring.`
