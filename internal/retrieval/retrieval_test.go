package retrieval

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luminasar/luminasar/internal/model"
)

type mockTemplateStore struct {
	templates []string
	saved     []*model.Template
	err       error
	calls     int
}

func (m *mockTemplateStore) GetTemplatesByTypologies(_ context.Context, _ []string, _ int) ([]string, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.templates, nil
}

func (m *mockTemplateStore) SaveTemplate(_ context.Context, template *model.Template) error {
	m.saved = append(m.saved, template)
	return nil
}

func (m *mockTemplateStore) CountTemplates(_ context.Context) (int, error) {
	return len(m.saved), nil
}

func TestRetrieveReturnsStoredTemplates(t *testing.T) {
	store := &mockTemplateStore{templates: []string{"body one", "body two"}}
	r := NewStoreRetriever(store)

	templates, err := r.Retrieve(context.Background(), []string{"structuring"}, 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"body one", "body two"}, templates)
}

func TestRetrieveFallsBackToGeneralTemplate(t *testing.T) {
	store := &mockTemplateStore{}
	r := NewStoreRetriever(store)

	templates, err := r.Retrieve(context.Background(), []string{"round_tripping"}, 3)
	require.NoError(t, err)
	require.Len(t, templates, 1)
	assert.Contains(t, templates[0], "transaction monitoring")
}

func TestRetrieveRetriesTransientFailures(t *testing.T) {
	store := &mockTemplateStore{err: errors.New("database is locked")}
	r := NewStoreRetriever(store)

	_, err := r.Retrieve(context.Background(), []string{"structuring"}, 3)
	require.Error(t, err)
	assert.Equal(t, 2, store.calls)
}

func TestLoadDirectory(t *testing.T) {
	dir := t.TempDir()

	tagged := "tags: structuring, layering\nThe subject conducted rapid transfers below the reporting threshold."
	require.NoError(t, os.WriteFile(filepath.Join(dir, "structuring_basic.txt"), []byte(tagged), 0600))

	untagged := "A plain template body with no tag line."
	require.NoError(t, os.WriteFile(filepath.Join(dir, "general.txt"), []byte(untagged), 0600))

	// Non-txt files and empty templates are skipped.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.md"), []byte("ignored"), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "empty.txt"), []byte("tags: structuring\n"), 0600))

	store := &mockTemplateStore{}
	loaded, err := LoadDirectory(context.Background(), store, dir)
	require.NoError(t, err)
	assert.Equal(t, 2, loaded)

	byName := map[string]*model.Template{}
	for _, tmpl := range store.saved {
		byName[tmpl.Name] = tmpl
	}

	require.Contains(t, byName, "structuring_basic")
	assert.Equal(t, []string{"structuring", "layering"}, byName["structuring_basic"].Typologies)
	assert.Equal(t, "The subject conducted rapid transfers below the reporting threshold.", byName["structuring_basic"].Content)

	require.Contains(t, byName, "general")
	assert.Nil(t, byName["general"].Typologies)
	assert.Equal(t, untagged, byName["general"].Content)
}

func TestLoadDirectoryMissing(t *testing.T) {
	store := &mockTemplateStore{}

	_, err := LoadDirectory(context.Background(), store, "/does/not/exist")
	assert.Error(t, err)
}

func TestParseTemplateFile(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		wantTags []string
		wantBody string
	}{
		{
			name:     "tagged",
			raw:      "tags: a, b\nbody text",
			wantTags: []string{"a", "b"},
			wantBody: "body text",
		},
		{
			name:     "untagged",
			raw:      "just a body",
			wantTags: nil,
			wantBody: "just a body",
		},
		{
			name:     "tags only",
			raw:      "tags: a",
			wantTags: []string{"a"},
			wantBody: "",
		},
		{
			name:     "whitespace around tags",
			raw:      "tags:  structuring ,  smurfing \nbody",
			wantTags: []string{"structuring", "smurfing"},
			wantBody: "body",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tags, body := parseTemplateFile(tt.raw)
			assert.Equal(t, tt.wantTags, tags)
			assert.Equal(t, tt.wantBody, body)
		})
	}
}
