package pipeline

import (
	"context"
	"time"

	"github.com/luminasar/luminasar/internal/attribution"
	"github.com/luminasar/luminasar/internal/llm"
	"github.com/luminasar/luminasar/internal/model"
)

// DataSource supplies the case under analysis. Fetch fails with
// common.ErrNotFound when the case is unknown.
type DataSource interface {
	Fetch(ctx context.Context, caseID string) (model.CaseContext, error)
}

// Retriever is the retrieval collaborator: it returns up to k narrative
// templates relevant to the detected typologies. Retrieval failure is
// non-fatal; the pipeline proceeds with an empty template list.
type Retriever interface {
	Retrieve(ctx context.Context, typologies []string, k int) ([]string, error)
}

// Generator is the generation collaborator. Failure (timeout,
// unavailable) is fatal and drives the pipeline to FAILED.
type Generator interface {
	Generate(ctx context.Context, prompt string, opts llm.Options) (string, error)
}

// Store is the persistence collaborator. Both writes must be atomic: no
// partially written audit record is ever observable.
type Store interface {
	SaveNarrative(ctx context.Context, narrative *model.Narrative) error
	AppendAudit(ctx context.Context, record model.AuditRecord) error
	UpdateCaseResult(ctx context.Context, caseID string, riskScore float64, typologies []string, status model.CaseStatus) error
	GetNarrative(ctx context.Context, narrativeID string) (*model.Narrative, error)
	ListAudit(ctx context.Context, narrativeID string) ([]model.AuditRecord, error)
}

// GenerateResult is the outcome of one successful pipeline run.
type GenerateResult struct {
	NarrativeID   string
	NarrativeText string
	Typologies    []string
	RiskScore     float64
	AuditSteps    int
	Duration      time.Duration
}

// AuditReport is the verification view of one narrative's trail.
type AuditReport struct {
	IntegrityError string
	Steps          []model.AuditRecord
	Attribution    []attribution.Sentence
	ChainValid     bool
}
