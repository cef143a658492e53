// Package pipeline sequences the SAR generation state machine:
// FETCHING -> ANALYZING -> RETRIEVING -> GENERATING -> VALIDATING ->
// SAVING -> COMPLETED, with FAILED reachable from any non-terminal
// state. Every transition appends exactly one audit record, including
// failures and cancellation, and the machine halts on first failure
// with no retries.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/luminasar/luminasar/internal/common"
	"github.com/luminasar/luminasar/internal/detector"
	"github.com/luminasar/luminasar/internal/ledger"
	"github.com/luminasar/luminasar/internal/llm"
	"github.com/luminasar/luminasar/internal/model"
	"github.com/luminasar/luminasar/internal/validator"
)

// Config holds orchestration settings. Generation is the long pole, so
// its timeout is minutes-scale; both collaborator calls are bounded.
type Config struct {
	Jurisdiction      string
	Generation        llm.Options
	RetrievalTimeout  time.Duration
	GenerationTimeout time.Duration
	TemplateTopK      int
}

// DefaultConfig returns the standard orchestration settings.
func DefaultConfig() Config {
	return Config{
		Jurisdiction:      "IN",
		Generation:        llm.DefaultOptions(),
		RetrievalTimeout:  10 * time.Second,
		GenerationTimeout: 120 * time.Second,
		TemplateTopK:      3,
	}
}

// Pipeline runs one case at a time. Distinct cases may run as
// independent concurrent instances; instances share no mutable state
// beyond the persistence collaborator.
type Pipeline struct {
	data      DataSource
	retriever Retriever
	generator Generator
	store     Store
	detector  *detector.Detector
	validator *validator.Validator
	prompts   *llm.PromptBuilder
	cfg       Config
}

// New creates a pipeline with the given collaborators and configuration.
func New(data DataSource, retriever Retriever, generator Generator, store Store, det *detector.Detector, val *validator.Validator, cfg Config) *Pipeline {
	return &Pipeline{
		data:      data,
		retriever: retriever,
		generator: generator,
		store:     store,
		detector:  det,
		validator: val,
		prompts:   llm.NewPromptBuilder(cfg.Jurisdiction),
		cfg:       cfg,
	}
}

// run carries the per-stage context for one execution: the accumulated
// stage outputs plus the separate audit accumulator. Nothing here is
// shared across runs.
type run struct {
	ledger      *ledger.Ledger
	machine     *machine
	caseCtx     model.CaseContext
	result      detector.Result
	templates   []string
	narrative   string
	narrativeID string
	caseID      string
	caseKnown   bool
	started     time.Time
}

// Run executes the full pipeline for one case and returns the generated
// narrative summary. On any failure the machine transitions to FAILED,
// a terminal audit record is appended and persisted, and the error is
// returned; an unvalidated narrative is never persisted as output.
func (p *Pipeline) Run(ctx context.Context, caseID string) (*GenerateResult, error) {
	r := &run{
		ledger:      ledger.New(),
		machine:     newMachine(),
		caseID:      caseID,
		narrativeID: uuid.NewString(),
		started:     time.Now(),
	}

	slog.Info("Starting SAR pipeline", "case_id", caseID, "narrative_id", r.narrativeID)

	stages := []struct {
		work func(context.Context, *run) error
		name State
	}{
		{name: StateFetching, work: p.fetch},
		{name: StateAnalyzing, work: p.analyze},
		{name: StateRetrieving, work: p.retrieve},
		{name: StateGenerating, work: p.generate},
		{name: StateValidating, work: p.validate},
		{name: StateSaving, work: p.save},
	}

	for _, stage := range stages {
		// Cancellation is cooperative and checked only between stages.
		if err := ctx.Err(); err != nil {
			return nil, p.cancelled(ctx, r, stage.name, err)
		}

		if err := stage.work(ctx, r); err != nil {
			return nil, p.failed(ctx, r, stage.name, err)
		}

		if err := r.machine.advance(); err != nil {
			return nil, p.failed(ctx, r, stage.name, err)
		}
	}

	duration := time.Since(r.started)
	slog.Info("SAR pipeline complete",
		"case_id", caseID,
		"narrative_id", r.narrativeID,
		"risk_score", r.result.RiskScore,
		"duration", duration)

	return &GenerateResult{
		NarrativeID:   r.narrativeID,
		NarrativeText: r.narrative,
		RiskScore:     r.result.RiskScore,
		Typologies:    r.result.Typologies,
		AuditSteps:    r.ledger.Len(),
		Duration:      duration,
	}, nil
}

func (p *Pipeline) fetch(ctx context.Context, r *run) error {
	caseCtx, err := p.data.Fetch(ctx, r.caseID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return fmt.Errorf("case %s: %w", r.caseID, err)
		}
		return fmt.Errorf("fetch failed: %w", err)
	}

	r.caseCtx = caseCtx
	r.caseKnown = true

	_, err = r.ledger.Append("fetch_data",
		map[string]any{"database": "sqlite"},
		map[string]any{
			"customer_name":     caseCtx.Customer.Name,
			"transaction_count": len(caseCtx.Transactions),
		},
		1.0)
	return err
}

func (p *Pipeline) analyze(_ context.Context, r *run) error {
	r.result = p.detector.Detect(r.caseCtx.Transactions, r.caseCtx.Customer)

	_, err := r.ledger.Append("analyze_patterns",
		map[string]any{"algorithm": "pattern_detector"},
		map[string]any{
			"typologies": r.result.Typologies,
			"risk_score": r.result.RiskScore,
		},
		0.9)
	return err
}

// retrieve degrades gracefully: a retrieval outage records a degraded
// audit entry and the pipeline proceeds with no templates.
func (p *Pipeline) retrieve(ctx context.Context, r *run) error {
	retrieveCtx, cancel := context.WithTimeout(ctx, p.cfg.RetrievalTimeout)
	defer cancel()

	templates, err := p.retriever.Retrieve(retrieveCtx, r.result.Typologies, p.cfg.TemplateTopK)
	if err != nil {
		slog.Warn("Template retrieval failed, proceeding without templates", "error", err)
		_, appendErr := r.ledger.Append("retrieve_templates",
			map[string]any{"template_store": "sqlite"},
			map[string]any{
				"degraded":        true,
				"error":           err.Error(),
				"templates_found": 0,
			},
			0.5)
		return appendErr
	}

	r.templates = templates
	_, err = r.ledger.Append("retrieve_templates",
		map[string]any{"template_store": "sqlite"},
		map[string]any{"templates_found": len(templates)},
		0.9)
	return err
}

func (p *Pipeline) generate(ctx context.Context, r *run) error {
	prompt := p.prompts.Build(r.caseCtx.Customer, r.caseCtx.Transactions, r.result, r.templates)

	generateCtx, cancel := context.WithTimeout(ctx, p.cfg.GenerationTimeout)
	defer cancel()

	narrative, err := p.generator.Generate(generateCtx, prompt, p.cfg.Generation)
	if err != nil {
		return fmt.Errorf("narrative generation failed: %w", err)
	}

	r.narrative = narrative
	_, err = r.ledger.Append("generate_narrative",
		map[string]any{"templates_used": len(r.templates)},
		map[string]any{"narrative_length": len(narrative)},
		0.85)
	return err
}

// validate enforces the fail-closed policy: a narrative that fails
// either check is never persisted as final output.
func (p *Pipeline) validate(_ context.Context, r *run) error {
	structure := p.validator.ValidateStructure(r.narrative, r.caseCtx.Customer)
	amounts := p.validator.ValidateAmounts(r.narrative, r.caseCtx.Transactions)

	passed := structure.Passed && amounts.Passed
	confidence := 0.95
	if !passed {
		confidence = 0.5
	}

	if _, err := r.ledger.Append("validate_narrative",
		map[string]any{"validator": "rule_based"},
		map[string]any{
			"valid":              passed,
			"structure_failures": structure.Failures,
			"amount_failures":    amounts.Failures,
		},
		confidence); err != nil {
		return err
	}

	if !amounts.Passed {
		return common.NewValidationError(common.ReasonHallucinationDetected, amounts.Failures)
	}
	if !structure.Passed {
		return common.NewValidationError(common.ReasonStructureInvalid, structure.Failures)
	}
	return nil
}

func (p *Pipeline) save(ctx context.Context, r *run) error {
	narrative := &model.Narrative{
		ID:                r.narrativeID,
		CaseID:            r.caseID,
		Text:              r.narrative,
		Status:            model.NarrativeStatusValidated,
		GeneratedAt:       time.Now().UTC(),
		GenerationSeconds: int(time.Since(r.started).Seconds()),
	}

	if err := p.store.SaveNarrative(ctx, narrative); err != nil {
		return fmt.Errorf("failed to save narrative: %w", err)
	}

	if _, err := r.ledger.Append("save_results",
		map[string]any{"database": "sqlite"},
		map[string]any{"narrative_id": r.narrativeID},
		1.0); err != nil {
		return err
	}

	if err := p.persistTrail(ctx, r); err != nil {
		return fmt.Errorf("failed to persist audit trail: %w", err)
	}

	if err := p.store.UpdateCaseResult(ctx, r.caseID, r.result.RiskScore, r.result.Typologies, model.CaseStatusCompleted); err != nil {
		return fmt.Errorf("failed to update case: %w", err)
	}

	return nil
}

// persistTrail writes the accumulated ledger under this run's narrative
// id. Appends within one trail are already totally ordered by position.
func (p *Pipeline) persistTrail(ctx context.Context, r *run) error {
	for _, record := range r.ledger.Records() {
		record.NarrativeID = r.narrativeID
		if err := p.store.AppendAudit(ctx, record); err != nil {
			return err
		}
	}
	return nil
}

// failed drives the machine to FAILED, appends the terminal audit
// record, and persists whatever trail exists. The original error is
// always returned; trail persistence problems are logged, not
// substituted for it.
func (p *Pipeline) failed(ctx context.Context, r *run, stage State, cause error) error {
	if err := r.machine.fail(); err != nil {
		slog.Error("Invalid failure transition", "stage", stage, "error", err)
	}

	if _, err := r.ledger.Append("pipeline_failed",
		map[string]any{"stage": string(stage)},
		map[string]any{"error": cause.Error()},
		0.0); err != nil {
		slog.Error("Failed to append failure audit record", "error", err)
	}

	p.persistFailure(ctx, r)

	slog.Error("SAR pipeline failed", "case_id", r.caseID, "stage", stage, "error", cause)
	return cause
}

// cancelled appends the terminal cancellation record before
// surfacing the context error.
func (p *Pipeline) cancelled(ctx context.Context, r *run, stage State, cause error) error {
	if err := r.machine.fail(); err != nil {
		slog.Error("Invalid cancellation transition", "stage", stage, "error", err)
	}

	if _, err := r.ledger.Append("pipeline_cancelled",
		map[string]any{"stage": string(stage)},
		map[string]any{"error": cause.Error()},
		0.0); err != nil {
		slog.Error("Failed to append cancellation audit record", "error", err)
	}

	p.persistFailure(ctx, r)

	slog.Warn("SAR pipeline cancelled", "case_id", r.caseID, "stage", stage)
	return cause
}

// persistFailure best-effort writes the trail and case status for a
// failed run. The run context may already be cancelled, so persistence
// uses a short detached context.
func (p *Pipeline) persistFailure(ctx context.Context, r *run) {
	persistCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	if err := p.persistTrail(persistCtx, r); err != nil {
		slog.Error("Failed to persist audit trail for failed run", "error", err)
	}

	if r.caseKnown {
		if err := p.store.UpdateCaseResult(persistCtx, r.caseID, r.result.RiskScore, r.result.Typologies, model.CaseStatusFailed); err != nil {
			slog.Error("Failed to mark case as failed", "error", err)
		}
	}
}
