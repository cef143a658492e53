package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/luminasar/luminasar/internal/attribution"
	"github.com/luminasar/luminasar/internal/common"
	"github.com/luminasar/luminasar/internal/ledger"
)

// Audit loads a narrative's persisted trail, re-verifies the hash chain
// from stored fields, and computes sentence-level attribution against
// the source records. Chain verification failure is reported in the
// result, not as an error: the caller must see that the trail exists
// but cannot be trusted.
func (p *Pipeline) Audit(ctx context.Context, narrativeID string) (*AuditReport, error) {
	narrative, err := p.store.GetNarrative(ctx, narrativeID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, fmt.Errorf("narrative %s: %w", narrativeID, err)
		}
		return nil, fmt.Errorf("failed to load narrative: %w", err)
	}

	records, err := p.store.ListAudit(ctx, narrativeID)
	if err != nil {
		return nil, fmt.Errorf("failed to load audit trail: %w", err)
	}

	report := &AuditReport{
		Steps:      records,
		ChainValid: true,
	}

	if verifyErr := ledger.Verify(records); verifyErr != nil {
		report.ChainValid = false
		report.IntegrityError = verifyErr.Error()
		slog.Error("Audit chain verification failed",
			"narrative_id", narrativeID,
			"error", verifyErr)
	}

	caseCtx, err := p.data.Fetch(ctx, narrative.CaseID)
	if err != nil {
		// The trail still stands on its own; attribution just needs the
		// source records.
		slog.Warn("Source data unavailable for attribution",
			"narrative_id", narrativeID,
			"case_id", narrative.CaseID,
			"error", err)
		return report, nil
	}

	report.Attribution = attribution.Attribute(narrative.Text, caseCtx.Transactions, caseCtx.Customer)
	return report, nil
}
