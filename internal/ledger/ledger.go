// Package ledger implements the append-only, tamper-evident audit chain.
// Each record's hash covers the previous record's hash, so any
// retroactive edit or reorder is detectable by recomputation.
package ledger

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/gowebpki/jcs"

	"github.com/luminasar/luminasar/internal/common"
	"github.com/luminasar/luminasar/internal/model"
)

// GenesisHash anchors the first record of every chain.
var GenesisHash = strings.Repeat("0", 64)

// Clock returns the current time; injectable for deterministic tests.
type Clock func() time.Time

// Ledger accumulates the hash-chained audit records for one pipeline
// run. Appends are serialized: within a single case's chain there is
// exactly one writer to the tail.
type Ledger struct {
	clock   Clock
	records []model.AuditRecord
	mu      sync.Mutex
}

// New creates an empty ledger using the wall clock.
func New() *Ledger {
	return NewWithClock(time.Now)
}

// NewWithClock creates an empty ledger with an injected clock.
func NewWithClock(clock Clock) *Ledger {
	return &Ledger{clock: clock}
}

// Append computes the canonical hash of the new record, links it to the
// previous record, and adds it to the chain.
func (l *Ledger) Append(stepName string, dataSources, reasoning map[string]any, confidence float64) (model.AuditRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	prevHash := GenesisHash
	if len(l.records) > 0 {
		prevHash = l.records[len(l.records)-1].CurrentHash
	}

	record := model.AuditRecord{
		StepName:     stepName,
		DataSources:  dataSources,
		Reasoning:    reasoning,
		Confidence:   confidence,
		PreviousHash: prevHash,
		LoggedAt:     l.clock().UTC(),
		Position:     len(l.records),
	}

	hash, err := ComputeHash(record)
	if err != nil {
		return model.AuditRecord{}, fmt.Errorf("failed to hash audit record: %w", err)
	}
	record.CurrentHash = hash

	l.records = append(l.records, record)

	slog.Debug("Audit step recorded",
		"step", stepName,
		"position", record.Position,
		"hash", hash[:16])

	return record, nil
}

// Records returns a copy of the chain in append order.
func (l *Ledger) Records() []model.AuditRecord {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]model.AuditRecord, len(l.records))
	copy(out, l.records)
	return out
}

// Len returns the number of appended records.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.records)
}

// hashPayload is the canonical preimage of a record. The field set and
// names are fixed for interoperability: step_name, data_sources,
// reasoning, confidence, previous_hash, logged_at. The current hash is
// never part of its own preimage.
type hashPayload struct {
	StepName     string         `json:"step_name"`
	DataSources  map[string]any `json:"data_sources"`
	Reasoning    map[string]any `json:"reasoning"`
	Confidence   float64        `json:"confidence"`
	PreviousHash string         `json:"previous_hash"`
	LoggedAt     string         `json:"logged_at"`
}

// ComputeHash derives the SHA-256 hash of a record's canonical (JCS)
// serialization. Identical record content always yields an identical
// hash: keys are sorted and numbers formatted stably by the
// canonicalizer, and the timestamp is fixed to UTC RFC 3339.
func ComputeHash(record model.AuditRecord) (string, error) {
	payload := hashPayload{
		StepName:     record.StepName,
		DataSources:  record.DataSources,
		Reasoning:    record.Reasoning,
		Confidence:   record.Confidence,
		PreviousHash: record.PreviousHash,
		LoggedAt:     record.LoggedAt.UTC().Format(time.RFC3339Nano),
	}
	if payload.DataSources == nil {
		payload.DataSources = map[string]any{}
	}
	if payload.Reasoning == nil {
		payload.Reasoning = map[string]any{}
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to serialize audit record: %w", err)
	}

	canonical, err := jcs.Transform(raw)
	if err != nil {
		return "", fmt.Errorf("failed to canonicalize audit record: %w", err)
	}

	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}

func shortHash(h string) string {
	if len(h) > 16 {
		return h[:16]
	}
	return h
}

// Verify recomputes every hash in an ordered chain and checks link
// continuity. It returns nil for an intact chain (including the empty
// chain) and a ChainIntegrityError naming the first failing index
// otherwise.
func Verify(records []model.AuditRecord) error {
	for i, record := range records {
		if i == 0 {
			if record.PreviousHash != GenesisHash {
				return &common.ChainIntegrityError{
					Index:  0,
					Reason: "first record does not link to the genesis hash",
				}
			}
		} else if record.PreviousHash != records[i-1].CurrentHash {
			return &common.ChainIntegrityError{
				Index:  i,
				Reason: "previous hash does not match prior record",
			}
		}

		computed, err := ComputeHash(record)
		if err != nil {
			return &common.ChainIntegrityError{
				Index:  i,
				Reason: fmt.Sprintf("hash recomputation failed: %v", err),
			}
		}
		if computed != record.CurrentHash {
			return &common.ChainIntegrityError{
				Index:  i,
				Reason: fmt.Sprintf("stored hash %q does not match recomputation", shortHash(record.CurrentHash)),
			}
		}
	}

	return nil
}
