// Package validator cross-checks generated narratives against source
// data. Both checks are pure and deterministic; the pipeline fails
// closed when either one rejects a narrative.
package validator

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/luminasar/luminasar/internal/model"
)

// currencyToken matches rupee-formatted amounts in narrative text.
var currencyToken = regexp.MustCompile(`₹\s?[\d,]+(?:\.\d+)?`)

// Config holds the validation policy. Values are configuration, not
// literals: the word minimum, materiality threshold and phrase lists are
// regulatory/business calibration.
type Config struct {
	Denylist             []string
	DomainKeywords       []string
	MinWordCount         int
	MinKeywordHits       int
	MaterialityThreshold float64
	AmountTolerance      float64
}

// DefaultConfig returns the standard SAR validation policy.
func DefaultConfig() Config {
	return Config{
		MinWordCount:         100,
		Denylist:             []string{"I cannot", "I'm sorry", "As an AI"},
		DomainKeywords:       []string{"activity", "transaction", "suspicious"},
		MinKeywordHits:       2,
		MaterialityThreshold: 1000,
		AmountTolerance:      1.0,
	}
}

// Result is the outcome of one validation check.
type Result struct {
	Failures []string
	Passed   bool
}

// Validator runs structural and factual checks on generated narratives.
type Validator struct {
	cfg Config
}

// New creates a validator with the given policy.
func New(cfg Config) *Validator {
	return &Validator{cfg: cfg}
}

// ValidateStructure checks the narrative's shape: minimum length,
// customer identification, absence of generic-assistant phrasing, and
// presence of domain vocabulary.
func (v *Validator) ValidateStructure(narrative string, customer model.Customer) Result {
	var failures []string

	wordCount := len(strings.Fields(narrative))
	if wordCount < v.cfg.MinWordCount {
		failures = append(failures,
			fmt.Sprintf("narrative too short (%d words, minimum %d)", wordCount, v.cfg.MinWordCount))
	}

	if customer.Name != "" && !strings.Contains(narrative, customer.Name) {
		failures = append(failures,
			fmt.Sprintf("customer name %q not found in narrative", customer.Name))
	}

	if customer.AccountNumber != "" && !strings.Contains(narrative, customer.AccountNumber) {
		failures = append(failures, "customer account number not referenced in narrative")
	}

	lower := strings.ToLower(narrative)
	for _, phrase := range v.cfg.Denylist {
		if strings.Contains(lower, strings.ToLower(phrase)) {
			failures = append(failures,
				fmt.Sprintf("narrative contains generic assistant phrasing: %q", phrase))
		}
	}

	hits := 0
	for _, keyword := range v.cfg.DomainKeywords {
		if strings.Contains(lower, strings.ToLower(keyword)) {
			hits++
		}
	}
	if hits < v.cfg.MinKeywordHits {
		failures = append(failures,
			fmt.Sprintf("narrative mentions only %d of the expected domain terms (minimum %d)", hits, v.cfg.MinKeywordHits))
	}

	return Result{Passed: len(failures) == 0, Failures: failures}
}

// ValidateAmounts extracts every currency-formatted amount above the
// materiality threshold and requires it to exist in the source data:
// either a transaction amount or the batch total, within tolerance. Any
// unmatched material amount is a hallucination failure carrying the
// offending value.
func (v *Validator) ValidateAmounts(narrative string, transactions []model.Transaction) Result {
	sourceAmounts := make([]float64, 0, len(transactions)+1)
	var total float64
	for _, txn := range transactions {
		sourceAmounts = append(sourceAmounts, round2(txn.Amount))
		total += txn.Amount
	}
	sourceAmounts = append(sourceAmounts, round2(total))

	var failures []string

	for _, token := range currencyToken.FindAllString(narrative, -1) {
		clean := strings.NewReplacer("₹", "", ",", "", " ", "").Replace(token)
		amount, err := strconv.ParseFloat(clean, 64)
		if err != nil {
			continue
		}
		if amount <= v.cfg.MaterialityThreshold {
			continue
		}

		matched := false
		for _, src := range sourceAmounts {
			if math.Abs(amount-src) < v.cfg.AmountTolerance {
				matched = true
				break
			}
		}
		if !matched {
			failures = append(failures,
				fmt.Sprintf("amount %s not found in source data", token))
		}
	}

	return Result{Passed: len(failures) == 0, Failures: failures}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
