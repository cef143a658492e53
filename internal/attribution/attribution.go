// Package attribution maps each sentence of a generated narrative back
// to the source records that justify it.
package attribution

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/luminasar/luminasar/internal/model"
)

// shortIDLen is the truncated transaction-id form narratives commonly
// quote (the first 8 characters of a UUID).
const shortIDLen = 8

// amountTolerance absorbs rounding in quoted amounts.
const amountTolerance = 1.0

// Sentence boundaries: a run of terminal punctuation immediately
// followed by whitespace (or end of text). The exact rule is load
// bearing: attribution indices must be reproducible.
var sentenceBoundary = regexp.MustCompile(`[.!?]+(?:\s+|$)`)

// numericToken matches currency-looking numbers, with or without the
// rupee sign and digit grouping.
var numericToken = regexp.MustCompile(`₹?\s?([\d,]+(?:\.\d+)?)`)

// Sentence is the attribution of one narrative sentence to its sources.
type Sentence struct {
	Text           string    `json:"text"`
	TransactionIDs []string  `json:"transaction_ids"`
	Amounts        []float64 `json:"amounts"`
	Accounts       []string  `json:"accounts"`
	Position       int       `json:"position"`
	HasReference   bool      `json:"has_data_reference"`
}

// SplitSentences segments a narrative deterministically: split
// immediately after '.', '!' or '?' followed by whitespace, trim each
// fragment, discard empties.
func SplitSentences(text string) []string {
	parts := sentenceBoundary.Split(text, -1)
	sentences := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			sentences = append(sentences, p)
		}
	}
	return sentences
}

// Attribute scans every sentence for verbatim transaction ids (full or
// short form), amounts matching a source transaction, and account
// numbers. It is pure: identical inputs always produce identical output,
// indexed by sentence position.
func Attribute(narrative string, transactions []model.Transaction, customer model.Customer) []Sentence {
	sentences := SplitSentences(narrative)
	out := make([]Sentence, 0, len(sentences))

	for i, text := range sentences {
		entry := Sentence{
			Text:           text,
			Position:       i,
			TransactionIDs: []string{},
			Amounts:        []float64{},
			Accounts:       []string{},
		}

		quoted := extractAmounts(text)

		for _, txn := range transactions {
			if mentionsID(text, txn.ID) {
				entry.TransactionIDs = append(entry.TransactionIDs, txn.ID)
			}

			for _, amount := range quoted {
				if matchesAmount(amount, txn.Amount) {
					entry.Amounts = append(entry.Amounts, txn.Amount)
					break
				}
			}

			if txn.SourceAccount != "" && strings.Contains(text, txn.SourceAccount) {
				entry.Accounts = appendUnique(entry.Accounts, txn.SourceAccount)
			}
			if txn.DestinationAccount != "" && strings.Contains(text, txn.DestinationAccount) {
				entry.Accounts = appendUnique(entry.Accounts, txn.DestinationAccount)
			}
		}

		if customer.AccountNumber != "" && strings.Contains(text, customer.AccountNumber) {
			entry.Accounts = appendUnique(entry.Accounts, customer.AccountNumber)
		}

		entry.HasReference = len(entry.TransactionIDs) > 0 ||
			len(entry.Amounts) > 0 ||
			len(entry.Accounts) > 0

		out = append(out, entry)
	}

	return out
}

func mentionsID(sentence, id string) bool {
	if id == "" {
		return false
	}
	if strings.Contains(sentence, id) {
		return true
	}
	if len(id) >= shortIDLen {
		return strings.Contains(sentence, id[:shortIDLen])
	}
	return false
}

func matchesAmount(quoted, actual float64) bool {
	diff := quoted - actual
	if diff < 0 {
		diff = -diff
	}
	return diff < amountTolerance
}

// extractAmounts pulls numeric tokens from a sentence. Tokens shorter
// than four digits are kept too; the caller decides materiality.
func extractAmounts(sentence string) []float64 {
	matches := numericToken.FindAllStringSubmatch(sentence, -1)
	amounts := make([]float64, 0, len(matches))
	for _, m := range matches {
		clean := strings.ReplaceAll(m[1], ",", "")
		v, err := strconv.ParseFloat(clean, 64)
		if err != nil {
			continue
		}
		amounts = append(amounts, v)
	}
	return amounts
}

func appendUnique(list []string, value string) []string {
	for _, v := range list {
		if v == value {
			return list
		}
	}
	return append(list, value)
}
