package llm

import (
	"fmt"
	"strings"

	"github.com/luminasar/luminasar/internal/detector"
	"github.com/luminasar/luminasar/internal/model"
)

// maxPromptTransactions bounds the transaction listing so the prompt
// stays inside the generation context window.
const maxPromptTransactions = 25

// PromptBuilder assembles grounded SAR generation prompts: every fact
// the model may state is spelled out in the prompt, and the instructions
// forbid inventing anything beyond it.
type PromptBuilder struct {
	jurisdiction Jurisdiction
}

// NewPromptBuilder creates a prompt builder for a jurisdiction code.
func NewPromptBuilder(jurisdictionCode string) *PromptBuilder {
	return &PromptBuilder{jurisdiction: JurisdictionFor(jurisdictionCode)}
}

// Build constructs the generation prompt from the case data, the
// detection result, and any retrieved templates.
func (b *PromptBuilder) Build(customer model.Customer, transactions []model.Transaction, result detector.Result, templates []string) string {
	j := b.jurisdiction
	var sb strings.Builder

	sb.WriteString("You are a senior financial crimes analyst drafting a ")
	sb.WriteString(j.ReportingForm)
	sb.WriteString(" for the ")
	sb.WriteString(j.RegulatoryBody)
	sb.WriteString(" under the ")
	sb.WriteString(j.LegalFramework)
	sb.WriteString(".\n\n")

	sb.WriteString("SUBJECT PROFILE\n")
	fmt.Fprintf(&sb, "Name: %s\n", customer.Name)
	fmt.Fprintf(&sb, "Account number: %s\n", customer.AccountNumber)
	if customer.Occupation != "" {
		fmt.Fprintf(&sb, "Occupation: %s\n", customer.Occupation)
	}
	if customer.StatedIncome > 0 {
		fmt.Fprintf(&sb, "Stated annual income: %s%s\n", j.CurrencySymbol, formatAmount(customer.StatedIncome))
	}
	if !customer.CustomerSince.IsZero() {
		fmt.Fprintf(&sb, "Customer since: %s\n", customer.CustomerSince.Format("2006-01-02"))
	}

	sb.WriteString("\nTRANSACTIONS UNDER REVIEW\n")
	fmt.Fprintf(&sb, "Total transactions: %d\n", len(transactions))
	limit := len(transactions)
	if limit > maxPromptTransactions {
		limit = maxPromptTransactions
	}
	for _, txn := range transactions[:limit] {
		fmt.Fprintf(&sb, "  - [%s] %s%s on %s from %s to %s (%s)\n",
			txn.ID,
			j.CurrencySymbol, formatAmount(txn.Amount),
			txn.Date.Format("2006-01-02"),
			txn.SourceAccount,
			txn.DestinationAccount,
			txn.Type)
	}
	if len(transactions) > maxPromptTransactions {
		fmt.Fprintf(&sb, "  ... and %d more transactions\n", len(transactions)-maxPromptTransactions)
	}

	sb.WriteString("\nDETECTED PATTERNS\n")
	fmt.Fprintf(&sb, "Risk score: %.1f / 10\n", result.RiskScore)
	fmt.Fprintf(&sb, "Typologies: %s\n", strings.Join(result.Typologies, ", "))
	fmt.Fprintf(&sb, "Velocity: %d days span, %.2f transactions/day (%s)\n",
		result.Velocity.SpanDays, result.Velocity.RatePerDay, result.Velocity.Risk)
	fmt.Fprintf(&sb, "Volume: total %s%s, average %s%s, maximum %s%s\n",
		j.CurrencySymbol, formatAmount(result.Volume.Total),
		j.CurrencySymbol, formatAmount(result.Volume.Mean),
		j.CurrencySymbol, formatAmount(result.Volume.Max))
	fmt.Fprintf(&sb, "Structuring: %d transactions near threshold, likelihood %.1f%%\n",
		result.Structuring.NearThresholdCount, result.Structuring.Likelihood*100)
	fmt.Fprintf(&sb, "Network: %d distinct sources, %d distinct destinations\n",
		result.Network.UniqueSources, result.Network.UniqueDestinations)

	if len(templates) > 0 {
		sb.WriteString("\nREGULATORY TEMPLATES\n")
		sb.WriteString(strings.Join(templates, "\n\n---\n\n"))
		sb.WriteString("\n")
	}

	sb.WriteString("\nINSTRUCTIONS\n")
	fmt.Fprintf(&sb, "Write a complete %s narrative with these sections: %s.\n",
		j.ReportingForm, strings.Join(j.Sections, "; "))
	sb.WriteString("Use ONLY the amounts, dates, accounts and transaction ids listed above. ")
	sb.WriteString("Do not invent figures, names or events. ")
	sb.WriteString("Refer to the subject by name and quote the account number. ")
	sb.WriteString("Write at least 150 words of formal regulatory prose.\n")

	return sb.String()
}

// formatAmount renders an amount with thousands separators, dropping a
// trailing .00 for whole values.
func formatAmount(v float64) string {
	s := fmt.Sprintf("%.2f", v)
	s = strings.TrimSuffix(s, ".00")

	dot := strings.IndexByte(s, '.')
	intPart := s
	fracPart := ""
	if dot >= 0 {
		intPart, fracPart = s[:dot], s[dot:]
	}

	var groups []string
	for len(intPart) > 3 {
		groups = append([]string{intPart[len(intPart)-3:]}, groups...)
		intPart = intPart[:len(intPart)-3]
	}
	groups = append([]string{intPart}, groups...)

	return strings.Join(groups, ",") + fracPart
}
