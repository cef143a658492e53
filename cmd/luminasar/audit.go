package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/luminasar/luminasar/internal/cli"
)

func auditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit <narrative-id>",
		Short: "Verify and display a narrative's audit trail",
		Long: `Load a narrative's hash-chained audit trail, re-verify every link in
the chain from the stored records, and show which narrative sentences
are grounded in source data.`,
		Args: cobra.ExactArgs(1),
		RunE: runAudit,
	}

	cmd.Flags().Bool("attribution", true, "Show sentence-level source attribution")

	return cmd
}

func runAudit(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	narrativeID := args[0]
	showAttribution, _ := cmd.Flags().GetBool("attribution")

	store, err := initStorage(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer func() { _ = store.Close() }()

	p, err := initPipeline(store)
	if err != nil {
		return err
	}

	report, err := p.Audit(ctx, narrativeID)
	if err != nil {
		return err
	}

	fmt.Println(cli.FormatTitle("Audit Trail: " + narrativeID))
	fmt.Println()

	if report.ChainValid {
		fmt.Println(cli.FormatSuccess("Hash chain verified: all records intact"))
	} else {
		fmt.Println(cli.FormatError("HASH CHAIN BROKEN: " + report.IntegrityError))
	}
	fmt.Println()

	for _, step := range report.Steps {
		line := fmt.Sprintf("%2d  %-20s  confidence=%.2f  %s",
			step.Position,
			step.StepName,
			step.Confidence,
			step.LoggedAt.Format("2006-01-02 15:04:05"))
		fmt.Println(line)
		fmt.Println(cli.SubtleStyle.Render("    hash " + truncateHash(step.CurrentHash)))
	}

	if showAttribution && len(report.Attribution) > 0 {
		fmt.Println()
		fmt.Println(cli.FormatTitle("Sentence Attribution"))

		grounded := 0
		for _, sentence := range report.Attribution {
			marker := cli.FormatWarning("unverified")
			if sentence.HasReference {
				marker = cli.FormatSuccess("grounded")
				grounded++
			}
			fmt.Printf("%2d  [%s] %s\n", sentence.Position, marker, truncateText(sentence.Text, 80))
			if len(sentence.TransactionIDs) > 0 {
				fmt.Println(cli.SubtleStyle.Render("    transactions: " + strings.Join(sentence.TransactionIDs, ", ")))
			}
		}

		fmt.Println()
		fmt.Printf("Grounded sentences: %d/%d\n", grounded, len(report.Attribution))
	}

	return nil
}

func truncateHash(hash string) string {
	if len(hash) > 16 {
		return hash[:16] + "..."
	}
	return hash
}

func truncateText(text string, max int) string {
	if len(text) <= max {
		return text
	}
	return text[:max] + "..."
}
