package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/luminasar/luminasar/internal/cli"
)

func generateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate <case-id>",
		Short: "Generate a SAR narrative for a case",
		Long: `Run the full generation pipeline for one case: fetch the case data,
detect money-laundering patterns, retrieve regulatory templates,
generate the narrative, validate it, and persist the result with a
hash-chained audit trail.`,
		Args: cobra.ExactArgs(1),
		RunE: runGenerate,
	}

	return cmd
}

func runGenerate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	caseID := args[0]

	store, err := initStorage(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer func() { _ = store.Close() }()

	p, err := initPipeline(store)
	if err != nil {
		return err
	}

	result, err := p.Run(ctx, caseID)
	if err != nil {
		fmt.Println(cli.FormatError("Pipeline failed: " + err.Error()))
		return err
	}

	summary := fmt.Sprintf("Narrative ID: %s\nRisk score:   %.1f\nTypologies:   %v\nAudit steps:  %d\nDuration:     %s",
		result.NarrativeID,
		result.RiskScore,
		result.Typologies,
		result.AuditSteps,
		result.Duration.Round(1e7))

	fmt.Println(cli.RenderBox("SAR Generated", summary))
	fmt.Println()
	fmt.Println(result.NarrativeText)

	return nil
}
