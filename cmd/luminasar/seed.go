package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/luminasar/luminasar/internal/cli"
	"github.com/luminasar/luminasar/internal/seed"
)

func seedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Generate synthetic customers, transactions and cases",
		Long: `Populate the database with synthetic profiles covering structuring,
layering, smurfing, integration and clean activity, ready for
pipeline runs and demos.`,
		RunE: runSeed,
	}

	cmd.Flags().Int64("seed", 0, "random seed (0 uses the current time)")

	return cmd
}

func runSeed(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	seedValue, _ := cmd.Flags().GetInt64("seed")
	if seedValue == 0 {
		seedValue = time.Now().UnixNano()
	}

	store, err := initStorage(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer func() { _ = store.Close() }()

	result, err := seed.New(store, seedValue).Run(ctx)
	if err != nil {
		return fmt.Errorf("seeding failed: %w", err)
	}

	fmt.Println(cli.FormatSuccess(fmt.Sprintf(
		"Seeded %d customers, %d transactions, %d cases",
		result.Customers, result.Transactions, result.Cases)))

	fmt.Println()
	fmt.Println("Case IDs for testing:")
	for _, caseID := range result.CaseIDs {
		fmt.Println("  " + caseID)
	}

	return nil
}
