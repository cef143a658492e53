package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/luminasar/luminasar/internal/cli"
	"github.com/luminasar/luminasar/internal/config"
	"github.com/luminasar/luminasar/internal/ofx"
)

func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import transactions from an OFX/QFX statement",
		Long: `Parse a bank statement in OFX or QFX format and store its transactions
against a customer, deduplicating by content hash. Imported
transactions become part of the customer's analysis history.`,
		RunE: runImport,
	}

	cmd.Flags().String("ofx", "", "path to the OFX/QFX file (required)")
	cmd.Flags().String("customer", "", "customer id to attribute transactions to (required)")
	_ = cmd.MarkFlagRequired("ofx")
	_ = cmd.MarkFlagRequired("customer")

	return cmd
}

func runImport(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	filePath, _ := cmd.Flags().GetString("ofx")
	customerID, _ := cmd.Flags().GetString("customer")

	store, err := initStorage(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer func() { _ = store.Close() }()

	// The customer must exist before transactions can be attributed.
	if _, err := store.GetCustomer(ctx, customerID); err != nil {
		return fmt.Errorf("failed to load customer: %w", err)
	}

	file, err := os.Open(config.ExpandPath(filePath))
	if err != nil {
		return fmt.Errorf("failed to open OFX file: %w", err)
	}
	defer func() { _ = file.Close() }()

	transactions, err := ofx.NewParser().ParseFile(ctx, file, customerID)
	if err != nil {
		return fmt.Errorf("failed to parse OFX file: %w", err)
	}

	inserted, err := store.SaveTransactions(ctx, transactions)
	if err != nil {
		return fmt.Errorf("failed to save transactions: %w", err)
	}

	fmt.Println(cli.FormatSuccess(fmt.Sprintf(
		"Imported %d transactions (%d duplicates skipped)",
		inserted, len(transactions)-inserted)))

	return nil
}
