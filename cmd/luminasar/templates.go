package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/luminasar/luminasar/internal/cli"
	"github.com/luminasar/luminasar/internal/config"
	"github.com/luminasar/luminasar/internal/retrieval"
)

func templatesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "templates",
		Short: "Manage regulatory narrative templates",
	}

	cmd.AddCommand(templatesLoadCmd())
	cmd.AddCommand(templatesCountCmd())

	return cmd
}

func templatesLoadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "load <dir>",
		Short: "Load *.txt template files from a directory",
		Long: `Ingest every *.txt file in the directory as a narrative template. A
leading "tags: typology1, typology2" line tags the template; the file
name becomes the template name.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return fmt.Errorf("failed to initialize storage: %w", err)
			}
			defer func() { _ = store.Close() }()

			loaded, err := retrieval.LoadDirectory(ctx, store, config.ExpandPath(args[0]))
			if err != nil {
				return fmt.Errorf("failed to load templates: %w", err)
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Loaded %d templates", loaded)))
			return nil
		},
	}
}

func templatesCountCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "count",
		Short: "Show the number of stored templates",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return fmt.Errorf("failed to initialize storage: %w", err)
			}
			defer func() { _ = store.Close() }()

			count, err := store.CountTemplates(ctx)
			if err != nil {
				return err
			}

			fmt.Printf("Templates: %d\n", count)
			return nil
		},
	}
}
