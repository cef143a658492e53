package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/luminasar/luminasar/internal/server"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the SAR generation HTTP API",
		Long: `Start the HTTP server exposing SAR generation, narrative retrieval,
audit verification and approval endpoints.`,
		RunE: runServe,
	}

	cmd.Flags().String("addr", ":8080", "listen address")
	_ = viper.BindPFlag("server.addr", cmd.Flags().Lookup("addr"))

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	store, err := initStorage(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer func() { _ = store.Close() }()

	p, err := initPipeline(store)
	if err != nil {
		return err
	}

	addr := viper.GetString("server.addr")
	if addr == "" {
		addr = ":8080"
	}

	return server.New(p, store, addr).ListenAndServe(ctx)
}
