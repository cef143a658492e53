package main

import (
	"context"
	"fmt"

	"github.com/spf13/viper"

	"github.com/luminasar/luminasar/internal/config"
	"github.com/luminasar/luminasar/internal/detector"
	"github.com/luminasar/luminasar/internal/llm"
	"github.com/luminasar/luminasar/internal/pipeline"
	"github.com/luminasar/luminasar/internal/retrieval"
	"github.com/luminasar/luminasar/internal/storage"
	"github.com/luminasar/luminasar/internal/validator"
)

// initStorage initializes the storage service with proper path expansion.
func initStorage(ctx context.Context) (*storage.SQLiteStorage, error) {
	dbPath := viper.GetString("database.path")
	if dbPath == "" {
		dbPath = "$HOME/.local/share/luminasar/luminasar.db"
	}

	dbPath = config.ExpandPath(dbPath)

	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return nil, err
	}

	if err := store.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// initPipeline wires the full generation pipeline from configuration.
func initPipeline(store *storage.SQLiteStorage) (*pipeline.Pipeline, error) {
	llmCfg := llm.Config{
		Provider: viper.GetString("llm.provider"),
		BaseURL:  viper.GetString("llm.base_url"),
		Model:    viper.GetString("llm.model"),
		Timeout:  viper.GetInt("llm.timeout"),
	}

	client, err := llm.NewClient(llmCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create generation client: %w", err)
	}

	pipelineCfg := pipeline.DefaultConfig()
	if jurisdiction := viper.GetString("jurisdiction"); jurisdiction != "" {
		pipelineCfg.Jurisdiction = jurisdiction
	}

	return pipeline.New(
		store,
		retrieval.NewStoreRetriever(store),
		client,
		store,
		detector.New(detector.DefaultConfig()),
		validator.New(validator.DefaultConfig()),
		pipelineCfg,
	), nil
}
