package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ashmitsharp/wallet-insights-api/internal/database"
	"github.com/ashmitsharp/wallet-insights-api/internal/services"
)

func syncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Re-embed every stored transaction into the vector index",
		Long: `Sync loads all transactions from Postgres, embeds them with Gemini and
upserts them into Pinecone in batches. Requires PINECONE_API_KEY and PINECONE_INDEX_NAME.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			cfg, log, err := loadRuntime()
			if err != nil {
				return err
			}
			if !cfg.VectorSyncEnabled() {
				return fmt.Errorf("vector index is not configured: set PINECONE_API_KEY and PINECONE_INDEX_NAME")
			}

			pool, err := database.Connect(ctx, cfg)
			if err != nil {
				return fmt.Errorf("connect to database: %w", err)
			}
			defer pool.Close()

			gemini, err := services.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, cfg.GeminiEmbeddingModel)
			if err != nil {
				return err
			}
			index, err := services.NewPineconeIndex(ctx, cfg.PineconeAPIKey, cfg.PineconeIndexName, cfg.PineconeNamespace)
			if err != nil {
				return err
			}
			defer index.Close()

			transactions, err := database.NewTransactionStore(pool).ListAll(ctx)
			if err != nil {
				return fmt.Errorf("load transactions: %w", err)
			}

			count, err := services.NewVectorStore(gemini, index, log).UpsertTransactions(ctx, transactions)
			if err != nil {
				return fmt.Errorf("sync transactions: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Synced %d transactions to %s\n", count, cfg.PineconeIndexName)
			return nil
		},
	}
}
