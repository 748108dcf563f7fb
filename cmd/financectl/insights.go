package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ashmitsharp/wallet-insights-api/internal/database"
	"github.com/ashmitsharp/wallet-insights-api/internal/models"
	"github.com/ashmitsharp/wallet-insights-api/internal/services"
)

func insightsCmd() *cobra.Command {
	var (
		userID   string
		period   string
		xlsxPath string
	)

	cmd := &cobra.Command{
		Use:   "insights",
		Short: "Print period-over-period insights for a user",
		Long: `Insights computes the same report as POST /api/insights/generate and prints it as JSON.

Examples:
  # This week's report
  financectl insights --user user_2abc

  # This month, also written as a workbook
  financectl insights --user user_2abc --period month --xlsx report.xlsx`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			p, err := models.ParsePeriod(period)
			if err != nil {
				return err
			}

			cfg, log, err := loadRuntime()
			if err != nil {
				return err
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

			insights, err := services.NewInsightsGenerator(database.NewTransactionStore(pool), gemini, cfg.Timezone, log).Generate(ctx, userID, p)
			if err != nil {
				return fmt.Errorf("generate insights: %w", err)
			}

			if xlsxPath != "" {
				f, err := os.Create(xlsxPath)
				if err != nil {
					return err
				}
				defer f.Close()
				if err := services.ExportInsightsXLSX(f, insights); err != nil {
					return err
				}
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(insights)
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "user id to report on")
	cmd.Flags().StringVar(&period, "period", "week", "report period (week, month)")
	cmd.Flags().StringVar(&xlsxPath, "xlsx", "", "also write the report to this XLSX file")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}
