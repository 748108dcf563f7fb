package services

import (
	"context"
	"fmt"
	"time"

	"github.com/ashmitsharp/wallet-insights-api/internal/models"
	"github.com/rs/zerolog"
)

// TransactionRangeReader loads a user's transactions in [from, until)
type TransactionRangeReader interface {
	ListByUserAndDateRange(ctx context.Context, userID string, from, until time.Time) ([]models.Transaction, error)
}

// TextGenerator turns a prompt into prose
type TextGenerator interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
}

// InsightsGenerator loads both windows, runs the insight engine and adds an AI summary
type InsightsGenerator struct {
	store    TransactionRangeReader
	llm      TextGenerator
	location *time.Location
	now      func() time.Time
	logger   zerolog.Logger
}

// NewInsightsGenerator creates a generator resolving dates in loc (UTC when nil)
func NewInsightsGenerator(store TransactionRangeReader, llm TextGenerator, loc *time.Location, logger zerolog.Logger) *InsightsGenerator {
	if loc == nil {
		loc = time.UTC
	}
	return &InsightsGenerator{
		store:    store,
		llm:      llm,
		location: loc,
		now:      time.Now,
		logger:   logger,
	}
}

// Generate builds the insights for one user and period
func (g *InsightsGenerator) Generate(ctx context.Context, userID string, period models.Period) (*models.Insights, error) {
	insights, err := g.Compute(ctx, userID, period)
	if err != nil {
		return nil, err
	}

	insights.Summary = g.summarize(ctx, insights)
	return insights, nil
}

// Compute runs the deterministic part only, without calling the model
func (g *InsightsGenerator) Compute(ctx context.Context, userID string, period models.Period) (*models.Insights, error) {
	window := ResolveDateRange(period, g.now().In(g.location))

	current, err := g.store.ListByUserAndDateRange(ctx, userID, window.CurrentStart, window.CurrentEnd.AddDate(0, 0, 1))
	if err != nil {
		return nil, fmt.Errorf("load current period: %w", err)
	}

	previous, err := g.store.ListByUserAndDateRange(ctx, userID, window.PreviousStart, window.CurrentStart)
	if err != nil {
		return nil, fmt.Errorf("load previous period: %w", err)
	}

	g.logger.Debug().
		Str("user_id", userID).
		Str("period", string(period)).
		Int("current_count", len(current)).
		Int("previous_count", len(previous)).
		Msg("Computing insights")

	return ComputeInsights(current, previous, period, window), nil
}

func (g *InsightsGenerator) summarize(ctx context.Context, insights *models.Insights) string {
	prompt, fallback := BuildSummaryPrompt(insights), FallbackSummary
	if insights.CurrentPeriod.TransactionCount < LowDataTransactionCount {
		prompt, fallback = BuildLowDataPrompt(insights), FallbackLowDataSummary
	}

	summary, err := g.llm.GenerateText(ctx, prompt)
	if err != nil {
		g.logger.Warn().Err(err).Str("period", string(insights.Period)).Msg("AI summary generation failed, using fallback")
		return fallback
	}
	return summary
}
