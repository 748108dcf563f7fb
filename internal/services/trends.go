package services

import (
	"github.com/ashmitsharp/wallet-insights-api/internal/models"
	"github.com/shopspring/decimal"
)

// DetectTrends compares two breakdowns. The overall record is always first,
// followed by categories present in both periods whose change exceeds
// TrendSignificancePercent, in the order of current.Categories.
func DetectTrends(current, previous models.PeriodBreakdown) []models.Trend {
	change := roundMoney(current.TotalSpent.Sub(previous.TotalSpent))
	percent, defined := percentOf(change, previous.TotalSpent)

	trends := []models.Trend{{
		Type:                 models.TrendOverall,
		Change:               change,
		ChangePercent:        percent,
		ChangePercentDefined: defined,
		Direction:            directionOf(change),
	}}

	previousTotals := make(map[string]decimal.Decimal, len(previous.Categories))
	for _, c := range previous.Categories {
		if _, seen := previousTotals[c.Name]; !seen {
			previousTotals[c.Name] = c.Total
		}
	}

	for _, c := range current.Categories {
		prevTotal, ok := previousTotals[c.Name]
		if !ok {
			continue
		}

		catChange := roundMoney(c.Total.Sub(prevTotal))
		catPercent, catDefined := percentOf(catChange, prevTotal)
		if !catDefined || catPercent.Abs().LessThanOrEqual(trendSignificance) {
			continue
		}

		trends = append(trends, models.Trend{
			Type:                 models.TrendCategory,
			Category:             c.Name,
			Change:               catChange,
			ChangePercent:        catPercent,
			ChangePercentDefined: true,
			Direction:            directionOf(catChange),
		})
	}

	return trends
}

// directionOf treats no change as a decrease
func directionOf(change decimal.Decimal) models.Direction {
	if change.IsPositive() {
		return models.DirectionIncrease
	}
	return models.DirectionDecrease
}
