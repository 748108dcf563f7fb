package services

import (
	"github.com/ashmitsharp/wallet-insights-api/internal/models"
	"github.com/shopspring/decimal"
)

// Insight thresholds. Defaults are fixed; they are not scaled per user.
const (
	// TrendSignificancePercent is the minimum absolute category change (in %) to report
	TrendSignificancePercent = 20
	// LargeExpenseThreshold is the currency amount above which a single expense is flagged
	LargeExpenseThreshold = 100
	// FrequentMerchantVisits is the visit count at which a merchant is flagged
	FrequentMerchantVisits = 3
	// TopMerchantLimit is how many merchants are ranked
	TopMerchantLimit = 5
	// LowDataTransactionCount selects the short summary prompt below this count
	LowDataTransactionCount = 5
)

var (
	trendSignificance = decimal.NewFromInt(TrendSignificancePercent)
	largeExpense      = decimal.NewFromInt(LargeExpenseThreshold)
	hundred           = decimal.NewFromInt(100)
)

// ComputeInsights merges breakdowns, trends, anomalies and merchant ranking
// into a single result. It performs no I/O and never mutates its inputs.
func ComputeInsights(current, previous []models.Transaction, period models.Period, window models.DateRange) *models.Insights {
	currentBreakdown := CalculateBreakdown(current)
	previousBreakdown := CalculateBreakdown(previous)

	return &models.Insights{
		Period: period,
		CurrentPeriod: models.CurrentPeriod{
			Start:            window.CurrentStart.Format(models.DateLayout),
			End:              window.CurrentEnd.Format(models.DateLayout),
			TotalSpent:       currentBreakdown.TotalSpent,
			TotalIncome:      currentBreakdown.TotalIncome,
			NetBalance:       currentBreakdown.NetBalance,
			Categories:       currentBreakdown.Categories,
			TransactionCount: len(current),
		},
		PreviousPeriod: models.PreviousPeriod{
			TotalSpent:  previousBreakdown.TotalSpent,
			TotalIncome: previousBreakdown.TotalIncome,
		},
		Trends:       DetectTrends(currentBreakdown, previousBreakdown),
		Anomalies:    FindAnomalies(current),
		TopMerchants: TopMerchants(current, TopMerchantLimit),
	}
}

// percentOf returns round(part/whole*100, 1), or 0 and false when whole is zero
func percentOf(part, whole decimal.Decimal) (decimal.Decimal, bool) {
	if whole.IsZero() {
		return decimal.Zero, false
	}
	return part.Div(whole).Mul(hundred).Round(1), true
}

// roundMoney rounds half away from zero to 2 decimals
func roundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}
