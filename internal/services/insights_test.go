package services

import (
	"testing"
	"time"

	"github.com/ashmitsharp/wallet-insights-api/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func tx(title, amount, category string) models.Transaction {
	return models.Transaction{
		Title:     title,
		Amount:    dec(amount),
		Category:  category,
		CreatedAt: time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC),
	}
}

func TestResolveDateRange(t *testing.T) {
	tests := []struct {
		name          string
		period        models.Period
		now           time.Time
		currentStart  string
		currentEnd    string
		previousStart string
		previousEnd   string
	}{
		{
			name:          "week is anchored on now",
			period:        models.PeriodWeek,
			now:           time.Date(2025, 3, 12, 18, 30, 0, 0, time.UTC),
			currentStart:  "2025-03-05",
			currentEnd:    "2025-03-12",
			previousStart: "2025-02-26",
			previousEnd:   "2025-03-05",
		},
		{
			name:          "week crossing a year boundary",
			period:        models.PeriodWeek,
			now:           time.Date(2025, 1, 3, 1, 0, 0, 0, time.UTC),
			currentStart:  "2024-12-27",
			currentEnd:    "2025-01-03",
			previousStart: "2024-12-20",
			previousEnd:   "2024-12-27",
		},
		{
			name:          "month to date against full previous month",
			period:        models.PeriodMonth,
			now:           time.Date(2025, 3, 12, 9, 0, 0, 0, time.UTC),
			currentStart:  "2025-03-01",
			currentEnd:    "2025-03-12",
			previousStart: "2025-02-01",
			previousEnd:   "2025-02-28",
		},
		{
			name:          "month in january rolls back a year",
			period:        models.PeriodMonth,
			now:           time.Date(2025, 1, 20, 9, 0, 0, 0, time.UTC),
			currentStart:  "2025-01-01",
			currentEnd:    "2025-01-20",
			previousStart: "2024-12-01",
			previousEnd:   "2024-12-31",
		},
		{
			name:          "month in a leap year",
			period:        models.PeriodMonth,
			now:           time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
			currentStart:  "2024-03-01",
			currentEnd:    "2024-03-01",
			previousStart: "2024-02-01",
			previousEnd:   "2024-02-29",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := ResolveDateRange(tt.period, tt.now)
			assert.Equal(t, tt.currentStart, r.CurrentStart.Format(models.DateLayout))
			assert.Equal(t, tt.currentEnd, r.CurrentEnd.Format(models.DateLayout))
			assert.Equal(t, tt.previousStart, r.PreviousStart.Format(models.DateLayout))
			assert.Equal(t, tt.previousEnd, r.PreviousEnd.Format(models.DateLayout))
		})
	}
}

func TestResolveDateRange_UsesLocationOfNow(t *testing.T) {
	kolkata, err := time.LoadLocation("Asia/Kolkata")
	require.NoError(t, err)

	// 2025-03-31 20:00 UTC is already April 1st in Kolkata
	now := time.Date(2025, 3, 31, 20, 0, 0, 0, time.UTC).In(kolkata)
	r := ResolveDateRange(models.PeriodMonth, now)

	assert.Equal(t, "2025-04-01", r.CurrentStart.Format(models.DateLayout))
	assert.Equal(t, "2025-03-01", r.PreviousStart.Format(models.DateLayout))
	assert.Equal(t, "2025-03-31", r.PreviousEnd.Format(models.DateLayout))
}

func TestCalculateBreakdown_FrequentCafe(t *testing.T) {
	txs := []models.Transaction{
		tx("Cafe", "-50", "food"),
		tx("Cafe", "-60", "food"),
		tx("Cafe", "-40", "food"),
	}

	b := CalculateBreakdown(txs)

	assert.True(t, b.TotalSpent.Equal(dec("150")))
	assert.True(t, b.TotalIncome.IsZero())
	assert.True(t, b.NetBalance.Equal(dec("-150")))
	require.Len(t, b.Categories, 1)
	assert.Equal(t, "food", b.Categories[0].Name)
	assert.True(t, b.Categories[0].Total.Equal(dec("150")))
	assert.Equal(t, 3, b.Categories[0].Count)
	assert.True(t, b.Categories[0].Percentage.Equal(dec("100.0")))
	assert.Len(t, b.Categories[0].Transactions, 3)
}

func TestCalculateBreakdown_IncomeOnly(t *testing.T) {
	b := CalculateBreakdown([]models.Transaction{tx("Salary", "150", "income")})

	assert.True(t, b.TotalSpent.IsZero())
	assert.True(t, b.TotalIncome.Equal(dec("150")))
	assert.True(t, b.NetBalance.Equal(dec("150")))
	assert.Empty(t, b.Categories)
	assert.NotNil(t, b.Categories)
}

func TestCalculateBreakdown_Empty(t *testing.T) {
	b := CalculateBreakdown(nil)

	assert.True(t, b.TotalSpent.IsZero())
	assert.True(t, b.TotalIncome.IsZero())
	assert.True(t, b.NetBalance.IsZero())
	assert.Empty(t, b.Categories)
}

func TestCalculateBreakdown_SortAndTies(t *testing.T) {
	txs := []models.Transaction{
		tx("Bus", "-20", "transportation"),
		tx("Movie", "-20", "entertainment"),
		tx("Rent", "-500", "bills"),
		tx("Lunch", "-12.345", "food"),
		tx("Refund", "30", "shopping"),
	}

	b := CalculateBreakdown(txs)

	require.Len(t, b.Categories, 4)
	assert.Equal(t, "bills", b.Categories[0].Name)
	// Equal totals keep encounter order
	assert.Equal(t, "transportation", b.Categories[1].Name)
	assert.Equal(t, "entertainment", b.Categories[2].Name)
	assert.Equal(t, "food", b.Categories[3].Name)
	// Half away from zero
	assert.Equal(t, "12.35", b.Categories[3].Total.StringFixed(2))
	assert.True(t, b.TotalIncome.Equal(dec("30")))
}

func TestCalculateBreakdown_Invariants(t *testing.T) {
	txs := []models.Transaction{
		tx("A", "-33.33", "food"),
		tx("B", "-33.33", "shopping"),
		tx("C", "-33.34", "bills"),
		tx("D", "-0.01", "other"),
		tx("E", "-17.77", "food"),
	}

	b := CalculateBreakdown(txs)

	sumTotals := decimal.Zero
	sumPercent := decimal.Zero
	for i, c := range b.Categories {
		sumTotals = sumTotals.Add(c.Total)
		sumPercent = sumPercent.Add(c.Percentage)
		if i > 0 {
			assert.True(t, b.Categories[i-1].Total.GreaterThanOrEqual(c.Total))
		}
	}

	assert.True(t, sumTotals.Equal(b.TotalSpent))
	assert.True(t, sumPercent.GreaterThanOrEqual(dec("99.5")), sumPercent.String())
	assert.True(t, sumPercent.LessThanOrEqual(dec("100.5")), sumPercent.String())
}

func TestCalculateBreakdown_Idempotent(t *testing.T) {
	txs := []models.Transaction{
		tx("Cafe", "-5", "food"),
		tx("Shop", "-15", "shopping"),
		tx("Pay", "100", "income"),
	}
	snapshot := append([]models.Transaction(nil), txs...)

	first := CalculateBreakdown(txs)
	second := CalculateBreakdown(txs)

	assert.Equal(t, first, second)
	assert.Equal(t, snapshot, txs)
}

func breakdownOf(totalSpent string, cats map[string]string, order ...string) models.PeriodBreakdown {
	b := models.PeriodBreakdown{TotalSpent: dec(totalSpent)}
	for _, name := range order {
		b.Categories = append(b.Categories, models.CategoryBucket{Name: name, Total: dec(cats[name])})
	}
	return b
}

func TestDetectTrends_CategoryIncrease(t *testing.T) {
	current := CalculateBreakdown([]models.Transaction{tx("Power", "-200", "bills")})
	previous := CalculateBreakdown([]models.Transaction{tx("Power", "-100", "bills")})

	trends := DetectTrends(current, previous)

	require.Len(t, trends, 2)
	assert.Equal(t, models.TrendOverall, trends[0].Type)

	cat := trends[1]
	assert.Equal(t, models.TrendCategory, cat.Type)
	assert.Equal(t, "bills", cat.Category)
	assert.True(t, cat.Change.Equal(dec("100")))
	assert.True(t, cat.ChangePercent.Equal(dec("100.0")))
	assert.True(t, cat.ChangePercentDefined)
	assert.Equal(t, models.DirectionIncrease, cat.Direction)
}

func TestDetectTrends_Overall(t *testing.T) {
	tests := []struct {
		name        string
		current     string
		previous    string
		wantChange  string
		wantPercent string
		wantDefined bool
		wantDir     models.Direction
	}{
		{"increase", "150", "100", "50", "50", true, models.DirectionIncrease},
		{"decrease", "75", "100", "-25", "-25", true, models.DirectionDecrease},
		{"no change is a decrease", "100", "100", "0", "0", true, models.DirectionDecrease},
		{"no previous spend", "80", "0", "80", "0", false, models.DirectionIncrease},
		{"both empty", "0", "0", "0", "0", false, models.DirectionDecrease},
		{"one decimal rounding", "100", "30", "70", "233.3", true, models.DirectionIncrease},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			trends := DetectTrends(breakdownOf(tt.current, nil), breakdownOf(tt.previous, nil))

			require.Len(t, trends, 1)
			overall := trends[0]
			assert.Equal(t, models.TrendOverall, overall.Type)
			assert.True(t, overall.Change.Equal(dec(tt.wantChange)), overall.Change.String())
			assert.True(t, overall.ChangePercent.Equal(dec(tt.wantPercent)), overall.ChangePercent.String())
			assert.Equal(t, tt.wantDefined, overall.ChangePercentDefined)
			assert.Equal(t, tt.wantDir, overall.Direction)
		})
	}
}

func TestDetectTrends_CategoryFiltering(t *testing.T) {
	current := breakdownOf("560", map[string]string{
		"shopping": "300",
		"food":     "120",
		"bills":    "100",
		"travel":   "40",
	}, "shopping", "food", "bills", "travel")
	previous := breakdownOf("400", map[string]string{
		"food":     "100",
		"bills":    "200",
		"shopping": "240",
		"travel":   "40",
	}, "shopping", "bills", "food", "travel")

	trends := DetectTrends(current, previous)

	// shopping +25% and bills -50% pass, food +20% is not strictly above, travel unchanged
	require.Len(t, trends, 3)
	assert.Equal(t, "shopping", trends[1].Category)
	assert.True(t, trends[1].ChangePercent.Equal(dec("25")))
	assert.Equal(t, models.DirectionIncrease, trends[1].Direction)
	assert.Equal(t, "bills", trends[2].Category)
	assert.True(t, trends[2].ChangePercent.Equal(dec("-50")))
	assert.Equal(t, models.DirectionDecrease, trends[2].Direction)
}

func TestDetectTrends_NewCategoryEmitsNothing(t *testing.T) {
	current := breakdownOf("1000", map[string]string{"travel": "1000"}, "travel")
	previous := breakdownOf("10", map[string]string{"food": "10"}, "food")

	trends := DetectTrends(current, previous)

	require.Len(t, trends, 1)
	assert.Equal(t, models.TrendOverall, trends[0].Type)
}

func TestDetectTrends_ZeroPreviousCategoryIsSkipped(t *testing.T) {
	current := breakdownOf("50", map[string]string{"food": "50"}, "food")
	previous := breakdownOf("0", map[string]string{"food": "0"}, "food")

	trends := DetectTrends(current, previous)

	require.Len(t, trends, 1)
}

func TestFindAnomalies(t *testing.T) {
	txs := []models.Transaction{
		tx("Mall", "-250", "shopping"),
		tx("Cafe", "-50", "food"),
		tx("Cafe", "-60", "food"),
		tx("Salary", "5000", "income"),
		tx("Bus", "-2", "transportation"),
		tx("Cafe", "-40", "food"),
		tx("Bus", "-2", "transportation"),
		tx("Bus", "-2", "transportation"),
		tx("Exact", "-100", "bills"),
		tx("Clinic", "-100.01", "other"),
	}

	anomalies := FindAnomalies(txs)

	require.Len(t, anomalies, 4)

	assert.Equal(t, models.AnomalyFrequent, anomalies[0].Type)
	assert.Equal(t, "Cafe", anomalies[0].Merchant)
	assert.Equal(t, 3, anomalies[0].Count)
	assert.Equal(t, "150.00", anomalies[0].Total.StringFixed(2))

	assert.Equal(t, models.AnomalyFrequent, anomalies[1].Type)
	assert.Equal(t, "Bus", anomalies[1].Merchant)

	assert.Equal(t, models.AnomalyLarge, anomalies[2].Type)
	assert.Equal(t, "Mall", anomalies[2].Merchant)
	assert.True(t, anomalies[2].Amount.Equal(dec("250")))
	assert.Equal(t, "shopping", anomalies[2].Category)
	require.NotNil(t, anomalies[2].Date)

	assert.Equal(t, models.AnomalyLarge, anomalies[3].Type)
	assert.Equal(t, "Clinic", anomalies[3].Merchant)
}

func TestFindAnomalies_IgnoresIncome(t *testing.T) {
	txs := []models.Transaction{
		tx("Employer", "150", "income"),
		tx("Employer", "150", "income"),
		tx("Employer", "150", "income"),
	}

	assert.Empty(t, FindAnomalies(txs))
	assert.Empty(t, TopMerchants(txs, TopMerchantLimit))
}

func TestTopMerchants(t *testing.T) {
	txs := []models.Transaction{
		tx("A", "-10", "x"),
		tx("B", "-30", "x"),
		tx("C", "-20", "x"),
		tx("D", "-20", "x"),
		tx("E", "-5", "x"),
		tx("F", "-1", "x"),
		tx("A", "-15", "x"),
		tx("Pay", "999", "income"),
	}

	ranks := TopMerchants(txs, TopMerchantLimit)

	require.Len(t, ranks, 5)
	names := make([]string, 0, len(ranks))
	for _, r := range ranks {
		names = append(names, r.Merchant)
	}
	assert.Equal(t, []string{"B", "A", "C", "D", "E"}, names)
	assert.True(t, ranks[1].Total.Equal(dec("25")))
}

func TestComputeInsights_Scenario(t *testing.T) {
	window := ResolveDateRange(models.PeriodWeek, time.Date(2025, 3, 12, 0, 0, 0, 0, time.UTC))
	current := []models.Transaction{
		tx("Cafe", "-50", "food"),
		tx("Cafe", "-60", "food"),
		tx("Cafe", "-40", "food"),
	}

	insights := ComputeInsights(current, nil, models.PeriodWeek, window)

	assert.Equal(t, models.PeriodWeek, insights.Period)
	assert.Equal(t, "2025-03-05", insights.CurrentPeriod.Start)
	assert.Equal(t, "2025-03-12", insights.CurrentPeriod.End)
	assert.Equal(t, 3, insights.CurrentPeriod.TransactionCount)
	assert.True(t, insights.CurrentPeriod.TotalSpent.Equal(dec("150")))
	assert.True(t, insights.PreviousPeriod.TotalSpent.IsZero())

	require.Len(t, insights.Trends, 1)
	assert.False(t, insights.Trends[0].ChangePercentDefined)

	require.Len(t, insights.Anomalies, 1)
	assert.Equal(t, models.AnomalyFrequent, insights.Anomalies[0].Type)
	assert.Equal(t, "Cafe", insights.Anomalies[0].Merchant)

	require.Len(t, insights.TopMerchants, 1)
	assert.Equal(t, "Cafe", insights.TopMerchants[0].Merchant)
}

func TestComputeInsights_Empty(t *testing.T) {
	window := ResolveDateRange(models.PeriodMonth, time.Date(2025, 3, 12, 0, 0, 0, 0, time.UTC))

	insights := ComputeInsights(nil, nil, models.PeriodMonth, window)

	assert.Equal(t, 0, insights.CurrentPeriod.TransactionCount)
	assert.Empty(t, insights.CurrentPeriod.Categories)
	require.Len(t, insights.Trends, 1)
	assert.True(t, insights.Trends[0].ChangePercent.IsZero())
	assert.Empty(t, insights.Anomalies)
	assert.Empty(t, insights.TopMerchants)
}
