package services

import (
	"sort"

	"github.com/ashmitsharp/wallet-insights-api/internal/models"
	"github.com/shopspring/decimal"
)

// CalculateBreakdown splits transactions into income and expense and groups
// expenses by category. Categories are sorted by total descending; equal totals
// keep the order in which the category was first seen.
func CalculateBreakdown(transactions []models.Transaction) models.PeriodBreakdown {
	totalSpent := decimal.Zero
	totalIncome := decimal.Zero

	buckets := make([]models.CategoryBucket, 0)
	index := make(map[string]int)

	for _, t := range transactions {
		if !t.IsExpense() {
			totalIncome = totalIncome.Add(t.Amount)
			continue
		}

		abs := t.Amount.Abs()
		totalSpent = totalSpent.Add(abs)

		i, ok := index[t.Category]
		if !ok {
			i = len(buckets)
			index[t.Category] = i
			buckets = append(buckets, models.CategoryBucket{
				Name:         t.Category,
				Total:        decimal.Zero,
				Transactions: []models.Transaction{},
			})
		}
		buckets[i].Total = buckets[i].Total.Add(abs)
		buckets[i].Count++
		buckets[i].Transactions = append(buckets[i].Transactions, t)
	}

	totalSpent = roundMoney(totalSpent)
	totalIncome = roundMoney(totalIncome)

	for i := range buckets {
		buckets[i].Total = roundMoney(buckets[i].Total)
		buckets[i].Percentage, _ = percentOf(buckets[i].Total, totalSpent)
	}

	sort.SliceStable(buckets, func(a, b int) bool {
		return buckets[a].Total.GreaterThan(buckets[b].Total)
	})

	return models.PeriodBreakdown{
		TotalSpent:  totalSpent,
		TotalIncome: totalIncome,
		NetBalance:  roundMoney(totalIncome.Sub(totalSpent)),
		Categories:  buckets,
	}
}
