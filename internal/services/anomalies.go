package services

import (
	"sort"

	"github.com/ashmitsharp/wallet-insights-api/internal/models"
	"github.com/shopspring/decimal"
)

type merchantTotal struct {
	merchant string
	count    int
	total    decimal.Decimal
}

// groupExpensesByMerchant sums expenses per title in first-seen order
func groupExpensesByMerchant(transactions []models.Transaction) []merchantTotal {
	groups := make([]merchantTotal, 0)
	index := make(map[string]int)

	for _, t := range transactions {
		if !t.IsExpense() {
			continue
		}
		i, ok := index[t.Title]
		if !ok {
			i = len(groups)
			index[t.Title] = i
			groups = append(groups, merchantTotal{merchant: t.Title, total: decimal.Zero})
		}
		groups[i].count++
		groups[i].total = groups[i].total.Add(t.Amount.Abs())
	}

	return groups
}

// FindAnomalies flags merchants visited FrequentMerchantVisits times or more,
// then every single expense above LargeExpenseThreshold. Only expenses count.
func FindAnomalies(transactions []models.Transaction) []models.Anomaly {
	anomalies := make([]models.Anomaly, 0)

	for _, g := range groupExpensesByMerchant(transactions) {
		if g.count < FrequentMerchantVisits {
			continue
		}
		total := roundMoney(g.total)
		anomalies = append(anomalies, models.Anomaly{
			Type:     models.AnomalyFrequent,
			Merchant: g.merchant,
			Count:    g.count,
			Total:    &total,
		})
	}

	for _, t := range transactions {
		if !t.IsExpense() {
			continue
		}
		abs := t.Amount.Abs()
		if !abs.GreaterThan(largeExpense) {
			continue
		}
		amount := roundMoney(abs)
		date := t.CreatedAt
		anomalies = append(anomalies, models.Anomaly{
			Type:     models.AnomalyLarge,
			Merchant: t.Title,
			Amount:   &amount,
			Category: t.Category,
			Date:     &date,
		})
	}

	return anomalies
}

// TopMerchants ranks merchants by total expense, keeping first-seen order on ties
func TopMerchants(transactions []models.Transaction, n int) []models.MerchantRank {
	groups := groupExpensesByMerchant(transactions)

	sort.SliceStable(groups, func(a, b int) bool {
		return groups[a].total.GreaterThan(groups[b].total)
	})

	if n < 0 {
		n = 0
	}
	if len(groups) > n {
		groups = groups[:n]
	}

	ranks := make([]models.MerchantRank, 0, len(groups))
	for _, g := range groups {
		ranks = append(ranks, models.MerchantRank{
			Merchant: g.merchant,
			Total:    roundMoney(g.total),
		})
	}
	return ranks
}
