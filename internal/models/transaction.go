package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction represents a single income or expense row for a user
type Transaction struct {
	ID        int64           `json:"id"`
	UserID    string          `json:"user_id"`
	Title     string          `json:"title"`
	Amount    decimal.Decimal `json:"amount"` // Negative for expense, positive for income
	Category  string          `json:"category"`
	CreatedAt time.Time       `json:"created_at"`
}

// IsExpense reports whether the transaction is money going out
func (t Transaction) IsExpense() bool {
	return t.Amount.IsNegative()
}

// NewTransaction is a transaction before it is stored.
// CreatedAt is optional (imports carry their own date); zero means "now".
type NewTransaction struct {
	UserID    string          `json:"user_id"`
	Title     string          `json:"title"`
	Amount    decimal.Decimal `json:"amount"`
	Category  string          `json:"category"`
	CreatedAt time.Time       `json:"created_at,omitempty"`
}

// BalanceSummary is the all-time balance for a user
type BalanceSummary struct {
	Balance  decimal.Decimal `json:"balance"`
	Income   decimal.Decimal `json:"income"`
	Expenses decimal.Decimal `json:"expenses"` // Signed, so always <= 0
}

// ReceiptData is the structured result extracted from a receipt image
type ReceiptData struct {
	Name     string          `json:"name"`
	Total    decimal.Decimal `json:"total"`
	Category string          `json:"category"`
}

// RelevantTransaction is a transaction returned by semantic search
type RelevantTransaction struct {
	ID       string  `json:"id"`
	Score    float32 `json:"score"`
	Title    string  `json:"title"`
	Amount   string  `json:"amount"`
	Category string  `json:"category"`
	Date     string  `json:"date"`
	Text     string  `json:"text"`
}
