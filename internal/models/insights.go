package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Period selects the window granularity for insights
type Period string

const (
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
)

// ParsePeriod validates a period string. Empty defaults to week.
func ParsePeriod(s string) (Period, error) {
	switch Period(s) {
	case "":
		return PeriodWeek, nil
	case PeriodWeek, PeriodMonth:
		return Period(s), nil
	default:
		return "", fmt.Errorf("period must be 'week' or 'month', got %q", s)
	}
}

// Label is the human form used in prompts and emails
func (p Period) Label() string {
	if p == PeriodWeek {
		return "This Week"
	}
	return "This Month"
}

// Adjective is "Weekly" or "Monthly"
func (p Period) Adjective() string {
	if p == PeriodWeek {
		return "Weekly"
	}
	return "Monthly"
}

// DateLayout is the calendar date format used on the wire
const DateLayout = "2006-01-02"

// DateRange holds the current and previous calendar windows.
// All four values are midnight in the location they were resolved in.
type DateRange struct {
	CurrentStart  time.Time
	CurrentEnd    time.Time
	PreviousStart time.Time
	PreviousEnd   time.Time
}

// CategoryBucket aggregates the expenses of a single category
type CategoryBucket struct {
	Name         string          `json:"name"`
	Total        decimal.Decimal `json:"total"`
	Count        int             `json:"count"`
	Percentage   decimal.Decimal `json:"percentage"`
	Transactions []Transaction   `json:"transactions"`
}

// PeriodBreakdown is the aggregate of one window
type PeriodBreakdown struct {
	TotalSpent  decimal.Decimal  `json:"totalSpent"`
	TotalIncome decimal.Decimal  `json:"totalIncome"`
	NetBalance  decimal.Decimal  `json:"netBalance"`
	Categories  []CategoryBucket `json:"categories"`
}

type TrendType string

const (
	TrendOverall  TrendType = "overall"
	TrendCategory TrendType = "category"
)

type Direction string

const (
	DirectionIncrease Direction = "increase"
	DirectionDecrease Direction = "decrease"
)

// Trend is a period-over-period spending change.
// ChangePercentDefined is false when the previous total was zero and
// ChangePercent was forced to 0.
type Trend struct {
	Type                 TrendType       `json:"type"`
	Category             string          `json:"category,omitempty"`
	Change               decimal.Decimal `json:"change"`
	ChangePercent        decimal.Decimal `json:"changePercent"`
	ChangePercentDefined bool            `json:"changePercentDefined"`
	Direction            Direction       `json:"direction"`
}

type AnomalyType string

const (
	AnomalyFrequent AnomalyType = "frequent"
	AnomalyLarge    AnomalyType = "large"
)

// Anomaly is either a frequently visited merchant (Count, Total)
// or a single large expense (Amount, Category, Date).
type Anomaly struct {
	Type     AnomalyType      `json:"type"`
	Merchant string           `json:"merchant"`
	Count    int              `json:"count,omitempty"`
	Total    *decimal.Decimal `json:"total,omitempty"`
	Amount   *decimal.Decimal `json:"amount,omitempty"`
	Category string           `json:"category,omitempty"`
	Date     *time.Time       `json:"date,omitempty"`
}

// MerchantRank is the total spend at one merchant
type MerchantRank struct {
	Merchant string          `json:"merchant"`
	Total    decimal.Decimal `json:"total"`
}

// CurrentPeriod is the full breakdown of the current window
type CurrentPeriod struct {
	Start            string           `json:"start"`
	End              string           `json:"end"`
	TotalSpent       decimal.Decimal  `json:"totalSpent"`
	TotalIncome      decimal.Decimal  `json:"totalIncome"`
	NetBalance       decimal.Decimal  `json:"netBalance"`
	Categories       []CategoryBucket `json:"categories"`
	TransactionCount int              `json:"transactionCount"`
}

// PreviousPeriod carries only the totals of the previous window
type PreviousPeriod struct {
	TotalSpent  decimal.Decimal `json:"totalSpent"`
	TotalIncome decimal.Decimal `json:"totalIncome"`
}

// Insights is the merged result for one insight request.
// Summary is filled by the orchestrator after computation.
type Insights struct {
	Period         Period         `json:"period"`
	CurrentPeriod  CurrentPeriod  `json:"currentPeriod"`
	PreviousPeriod PreviousPeriod `json:"previousPeriod"`
	Trends         []Trend        `json:"trends"`
	Anomalies      []Anomaly      `json:"anomalies"`
	TopMerchants   []MerchantRank `json:"topMerchants"`
	Summary        string         `json:"summary,omitempty"`
}

// OverallTrend returns the overall trend record, if any
func (i *Insights) OverallTrend() (Trend, bool) {
	for _, t := range i.Trends {
		if t.Type == TrendOverall {
			return t, true
		}
	}
	return Trend{}, false
}
