package services

import (
	"fmt"
	"strings"

	"github.com/ashmitsharp/wallet-insights-api/internal/models"
	"github.com/shopspring/decimal"
)

// Fallback texts used when the model can not be reached
const (
	FallbackSummary        = "Unable to generate AI summary at this time."
	FallbackLowDataSummary = "It looks like a quiet period! Keep adding transactions to see more detailed insights."
	NoTransactionsReply    = "You don't have any transactions yet, so I can't analyze your expenses. Try adding some first!"
	OffTopicReply          = "I'm sorry, but I can only assist with questions related to your personal expenses and transactions."
)

// promptListLimit is how many categories, trends and anomalies a summary prompt mentions
const promptListLimit = 3

// CurrencySymbol prefixes every amount shown to users
const CurrencySymbol = "₹"

// FormatMoney renders an amount with the currency symbol and two decimals
func FormatMoney(d decimal.Decimal) string {
	return CurrencySymbol + d.StringFixed(2)
}

// BuildSummaryPrompt asks for a 3-4 paragraph spending summary
func BuildSummaryPrompt(in *models.Insights) string {
	cur := in.CurrentPeriod

	var b strings.Builder
	b.WriteString("You are a friendly financial advisor. Write a personalized spending summary for the user.\n\n")
	fmt.Fprintf(&b, "Period: %s\n\n", in.Period.Label())

	b.WriteString("Current Period:\n")
	fmt.Fprintf(&b, "- Total Spent: %s\n", FormatMoney(cur.TotalSpent))
	fmt.Fprintf(&b, "- Total Income: %s\n", FormatMoney(cur.TotalIncome))
	fmt.Fprintf(&b, "- Net Balance: %s\n", FormatMoney(cur.NetBalance))
	fmt.Fprintf(&b, "- Transactions: %d\n\n", cur.TransactionCount)

	b.WriteString("Top Categories:\n")
	for _, c := range firstN(cur.Categories, promptListLimit) {
		fmt.Fprintf(&b, "- %s: %s (%s%%)\n", c.Name, FormatMoney(c.Total), c.Percentage.String())
	}

	b.WriteString("\nTrends:\n")
	for _, t := range firstN(in.Trends, promptListLimit) {
		fmt.Fprintf(&b, "- %s\n", DescribeTrend(t))
	}

	b.WriteString("\nAnomalies:\n")
	for _, a := range firstN(in.Anomalies, promptListLimit) {
		fmt.Fprintf(&b, "- %s\n", DescribeAnomaly(a))
	}

	b.WriteString(`
Write a friendly, concise summary (3-4 paragraphs) that:
1. Highlights the overall spending situation
2. Points out interesting trends or changes
3. Mentions any concerning patterns (if any)
4. Gives ONE actionable savings tip

All amounts are in INR.
Keep it positive and encouraging. Use emojis sparingly.
`)

	return b.String()
}

// BuildLowDataPrompt asks for a short encouraging note when there is little activity
func BuildLowDataPrompt(in *models.Insights) string {
	cur := in.CurrentPeriod

	var b strings.Builder
	fmt.Fprintf(&b, "You are a friendly financial advisor. The user has very few transactions (%d) for this period (%s).\n\n",
		cur.TransactionCount, in.Period.Label())
	fmt.Fprintf(&b, "Total Spent: %s\n", FormatMoney(cur.TotalSpent))
	fmt.Fprintf(&b, "Total Income: %s\n", FormatMoney(cur.TotalIncome))
	b.WriteString(`
Write a short, encouraging message (1-2 paragraphs) that:
1. Acknowledges the low activity (e.g., "It looks like a quiet week!").
2. Mentions the total spent if > 0.
3. Encourages them to keep tracking their expenses to unlock more detailed insights.

Keep it light and friendly.
`)

	return b.String()
}

// DescribeTrend renders a trend as "Overall spending increased by 25%" or "food: decreased by 40%"
func DescribeTrend(t models.Trend) string {
	pct := t.ChangePercent.Abs().String()
	if t.Type == models.TrendOverall {
		return fmt.Sprintf("Overall spending %sd by %s%%", t.Direction, pct)
	}
	return fmt.Sprintf("%s: %sd by %s%%", t.Category, t.Direction, pct)
}

// DescribeAnomaly renders an anomaly as a single line
func DescribeAnomaly(a models.Anomaly) string {
	if a.Type == models.AnomalyFrequent {
		total := decimal.Zero
		if a.Total != nil {
			total = *a.Total
		}
		return fmt.Sprintf("%s: %d visits (%s)", a.Merchant, a.Count, FormatMoney(total))
	}

	amount := decimal.Zero
	if a.Amount != nil {
		amount = *a.Amount
	}
	return fmt.Sprintf("Large expense: %s (%s)", a.Merchant, FormatMoney(amount))
}

const assistantSystemPrompt = `You are an AI financial assistant inside a personal expense-tracking mobile app.

You will receive:
1) A natural-language question from the user.
2) A JSON list of the user's transactions.

Your job is strictly limited to analyzing the user's financial activity.

OBJECTIVES
- Understand the user's spending and income patterns.
- Analyze totals, categories, trends, savings, or comparisons.
- Give short, friendly, clear answers.
- Always reference actual numbers from the transaction data when helpful.
- If exact values are unclear, state the uncertainty and approximate safely.

RULES
1. You ONLY answer questions related to expenses, income, categories, budgeting,
   savings, financial summaries, spending insights, comparisons, monthly or category
   trends and cashflow.
2. If the question is NOT about finances, you MUST respond EXACTLY with:
   ` + OffTopicReply + `
3. Never provide general knowledge, trivia, definitions, or unrelated advice.
4. Never fabricate transactions or amounts. Only use the data provided.
5. Do NOT output JSON. Respond only in clean, natural English sentences.
6. Positive amounts are income, negative amounts are expenses. Amounts are in INR (` + CurrencySymbol + `).
7. If the user asks something impossible due to insufficient data, politely explain the limitation.
`

// BuildAssistantPrompt combines the system rules, the question and the transaction context.
// relevantJSON may be empty when semantic search is unavailable.
func BuildAssistantPrompt(query, transactionsJSON, relevantJSON string) string {
	var b strings.Builder
	b.WriteString(assistantSystemPrompt)
	b.WriteString("\n\nUser question:\n")
	fmt.Fprintf(&b, "%q\n\n", query)
	b.WriteString("User transactions JSON:\n")
	b.WriteString(transactionsJSON)
	b.WriteString("\n")
	if relevantJSON != "" {
		b.WriteString("\nMost relevant transactions for this question (semantic search):\n")
		b.WriteString(relevantJSON)
		b.WriteString("\n")
	}
	return b.String()
}

// ReceiptPrompt instructs the model to return a strict JSON receipt summary
var ReceiptPrompt = `You are an OCR and financial receipt parser. Read the receipt image and extract structured expense data.

Return ONLY this JSON object and nothing else:

{
  "name": string,
  "total": number,
  "category": ` + quotedLabels() + `
}

Example:

{
  "name": "Fish & Chips Fast Foods",
  "total": 41.29,
  "category": "food"
}

Extraction rules:

1. name:
   - Use the merchant/store/restaurant name from the receipt.
   - If unclear, create a short reasonable name like "Restaurant Expense" or "Grocery Purchase".
   - Keep it short and human-friendly.

2. total:
   - Extract the final payable amount.
   - Prefer the largest meaningful total (avoid tax, subtotal, tip lines).
   - If multiple totals exist, choose the primary final price.

3. category:
   - Choose the most appropriate category from: ` + strings.Join(CandidateLabels, ", ") + `
   - Base this on merchant name, items, or context.
   - If unsure, return "other".

Output rules:
- Output ONLY valid JSON.
- No code fences, no markdown, no comments, no explanations.
- Do not include raw OCR text.
- Do not add additional fields.
`

func quotedLabels() string {
	quoted := make([]string, len(CandidateLabels))
	for i, l := range CandidateLabels {
		quoted[i] = `"` + l + `"`
	}
	return strings.Join(quoted, " | ")
}

func firstN[T any](items []T, n int) []T {
	if len(items) > n {
		return items[:n]
	}
	return items
}
