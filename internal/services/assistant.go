package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ashmitsharp/wallet-insights-api/internal/models"
	"github.com/rs/zerolog"
)

// AssistantHistoryLimit is how many recent transactions the assistant reads
const AssistantHistoryLimit = 200

// TransactionLister loads a user's most recent transactions
type TransactionLister interface {
	ListByUser(ctx context.Context, userID string, limit int) ([]models.Transaction, error)
}

// RelevantTransactionFinder runs semantic search over a user's transactions
type RelevantTransactionFinder interface {
	QueryTransactions(ctx context.Context, query, userID string, topK int) ([]models.RelevantTransaction, error)
}

// Assistant answers finance questions about a user's own transactions
type Assistant struct {
	store  TransactionLister
	llm    TextGenerator
	search RelevantTransactionFinder
	logger zerolog.Logger
}

// NewAssistant creates an assistant. search may be nil.
func NewAssistant(store TransactionLister, llm TextGenerator, search RelevantTransactionFinder, logger zerolog.Logger) *Assistant {
	return &Assistant{
		store:  store,
		llm:    llm,
		search: search,
		logger: logger,
	}
}

type promptTransaction struct {
	ID       int64       `json:"id"`
	Title    string      `json:"title"`
	Amount   json.Number `json:"amount"`
	Category string      `json:"category"`
	Date     string      `json:"date"`
}

// Analyze answers query using the user's transactions.
// Without any transactions the fixed NoTransactionsReply is returned and the model is not called.
func (a *Assistant) Analyze(ctx context.Context, userID, query string) (string, error) {
	transactions, err := a.store.ListByUser(ctx, userID, AssistantHistoryLimit)
	if err != nil {
		return "", fmt.Errorf("load transactions: %w", err)
	}
	if len(transactions) == 0 {
		return NoTransactionsReply, nil
	}

	txJSON, err := transactionsJSON(transactions)
	if err != nil {
		return "", err
	}

	reply, err := a.llm.GenerateText(ctx, BuildAssistantPrompt(query, txJSON, a.relevantJSON(ctx, userID, query)))
	if err != nil {
		return "", fmt.Errorf("assistant reply: %w: %w", ErrModelUnavailable, err)
	}
	return strings.TrimSpace(reply), nil
}

// relevantJSON is empty when search is unavailable or fails
func (a *Assistant) relevantJSON(ctx context.Context, userID, query string) string {
	if a.search == nil {
		return ""
	}

	relevant, err := a.search.QueryTransactions(ctx, query, userID, DefaultRelevantTopK)
	if err != nil {
		if !errors.Is(err, ErrVectorIndexDisabled) {
			a.logger.Warn().Err(err).Str("user_id", userID).Msg("Semantic search failed, answering without it")
		}
		return ""
	}
	if len(relevant) == 0 {
		return ""
	}

	data, err := json.Marshal(relevant)
	if err != nil {
		return ""
	}
	return string(data)
}

func transactionsJSON(transactions []models.Transaction) (string, error) {
	rows := make([]promptTransaction, 0, len(transactions))
	for _, t := range transactions {
		rows = append(rows, promptTransaction{
			ID:       t.ID,
			Title:    t.Title,
			Amount:   json.Number(t.Amount.String()),
			Category: t.Category,
			Date:     t.CreatedAt.UTC().Format(time.RFC3339),
		})
	}

	data, err := json.Marshal(rows)
	if err != nil {
		return "", fmt.Errorf("encode transactions: %w", err)
	}
	return string(data), nil
}
