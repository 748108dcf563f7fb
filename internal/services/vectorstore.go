package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/ashmitsharp/wallet-insights-api/internal/models"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// ErrVectorIndexDisabled is returned when no vector index is configured
var ErrVectorIndexDisabled = errors.New("vector index is not configured")

const (
	// VectorUpsertBatchSize is the max vectors sent per upsert call
	VectorUpsertBatchSize = 100
	// DefaultRelevantTopK is how many matches semantic search returns
	DefaultRelevantTopK = 20
	// embedConcurrency bounds parallel embedding calls
	embedConcurrency = 8
)

// Embedder turns text into a dense vector
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// VectorMetadata is stored next to every transaction vector
type VectorMetadata struct {
	UserID   string
	Title    string
	Amount   float64
	Category string
	Date     string
	Text     string
}

// TransactionVector is one embedded transaction
type TransactionVector struct {
	ID       string
	Values   []float32
	Metadata VectorMetadata
}

// VectorMatch is a scored search hit
type VectorMatch struct {
	ID       string
	Score    float32
	Metadata VectorMetadata
}

// VectorIndex is the storage behind semantic search
type VectorIndex interface {
	Upsert(ctx context.Context, vectors []TransactionVector) error
	Query(ctx context.Context, values []float32, userID string, topK int) ([]VectorMatch, error)
	Delete(ctx context.Context, ids []string) error
}

// VectorStore embeds transactions and keeps them searchable per user
type VectorStore struct {
	embedder Embedder
	index    VectorIndex
	logger   zerolog.Logger
}

// NewVectorStore creates a store. A nil index disables every operation.
func NewVectorStore(embedder Embedder, index VectorIndex, logger zerolog.Logger) *VectorStore {
	return &VectorStore{
		embedder: embedder,
		index:    index,
		logger:   logger,
	}
}

// Enabled reports whether an index is configured
func (v *VectorStore) Enabled() bool {
	return v != nil && v.index != nil
}

// EmbeddingText is the sentence embedded for a transaction
func EmbeddingText(t models.Transaction) string {
	return fmt.Sprintf("Spent %s on %s in category %s on %s",
		t.Amount.StringFixed(2), t.Title, t.Category, t.CreatedAt.UTC().Format(time.RFC3339))
}

// UpsertTransactions embeds transactions in parallel and upserts them in batches.
// It returns how many transactions were written.
func (v *VectorStore) UpsertTransactions(ctx context.Context, transactions []models.Transaction) (int, error) {
	if !v.Enabled() {
		return 0, ErrVectorIndexDisabled
	}
	if len(transactions) == 0 {
		return 0, nil
	}

	vectors := make([]TransactionVector, len(transactions))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(embedConcurrency)
	for i, t := range transactions {
		g.Go(func() error {
			text := EmbeddingText(t)
			values, err := v.embedder.Embed(gctx, text)
			if err != nil {
				return fmt.Errorf("embed transaction %d: %w", t.ID, err)
			}
			vectors[i] = TransactionVector{
				ID:     strconv.FormatInt(t.ID, 10),
				Values: values,
				Metadata: VectorMetadata{
					UserID:   t.UserID,
					Title:    t.Title,
					Amount:   t.Amount.InexactFloat64(),
					Category: t.Category,
					Date:     t.CreatedAt.UTC().Format(time.RFC3339),
					Text:     text,
				},
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	for start := 0; start < len(vectors); start += VectorUpsertBatchSize {
		end := min(start+VectorUpsertBatchSize, len(vectors))
		if err := v.index.Upsert(ctx, vectors[start:end]); err != nil {
			return start, fmt.Errorf("upsert vectors %d-%d: %w", start, end, err)
		}
	}

	v.logger.Info().Int("count", len(vectors)).Msg("Upserted transaction vectors")
	return len(vectors), nil
}

// QueryTransactions returns the user's transactions closest to query.
// topK <= 0 uses DefaultRelevantTopK.
func (v *VectorStore) QueryTransactions(ctx context.Context, query, userID string, topK int) ([]models.RelevantTransaction, error) {
	if !v.Enabled() {
		return nil, ErrVectorIndexDisabled
	}
	if topK <= 0 {
		topK = DefaultRelevantTopK
	}

	values, err := v.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	matches, err := v.index.Query(ctx, values, userID, topK)
	if err != nil {
		return nil, fmt.Errorf("query vectors: %w", err)
	}

	relevant := make([]models.RelevantTransaction, 0, len(matches))
	for _, m := range matches {
		relevant = append(relevant, models.RelevantTransaction{
			ID:       m.ID,
			Score:    m.Score,
			Title:    m.Metadata.Title,
			Amount:   decimal.NewFromFloat(m.Metadata.Amount).StringFixed(2),
			Category: m.Metadata.Category,
			Date:     m.Metadata.Date,
			Text:     m.Metadata.Text,
		})
	}
	return relevant, nil
}

// DeleteTransaction removes one transaction's vector
func (v *VectorStore) DeleteTransaction(ctx context.Context, id int64) error {
	if !v.Enabled() {
		return ErrVectorIndexDisabled
	}
	if err := v.index.Delete(ctx, []string{strconv.FormatInt(id, 10)}); err != nil {
		return fmt.Errorf("delete vector %d: %w", id, err)
	}
	return nil
}
