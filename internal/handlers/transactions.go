package handlers

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/shopspring/decimal"

	"github.com/ashmitsharp/wallet-insights-api/internal/database"
	"github.com/ashmitsharp/wallet-insights-api/internal/logger"
	"github.com/ashmitsharp/wallet-insights-api/internal/models"
	"github.com/ashmitsharp/wallet-insights-api/internal/utils"
)

// TransactionStore is the persistence used by the transaction endpoints
type TransactionStore interface {
	ListByUser(ctx context.Context, userID string, limit int) ([]models.Transaction, error)
	Create(ctx context.Context, t models.NewTransaction) (*models.Transaction, error)
	CreateBatch(ctx context.Context, txs []models.NewTransaction) ([]models.Transaction, error)
	Delete(ctx context.Context, id int64) error
	Summary(ctx context.Context, userID string) (*models.BalanceSummary, error)
}

// VectorSyncer mirrors stored transactions into the vector index
type VectorSyncer interface {
	Enabled() bool
	UpsertTransactions(ctx context.Context, txs []models.Transaction) (int, error)
	DeleteTransaction(ctx context.Context, id int64) error
}

// TransactionHandler handles transaction-related requests
type TransactionHandler struct {
	store   TransactionStore
	vectors VectorSyncer
}

// NewTransactionHandler creates a new transaction handler. vectors may be nil.
func NewTransactionHandler(store TransactionStore, vectors VectorSyncer) *TransactionHandler {
	return &TransactionHandler{
		store:   store,
		vectors: vectors,
	}
}

// CreateTransactionRequest is the body of POST /api/transactions
type CreateTransactionRequest struct {
	UserID   string              `json:"user_id"`
	Title    string              `json:"title"`
	Amount   decimal.NullDecimal `json:"amount"`
	Category string              `json:"category"`
}

// GetTransactions returns the latest transactions of a user
// GET /api/transactions/:userId
func (h *TransactionHandler) GetTransactions(c fiber.Ctx) error {
	userID := strings.TrimSpace(c.Params("userId"))
	if userID == "" {
		return utils.NewBadRequestError("userId is required", nil)
	}

	transactions, err := h.store.ListByUser(c.Context(), userID, database.DefaultListLimit)
	if err != nil {
		return utils.NewInternalError(err)
	}

	return c.JSON(transactions)
}

// CreateTransaction stores one transaction and syncs its vector
// POST /api/transactions
func (h *TransactionHandler) CreateTransaction(c fiber.Ctx) error {
	var req CreateTransactionRequest
	if err := c.Bind().JSON(&req); err != nil {
		return utils.NewBadRequestError("invalid request body", err.Error())
	}

	req.UserID = strings.TrimSpace(req.UserID)
	req.Title = strings.TrimSpace(req.Title)
	req.Category = strings.ToLower(strings.TrimSpace(req.Category))
	if req.UserID == "" || req.Title == "" || req.Category == "" || !req.Amount.Valid {
		return utils.NewBadRequestError("All fields are required", nil)
	}

	created, err := h.store.Create(c.Context(), models.NewTransaction{
		UserID:   req.UserID,
		Title:    req.Title,
		Amount:   req.Amount.Decimal.Round(2),
		Category: req.Category,
	})
	if err != nil {
		return utils.NewInternalError(err)
	}

	h.syncVectors(c, []models.Transaction{*created})

	return c.Status(fiber.StatusCreated).JSON(created)
}

// DeleteTransaction removes a transaction and its vector
// DELETE /api/transactions/:id
func (h *TransactionHandler) DeleteTransaction(c fiber.Ctx) error {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return utils.NewBadRequestError("Invalid transaction ID", nil)
	}

	if err := h.store.Delete(c.Context(), id); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return utils.NewNotFoundError("Transaction")
		}
		return utils.NewInternalError(err)
	}

	if h.vectors != nil && h.vectors.Enabled() {
		if err := h.vectors.DeleteTransaction(c.Context(), id); err != nil {
			logger.FromContext(c.Context()).Warn().Err(err).Int64("id", id).Msg("Failed to delete transaction vector")
		}
	}

	return c.JSON(fiber.Map{"message": "Transaction deleted successfully"})
}

// syncVectors upserts best-effort; failures are only logged
func (h *TransactionHandler) syncVectors(c fiber.Ctx, txs []models.Transaction) {
	if h.vectors == nil || !h.vectors.Enabled() || len(txs) == 0 {
		return
	}
	if _, err := h.vectors.UpsertTransactions(c.Context(), txs); err != nil {
		logger.FromContext(c.Context()).Warn().Err(err).Int("count", len(txs)).Msg("Failed to sync transactions to vector index")
	}
}
