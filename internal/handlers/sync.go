package handlers

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v3"

	"github.com/ashmitsharp/wallet-insights-api/internal/logger"
	"github.com/ashmitsharp/wallet-insights-api/internal/models"
	"github.com/ashmitsharp/wallet-insights-api/internal/services"
	"github.com/ashmitsharp/wallet-insights-api/internal/utils"
)

// AllTransactionsLister loads every stored transaction
type AllTransactionsLister interface {
	ListAll(ctx context.Context) ([]models.Transaction, error)
}

// SyncHandler re-indexes all transactions in the vector store
type SyncHandler struct {
	store   AllTransactionsLister
	vectors VectorSyncer
}

func NewSyncHandler(store AllTransactionsLister, vectors VectorSyncer) *SyncHandler {
	return &SyncHandler{
		store:   store,
		vectors: vectors,
	}
}

// SyncTransactions handles POST /api/sync
func (h *SyncHandler) SyncTransactions(c fiber.Ctx) error {
	if h.vectors == nil || !h.vectors.Enabled() {
		return utils.NewServiceUnavailableError("vector index is not configured")
	}

	transactions, err := h.store.ListAll(c.Context())
	if err != nil {
		return utils.NewInternalError(err)
	}

	count, err := h.vectors.UpsertTransactions(c.Context(), transactions)
	if err != nil {
		if errors.Is(err, services.ErrVectorIndexDisabled) {
			return utils.NewServiceUnavailableError("vector index is not configured")
		}
		return utils.NewBadGatewayError("Failed to sync transactions.", err)
	}

	message := "Transactions synced successfully."
	if count == 0 {
		message = "No transactions to sync."
	}
	logger.FromContext(c.Context()).Info().Int("count", count).Msg("Vector sync complete")

	return utils.SuccessFields(c, fiber.StatusOK, fiber.Map{
		"message": message,
		"count":   count,
	})
}
