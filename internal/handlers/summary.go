package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v3"

	"github.com/ashmitsharp/wallet-insights-api/internal/utils"
)

// GetSummary returns the all-time balance, income and signed expenses of a user
// GET /api/transactions/summary/:userId
func (h *TransactionHandler) GetSummary(c fiber.Ctx) error {
	userID := strings.TrimSpace(c.Params("userId"))
	if userID == "" {
		return utils.NewBadRequestError("userId is required", nil)
	}

	summary, err := h.store.Summary(c.Context(), userID)
	if err != nil {
		return utils.NewInternalError(err)
	}

	return c.JSON(summary)
}
