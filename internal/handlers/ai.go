package handlers

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v3"

	"github.com/ashmitsharp/wallet-insights-api/internal/services"
	"github.com/ashmitsharp/wallet-insights-api/internal/utils"
)

// ExpenseAssistant answers questions about a user's transactions
type ExpenseAssistant interface {
	Analyze(ctx context.Context, userID, query string) (string, error)
}

// AIHandler serves the finance Q&A endpoint
type AIHandler struct {
	assistant ExpenseAssistant
}

func NewAIHandler(assistant ExpenseAssistant) *AIHandler {
	return &AIHandler{assistant: assistant}
}

// AnalyzeRequest is the body of POST /api/ai/analyze
type AnalyzeRequest struct {
	UserID string `json:"user_id"`
	Query  string `json:"query"`
}

// AnalyzeExpenses handles POST /api/ai/analyze
func (h *AIHandler) AnalyzeExpenses(c fiber.Ctx) error {
	var req AnalyzeRequest
	if err := c.Bind().JSON(&req); err != nil {
		return utils.NewBadRequestError("invalid request body", err.Error())
	}

	userID := strings.TrimSpace(req.UserID)
	query := strings.TrimSpace(req.Query)
	if userID == "" || query == "" {
		return utils.NewBadRequestError("user_id and query are required", nil)
	}

	reply, err := h.assistant.Analyze(c.Context(), userID, query)
	if err != nil {
		if errors.Is(err, services.ErrModelUnavailable) {
			return utils.NewBadGatewayError("AI analysis failed", err)
		}
		return utils.NewInternalError(err)
	}

	return utils.SuccessFields(c, fiber.StatusOK, fiber.Map{"reply": reply})
}
