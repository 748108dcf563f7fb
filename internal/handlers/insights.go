package handlers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/gofiber/fiber/v3"

	"github.com/ashmitsharp/wallet-insights-api/internal/logger"
	"github.com/ashmitsharp/wallet-insights-api/internal/models"
	"github.com/ashmitsharp/wallet-insights-api/internal/services"
	"github.com/ashmitsharp/wallet-insights-api/internal/utils"
)

// InsightsGenerator builds period insights with an AI summary
type InsightsGenerator interface {
	Generate(ctx context.Context, userID string, period models.Period) (*models.Insights, error)
}

// InsightsMailer sends a rendered report
type InsightsMailer interface {
	Enabled() bool
	SendInsights(ctx context.Context, to string, insights *models.Insights) (string, error)
}

// InsightsHandler serves insight generation, email delivery and export
type InsightsHandler struct {
	generator InsightsGenerator
	mailer    InsightsMailer
}

// NewInsightsHandler creates a new insights handler. mailer may be nil.
func NewInsightsHandler(generator InsightsGenerator, mailer InsightsMailer) *InsightsHandler {
	return &InsightsHandler{
		generator: generator,
		mailer:    mailer,
	}
}

// InsightsRequest is the body of the insights endpoints
type InsightsRequest struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Period string `json:"period"`
}

// GenerateInsights handles POST /api/insights/generate
func (h *InsightsHandler) GenerateInsights(c fiber.Ctx) error {
	var req InsightsRequest
	if err := c.Bind().JSON(&req); err != nil {
		return utils.NewBadRequestError("invalid request body", err.Error())
	}

	userID, period, err := validateInsightsInput(req.UserID, req.Period)
	if err != nil {
		return err
	}

	insights, err := h.generator.Generate(c.Context(), userID, period)
	if err != nil {
		return utils.NewInternalError(err)
	}

	return utils.SuccessFields(c, fiber.StatusOK, fiber.Map{"insights": insights})
}

// SendInsightsEmail handles POST /api/insights/email
func (h *InsightsHandler) SendInsightsEmail(c fiber.Ctx) error {
	var req InsightsRequest
	if err := c.Bind().JSON(&req); err != nil {
		return utils.NewBadRequestError("invalid request body", err.Error())
	}

	email := strings.TrimSpace(req.Email)
	if strings.TrimSpace(req.UserID) == "" || email == "" {
		return utils.NewBadRequestError("user_id and email are required", nil)
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return utils.NewBadRequestError("invalid email address", nil)
	}

	userID, period, err := validateInsightsInput(req.UserID, req.Period)
	if err != nil {
		return err
	}

	if h.mailer == nil || !h.mailer.Enabled() {
		return utils.NewServiceUnavailableError("email delivery is not configured")
	}

	insights, err := h.generator.Generate(c.Context(), userID, period)
	if err != nil {
		return utils.NewInternalError(err)
	}

	messageID, err := h.mailer.SendInsights(c.Context(), email, insights)
	if err != nil {
		if errors.Is(err, services.ErrMailerDisabled) {
			return utils.NewServiceUnavailableError("email delivery is not configured")
		}
		return utils.NewBadGatewayError("Failed to send email", err)
	}

	logger.FromContext(c.Context()).Info().Str("user_id", userID).Str("message_id", messageID).Msg("Insights email sent")

	return utils.SuccessFields(c, fiber.StatusOK, fiber.Map{
		"message":   "Insights email sent successfully",
		"messageId": messageID,
	})
}

// ExportInsights handles GET /api/insights/export?user_id=&period=
func (h *InsightsHandler) ExportInsights(c fiber.Ctx) error {
	userID, period, err := validateInsightsInput(c.Query("user_id"), c.Query("period"))
	if err != nil {
		return err
	}

	insights, err := h.generator.Generate(c.Context(), userID, period)
	if err != nil {
		return utils.NewInternalError(err)
	}

	var buf bytes.Buffer
	if err := services.ExportInsightsXLSX(&buf, insights); err != nil {
		return utils.NewInternalError(err)
	}

	filename := fmt.Sprintf("insights-%s-%s.xlsx", period, insights.CurrentPeriod.Start)
	c.Set(fiber.HeaderContentType, services.XLSXContentType)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s"`, filename))
	return c.Send(buf.Bytes())
}

func validateInsightsInput(userID, rawPeriod string) (string, models.Period, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return "", "", utils.NewBadRequestError("user_id is required", nil)
	}

	period, err := models.ParsePeriod(strings.TrimSpace(rawPeriod))
	if err != nil {
		return "", "", utils.NewBadRequestError("period must be 'week' or 'month'", nil)
	}
	return userID, period, nil
}
