package handlers

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v3"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/ashmitsharp/wallet-insights-api/internal/models"
	"github.com/ashmitsharp/wallet-insights-api/internal/services"
)

type MockInsightsGenerator struct {
	GenerateFunc func(ctx context.Context, userID string, period models.Period) (*models.Insights, error)
	calls        int
}

func (m *MockInsightsGenerator) Generate(ctx context.Context, userID string, period models.Period) (*models.Insights, error) {
	m.calls++
	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, userID, period)
	}
	return &models.Insights{
		Period: period,
		CurrentPeriod: models.CurrentPeriod{
			Start:            "2025-03-03",
			End:              "2025-03-10",
			TotalSpent:       decimal.RequireFromString("1650.5"),
			TransactionCount: 4,
		},
		Summary: "You spent less this week.",
	}, nil
}

type MockInsightsMailer struct {
	Disabled bool
	Err      error
	SentTo   string
}

func (m *MockInsightsMailer) Enabled() bool { return !m.Disabled }

func (m *MockInsightsMailer) SendInsights(_ context.Context, to string, _ *models.Insights) (string, error) {
	if m.Err != nil {
		return "", m.Err
	}
	m.SentTo = to
	return "<abc@wallet-insights>", nil
}

func insightsApp(gen InsightsGenerator, mailer InsightsMailer) *fiber.App {
	h := NewInsightsHandler(gen, mailer)
	app := newTestApp()
	app.Post("/insights/generate", h.GenerateInsights)
	app.Post("/insights/email", h.SendInsightsEmail)
	app.Get("/insights/export", h.ExportInsights)
	return app
}

func TestGenerateInsights(t *testing.T) {
	var gotPeriod models.Period
	gen := &MockInsightsGenerator{}
	gen.GenerateFunc = func(ctx context.Context, userID string, period models.Period) (*models.Insights, error) {
		gotPeriod = period
		return (&MockInsightsGenerator{}).Generate(ctx, userID, period)
	}

	status, result := doRequest(t, insightsApp(gen, nil), jsonRequest(t, http.MethodPost, "/insights/generate", map[string]string{
		"user_id": "user_1",
		"period":  "month",
	}))

	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, true, result["success"])
	assert.Equal(t, models.PeriodMonth, gotPeriod)

	insights, ok := result["insights"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "month", insights["period"])
	assert.Equal(t, "You spent less this week.", insights["summary"])
	current := insights["currentPeriod"].(map[string]any)
	assert.Equal(t, "1650.5", current["totalSpent"])
}

func TestGenerateInsights_Validation(t *testing.T) {
	tests := []struct {
		name        string
		body        map[string]string
		wantMessage string
	}{
		{"missing user", map[string]string{"period": "week"}, "user_id is required"},
		{"bad period", map[string]string{"user_id": "u", "period": "year"}, "period must be 'week' or 'month'"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := &MockInsightsGenerator{}

			status, result := doRequest(t, insightsApp(gen, nil), jsonRequest(t, http.MethodPost, "/insights/generate", tt.body))

			assert.Equal(t, fiber.StatusBadRequest, status)
			assert.Equal(t, tt.wantMessage, result["message"])
			assert.Zero(t, gen.calls)
		})
	}
}

func TestGenerateInsights_DefaultsToWeek(t *testing.T) {
	status, result := doRequest(t, insightsApp(&MockInsightsGenerator{}, nil), jsonRequest(t, http.MethodPost, "/insights/generate", map[string]string{
		"user_id": "u",
	}))

	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "week", result["insights"].(map[string]any)["period"])
}

func TestSendInsightsEmail(t *testing.T) {
	mailer := &MockInsightsMailer{}

	status, result := doRequest(t, insightsApp(&MockInsightsGenerator{}, mailer), jsonRequest(t, http.MethodPost, "/insights/email", map[string]string{
		"user_id": "user_1",
		"email":   "priya@example.com",
		"period":  "week",
	}))

	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, true, result["success"])
	assert.Equal(t, "<abc@wallet-insights>", result["messageId"])
	assert.Equal(t, "priya@example.com", mailer.SentTo)
}

func TestSendInsightsEmail_Errors(t *testing.T) {
	valid := map[string]string{"user_id": "u", "email": "priya@example.com"}

	tests := []struct {
		name        string
		body        map[string]string
		mailer      InsightsMailer
		wantStatus  int
		wantMessage string
	}{
		{
			name:        "missing email",
			body:        map[string]string{"user_id": "u"},
			mailer:      &MockInsightsMailer{},
			wantStatus:  fiber.StatusBadRequest,
			wantMessage: "user_id and email are required",
		},
		{
			name:        "invalid email",
			body:        map[string]string{"user_id": "u", "email": "not-an-email"},
			mailer:      &MockInsightsMailer{},
			wantStatus:  fiber.StatusBadRequest,
			wantMessage: "invalid email address",
		},
		{
			name:        "no mailer",
			body:        valid,
			wantStatus:  fiber.StatusServiceUnavailable,
			wantMessage: "email delivery is not configured",
		},
		{
			name:        "mailer disabled",
			body:        valid,
			mailer:      &MockInsightsMailer{Disabled: true},
			wantStatus:  fiber.StatusServiceUnavailable,
			wantMessage: "email delivery is not configured",
		},
		{
			name:        "smtp failure",
			body:        valid,
			mailer:      &MockInsightsMailer{Err: errors.New("535 auth failed")},
			wantStatus:  fiber.StatusBadGateway,
			wantMessage: "Failed to send email",
		},
		{
			name:        "disabled at send time",
			body:        valid,
			mailer:      &MockInsightsMailer{Err: services.ErrMailerDisabled},
			wantStatus:  fiber.StatusServiceUnavailable,
			wantMessage: "email delivery is not configured",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, result := doRequest(t, insightsApp(&MockInsightsGenerator{}, tt.mailer), jsonRequest(t, http.MethodPost, "/insights/email", tt.body))

			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantMessage, result["message"])
		})
	}
}

func TestExportInsights(t *testing.T) {
	resp, err := insightsApp(&MockInsightsGenerator{}, nil).
		Test(httptest.NewRequest(http.MethodGet, "/insights/export?user_id=user_1&period=week", nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, services.XLSXContentType, resp.Header.Get(fiber.HeaderContentType))
	assert.Equal(t, `attachment; filename="insights-week-2025-03-03.xlsx"`, resp.Header.Get(fiber.HeaderContentDisposition))

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	f, err := excelize.OpenReader(bytes.NewReader(body))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(services.SheetSummary)
	require.NoError(t, err)
	assert.Equal(t, []string{"Total Spent", "1650.5"}, rows[4])
}

func TestExportInsights_GeneratorError(t *testing.T) {
	gen := &MockInsightsGenerator{
		GenerateFunc: func(context.Context, string, models.Period) (*models.Insights, error) {
			return nil, errors.New("db down")
		},
	}

	status, result := doRequest(t, insightsApp(gen, nil), httptest.NewRequest(http.MethodGet, "/insights/export?user_id=u", nil))

	assert.Equal(t, fiber.StatusInternalServerError, status)
	assert.Equal(t, "INTERNAL_ERROR", result["code"])
}
