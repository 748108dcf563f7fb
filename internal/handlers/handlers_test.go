package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/require"

	"github.com/ashmitsharp/wallet-insights-api/internal/models"
	"github.com/ashmitsharp/wallet-insights-api/internal/services"
	"github.com/ashmitsharp/wallet-insights-api/internal/utils"
)

// MockTransactionStore is a mock implementation of TransactionStore for testing
type MockTransactionStore struct {
	ListByUserFunc  func(ctx context.Context, userID string, limit int) ([]models.Transaction, error)
	ListAllFunc     func(ctx context.Context) ([]models.Transaction, error)
	CreateFunc      func(ctx context.Context, t models.NewTransaction) (*models.Transaction, error)
	CreateBatchFunc func(ctx context.Context, txs []models.NewTransaction) ([]models.Transaction, error)
	DeleteFunc      func(ctx context.Context, id int64) error
	SummaryFunc     func(ctx context.Context, userID string) (*models.BalanceSummary, error)
}

func (m *MockTransactionStore) ListByUser(ctx context.Context, userID string, limit int) ([]models.Transaction, error) {
	if m.ListByUserFunc != nil {
		return m.ListByUserFunc(ctx, userID, limit)
	}
	return []models.Transaction{}, nil
}

func (m *MockTransactionStore) ListAll(ctx context.Context) ([]models.Transaction, error) {
	if m.ListAllFunc != nil {
		return m.ListAllFunc(ctx)
	}
	return []models.Transaction{}, nil
}

func (m *MockTransactionStore) Create(ctx context.Context, t models.NewTransaction) (*models.Transaction, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, t)
	}
	return &models.Transaction{ID: 1, UserID: t.UserID, Title: t.Title, Amount: t.Amount, Category: t.Category}, nil
}

func (m *MockTransactionStore) CreateBatch(ctx context.Context, txs []models.NewTransaction) ([]models.Transaction, error) {
	if m.CreateBatchFunc != nil {
		return m.CreateBatchFunc(ctx, txs)
	}
	created := make([]models.Transaction, 0, len(txs))
	for i, t := range txs {
		created = append(created, models.Transaction{
			ID:        int64(i + 1),
			UserID:    t.UserID,
			Title:     t.Title,
			Amount:    t.Amount,
			Category:  t.Category,
			CreatedAt: t.CreatedAt,
		})
	}
	return created, nil
}

func (m *MockTransactionStore) Delete(ctx context.Context, id int64) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	return nil
}

func (m *MockTransactionStore) Summary(ctx context.Context, userID string) (*models.BalanceSummary, error) {
	if m.SummaryFunc != nil {
		return m.SummaryFunc(ctx, userID)
	}
	return &models.BalanceSummary{}, nil
}

// MockVectorSyncer records what was mirrored into the vector index
type MockVectorSyncer struct {
	Disabled  bool
	UpsertErr error
	DeleteErr error
	Upserted  []models.Transaction
	Deleted   []int64
}

func (m *MockVectorSyncer) Enabled() bool { return !m.Disabled }

func (m *MockVectorSyncer) UpsertTransactions(_ context.Context, txs []models.Transaction) (int, error) {
	if m.UpsertErr != nil {
		return 0, m.UpsertErr
	}
	m.Upserted = append(m.Upserted, txs...)
	return len(txs), nil
}

func (m *MockVectorSyncer) DeleteTransaction(_ context.Context, id int64) error {
	m.Deleted = append(m.Deleted, id)
	return m.DeleteErr
}

// MockFileValidator accepts every file unless Errors is set
type MockFileValidator struct {
	MimeType string
	Errors   []string
	Err      error
}

func (m *MockFileValidator) ValidateFile(reader io.Reader, _, contentType string) (*services.ValidationResult, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}
	return &services.ValidationResult{
		Valid:       len(m.Errors) == 0,
		ContentType: contentType,
		MimeType:    m.MimeType,
		Size:        int64(len(data)),
		Data:        data,
		Errors:      m.Errors,
	}, nil
}

// newTestApp builds an app with the production error handler
func newTestApp() *fiber.App {
	return fiber.New(fiber.Config{ErrorHandler: utils.ErrorHandler})
}

func jsonRequest(t *testing.T, method, target string, body any) *http.Request {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(method, target, bytes.NewReader(payload))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return req
}

// multipartRequest builds a form upload. An empty fileField sends no file.
func multipartRequest(t *testing.T, target, fileField, filename string, content []byte, fields map[string]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if fileField != "" {
		part, err := w.CreateFormFile(fileField, filename)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, target, &buf)
	req.Header.Set(fiber.HeaderContentType, w.FormDataContentType())
	return req
}

func doRequest(t *testing.T, app *fiber.App, req *http.Request) (int, map[string]any) {
	t.Helper()
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var result map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	return resp.StatusCode, result
}
