package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashmitsharp/wallet-insights-api/internal/database"
	"github.com/ashmitsharp/wallet-insights-api/internal/logger"
	"github.com/ashmitsharp/wallet-insights-api/internal/models"
)

func transactionApp(store *MockTransactionStore, vectors VectorSyncer) *fiber.App {
	h := NewTransactionHandler(store, vectors)
	app := newTestApp()
	app.Get("/transactions/summary/:userId", h.GetSummary)
	app.Get("/transactions/:userId", h.GetTransactions)
	app.Post("/transactions", h.CreateTransaction)
	app.Delete("/transactions/:id", h.DeleteTransaction)
	return app
}

func TestGetTransactions(t *testing.T) {
	var gotUser string
	var gotLimit int
	store := &MockTransactionStore{
		ListByUserFunc: func(_ context.Context, userID string, limit int) ([]models.Transaction, error) {
			gotUser, gotLimit = userID, limit
			return []models.Transaction{
				{ID: 2, UserID: userID, Title: "Salary", Amount: decimal.RequireFromString("5000"), Category: "income"},
				{ID: 1, UserID: userID, Title: "Swiggy", Amount: decimal.RequireFromString("-250.5"), Category: "food"},
			}, nil
		},
	}

	resp, err := transactionApp(store, nil).Test(httptest.NewRequest(http.MethodGet, "/transactions/user_1", nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "user_1", gotUser)
	assert.Equal(t, database.DefaultListLimit, gotLimit)

	var result []map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	require.Len(t, result, 2)
	assert.Equal(t, "Salary", result[0]["title"])
	assert.Equal(t, "-250.5", result[1]["amount"])
}

func TestGetTransactions_StoreError(t *testing.T) {
	store := &MockTransactionStore{
		ListByUserFunc: func(context.Context, string, int) ([]models.Transaction, error) {
			return nil, errors.New("connection refused")
		},
	}

	status, result := doRequest(t, transactionApp(store, nil), httptest.NewRequest(http.MethodGet, "/transactions/user_1", nil))

	assert.Equal(t, fiber.StatusInternalServerError, status)
	assert.Equal(t, false, result["success"])
	assert.Equal(t, "INTERNAL_ERROR", result["code"])
}

func TestCreateTransaction(t *testing.T) {
	var saved models.NewTransaction
	store := &MockTransactionStore{
		CreateFunc: func(_ context.Context, tx models.NewTransaction) (*models.Transaction, error) {
			saved = tx
			return &models.Transaction{
				ID:        42,
				UserID:    tx.UserID,
				Title:     tx.Title,
				Amount:    tx.Amount,
				Category:  tx.Category,
				CreatedAt: time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC),
			}, nil
		},
	}
	vectors := &MockVectorSyncer{}

	status, result := doRequest(t, transactionApp(store, vectors), jsonRequest(t, http.MethodPost, "/transactions", map[string]any{
		"user_id":  " user_1 ",
		"title":    "Starbucks",
		"amount":   -250.456,
		"category": "Food",
	}))

	assert.Equal(t, fiber.StatusCreated, status)
	assert.Equal(t, float64(42), result["id"])
	assert.Equal(t, "user_1", saved.UserID)
	assert.Equal(t, "food", saved.Category)
	assert.True(t, decimal.RequireFromString("-250.46").Equal(saved.Amount), "got %s", saved.Amount)

	require.Len(t, vectors.Upserted, 1)
	assert.Equal(t, int64(42), vectors.Upserted[0].ID)
}

func TestCreateTransaction_Validation(t *testing.T) {
	tests := []struct {
		name string
		body map[string]any
	}{
		{"missing user", map[string]any{"title": "Rent", "amount": -100, "category": "bills"}},
		{"missing title", map[string]any{"user_id": "u", "amount": -100, "category": "bills"}},
		{"missing amount", map[string]any{"user_id": "u", "title": "Rent", "category": "bills"}},
		{"null amount", map[string]any{"user_id": "u", "title": "Rent", "amount": nil, "category": "bills"}},
		{"blank category", map[string]any{"user_id": "u", "title": "Rent", "amount": -100, "category": "  "}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			store := &MockTransactionStore{
				CreateFunc: func(context.Context, models.NewTransaction) (*models.Transaction, error) {
					called = true
					return nil, errors.New("unexpected")
				},
			}

			status, result := doRequest(t, transactionApp(store, nil), jsonRequest(t, http.MethodPost, "/transactions", tt.body))

			assert.Equal(t, fiber.StatusBadRequest, status)
			assert.Equal(t, "All fields are required", result["message"])
			assert.False(t, called)
		})
	}
}

func TestCreateTransaction_ZeroAmountAllowed(t *testing.T) {
	status, _ := doRequest(t, transactionApp(&MockTransactionStore{}, nil), jsonRequest(t, http.MethodPost, "/transactions", map[string]any{
		"user_id":  "u",
		"title":    "Refund adjustment",
		"amount":   0,
		"category": "other",
	}))

	assert.Equal(t, fiber.StatusCreated, status)
}

func TestCreateTransaction_VectorFailureIsLogged(t *testing.T) {
	buf := &bytes.Buffer{}
	vectors := &MockVectorSyncer{UpsertErr: errors.New("pinecone timeout")}

	h := NewTransactionHandler(&MockTransactionStore{}, vectors)
	app := newTestApp()
	app.Use(func(c fiber.Ctx) error {
		c.SetContext(logger.WithContext(c.Context(), logger.NewWithWriter(buf)))
		return c.Next()
	})
	app.Post("/transactions", h.CreateTransaction)

	status, _ := doRequest(t, app, jsonRequest(t, http.MethodPost, "/transactions", map[string]any{
		"user_id":  "u",
		"title":    "Uber",
		"amount":   -120,
		"category": "transportation",
	}))

	assert.Equal(t, fiber.StatusCreated, status)
	assert.Contains(t, buf.String(), `"level":"warn"`)
	assert.Contains(t, buf.String(), "pinecone timeout")
	assert.Contains(t, buf.String(), "Failed to sync transactions to vector index")
}

func TestDeleteTransaction_VectorFailureIsLogged(t *testing.T) {
	buf := &bytes.Buffer{}
	vectors := &MockVectorSyncer{DeleteErr: errors.New("pinecone 503")}

	h := NewTransactionHandler(&MockTransactionStore{}, vectors)
	app := newTestApp()
	app.Use(func(c fiber.Ctx) error {
		c.SetContext(logger.WithContext(c.Context(), logger.NewWithWriter(buf)))
		return c.Next()
	})
	app.Delete("/transactions/:id", h.DeleteTransaction)

	status, result := doRequest(t, app, httptest.NewRequest(http.MethodDelete, "/transactions/9", nil))

	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "Transaction deleted successfully", result["message"])
	assert.Contains(t, buf.String(), `"id":9`)
	assert.Contains(t, buf.String(), "Failed to delete transaction vector")
}

func TestDeleteTransaction(t *testing.T) {
	tests := []struct {
		name        string
		path        string
		deleteErr   error
		wantStatus  int
		wantMessage string
		wantVector  bool
	}{
		{
			name:        "deleted",
			path:        "/transactions/7",
			wantStatus:  fiber.StatusOK,
			wantMessage: "Transaction deleted successfully",
			wantVector:  true,
		},
		{
			name:        "invalid id",
			path:        "/transactions/abc",
			wantStatus:  fiber.StatusBadRequest,
			wantMessage: "Invalid transaction ID",
		},
		{
			name:        "not found",
			path:        "/transactions/7",
			deleteErr:   database.ErrNotFound,
			wantStatus:  fiber.StatusNotFound,
			wantMessage: "Transaction not found",
		},
		{
			name:        "store failure",
			path:        "/transactions/7",
			deleteErr:   errors.New("db down"),
			wantStatus:  fiber.StatusInternalServerError,
			wantMessage: "An internal error occurred",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &MockTransactionStore{
				DeleteFunc: func(context.Context, int64) error { return tt.deleteErr },
			}
			vectors := &MockVectorSyncer{}

			status, result := doRequest(t, transactionApp(store, vectors), httptest.NewRequest(http.MethodDelete, tt.path, nil))

			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantMessage, result["message"])
			if tt.wantVector {
				assert.Equal(t, []int64{7}, vectors.Deleted)
			} else {
				assert.Empty(t, vectors.Deleted)
			}
		})
	}
}

func TestDeleteTransaction_DisabledIndexSkipped(t *testing.T) {
	vectors := &MockVectorSyncer{Disabled: true}

	status, _ := doRequest(t, transactionApp(&MockTransactionStore{}, vectors), httptest.NewRequest(http.MethodDelete, "/transactions/7", nil))

	assert.Equal(t, fiber.StatusOK, status)
	assert.Empty(t, vectors.Deleted)
}

func TestGetSummary(t *testing.T) {
	store := &MockTransactionStore{
		SummaryFunc: func(_ context.Context, userID string) (*models.BalanceSummary, error) {
			if userID != "user_1" {
				return nil, database.ErrNotFound
			}
			return &models.BalanceSummary{
				Balance:  decimal.RequireFromString("4749.5"),
				Income:   decimal.RequireFromString("5000"),
				Expenses: decimal.RequireFromString("-250.5"),
			}, nil
		},
	}

	status, result := doRequest(t, transactionApp(store, nil), httptest.NewRequest(http.MethodGet, "/transactions/summary/user_1", nil))

	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "4749.5", result["balance"])
	assert.Equal(t, "5000", result["income"])
	assert.Equal(t, "-250.5", result["expenses"])
}
