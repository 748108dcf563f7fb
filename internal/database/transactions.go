package database

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ashmitsharp/wallet-insights-api/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// DefaultListLimit is how many rows ListByUser returns when no limit is given
const DefaultListLimit = 200

const transactionColumns = `id, user_id, title, amount, category, created_at`

// TransactionStore reads and writes the transactions table
type TransactionStore struct {
	db *pgxpool.Pool
}

// NewTransactionStore creates a new transaction store
func NewTransactionStore(pool *pgxpool.Pool) *TransactionStore {
	return &TransactionStore{db: pool}
}

// ListByUser returns the latest transactions of a user, newest first
func (s *TransactionStore) ListByUser(ctx context.Context, userID string, limit int) ([]models.Transaction, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := s.db.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	return collectTransactions(rows)
}

// ListByUserAndDateRange returns a user's transactions with from <= created_at < until,
// newest first
func (s *TransactionStore) ListByUserAndDateRange(ctx context.Context, userID string, from, until time.Time) ([]models.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE user_id = $1
		  AND created_at >= $2
		  AND created_at < $3
		ORDER BY created_at DESC
	`

	rows, err := s.db.Query(ctx, query, userID, from, until)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions in range: %w", err)
	}
	return collectTransactions(rows)
}

// ListAll returns every stored transaction, oldest first
func (s *TransactionStore) ListAll(ctx context.Context) ([]models.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions ORDER BY id`

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list all transactions: %w", err)
	}
	return collectTransactions(rows)
}

const insertTransaction = `
	INSERT INTO transactions (user_id, title, amount, category, created_at)
	VALUES ($1, $2, $3, $4, COALESCE($5::timestamptz, NOW()))
	RETURNING ` + transactionColumns

// Create inserts a transaction and returns the stored row
func (s *TransactionStore) Create(ctx context.Context, t models.NewTransaction) (*models.Transaction, error) {
	row := s.db.QueryRow(ctx, insertTransaction, insertArgs(t)...)

	created, err := scanTransaction(row)
	if err != nil {
		return nil, fmt.Errorf("failed to create transaction: %w", err)
	}
	return &created, nil
}

// CreateBatch inserts all transactions in a single database transaction.
// Either every row is stored or none is.
func (s *TransactionStore) CreateBatch(ctx context.Context, txs []models.NewTransaction) ([]models.Transaction, error) {
	if len(txs) == 0 {
		return []models.Transaction{}, nil
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	batch := &pgx.Batch{}
	for _, t := range txs {
		batch.Queue(insertTransaction, insertArgs(t)...)
	}

	results := tx.SendBatch(ctx, batch)
	created := make([]models.Transaction, 0, len(txs))
	for i := range txs {
		row, err := scanTransaction(results.QueryRow())
		if err != nil {
			results.Close()
			return nil, fmt.Errorf("failed to insert row %d: %w", i+1, err)
		}
		created = append(created, row)
	}
	if err := results.Close(); err != nil {
		return nil, fmt.Errorf("failed to close batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit batch: %w", err)
	}
	return created, nil
}

// Delete removes a transaction by id. Returns ErrNotFound if no row matched.
func (s *TransactionStore) Delete(ctx context.Context, id int64) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM transactions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete transaction: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Summary returns the all-time balance, income and (signed) expenses of a user
func (s *TransactionStore) Summary(ctx context.Context, userID string) (*models.BalanceSummary, error) {
	query := `
		SELECT
			COALESCE(SUM(amount), 0),
			COALESCE(SUM(amount) FILTER (WHERE amount > 0), 0),
			COALESCE(SUM(amount) FILTER (WHERE amount < 0), 0)
		FROM transactions
		WHERE user_id = $1
	`

	var balance, income, expenses pgtype.Numeric
	if err := s.db.QueryRow(ctx, query, userID).Scan(&balance, &income, &expenses); err != nil {
		return nil, fmt.Errorf("failed to get summary: %w", err)
	}

	return &models.BalanceSummary{
		Balance:  numericToDecimal(balance),
		Income:   numericToDecimal(income),
		Expenses: numericToDecimal(expenses),
	}, nil
}

func insertArgs(t models.NewTransaction) []any {
	var createdAt *time.Time
	if !t.CreatedAt.IsZero() {
		createdAt = &t.CreatedAt
	}
	return []any{t.UserID, t.Title, decimalToNumeric(t.Amount), t.Category, createdAt}
}

func collectTransactions(rows pgx.Rows) ([]models.Transaction, error) {
	defer rows.Close()

	transactions := make([]models.Transaction, 0)
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}
	return transactions, nil
}

func scanTransaction(row pgx.Row) (models.Transaction, error) {
	var t models.Transaction
	var amount pgtype.Numeric

	err := row.Scan(&t.ID, &t.UserID, &t.Title, &amount, &t.Category, &t.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return t, ErrNotFound
	}
	if err != nil {
		return t, err
	}

	t.Amount = numericToDecimal(amount)
	return t, nil
}

// numericToDecimal converts a NUMERIC column. NULL and NaN become zero.
func numericToDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid || n.NaN || n.Int == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(n.Int, n.Exp)
}

func decimalToNumeric(d decimal.Decimal) pgtype.Numeric {
	return pgtype.Numeric{
		Int:   new(big.Int).Set(d.Coefficient()),
		Exp:   d.Exponent(),
		Valid: true,
	}
}
