package handlers

import (
	"bytes"
	"io"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/ashmitsharp/wallet-insights-api/internal/logger"
	"github.com/ashmitsharp/wallet-insights-api/internal/models"
	"github.com/ashmitsharp/wallet-insights-api/internal/services"
	"github.com/ashmitsharp/wallet-insights-api/internal/utils"
)

// FileValidator checks an upload's name, declared type, size and magic bytes
type FileValidator interface {
	ValidateFile(reader io.Reader, filename, contentType string) (*services.ValidationResult, error)
}

// Parser interface defines methods for parsing statement files
type Parser interface {
	ParseFile(file io.Reader, filename string) (*services.ParseResult, error)
}

// Categorizer picks a category for a transaction title
type Categorizer interface {
	Classify(text string) string
}

// UploadHandler imports CSV and XLSX statements
type UploadHandler struct {
	store       TransactionStore
	vectors     VectorSyncer
	validator   FileValidator
	parser      Parser
	categorizer Categorizer
}

// NewUploadHandler creates a new upload handler instance. vectors may be nil;
// a nil categorizer uses the default rule set.
func NewUploadHandler(store TransactionStore, vectors VectorSyncer, validator FileValidator, parser Parser, categorizer Categorizer) *UploadHandler {
	if categorizer == nil {
		categorizer = services.DefaultClassifier()
	}
	return &UploadHandler{
		store:       store,
		vectors:     vectors,
		validator:   validator,
		parser:      parser,
		categorizer: categorizer,
	}
}

// ImportStatement parses an uploaded statement and stores every valid row
// POST /api/transactions/import (multipart: file, user_id)
func (h *UploadHandler) ImportStatement(c fiber.Ctx) error {
	// 1. Validate form fields
	userID := strings.TrimSpace(c.FormValue("user_id"))
	if userID == "" {
		return utils.NewBadRequestError("user_id is required", nil)
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return utils.NewBadRequestError("file is required", nil)
	}

	file, err := fileHeader.Open()
	if err != nil {
		return utils.NewInternalError(err)
	}
	defer file.Close()

	// 2. Validate size and content
	validation, err := h.validator.ValidateFile(file, fileHeader.Filename, fileHeader.Header.Get(fiber.HeaderContentType))
	if err != nil {
		return utils.NewInternalError(err)
	}
	if !validation.Valid {
		return utils.NewBadRequestError("invalid file", validation.Errors)
	}

	// 3. Parse rows
	parsed, err := h.parser.ParseFile(bytes.NewReader(validation.Data), fileHeader.Filename)
	if err != nil {
		return utils.NewBadRequestError("failed to parse file", err.Error())
	}
	if len(parsed.Transactions) == 0 {
		return utils.NewBadRequestError("no valid transactions found", parsed.Skipped)
	}

	// 4. Classify uncategorized rows and save in one batch
	created, err := h.store.CreateBatch(c.Context(), services.ToNewTransactions(userID, parsed.Transactions, h.categorizer))
	if err != nil {
		return utils.NewInternalError(err)
	}

	// 5. Best-effort vector sync
	if h.vectors != nil && h.vectors.Enabled() {
		if _, err := h.vectors.UpsertTransactions(c.Context(), created); err != nil {
			logger.FromContext(c.Context()).Warn().Err(err).Int("count", len(created)).Msg("Failed to sync imported transactions to vector index")
		}
	}

	logger.FromContext(c.Context()).Info().
		Str("user_id", userID).
		Str("format", parsed.Format).
		Int("imported", len(created)).
		Int("skipped", len(parsed.Skipped)).
		Msg("Statement imported")

	return utils.SuccessFields(c, fiber.StatusCreated, buildImportSummary(fileHeader.Filename, parsed, created))
}

// buildImportSummary creates the response for an import
func buildImportSummary(filename string, parsed *services.ParseResult, created []models.Transaction) fiber.Map {
	return fiber.Map{
		"filename":     filename,
		"format":       parsed.Format,
		"total_rows":   len(parsed.Transactions) + len(parsed.Skipped),
		"imported":     len(created),
		"skipped":      parsed.Skipped,
		"date_range":   calculateDateRange(created),
		"categorized":  countByCategory(created),
		"transactions": created,
	}
}

// calculateDateRange finds the earliest and latest transaction dates
func calculateDateRange(transactions []models.Transaction) fiber.Map {
	var minDate, maxDate time.Time

	if len(transactions) > 0 {
		minDate = transactions[0].CreatedAt
		maxDate = transactions[0].CreatedAt

		for _, txn := range transactions {
			if txn.CreatedAt.Before(minDate) {
				minDate = txn.CreatedAt
			}
			if txn.CreatedAt.After(maxDate) {
				maxDate = txn.CreatedAt
			}
		}
	}

	return fiber.Map{
		"from": minDate.Format(models.DateLayout),
		"to":   maxDate.Format(models.DateLayout),
	}
}

func countByCategory(transactions []models.Transaction) map[string]int {
	counts := make(map[string]int)
	for _, t := range transactions {
		counts[t.Category]++
	}
	return counts
}
