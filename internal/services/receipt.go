package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ashmitsharp/wallet-insights-api/internal/models"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// ErrNoReceiptText is returned when the model reads nothing from the image
var ErrNoReceiptText = errors.New("no text detected in receipt")

// AnonymousUser owns receipts uploaded without a user id
const AnonymousUser = "anonymous"

// ImageGenerator answers a prompt about an inline image
type ImageGenerator interface {
	GenerateFromImage(ctx context.Context, prompt string, image []byte, mimeType string) (string, error)
}

// ReceiptArchive stores receipt images
type ReceiptArchive interface {
	GenerateReceiptKey(userID, filename string) (string, error)
	UploadReceipt(ctx context.Context, key, contentType string, data []byte) error
	GeneratePresignedURL(ctx context.Context, key string, expiry time.Duration) (string, error)
}

// ReceiptImage is a validated upload
type ReceiptImage struct {
	UserID   string
	Filename string
	MimeType string
	Data     []byte
}

// ScanResult is the extracted receipt plus where the image was archived, if it was
type ScanResult struct {
	Receipt    models.ReceiptData
	ArchiveKey string
	ArchiveURL string
}

// ReceiptScanner extracts merchant, total and category from receipt photos
type ReceiptScanner struct {
	llm        ImageGenerator
	classifier TitleClassifier
	archive    ReceiptArchive
	logger     zerolog.Logger
}

// NewReceiptScanner creates a scanner. archive may be nil to skip archiving.
func NewReceiptScanner(llm ImageGenerator, classifier TitleClassifier, archive ReceiptArchive, logger zerolog.Logger) *ReceiptScanner {
	if classifier == nil {
		classifier = DefaultClassifier()
	}
	return &ReceiptScanner{
		llm:        llm,
		classifier: classifier,
		archive:    archive,
		logger:     logger,
	}
}

// Scan reads the receipt and archives the image when an archive is configured.
// Archive failures are logged and never fail the scan.
func (s *ReceiptScanner) Scan(ctx context.Context, img ReceiptImage) (*ScanResult, error) {
	reply, err := s.llm.GenerateFromImage(ctx, ReceiptPrompt, img.Data, img.MimeType)
	if err != nil {
		return nil, fmt.Errorf("receipt ocr: %w: %w", ErrModelUnavailable, err)
	}

	receipt, err := s.parseReply(reply)
	if err != nil {
		return nil, err
	}

	result := &ScanResult{Receipt: *receipt}
	if s.archive != nil {
		key, url, err := s.store(ctx, img)
		if err != nil {
			s.logger.Warn().Err(err).Str("user_id", img.UserID).Msg("Failed to archive receipt image")
		} else {
			result.ArchiveKey = key
			result.ArchiveURL = url
		}
	}

	return result, nil
}

type receiptReply struct {
	Name     string          `json:"name"`
	Total    decimal.Decimal `json:"total"`
	Category string          `json:"category"`
}

func (s *ReceiptScanner) parseReply(reply string) (*models.ReceiptData, error) {
	cleaned := cleanModelJSON(reply)
	if cleaned == "" {
		return nil, ErrNoReceiptText
	}

	var parsed receiptReply
	if err := json.Unmarshal([]byte(cleaned), &parsed); err != nil {
		return nil, fmt.Errorf("parse receipt json: %w", err)
	}

	name := strings.TrimSpace(parsed.Name)
	category := strings.ToLower(strings.TrimSpace(parsed.Category))
	if category == "" || category == CategoryOther {
		category = s.classifier.Classify(name)
	}

	return &models.ReceiptData{
		Name:     name,
		Total:    parsed.Total.Abs().Round(2),
		Category: category,
	}, nil
}

func (s *ReceiptScanner) store(ctx context.Context, img ReceiptImage) (string, string, error) {
	userID := img.UserID
	if userID == "" {
		userID = AnonymousUser
	}
	filename := img.Filename
	if filename == "" {
		filename = "receipt"
	}

	key, err := s.archive.GenerateReceiptKey(userID, filename)
	if err != nil {
		return "", "", err
	}
	if err := s.archive.UploadReceipt(ctx, key, img.MimeType, img.Data); err != nil {
		return "", "", err
	}

	url, err := s.archive.GeneratePresignedURL(ctx, key, ReceiptURLExpiry)
	if err != nil {
		// The image is stored even if the link can not be signed
		s.logger.Warn().Err(err).Str("key", key).Msg("Failed to presign receipt URL")
		return key, "", nil
	}
	return key, url, nil
}
