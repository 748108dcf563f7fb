package handlers

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v3"

	"github.com/ashmitsharp/wallet-insights-api/internal/services"
	"github.com/ashmitsharp/wallet-insights-api/internal/utils"
)

// ReceiptScanner extracts receipt data from an image
type ReceiptScanner interface {
	Scan(ctx context.Context, img services.ReceiptImage) (*services.ScanResult, error)
}

// OCRHandler serves receipt scanning
type OCRHandler struct {
	scanner   ReceiptScanner
	validator FileValidator
}

func NewOCRHandler(scanner ReceiptScanner, validator FileValidator) *OCRHandler {
	return &OCRHandler{
		scanner:   scanner,
		validator: validator,
	}
}

// ScanReceipt handles POST /api/ocr/gemini (multipart: image, optional user_id)
func (h *OCRHandler) ScanReceipt(c fiber.Ctx) error {
	fileHeader, err := c.FormFile("image")
	if err != nil {
		return utils.NewBadRequestError("No image uploaded", nil)
	}

	file, err := fileHeader.Open()
	if err != nil {
		return utils.NewInternalError(err)
	}
	defer file.Close()

	validation, err := h.validator.ValidateFile(file, fileHeader.Filename, fileHeader.Header.Get(fiber.HeaderContentType))
	if err != nil {
		return utils.NewInternalError(err)
	}
	if !validation.Valid {
		return utils.NewBadRequestError("invalid image", validation.Errors)
	}

	result, err := h.scanner.Scan(c.Context(), services.ReceiptImage{
		UserID:   strings.TrimSpace(c.FormValue("user_id")),
		Filename: fileHeader.Filename,
		MimeType: validation.MimeType,
		Data:     validation.Data,
	})
	if err != nil {
		if errors.Is(err, services.ErrNoReceiptText) {
			return utils.NewBadRequestError("No text detected by Gemini", nil)
		}
		return utils.NewBadGatewayError("Gemini OCR failed", err)
	}

	fields := fiber.Map{"data": result.Receipt}
	if result.ArchiveKey != "" {
		fields["receipt_key"] = result.ArchiveKey
	}
	if result.ArchiveURL != "" {
		fields["receipt_url"] = result.ArchiveURL
	}
	return utils.SuccessFields(c, fiber.StatusOK, fields)
}
