package services

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// Detected file types
const (
	FileTypeJPEG = "JPEG"
	FileTypePNG  = "PNG"
	FileTypeWEBP = "WEBP"
	FileTypeHEIC = "HEIC"
	FileTypeCSV  = "CSV"
	FileTypeXLSX = "XLSX"
)

// genericMimeType is what many mobile clients send when they do not know better
const genericMimeType = "application/octet-stream"

// canonicalMimeTypes maps a detected type to the MIME type passed on to the model and S3
var canonicalMimeTypes = map[string]string{
	FileTypeJPEG: "image/jpeg",
	FileTypePNG:  "image/png",
	FileTypeWEBP: "image/webp",
	FileTypeHEIC: "image/heic",
	FileTypeCSV:  "text/csv",
	FileTypeXLSX: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
}

// ValidationResult contains the results of file validation
type ValidationResult struct {
	Valid        bool
	DetectedType string // "JPEG", "PNG", "WEBP", "HEIC", "CSV", "XLSX"
	ContentType  string // As declared by the client
	MimeType     string // Canonical MIME type of DetectedType
	Size         int64
	Data         []byte
	Errors       []string
}

// FileValidator validates uploaded files for security and format compliance
type FileValidator struct {
	maxSizeBytes int64
	extensions   map[string]bool
	allowedTypes map[string][]string // MIME type -> detected types it may carry
	detect       func(data []byte) (string, error)
}

// NewImageValidator accepts receipt photos: JPEG, PNG, WEBP and HEIC
func NewImageValidator(maxSizeBytes int64) *FileValidator {
	images := []string{FileTypeJPEG, FileTypePNG, FileTypeWEBP, FileTypeHEIC}
	return &FileValidator{
		maxSizeBytes: maxSizeBytes,
		extensions: map[string]bool{
			".jpg": true, ".jpeg": true, ".png": true, ".webp": true, ".heic": true, ".heif": true,
		},
		allowedTypes: map[string][]string{
			"image/jpeg":    {FileTypeJPEG},
			"image/jpg":     {FileTypeJPEG},
			"image/png":     {FileTypePNG},
			"image/webp":    {FileTypeWEBP},
			"image/heic":    {FileTypeHEIC},
			"image/heif":    {FileTypeHEIC},
			genericMimeType: images,
		},
		detect: detectImageType,
	}
}

// NewImportValidator accepts transaction imports: CSV and XLSX
func NewImportValidator(maxSizeBytes int64) *FileValidator {
	return &FileValidator{
		maxSizeBytes: maxSizeBytes,
		extensions:   map[string]bool{".csv": true, ".xlsx": true},
		allowedTypes: map[string][]string{
			"text/csv":                 {FileTypeCSV},
			"text/plain":               {FileTypeCSV},
			"application/vnd.ms-excel": {FileTypeCSV, FileTypeXLSX},
			genericMimeType:            {FileTypeCSV, FileTypeXLSX},

			canonicalMimeTypes[FileTypeXLSX]: {FileTypeXLSX},
		},
		detect: detectSpreadsheetType,
	}
}

// ValidateFile performs comprehensive validation on an uploaded file.
// A nil error with Valid false means the file was rejected; see Errors.
func (v *FileValidator) ValidateFile(reader io.Reader, filename, contentType string) (*ValidationResult, error) {
	result := &ValidationResult{
		Valid:       true,
		ContentType: contentType,
		Errors:      []string{},
	}

	// 1. Validate filename
	if err := v.ValidateFilename(filename); err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, err.Error())
	}

	// 2. Validate MIME type
	if err := v.ValidateMimeType(contentType); err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, err.Error())
	}

	// 3. Read at most one byte past the limit
	data, err := io.ReadAll(io.LimitReader(reader, v.maxSizeBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	// 4. Validate file size
	result.Size = int64(len(data))
	if err := v.ValidateFileSize(result.Size); err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, err.Error())
		return result, nil
	}

	// 5. Detect file type from magic bytes
	detectedType, err := v.ValidateMagicBytes(data)
	if err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, err.Error())
		return result, nil
	}
	result.DetectedType = detectedType
	result.MimeType = canonicalMimeTypes[detectedType]

	// 6. Check MIME type matches detected type
	if !v.isContentTypeMatch(contentType, detectedType) {
		result.Valid = false
		result.Errors = append(result.Errors, "MIME type does not match file content")
	}

	if result.Valid {
		result.Data = data
	}
	return result, nil
}

// ValidateFilename validates the filename for security issues
func (v *FileValidator) ValidateFilename(filename string) error {
	if filename == "" {
		return errors.New("filename cannot be empty")
	}

	if strings.Contains(filename, "..") {
		return errors.New("filename contains path traversal")
	}

	if strings.Contains(filename, "\x00") {
		return errors.New("filename contains null bytes")
	}

	if strings.HasPrefix(filename, "/") || strings.HasPrefix(filename, "\\") {
		return errors.New("filename cannot be absolute path")
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" {
		return errors.New("filename must have an extension")
	}

	if !v.extensions[ext] {
		return fmt.Errorf("unsupported file extension: %s", ext)
	}

	return nil
}

// ValidateMimeType validates the MIME type is allowed
func (v *FileValidator) ValidateMimeType(contentType string) error {
	if contentType == "" {
		return errors.New("MIME type cannot be empty")
	}

	if _, ok := v.allowedTypes[normalizeMimeType(contentType)]; !ok {
		return fmt.Errorf("unsupported MIME type: %s", contentType)
	}

	return nil
}

// ValidateMagicBytes detects and validates file type based on magic bytes
func (v *FileValidator) ValidateMagicBytes(data []byte) (string, error) {
	if len(data) == 0 {
		return "", errors.New("empty file")
	}
	return v.detect(data)
}

// ValidateFileSize validates the file size is within limits
func (v *FileValidator) ValidateFileSize(size int64) error {
	if size < 0 {
		return errors.New("invalid file size")
	}

	if size == 0 {
		return errors.New("empty file")
	}

	if size > v.maxSizeBytes {
		return fmt.Errorf("file size exceeds maximum allowed size (%d bytes)", v.maxSizeBytes)
	}

	return nil
}

// isContentTypeMatch checks if the MIME type may carry the detected file type
func (v *FileValidator) isContentTypeMatch(contentType, detectedType string) bool {
	for _, t := range v.allowedTypes[normalizeMimeType(contentType)] {
		if t == detectedType {
			return true
		}
	}
	return false
}

// normalizeMimeType drops parameters such as "; charset=utf-8"
func normalizeMimeType(contentType string) string {
	if idx := strings.Index(contentType, ";"); idx != -1 {
		contentType = contentType[:idx]
	}
	return strings.ToLower(strings.TrimSpace(contentType))
}

var (
	jpegMagic = []byte{0xFF, 0xD8, 0xFF}
	pngMagic  = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}
	zipMagic  = []byte{0x50, 0x4B, 0x03, 0x04} // XLSX is a ZIP
)

// heicBrands are the ISO-BMFF major brands used by HEIC/HEIF photos
var heicBrands = map[string]bool{
	"heic": true, "heix": true, "hevc": true, "hevx": true, "mif1": true, "msf1": true,
}

func detectImageType(data []byte) (string, error) {
	switch {
	case bytes.HasPrefix(data, jpegMagic):
		return FileTypeJPEG, nil
	case bytes.HasPrefix(data, pngMagic):
		return FileTypePNG, nil
	case len(data) >= 12 && string(data[0:4]) == "RIFF" && string(data[8:12]) == "WEBP":
		return FileTypeWEBP, nil
	case len(data) >= 12 && string(data[4:8]) == "ftyp" && heicBrands[string(data[8:12])]:
		return FileTypeHEIC, nil
	}
	return "", errors.New("unsupported image type based on content")
}

func detectSpreadsheetType(data []byte) (string, error) {
	if bytes.HasPrefix(data, zipMagic) {
		return FileTypeXLSX, nil
	}
	if isTextContent(data) {
		return FileTypeCSV, nil
	}
	return "", errors.New("unsupported file type based on content")
}

// isTextContent checks if the data appears to be text (for CSV detection)
func isTextContent(data []byte) bool {
	checkLen := len(data)
	if checkLen > 512 {
		checkLen = 512
	}

	sample := data[:checkLen]

	// Text files shouldn't have null bytes
	if bytes.Contains(sample, []byte{0x00}) {
		return false
	}

	// Printable ASCII, common whitespace and UTF-8 multibyte sequences (e.g. ₹)
	printable := 0
	for _, b := range sample {
		if (b >= 0x20 && b <= 0x7E) || b == 0x09 || b == 0x0A || b == 0x0D || b >= 0x80 {
			printable++
		}
	}

	return float64(printable)/float64(len(sample)) > 0.95
}
