package services

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/ashmitsharp/wallet-insights-api/internal/models"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// ErrUnknownFormat is returned when the header row matches no supported layout
var ErrUnknownFormat = errors.New("unknown file format")

// nativeFormat is the layout exported by the app itself
const nativeFormat = "NATIVE"

// ParsedTransaction represents an imported row before it is stored
type ParsedTransaction struct {
	Row      int
	Date     time.Time // Zero when the file has no date column
	Title    string
	Amount   decimal.Decimal // Negative for expense, positive for income
	Category string          // Empty when the file does not say
}

// RowError describes a row that was skipped
type RowError struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}

// ParseResult holds the parsed rows and the rows that were skipped
type ParseResult struct {
	Format       string
	Transactions []ParsedTransaction
	Skipped      []RowError
}

// BankSchema defines the column structure for each bank's statement format
type BankSchema struct {
	BankName           string
	DateColumn         string
	DescriptionColumn  string
	DebitColumn        string // For banks with separate debit/credit columns
	CreditColumn       string
	AmountColumn       string // For banks with single amount column
	DrCrColumn         string // For banks with Dr/Cr indicator
	HasSeparateAmounts bool
}

// Parser reads transaction imports in the native format or a supported bank statement format
type Parser struct {
	bankSchemas map[string]BankSchema
	location    *time.Location
}

// NewParser creates a parser. Dates are placed at midnight in loc (UTC when nil).
func NewParser(loc *time.Location) *Parser {
	if loc == nil {
		loc = time.UTC
	}
	return &Parser{
		location: loc,
		bankSchemas: map[string]BankSchema{
			"HDFC": {
				BankName:           "HDFC",
				DateColumn:         "Date",
				DescriptionColumn:  "Narration",
				DebitColumn:        "Withdrawal Amt.",
				CreditColumn:       "Deposit Amt.",
				HasSeparateAmounts: true,
			},
			"ICICI": {
				BankName:           "ICICI",
				DateColumn:         "Transaction Date",
				DescriptionColumn:  "Transaction Remarks",
				DebitColumn:        "Withdrawal Amount (INR)",
				CreditColumn:       "Deposit Amount (INR)",
				HasSeparateAmounts: true,
			},
			"SBI": {
				BankName:           "SBI",
				DateColumn:         "Txn Date",
				DescriptionColumn:  "Description",
				DebitColumn:        "Debit",
				CreditColumn:       "Credit",
				HasSeparateAmounts: true,
			},
			"Axis": {
				BankName:          "Axis",
				DateColumn:        "Transaction Date",
				DescriptionColumn: "Particulars",
				AmountColumn:      "Amount",
				DrCrColumn:        "Dr/Cr",
			},
			"Kotak": {
				BankName:           "Kotak",
				DateColumn:         "Date",
				DescriptionColumn:  "Description",
				DebitColumn:        "Debit",
				CreditColumn:       "Credit",
				HasSeparateAmounts: true,
			},
		},
	}
}

// DetectFormat detects the import layout from the header row
func DetectFormat(headers []string) string {
	headerSet := make(map[string]bool)
	for _, h := range headers {
		headerSet[strings.ToLower(strings.TrimSpace(h))] = true
	}

	if headerSet["title"] && headerSet["amount"] {
		return nativeFormat
	}

	// HDFC detection
	if headerSet["narration"] && headerSet["withdrawal amt."] {
		return "HDFC"
	}

	// ICICI detection
	if headerSet["transaction remarks"] && headerSet["withdrawal amount (inr)"] {
		return "ICICI"
	}

	// SBI detection
	if headerSet["txn date"] && headerSet["description"] {
		return "SBI"
	}

	// Axis detection
	if headerSet["particulars"] && headerSet["dr/cr"] {
		return "Axis"
	}

	// Kotak detection (most generic, check last)
	if headerSet["date"] && headerSet["debit"] && headerSet["credit"] && headerSet["description"] {
		return "Kotak"
	}

	return "UNKNOWN"
}

// ParseDate parses date strings in multiple formats
func ParseDate(dateStr string) (time.Time, error) {
	dateStr = strings.TrimSpace(dateStr)

	dateFormats := []string{
		"2006-01-02",   // YYYY-MM-DD (ISO, native export)
		"02/01/2006",   // DD/MM/YYYY (HDFC, ICICI, Kotak)
		"02-Jan-2006",  // DD-MMM-YYYY (SBI)
		"02-01-2006",   // DD-MM-YYYY
		"02/01/06",     // DD/MM/YY
		"Jan 02, 2006", // MMM DD, YYYY
		time.RFC3339,
	}

	for _, format := range dateFormats {
		t, err := time.Parse(format, dateStr)
		if err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("unable to parse date: %s", dateStr)
}

// ParseAmount parses amount strings, handling currency symbols and commas.
// Empty amounts parse as zero.
func ParseAmount(amountStr string) (decimal.Decimal, error) {
	cleaned := strings.ReplaceAll(amountStr, "₹", "")
	cleaned = strings.ReplaceAll(cleaned, "Rs.", "")
	cleaned = strings.ReplaceAll(cleaned, "Rs", "")
	cleaned = strings.ReplaceAll(cleaned, "INR", "")
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	cleaned = strings.TrimSpace(cleaned)

	if cleaned == "" || cleaned == "-" {
		return decimal.Zero, nil
	}

	amount, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount: %s", amountStr)
	}

	return amount, nil
}

// ParseFile dispatches on the file extension
func (p *Parser) ParseFile(file io.Reader, filename string) (*ParseResult, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		return p.ParseCSV(file)
	case ".xlsx":
		return p.ParseXLSX(file)
	default:
		return nil, fmt.Errorf("unsupported file extension: %s", filepath.Ext(filename))
	}
}

// ParseCSV parses a CSV file
func (p *Parser) ParseCSV(file io.Reader) (*ParseResult, error) {
	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}
	return p.parseRows(rows)
}

// ParseXLSX parses the first sheet of an XLSX workbook
func (p *Parser) ParseXLSX(file io.Reader) (*ParseResult, error) {
	f, err := excelize.OpenReader(file)
	if err != nil {
		return nil, fmt.Errorf("failed to open xlsx: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("empty file")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheets[0], err)
	}
	return p.parseRows(rows)
}

func (p *Parser) parseRows(rows [][]string) (*ParseResult, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("empty file")
	}

	headers := rows[0]
	format := DetectFormat(headers)
	if format == "UNKNOWN" {
		return nil, ErrUnknownFormat
	}

	// Header lookups are case-insensitive
	headerIndex := make(map[string]int)
	for i, h := range headers {
		headerIndex[strings.ToLower(strings.TrimSpace(h))] = i
	}

	result := &ParseResult{
		Format:       format,
		Transactions: []ParsedTransaction{},
		Skipped:      []RowError{},
	}

	for i, row := range rows[1:] {
		rowNum := i + 2 // 1-based, after the header

		if isEmptyRow(row) {
			continue
		}
		if format != nativeFormat && isSummaryRow(row) {
			continue
		}

		var txn ParsedTransaction
		var err error
		if format == nativeFormat {
			txn, err = p.parseNativeRow(row, headerIndex)
		} else {
			txn, err = p.parseBankRow(row, headerIndex, p.bankSchemas[format])
		}
		if err != nil {
			result.Skipped = append(result.Skipped, RowError{Row: rowNum, Reason: err.Error()})
			continue
		}

		txn.Row = rowNum
		result.Transactions = append(result.Transactions, txn)
	}

	return result, nil
}

// parseNativeRow reads title, amount and the optional category and date columns
func (p *Parser) parseNativeRow(row []string, headerIndex map[string]int) (ParsedTransaction, error) {
	var txn ParsedTransaction

	txn.Title = cell(row, headerIndex, "title")
	if txn.Title == "" {
		return txn, fmt.Errorf("title is required")
	}

	rawAmount := cell(row, headerIndex, "amount")
	if rawAmount == "" {
		return txn, fmt.Errorf("amount is required")
	}
	amount, err := ParseAmount(rawAmount)
	if err != nil {
		return txn, err
	}
	txn.Amount = amount

	txn.Category = strings.ToLower(cell(row, headerIndex, "category"))

	if rawDate := cell(row, headerIndex, "date"); rawDate != "" {
		date, err := ParseDate(rawDate)
		if err != nil {
			return txn, err
		}
		txn.Date = p.inLocation(date)
	}

	return txn, nil
}

// parseBankRow parses a single statement row into a ParsedTransaction
func (p *Parser) parseBankRow(row []string, headerIndex map[string]int, schema BankSchema) (ParsedTransaction, error) {
	var txn ParsedTransaction

	date, err := ParseDate(cell(row, headerIndex, schema.DateColumn))
	if err != nil {
		return txn, fmt.Errorf("failed to parse date: %w", err)
	}
	txn.Date = p.inLocation(date)

	txn.Title = cell(row, headerIndex, schema.DescriptionColumn)
	if txn.Title == "" {
		return txn, fmt.Errorf("description is empty")
	}

	if schema.HasSeparateAmounts {
		// Banks with separate debit/credit columns (HDFC, ICICI, SBI, Kotak)
		debit, _ := ParseAmount(cell(row, headerIndex, schema.DebitColumn))
		credit, _ := ParseAmount(cell(row, headerIndex, schema.CreditColumn))

		switch {
		case debit.IsPositive():
			txn.Amount = debit.Neg()
		case credit.IsPositive():
			txn.Amount = credit
		default:
			return txn, fmt.Errorf("both debit and credit are zero")
		}
		return txn, nil
	}

	// Banks with single amount column and Dr/Cr indicator (Axis)
	amount, err := ParseAmount(cell(row, headerIndex, schema.AmountColumn))
	if err != nil {
		return txn, fmt.Errorf("failed to parse amount: %w", err)
	}

	switch drCr := strings.ToLower(cell(row, headerIndex, schema.DrCrColumn)); drCr {
	case "dr":
		txn.Amount = amount.Abs().Neg()
	case "cr":
		txn.Amount = amount.Abs()
	default:
		return txn, fmt.Errorf("invalid Dr/Cr indicator: %s", drCr)
	}

	return txn, nil
}

func (p *Parser) inLocation(d time.Time) time.Time {
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, p.location)
}

// cell returns the trimmed value of a column, or "" when the row is short
func cell(row []string, headerIndex map[string]int, column string) string {
	idx, ok := headerIndex[strings.ToLower(column)]
	if !ok || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// isEmptyRow checks if all fields in a row are empty
func isEmptyRow(row []string) bool {
	for _, field := range row {
		if strings.TrimSpace(field) != "" {
			return false
		}
	}
	return true
}

// isSummaryRow checks if a row is a statement summary row
func isSummaryRow(row []string) bool {
	if len(row) == 0 {
		return false
	}

	firstField := strings.ToLower(strings.TrimSpace(row[0]))
	summaryKeywords := []string{"total", "summary", "opening balance", "closing balance"}

	for _, keyword := range summaryKeywords {
		if strings.Contains(firstField, keyword) {
			return true
		}
	}

	return false
}

// TitleClassifier picks a category for a free-text title
type TitleClassifier interface {
	Classify(text string) string
}

// ToNewTransactions converts parsed rows for userID, classifying rows without a category
func ToNewTransactions(userID string, parsed []ParsedTransaction, classifier TitleClassifier) []models.NewTransaction {
	txs := make([]models.NewTransaction, 0, len(parsed))
	for _, p := range parsed {
		category := p.Category
		if category == "" {
			category = classifier.Classify(p.Title)
		}
		txs = append(txs, models.NewTransaction{
			UserID:    userID,
			Title:     p.Title,
			Amount:    p.Amount,
			Category:  category,
			CreatedAt: p.Date,
		})
	}
	return txs
}
