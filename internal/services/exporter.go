package services

import (
	"fmt"
	"io"

	"github.com/ashmitsharp/wallet-insights-api/internal/models"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// Workbook sheet names, in order
const (
	SheetSummary    = "Summary"
	SheetCategories = "Categories"
	SheetTrends     = "Trends"
	SheetAnomalies  = "Anomalies"
	SheetMerchants  = "Merchants"
)

// XLSXContentType is the mime type of exported workbooks
const XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ExportInsightsXLSX writes the insights as an XLSX workbook to w
func ExportInsightsXLSX(w io.Writer, insights *models.Insights) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		return fmt.Errorf("rename default sheet: %w", err)
	}
	for _, name := range []string{SheetCategories, SheetTrends, SheetAnomalies, SheetMerchants} {
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("create sheet %s: %w", name, err)
		}
	}

	header, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}

	sheets := []struct {
		name    string
		headers []string
		rows    [][]any
	}{
		{SheetSummary, []string{"Field", "Value"}, summaryRows(insights)},
		{SheetCategories, []string{"Category", "Total", "Count", "Percentage"}, categoryRows(insights)},
		{SheetTrends, []string{"Type", "Category", "Change", "Change %", "Direction"}, trendRows(insights)},
		{SheetAnomalies, []string{"Type", "Merchant", "Count", "Total", "Amount", "Category", "Date"}, anomalyRows(insights)},
		{SheetMerchants, []string{"Merchant", "Total"}, merchantRows(insights)},
	}

	for _, s := range sheets {
		if err := writeSheet(f, s.name, s.headers, s.rows, header); err != nil {
			return err
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeSheet(f *excelize.File, sheet string, headers []string, rows [][]any, headerStyle int) error {
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return fmt.Errorf("write %s header: %w", sheet, err)
		}
	}
	if err := f.SetRowStyle(sheet, 1, 1, headerStyle); err != nil {
		return fmt.Errorf("style %s header: %w", sheet, err)
	}

	for rowIdx, row := range rows {
		for colIdx, val := range row {
			cell, _ := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
			if err := f.SetCellValue(sheet, cell, val); err != nil {
				return fmt.Errorf("write %s row %d: %w", sheet, rowIdx+2, err)
			}
		}
	}
	return nil
}

func summaryRows(in *models.Insights) [][]any {
	return [][]any{
		{"Period", string(in.Period)},
		{"Start", in.CurrentPeriod.Start},
		{"End", in.CurrentPeriod.End},
		{"Total Spent", money(in.CurrentPeriod.TotalSpent)},
		{"Total Income", money(in.CurrentPeriod.TotalIncome)},
		{"Net Balance", money(in.CurrentPeriod.NetBalance)},
		{"Transactions", in.CurrentPeriod.TransactionCount},
		{"Previous Total Spent", money(in.PreviousPeriod.TotalSpent)},
		{"Previous Total Income", money(in.PreviousPeriod.TotalIncome)},
		{"Summary", in.Summary},
	}
}

func categoryRows(in *models.Insights) [][]any {
	rows := make([][]any, 0, len(in.CurrentPeriod.Categories))
	for _, c := range in.CurrentPeriod.Categories {
		rows = append(rows, []any{c.Name, money(c.Total), c.Count, money(c.Percentage)})
	}
	return rows
}

func trendRows(in *models.Insights) [][]any {
	rows := make([][]any, 0, len(in.Trends))
	for _, t := range in.Trends {
		rows = append(rows, []any{string(t.Type), t.Category, money(t.Change), money(t.ChangePercent), string(t.Direction)})
	}
	return rows
}

func anomalyRows(in *models.Insights) [][]any {
	rows := make([][]any, 0, len(in.Anomalies))
	for _, a := range in.Anomalies {
		row := []any{string(a.Type), a.Merchant, "", "", "", a.Category, ""}
		if a.Type == models.AnomalyFrequent {
			row[2] = a.Count
		}
		if a.Total != nil {
			row[3] = money(*a.Total)
		}
		if a.Amount != nil {
			row[4] = money(*a.Amount)
		}
		if a.Date != nil {
			row[6] = a.Date.Format(models.DateLayout)
		}
		rows = append(rows, row)
	}
	return rows
}

func merchantRows(in *models.Insights) [][]any {
	rows := make([][]any, 0, len(in.TopMerchants))
	for _, m := range in.TopMerchants {
		rows = append(rows, []any{m.Merchant, money(m.Total)})
	}
	return rows
}

// money is the numeric cell value of an amount
func money(d decimal.Decimal) float64 {
	return d.InexactFloat64()
}
