package pipeline

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"supplymatch/internal"
)

const (
	SheetRecords   = "records"
	SheetUnmatched = "unmatched"
	SheetFailures  = "failures"
)

// ExportResultToXLSX writes one sheet per outcome kind. Every unmatched or
// failed row keeps the document description so it can be traced back.
func ExportResultToXLSX(result internal.Result, outputPath string) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetRecords); err != nil {
		return err
	}
	for _, name := range []string{SheetUnmatched, SheetFailures} {
		if _, err := f.NewSheet(name); err != nil {
			return err
		}
	}

	records := make([][]any, 0, len(result.Records))
	for _, r := range result.Records {
		records = append(records, []any{r.ID.String(), r.Supplier, r.Description, r.Price, r.Rate, r.Quantity})
	}
	writeSheet(f, SheetRecords, []string{"id", "supplier", "description", "price", "rate", "quantity"}, records)

	unmatched := make([][]any, 0, len(result.Unmatched))
	for _, u := range result.Unmatched {
		unmatched = append(unmatched, []any{u.LineNo, u.Description, u.Quantity})
	}
	writeSheet(f, SheetUnmatched, []string{"line_no", "description", "quantity"}, unmatched)

	failures := make([][]any, 0, len(result.Failures))
	for _, fl := range result.Failures {
		failures = append(failures, []any{fl.LineNo, fl.Description, fl.Quantity, failureMessage(fl)})
	}
	writeSheet(f, SheetFailures, []string{"line_no", "description", "quantity", "error"}, failures)

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	return f.SaveAs(outputPath)
}

func writeSheet(f *excelize.File, sheet string, headers []string, rows [][]any) {
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}
	for i, row := range rows {
		for col, value := range row {
			cell, _ := excelize.CoordinatesToCellName(col+1, i+2)
			_ = f.SetCellValue(sheet, cell, value)
		}
	}
}

// WriteJSON writes result as indented JSON.
func WriteJSON(w io.Writer, result internal.Result) error {
	failures := make([]internal.ItemFailure, len(result.Failures))
	for i, fl := range result.Failures {
		fl.Message = failureMessage(fl)
		failures[i] = fl
	}
	result.Failures = failures
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func failureMessage(f internal.ItemFailure) string {
	if f.Message != "" || f.Err == nil {
		return f.Message
	}
	return f.Err.Error()
}
