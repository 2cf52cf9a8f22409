package pipeline

import (
	"bytes"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"supplymatch/internal"
)

func sampleResult() internal.Result {
	return internal.Result{
		RunID:    "run-1",
		Supplier: "Acme Co",
		Records: []internal.CombinedRecord{
			{ID: "1", Supplier: "Acme Co", Description: "Dump Truck", Price: 100, Rate: 5, Quantity: "3"},
		},
		Unmatched: []internal.Unmatched{{LineNo: 2, Description: "Bulldozer", Quantity: "1"}},
		Failures: []internal.ItemFailure{
			{LineNo: 3, Description: "digger", Quantity: "2", Err: errors.New("matcher openai unavailable: 503")},
		},
	}
}

func TestExportResultToXLSX(t *testing.T) {
	out := filepath.Join(t.TempDir(), "nested", "result.xlsx")
	require.NoError(t, ExportResultToXLSX(sampleResult(), out))

	f, err := excelize.OpenFile(out)
	require.NoError(t, err)
	defer f.Close()

	records, err := f.GetRows(SheetRecords)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, []string{"id", "supplier", "description", "price", "rate", "quantity"}, records[0])
	assert.Equal(t, []string{"1", "Acme Co", "Dump Truck", "100", "5", "3"}, records[1])

	unmatched, err := f.GetRows(SheetUnmatched)
	require.NoError(t, err)
	require.Len(t, unmatched, 2)
	assert.Equal(t, "Bulldozer", unmatched[1][1])

	failures, err := f.GetRows(SheetFailures)
	require.NoError(t, err)
	require.Len(t, failures, 2)
	assert.Equal(t, "digger", failures[1][1])
	assert.Contains(t, failures[1][3], "503")
}

func TestWriteJSONIncludesFailureMessage(t *testing.T) {
	res := sampleResult()
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, res))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	failures := decoded["failures"].([]any)
	require.Len(t, failures, 1)
	assert.Equal(t, "matcher openai unavailable: 503", failures[0].(map[string]any)["error"])
	assert.Empty(t, res.Failures[0].Message)
}
