package export

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"itemledger/internal/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func sampleRows() []model.InventoryRow {
	return []model.InventoryRow{
		{ItemName: "Iron Ore", Quantity: 60, AvgPrice: decimal.NewFromInt(10), InventoryValue: decimal.NewFromInt(600)},
		{ItemName: "Gold, refined", Quantity: -2},
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatCSV, InventoryTable(sampleRows())))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "item_name", records[0][0])
	assert.Equal(t, []string{"Iron Ore", "60", "10.00"}, records[1][:3])
	assert.Equal(t, "Gold, refined", records[2][0], "commas are quoted")
	assert.Equal(t, "600.00", records[1][8])
}

func TestWriteXLSX(t *testing.T) {
	events := []model.StockIn{{
		ID: 1, ItemName: "Silk", TransactionTime: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		Quantity: 3, Cost: decimal.NewFromInt(30), AvgCost: decimal.NewFromInt(10), Note: "ocr",
	}}

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatXLSX, StockInTable(events)))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"stock_in"}, f.GetSheetList())
	rows, err := f.GetRows("stock_in")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "transaction_time", rows[0][2])
	assert.Equal(t, "Silk", rows[1][1])
	assert.Equal(t, "2024-01-02 03:04:05", rows[1][2])
	assert.Equal(t, "30.00", rows[1][4])
}

func TestWriteRejectsUnknownFormat(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, Write(&buf, "pdf", Table{}))
	assert.Equal(t, "text/csv; charset=utf-8", ContentType(FormatCSV))
}
