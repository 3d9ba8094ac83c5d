package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"testing"
	"time"

	"itemledger/internal/config"
	"itemledger/internal/export"
	"itemledger/internal/model"
	"itemledger/internal/ocr"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImportTextStockIn(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	imports := NewImportService(h.ledger, nil, nil)

	res, err := imports.ImportText(ctx, model.KindStockIn, "Iron Ore 10 1,250\nnoise\nGold Bar 2 500")
	require.NoError(t, err)
	assert.Equal(t, 2, res.Imported)
	assert.Equal(t, []string{"noise"}, res.Skipped)

	row := h.row(t, "Iron Ore")
	assert.Equal(t, 10, row.Quantity)
	assert.True(t, row.AvgPrice.Equal(dec("1250")), row.AvgPrice.String())

	ins, err := h.store.Stock.StockInForItem(ctx, "Gold Bar")
	require.NoError(t, err)
	require.Len(t, ins, 1)
	assert.True(t, ins[0].Cost.Equal(dec("1000")))
	assert.Equal(t, "ocr", ins[0].Note)
}

func TestImportTextWithoutRows(t *testing.T) {
	h := newHarness(t)
	imports := NewImportService(h.ledger, nil, nil)

	res, err := imports.ImportText(context.Background(), model.KindStockOut, "just a heading")
	assert.True(t, model.IsClientError(err))
	assert.Equal(t, []string{"just a heading"}, res.Skipped)
}

func TestStartOCRWithoutRunner(t *testing.T) {
	h := newHarness(t)
	imports := NewImportService(h.ledger, nil, nil)

	_, err := imports.StartOCR(context.Background(), model.KindStockIn, [][]byte{{1}})
	assert.True(t, model.IsClientError(err))
	_, ok := imports.JobStatus("x")
	assert.False(t, ok)
	assert.False(t, imports.StopJob("x"))
}

type stubRecognizer map[string]string

func (s stubRecognizer) Recognize(ctx context.Context, png []byte) (string, error) {
	text, ok := s[string(png)]
	if !ok {
		return "", model.ErrExternalService
	}
	return text, nil
}

func TestStartOCRImportsEachImage(t *testing.T) {
	h := newHarness(t)
	log, _ := test.NewNullLogger()
	runner := ocr.NewRunner(stubRecognizer{"one": "Silk 3 10", "two": "Silk 2 12\nLinen 1 4"}, log)
	imports := NewImportService(h.ledger, runner, log)

	ctx, cancel := context.WithCancel(context.Background())
	id, err := imports.StartOCR(ctx, model.KindStockIn, [][]byte{[]byte("one"), []byte("two"), []byte("bad")})
	require.NoError(t, err)
	cancel() // the job outlives the request

	waitCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()
	status, err := runner.Wait(waitCtx, id)
	require.NoError(t, err)
	assert.Equal(t, ocr.JobDone, status.State)
	assert.Equal(t, 3, status.Processed)
	assert.Len(t, status.Errors, 1)

	assert.Equal(t, 5, h.row(t, "Silk").Quantity)
	assert.Equal(t, 1, h.row(t, "Linen").Quantity)

	logs, _, err := h.store.Logs.List(context.Background(), model.OperationLogFilter{Tab: model.TabOCRImport})
	require.NoError(t, err)
	assert.Len(t, logs, 2, "one batch entry per image")
}

func TestSilverMovingAverage(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	dir := t.TempDir()
	require.NoError(t, config.SaveServerNames(dir, config.ServerNames{"eu1": "Europe One"}))
	silver := NewSilverService(h.store, dir, nil)

	prices := []string{"10", "20", "30", "40", "50", "60"}
	var last *SilverPoint
	for i, p := range prices {
		var err error
		last, err = silver.RecordPrice(ctx, SilverPriceRequest{Server: "eu1", Series: "silver", Price: dec(p), At: at(i)})
		require.NoError(t, err)
		if i == 0 {
			assert.True(t, last.MAPrice.Equal(dec("10")))
		}
	}
	// window of five: 20..60
	assert.True(t, last.MAPrice.Equal(dec("40")), last.MAPrice.String())
	assert.Equal(t, "Europe One", last.ServerName)

	_, err := silver.RecordPrice(ctx, SilverPriceRequest{Server: "eu1", Series: "gold", Price: dec("7"), At: at(10)})
	require.NoError(t, err)

	points := silver.List(ctx, "eu1", "silver", at(3))
	require.Len(t, points, 3)
	assert.True(t, points[0].Price.Equal(dec("40")), "oldest first")

	_, err = silver.RecordPrice(ctx, SilverPriceRequest{Server: "eu1", Series: "silver", Price: dec("0")})
	assert.True(t, model.IsClientError(err))
}

func TestStatisticsSummary(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.stockIn(t, "A", at(0), 10, "100")
	h.stockOut(t, "A", at(1), 4, "15")
	_, err := h.ledger.ImportEvents(ctx, model.KindStockOut, []EventInput{
		{ItemName: "B", TransactionTime: at(2), Quantity: 2, UnitPrice: dec("5")},
	}, "")
	require.NoError(t, err)

	stats := NewStatisticsService(h.store, nil)
	res, err := stats.GetStatistics(ctx, at(-60), at(60))
	require.NoError(t, err)

	assert.True(t, res.TotalStockInCost.Equal(dec("100")))
	assert.True(t, res.TotalStockOutAmount.Equal(dec("70")), res.TotalStockOutAmount.String())
	assert.Equal(t, 1, res.StockInCount)
	assert.Equal(t, 2, res.StockOutCount)
	assert.Equal(t, 2, res.ItemCount)
	assert.Equal(t, 4, res.TotalQuantity)
	assert.Equal(t, []string{"B"}, res.NegativeItems)
	require.NotEmpty(t, res.TopByValue)
	assert.Equal(t, "A", res.TopByValue[0].ItemName)
	// A sells 4 at 15 over an average of 10; B has no purchases so its cost basis is zero
	assert.True(t, res.RealizedProfit.Equal(dec("30")), res.RealizedProfit.String())

	_, err = stats.GetStatistics(ctx, at(10), at(0))
	assert.True(t, model.IsClientError(err))
}

func TestExportCSVRecordsEntry(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.stockIn(t, "A", at(0), 10, "100")
	exports := NewExportService(h.store, nil)

	var buf bytes.Buffer
	require.NoError(t, exports.Export(ctx, DatasetInventory, export.FormatCSV, &buf))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "A", records[1][0])

	logs, _, err := h.store.Logs.List(ctx, model.OperationLogFilter{Type: model.OpExport})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.False(t, logs[0].CanRevert)
	assert.Equal(t, model.CategoryQuery, logs[0].OperationCategory)

	err = exports.Export(ctx, "users", export.FormatCSV, &buf)
	var verr *model.ValidationError
	assert.True(t, errors.As(err, &verr))
	assert.Equal(t, "dataset", verr.Field)

	err = exports.Export(ctx, DatasetInventory, "pdf", &buf)
	assert.True(t, model.IsClientError(err))
}

func TestImportTextGivesEachRowItsOwnKey(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	imports := NewImportService(h.ledger, nil, nil)

	res, err := imports.ImportText(ctx, model.KindStockIn, "Gem 5 10\nGem 3 12")
	require.NoError(t, err)
	require.Equal(t, 2, res.Imported)

	events, err := h.store.Stock.StockInForItem(ctx, "Gem")
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.False(t, events[0].TransactionTime.Equal(events[1].TransactionTime), "rows of one batch must not share a key")

	// A second batch in the same second keeps clear of the first.
	_, err = imports.ImportText(ctx, model.KindStockIn, "Gem 1 9")
	require.NoError(t, err)
	events, err = h.store.Stock.StockInForItem(ctx, "Gem")
	require.NoError(t, err)
	require.Len(t, events, 3)
	seen := map[int64]bool{}
	for _, e := range events {
		sec := e.TransactionTime.Unix()
		assert.False(t, seen[sec], "duplicate key at %s", e.TransactionTime)
		seen[sec] = true
	}

	require.NoError(t, h.ledger.DeleteEvent(ctx, model.KindStockIn,
		model.EventKey{ItemName: "Gem", TransactionTime: events[0].TransactionTime}))
	assert.Equal(t, 4, h.row(t, "Gem").Quantity)

	err = h.ledger.EditEvent(ctx, model.KindStockIn,
		model.EventKey{ItemName: "Gem", TransactionTime: events[1].TransactionTime},
		EventInput{ItemName: "Gem", TransactionTime: events[1].TransactionTime, Quantity: 3, Cost: dec("30")})
	require.NoError(t, err)
}

func TestClockStampedAddsDoNotCollide(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	first, err := h.ledger.RecordStockIn(ctx, EventInput{ItemName: "Ore", Quantity: 2, Cost: dec("4")})
	require.NoError(t, err)
	second, err := h.ledger.RecordStockIn(ctx, EventInput{ItemName: "Ore", Quantity: 1, Cost: dec("3")})
	require.NoError(t, err)
	assert.False(t, second.TransactionTime.Equal(first.TransactionTime))

	require.NoError(t, h.ledger.DeleteEvent(ctx, model.KindStockIn,
		model.EventKey{ItemName: "Ore", TransactionTime: second.TransactionTime}))
	assert.Equal(t, 2, h.row(t, "Ore").Quantity)
}
