package service

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"itemledger/internal/config"
	"itemledger/internal/database"
	"itemledger/internal/model"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func at(minutes int) time.Time { return t0.Add(time.Duration(minutes) * time.Minute) }

type harness struct {
	store      Store
	pen        *Pen
	ledger     LedgerService
	projection ProjectionService
	catalog    CatalogService
	logs       OperationLogService
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db, err := database.NewConnection(config.DBConfig{
		Driver: config.DriverSQLite,
		DSN:    filepath.Join(t.TempDir(), "ledger.db"),
	}, nil)
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	log, _ := test.NewNullLogger()
	store := NewStore(db)
	pen := &Pen{}
	return &harness{
		store:      store,
		pen:        pen,
		ledger:     NewLedgerService(store, pen, nil, log),
		projection: NewProjectionService(store, pen, nil, log),
		catalog:    NewCatalogService(store, pen, log),
		logs:       NewOperationLogService(store, log),
	}
}

func (h *harness) stockIn(t *testing.T, item string, when time.Time, qty int, cost string) *model.StockIn {
	t.Helper()
	e, err := h.ledger.RecordStockIn(context.Background(), EventInput{
		ItemName: item, TransactionTime: when, Quantity: qty, Cost: dec(cost),
	})
	require.NoError(t, err)
	return e
}

func (h *harness) stockOut(t *testing.T, item string, when time.Time, qty int, price string) *model.StockOut {
	t.Helper()
	e, err := h.ledger.RecordStockOut(context.Background(), EventInput{
		ItemName: item, TransactionTime: when, Quantity: qty, UnitPrice: dec(price),
	})
	require.NoError(t, err)
	return e
}

func (h *harness) row(t *testing.T, item string) *model.InventoryRow {
	t.Helper()
	row, err := h.store.Inventory.Get(context.Background(), item)
	require.NoError(t, err)
	return row
}

func (h *harness) logCount(t *testing.T) int64 {
	t.Helper()
	_, total, err := h.store.Logs.List(context.Background(), model.OperationLogFilter{})
	require.NoError(t, err)
	return total
}

// snapshot captures events and projection, ignoring the operation log.
type snapshot struct {
	ins  []model.StockIn
	outs []model.StockOut
	rows []model.InventoryRow
	mons []model.TradeMonitor
}

func (h *harness) snapshot(t *testing.T) snapshot {
	t.Helper()
	ctx := context.Background()
	ins, err := h.store.Stock.AllStockIn(ctx)
	require.NoError(t, err)
	outs, err := h.store.Stock.AllStockOut(ctx)
	require.NoError(t, err)
	rows, err := h.store.Inventory.List(ctx, "")
	require.NoError(t, err)
	mons, err := h.store.Monitors.List(ctx, "")
	require.NoError(t, err)
	for i := range rows {
		rows[i].ID = 0
	}
	return snapshot{ins: ins, outs: outs, rows: rows, mons: mons}
}

func requireSameState(t *testing.T, want, got snapshot) {
	t.Helper()
	require.Len(t, got.ins, len(want.ins))
	for i := range want.ins {
		require.Equal(t, want.ins[i].ID, got.ins[i].ID)
		require.Equal(t, want.ins[i].ItemName, got.ins[i].ItemName)
		require.True(t, want.ins[i].TransactionTime.Equal(got.ins[i].TransactionTime))
		require.Equal(t, want.ins[i].Quantity, got.ins[i].Quantity)
		require.True(t, want.ins[i].Cost.Equal(got.ins[i].Cost))
		require.Equal(t, want.ins[i].Note, got.ins[i].Note)
	}
	require.Len(t, got.outs, len(want.outs))
	for i := range want.outs {
		require.Equal(t, want.outs[i].ID, got.outs[i].ID)
		require.Equal(t, want.outs[i].Quantity, got.outs[i].Quantity)
		require.True(t, want.outs[i].TotalAmount.Equal(got.outs[i].TotalAmount))
	}
	require.Len(t, got.rows, len(want.rows))
	for i := range want.rows {
		require.True(t, want.rows[i].SameFigures(got.rows[i]), "row %s: want %+v got %+v", want.rows[i].ItemName, want.rows[i], got.rows[i])
	}
	require.Len(t, got.mons, len(want.mons))
	for i := range want.mons {
		require.Equal(t, want.mons[i].ID, got.mons[i].ID)
		require.Equal(t, want.mons[i].Quantity, got.mons[i].Quantity)
		require.True(t, want.mons[i].MarketPrice.Equal(got.mons[i].MarketPrice))
		require.True(t, want.mons[i].MonitorTime.Equal(got.mons[i].MonitorTime))
	}
}
