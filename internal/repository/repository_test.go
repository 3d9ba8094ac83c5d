package repository

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"itemledger/internal/config"
	"itemledger/internal/database"
	"itemledger/internal/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.NewConnection(config.DBConfig{
		Driver: config.DriverSQLite,
		DSN:    filepath.Join(t.TempDir(), "repo.db"),
	}, nil)
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

var base = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func stockIn(item string, at time.Time, qty int, cost int64, note string) *model.StockIn {
	e := &model.StockIn{ItemName: item, TransactionTime: at, Quantity: qty, Cost: decimal.NewFromInt(cost), Note: note}
	e.ComputeAvgCost()
	return e
}

func TestStockInKeyLookup(t *testing.T) {
	ctx := context.Background()
	repo := NewStockRepository(newTestDB(t))

	require.NoError(t, repo.AppendStockIn(ctx, stockIn("A", base, 1, 10, "")))
	require.NoError(t, repo.AppendStockIn(ctx, stockIn("B", base, 1, 10, "")))
	require.NoError(t, repo.AppendStockIn(ctx, stockIn("B", base, 2, 20, "")))

	got, err := repo.FindStockInByKey(ctx, model.EventKey{ItemName: "A", TransactionTime: base})
	require.NoError(t, err)
	assert.Equal(t, "A", got.ItemName)

	_, err = repo.FindStockInByKey(ctx, model.EventKey{ItemName: "A", TransactionTime: base.Add(time.Second)})
	assert.True(t, errors.Is(err, model.ErrNotFound))

	_, err = repo.DeleteStockInByKey(ctx, model.EventKey{ItemName: "B", TransactionTime: base})
	assert.True(t, errors.Is(err, model.ErrAmbiguous))

	rows, err := repo.StockInForItem(ctx, "B")
	require.NoError(t, err)
	assert.Len(t, rows, 2, "an ambiguous delete removes nothing")
}

func TestAppendIgnoresCallerIDButRestoreKeepsIt(t *testing.T) {
	ctx := context.Background()
	repo := NewStockRepository(newTestDB(t))

	e := stockIn("A", base, 1, 10, "")
	e.ID = 99
	require.NoError(t, repo.AppendStockIn(ctx, e))
	assert.NotEqual(t, uint(99), e.ID)

	require.NoError(t, repo.DeleteStockIn(ctx, e.ID))
	assert.True(t, errors.Is(repo.DeleteStockIn(ctx, e.ID), model.ErrNotFound))

	restored := stockIn("A", base, 1, 10, "")
	restored.ID = 42
	require.NoError(t, repo.RestoreStockIn(ctx, restored))
	rows, err := repo.AllStockIn(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, uint(42), rows[0].ID)
}

func TestListStockInFilters(t *testing.T) {
	ctx := context.Background()
	repo := NewStockRepository(newTestDB(t))

	require.NoError(t, repo.AppendStockIn(ctx, stockIn("Iron Ore", base, 1, 10, "market")))
	require.NoError(t, repo.AppendStockIn(ctx, stockIn("Iron Ingot", base.Add(time.Hour), 1, 10, "")))
	require.NoError(t, repo.AppendStockIn(ctx, stockIn("Gold Ore", base.Add(2*time.Hour), 1, 10, "market")))

	all, total, err := repo.ListStockIn(ctx, model.EventFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, all, 3)
	assert.Equal(t, "Gold Ore", all[0].ItemName, "newest first")

	iron, total, err := repo.ListStockIn(ctx, model.EventFilter{Item: "Iron"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, iron, 2)

	notes, _, err := repo.ListStockIn(ctx, model.EventFilter{Note: "market"})
	require.NoError(t, err)
	assert.Len(t, notes, 2)

	from := base.Add(30 * time.Minute)
	to := base.Add(90 * time.Minute)
	ranged, _, err := repo.ListStockIn(ctx, model.EventFilter{From: &from, To: &to})
	require.NoError(t, err)
	require.Len(t, ranged, 1)
	assert.Equal(t, "Iron Ingot", ranged[0].ItemName)

	page, total, err := repo.ListStockIn(ctx, model.EventFilter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, page, 1)
	assert.Equal(t, "Iron Ingot", page[0].ItemName)
}

func TestItemNamesUnionsBothCollections(t *testing.T) {
	ctx := context.Background()
	repo := NewStockRepository(newTestDB(t))

	require.NoError(t, repo.AppendStockIn(ctx, stockIn("A", base, 1, 10, "")))
	out := &model.StockOut{ItemName: "B", TransactionTime: base, Quantity: 1, UnitPrice: decimal.NewFromInt(5)}
	out.ComputeTotal()
	require.NoError(t, repo.AppendStockOut(ctx, out))

	names, err := repo.ItemNames(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"A", "B"}, names)
}

func TestInventoryUpsertKeepsOneRowPerItem(t *testing.T) {
	ctx := context.Background()
	repo := NewInventoryRepository(newTestDB(t))

	require.NoError(t, repo.Upsert(ctx, &model.InventoryRow{ItemName: "A", Quantity: 1}))
	require.NoError(t, repo.Upsert(ctx, &model.InventoryRow{ItemName: "A", Quantity: 5, AvgPrice: decimal.NewFromInt(3)}))

	rows, err := repo.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 5, rows[0].Quantity)
	assert.True(t, rows[0].AvgPrice.Equal(decimal.NewFromInt(3)))

	require.NoError(t, repo.Delete(ctx, "A"))
	_, err = repo.Get(ctx, "A")
	assert.True(t, errors.Is(err, model.ErrNotFound))

	require.NoError(t, repo.Upsert(ctx, &model.InventoryRow{ItemName: "B"}))
	require.NoError(t, repo.Truncate(ctx))
	rows, err = repo.List(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestOperationLogKeepsFalseCapability(t *testing.T) {
	ctx := context.Background()
	repo := NewOperationLogRepository(newTestDB(t))

	reversible := &model.OperationLog{OperationType: model.OpAdd, TabName: model.TabStockIn, OperationTime: base, CanRevert: true}
	system := &model.OperationLog{OperationType: model.OpRebuild, TabName: model.TabInventory, OperationTime: base}
	require.NoError(t, repo.Log(ctx, reversible))
	require.NoError(t, repo.Log(ctx, system))

	got, err := repo.FindByID(ctx, system.ID)
	require.NoError(t, err)
	assert.False(t, got.CanRevert)
	assert.Equal(t, model.CategorySystem, got.OperationCategory)

	latest, err := repo.LatestReversible(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, reversible.ID, latest.ID, "system entries are never undo candidates")

	require.NoError(t, repo.SetReverted(ctx, reversible.ID, true))
	_, err = repo.LatestReversible(ctx, false)
	assert.True(t, errors.Is(err, model.ErrNotFound))

	latest, err = repo.LatestReversible(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, reversible.ID, latest.ID)

	assert.True(t, errors.Is(repo.SetReverted(ctx, 999, true), model.ErrNotFound))
}

func TestOperationLogListFilters(t *testing.T) {
	ctx := context.Background()
	repo := NewOperationLogRepository(newTestDB(t))

	entries := []*model.OperationLog{
		{OperationType: model.OpAdd, TabName: model.TabStockIn, OperationTime: base, OperationData: []byte(`{"kind":"add","records":[{"item_name":"Iron"}]}`), CanRevert: true},
		{OperationType: model.OpDelete, TabName: model.TabStockOut, OperationTime: base, OperationData: []byte(`{"kind":"delete","records":[{"item_name":"Gold"}]}`), CanRevert: true},
		{OperationType: model.OpBatchAdd, TabName: model.TabOCRImport, OperationTime: base, OperationData: []byte(`{"kind":"batch_add"}`), CanRevert: true},
	}
	for _, e := range entries {
		require.NoError(t, repo.Log(ctx, e))
	}
	require.NoError(t, repo.SetReverted(ctx, entries[0].ID, true))

	all, total, err := repo.List(ctx, model.OperationLogFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Equal(t, entries[2].ID, all[0].ID, "newest first")

	byTab, _, err := repo.List(ctx, model.OperationLogFilter{Tab: model.TabOCRImport})
	require.NoError(t, err)
	require.Len(t, byTab, 1)
	assert.Equal(t, model.OpBatchAdd, byTab[0].OperationType)

	byCategory, _, err := repo.List(ctx, model.OperationLogFilter{Category: model.CategoryAdd})
	require.NoError(t, err)
	assert.Len(t, byCategory, 2)

	byKeyword, _, err := repo.List(ctx, model.OperationLogFilter{Keyword: "Gold"})
	require.NoError(t, err)
	require.Len(t, byKeyword, 1)
	assert.Equal(t, model.OpDelete, byKeyword[0].OperationType)

	reverted := true
	undone, _, err := repo.List(ctx, model.OperationLogFilter{Reverted: &reverted})
	require.NoError(t, err)
	require.Len(t, undone, 1)
	assert.Equal(t, entries[0].ID, undone[0].ID)

	page, total, err := repo.List(ctx, model.OperationLogFilter{Page: 2, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, page, 1)
	assert.Equal(t, entries[0].ID, page[0].ID)
}

func TestTransactionRollsBackEveryRepository(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	tx := NewTransactionManager(db)
	stock := NewStockRepository(db)
	logs := NewOperationLogRepository(db)

	boom := errors.New("boom")
	err := tx.RunInTx(ctx, func(txCtx context.Context) error {
		assert.True(t, InTx(txCtx))
		require.NoError(t, stock.AppendStockIn(txCtx, stockIn("A", base, 1, 10, "")))
		require.NoError(t, logs.Log(txCtx, &model.OperationLog{OperationType: model.OpAdd, OperationTime: base, CanRevert: true}))

		// nested calls join the outer transaction
		return tx.RunInTx(txCtx, func(inner context.Context) error {
			return boom
		})
	})
	assert.ErrorIs(t, err, boom)

	rows, err := stock.AllStockIn(ctx)
	require.NoError(t, err)
	assert.Empty(t, rows)
	_, total, err := logs.List(ctx, model.OperationLogFilter{})
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestTradeMonitorLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := NewTradeMonitorRepository(newTestDB(t))

	m := &model.TradeMonitor{ItemName: "F", MonitorTime: base, Quantity: 3, TargetPrice: decimal.NewFromInt(100), Strategy: "hold"}
	require.NoError(t, repo.Create(ctx, m))

	m.Quantity = 0
	m.Strategy = ""
	require.NoError(t, repo.Update(ctx, m))
	got, err := repo.Get(ctx, "F")
	require.NoError(t, err)
	assert.Equal(t, 0, got.Quantity, "zero values are written on update")
	assert.Empty(t, got.Strategy)

	deleted, err := repo.Delete(ctx, "F")
	require.NoError(t, err)
	assert.Equal(t, m.ID, deleted.ID)
	_, err = repo.Get(ctx, "F")
	assert.True(t, errors.Is(err, model.ErrNotFound))

	require.NoError(t, repo.Restore(ctx, deleted))
	got, err = repo.Get(ctx, "F")
	require.NoError(t, err)
	assert.Equal(t, m.ID, got.ID)
}

func TestStatisticsTotalsWithinRange(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	stock := NewStockRepository(db)
	stats := NewStatisticsRepository(db)

	require.NoError(t, stock.AppendStockIn(ctx, stockIn("A", base, 1, 100, "")))
	require.NoError(t, stock.AppendStockIn(ctx, stockIn("A", base.Add(48*time.Hour), 1, 50, "")))

	totals, err := stats.StockInTotals(ctx, base.Add(-time.Hour), base.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, totals.Count)
	assert.True(t, totals.Amount.Equal(decimal.NewFromInt(100)), totals.Amount.String())

	outs, err := stats.StockOutTotals(ctx, base.Add(-time.Hour), base.Add(time.Hour))
	require.NoError(t, err)
	assert.Zero(t, outs.Count)
	assert.True(t, outs.Amount.IsZero())
}

func TestLatestRevertedFollowsUndoOrder(t *testing.T) {
	ctx := context.Background()
	repo := NewOperationLogRepository(newTestDB(t))

	entries := make([]*model.OperationLog, 3)
	for i := range entries {
		entries[i] = &model.OperationLog{OperationType: model.OpAdd, TabName: model.TabStockIn, OperationTime: base, OperationData: []byte(`{}`), CanRevert: true}
		require.NoError(t, repo.Log(ctx, entries[i]))
	}

	require.NoError(t, repo.SetReverted(ctx, entries[2].ID, true))
	require.NoError(t, repo.SetReverted(ctx, entries[1].ID, true))

	latest, err := repo.LatestReversible(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, entries[1].ID, latest.ID, "most recently undone comes back first")

	require.NoError(t, repo.SetReverted(ctx, entries[1].ID, false))
	latest, err = repo.LatestReversible(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, entries[2].ID, latest.ID)

	got, err := repo.FindByID(ctx, entries[1].ID)
	require.NoError(t, err)
	assert.Zero(t, got.RevertSeq)
}

func TestSubstringFiltersTreatWildcardsLiterally(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	stock := NewStockRepository(db)

	require.NoError(t, stock.AppendStockIn(ctx, stockIn("Scroll_1", base, 1, 10, "50% off")))
	require.NoError(t, stock.AppendStockIn(ctx, stockIn("ScrollX1", base.Add(time.Minute), 1, 10, "50 off")))
	require.NoError(t, stock.AppendStockIn(ctx, stockIn("Rune!", base.Add(2*time.Minute), 1, 10, "")))

	rows, _, err := stock.ListStockIn(ctx, model.EventFilter{Item: "Scroll_"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Scroll_1", rows[0].ItemName)

	rows, _, err = stock.ListStockIn(ctx, model.EventFilter{Note: "50%"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "50% off", rows[0].Note)

	rows, _, err = stock.ListStockIn(ctx, model.EventFilter{Item: "e!"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Rune!", rows[0].ItemName)

	logs := NewOperationLogRepository(db)
	require.NoError(t, logs.Log(ctx, &model.OperationLog{OperationType: model.OpAdd, OperationTime: base, OperationData: []byte(`{"note":"100%"}`), CanRevert: true}))
	require.NoError(t, logs.Log(ctx, &model.OperationLog{OperationType: model.OpAdd, OperationTime: base, OperationData: []byte(`{"note":"1000"}`), CanRevert: true}))
	found, total, err := logs.List(ctx, model.OperationLogFilter{Keyword: "100%"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, found, 1)
}
