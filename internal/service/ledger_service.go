package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"itemledger/internal/model"
	ws "itemledger/internal/websocket"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// EventInput is a proposed stock event. Cost applies to stock-in, UnitPrice
// and Fee to stock-out.
type EventInput struct {
	ItemName        string          `json:"item_name" validate:"required,max=255"`
	TransactionTime time.Time       `json:"transaction_time"`
	Quantity        int             `json:"quantity" validate:"gt=0"`
	Cost            decimal.Decimal `json:"cost"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
	Fee             decimal.Decimal `json:"fee"`
	Deposit         decimal.Decimal `json:"deposit"`
	Note            string          `json:"note" validate:"max=2000"`
}

// TradeMonitorInput is a proposed trade monitor write.
type TradeMonitorInput struct {
	ItemName     string          `json:"item_name" validate:"required,max=255"`
	MonitorTime  time.Time       `json:"monitor_time"`
	Quantity     int             `json:"quantity" validate:"gte=0"`
	MarketPrice  decimal.Decimal `json:"market_price"`
	TargetPrice  decimal.Decimal `json:"target_price"`
	PlannedPrice decimal.Decimal `json:"planned_price"`
	Strategy     string          `json:"strategy" validate:"max=2000"`
}

// ImportResult summarises one bulk write.
type ImportResult struct {
	Imported int      `json:"imported"`
	LogID    uint     `json:"log_id"`
	Items    []string `json:"items"`
	Skipped  []string `json:"skipped,omitempty"`
}

// LedgerService is the only writer of events, projection rows, trade
// monitor rows and operation log entries.
type LedgerService interface {
	RecordStockIn(ctx context.Context, in EventInput) (*model.StockIn, error)
	RecordStockOut(ctx context.Context, in EventInput) (*model.StockOut, error)
	EditEvent(ctx context.Context, kind model.EventKind, key model.EventKey, in EventInput) error
	DeleteEvent(ctx context.Context, kind model.EventKind, key model.EventKey) error
	ImportEvents(ctx context.Context, kind model.EventKind, inputs []EventInput, tab string) (ImportResult, error)

	RecordTradeMonitor(ctx context.Context, in TradeMonitorInput) (*model.TradeMonitor, error)
	DeleteTradeMonitor(ctx context.Context, item string, at time.Time) error

	Undo(ctx context.Context, logID uint) (*model.OperationLog, error)
	Redo(ctx context.Context, logID uint) (*model.OperationLog, error)
	UndoLast(ctx context.Context) (*model.OperationLog, error)
	RedoLast(ctx context.Context) (*model.OperationLog, error)
}

type ledgerService struct {
	store Store
	pen   *Pen
	hub   *ws.Hub
	log   logrus.FieldLogger
}

func NewLedgerService(store Store, pen *Pen, hub *ws.Hub, log logrus.FieldLogger) LedgerService {
	if pen == nil {
		pen = &Pen{}
	}
	return &ledgerService{store: store, pen: pen, hub: hub, log: log}
}

func (s *ledgerService) buildStockIn(in EventInput) (*model.StockIn, error) {
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	cost := money(in.Cost)
	if !cost.IsPositive() {
		return nil, model.NewValidationError("cost", "must be greater than 0")
	}
	deposit := money(in.Deposit)
	if deposit.IsNegative() {
		return nil, model.NewValidationError("deposit", "must not be negative")
	}
	at := in.TransactionTime
	if at.IsZero() {
		at = now()
	}
	e := &model.StockIn{
		ItemName:        in.ItemName,
		TransactionTime: normalizeTime(at),
		Quantity:        in.Quantity,
		Cost:            cost,
		Deposit:         deposit,
		Note:            in.Note,
	}
	e.ComputeAvgCost()
	return e, nil
}

func (s *ledgerService) buildStockOut(in EventInput) (*model.StockOut, error) {
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	price := money(in.UnitPrice)
	if !price.IsPositive() {
		return nil, model.NewValidationError("unit_price", "must be greater than 0")
	}
	fee := money(in.Fee)
	if fee.IsNegative() {
		return nil, model.NewValidationError("fee", "must not be negative")
	}
	deposit := money(in.Deposit)
	if deposit.IsNegative() {
		return nil, model.NewValidationError("deposit", "must not be negative")
	}
	at := in.TransactionTime
	if at.IsZero() {
		at = now()
	}
	e := &model.StockOut{
		ItemName:        in.ItemName,
		TransactionTime: normalizeTime(at),
		Quantity:        in.Quantity,
		UnitPrice:       price,
		Fee:             fee,
		Deposit:         deposit,
		Note:            in.Note,
	}
	e.ComputeTotal()
	return e, nil
}

func (s *ledgerService) RecordStockIn(ctx context.Context, in EventInput) (*model.StockIn, error) {
	e, err := s.buildStockIn(in)
	if err != nil {
		return nil, err
	}

	s.pen.Lock()
	defer s.pen.Unlock()

	err = s.store.Tx.RunInTx(ctx, func(txCtx context.Context) error {
		if in.TransactionTime.IsZero() {
			at, err := freeKeyTime(txCtx, s.store.Stock, model.KindStockIn, e.ItemName, e.TransactionTime)
			if err != nil {
				return err
			}
			e.TransactionTime = at
		}
		if _, err := s.store.Items.EnsureExists(txCtx, e.ItemName); err != nil {
			return err
		}
		if err := s.store.Stock.AppendStockIn(txCtx, e); err != nil {
			return err
		}
		if err := refreshProjection(txCtx, s.store, e.ItemName); err != nil {
			return err
		}
		records, err := encodeRecords(*e)
		if err != nil {
			return err
		}
		_, err = writeLog(txCtx, s.store.Logs, model.OpAdd, model.TabStockIn, model.Payload{
			Target:  model.TargetStockIn,
			Records: records,
		})
		return err
	})
	if err != nil {
		return nil, model.AsStorageError("record stock in", err)
	}

	publish(s.hub, s.log, "stock_in.created", e)
	return e, nil
}

func (s *ledgerService) RecordStockOut(ctx context.Context, in EventInput) (*model.StockOut, error) {
	e, err := s.buildStockOut(in)
	if err != nil {
		return nil, err
	}

	s.pen.Lock()
	defer s.pen.Unlock()

	err = s.store.Tx.RunInTx(ctx, func(txCtx context.Context) error {
		available := 0
		row, err := s.store.Inventory.Get(txCtx, e.ItemName)
		switch {
		case err == nil:
			available = row.Quantity
		case !model.IsNotFound(err):
			return err
		}
		if available < e.Quantity {
			return fmt.Errorf("%w: %s has %d, requested %d", model.ErrInsufficientInventory, e.ItemName, available, e.Quantity)
		}
		if in.TransactionTime.IsZero() {
			at, err := freeKeyTime(txCtx, s.store.Stock, model.KindStockOut, e.ItemName, e.TransactionTime)
			if err != nil {
				return err
			}
			e.TransactionTime = at
		}

		if _, err := s.store.Items.EnsureExists(txCtx, e.ItemName); err != nil {
			return err
		}
		if err := s.store.Stock.AppendStockOut(txCtx, e); err != nil {
			return err
		}
		if err := refreshProjection(txCtx, s.store, e.ItemName); err != nil {
			return err
		}
		records, err := encodeRecords(*e)
		if err != nil {
			return err
		}
		_, err = writeLog(txCtx, s.store.Logs, model.OpAdd, model.TabStockOut, model.Payload{
			Target:  model.TargetStockOut,
			Records: records,
		})
		return err
	})
	if err != nil {
		return nil, model.AsStorageError("record stock out", err)
	}

	publish(s.hub, s.log, "stock_out.created", e)
	return e, nil
}

// EditEvent replaces the event at key with in. Both halves share one
// modify entry; the sufficiency guard does not apply to edits.
func (s *ledgerService) EditEvent(ctx context.Context, kind model.EventKind, key model.EventKey, in EventInput) error {
	if !kind.Valid() {
		return model.NewValidationError("kind", "must be stock_in or stock_out")
	}
	key.TransactionTime = normalizeTime(key.TransactionTime)

	var (
		newIn  *model.StockIn
		newOut *model.StockOut
		err    error
	)
	if kind == model.KindStockIn {
		newIn, err = s.buildStockIn(in)
	} else {
		newOut, err = s.buildStockOut(in)
	}
	if err != nil {
		return err
	}

	s.pen.Lock()
	defer s.pen.Unlock()

	var tab, target string
	err = s.store.Tx.RunInTx(ctx, func(txCtx context.Context) error {
		var (
			oldRaw, newRaw   json.RawMessage
			oldItem, newItem string
		)
		if kind == model.KindStockIn {
			tab, target = model.TabStockIn, model.TargetStockIn
			old, err := s.store.Stock.DeleteStockInByKey(txCtx, key)
			if err != nil {
				return err
			}
			if _, err := s.store.Items.EnsureExists(txCtx, newIn.ItemName); err != nil {
				return err
			}
			if err := s.store.Stock.AppendStockIn(txCtx, newIn); err != nil {
				return err
			}
			oldItem, newItem = old.ItemName, newIn.ItemName
			if oldRaw, err = encodeRecord(old); err != nil {
				return err
			}
			if newRaw, err = encodeRecord(newIn); err != nil {
				return err
			}
		} else {
			tab, target = model.TabStockOut, model.TargetStockOut
			old, err := s.store.Stock.DeleteStockOutByKey(txCtx, key)
			if err != nil {
				return err
			}
			if _, err := s.store.Items.EnsureExists(txCtx, newOut.ItemName); err != nil {
				return err
			}
			if err := s.store.Stock.AppendStockOut(txCtx, newOut); err != nil {
				return err
			}
			oldItem, newItem = old.ItemName, newOut.ItemName
			if oldRaw, err = encodeRecord(old); err != nil {
				return err
			}
			if newRaw, err = encodeRecord(newOut); err != nil {
				return err
			}
		}

		if err := refreshProjection(txCtx, s.store, oldItem, newItem); err != nil {
			return err
		}
		_, err := writeLog(txCtx, s.store.Logs, model.OpModify, tab, model.Payload{
			Target: target,
			Old:    oldRaw,
			New:    newRaw,
		})
		return err
	})
	if err != nil {
		return model.AsStorageError("edit event", err)
	}

	publish(s.hub, s.log, string(kind)+".updated", key)
	return nil
}

func (s *ledgerService) DeleteEvent(ctx context.Context, kind model.EventKind, key model.EventKey) error {
	if !kind.Valid() {
		return model.NewValidationError("kind", "must be stock_in or stock_out")
	}
	key.TransactionTime = normalizeTime(key.TransactionTime)

	s.pen.Lock()
	defer s.pen.Unlock()

	err := s.store.Tx.RunInTx(ctx, func(txCtx context.Context) error {
		var (
			record      json.RawMessage
			tab, target string
			err         error
		)
		if kind == model.KindStockIn {
			tab, target = model.TabStockIn, model.TargetStockIn
			old, derr := s.store.Stock.DeleteStockInByKey(txCtx, key)
			if derr != nil {
				return derr
			}
			record, err = encodeRecord(old)
		} else {
			tab, target = model.TabStockOut, model.TargetStockOut
			old, derr := s.store.Stock.DeleteStockOutByKey(txCtx, key)
			if derr != nil {
				return derr
			}
			record, err = encodeRecord(old)
		}
		if err != nil {
			return err
		}

		if err := refreshProjection(txCtx, s.store, key.ItemName); err != nil {
			return err
		}
		_, err = writeLog(txCtx, s.store.Logs, model.OpDelete, tab, model.Payload{
			Target:  target,
			Records: []json.RawMessage{record},
		})
		return err
	})
	if err != nil {
		return model.AsStorageError("delete event", err)
	}

	publish(s.hub, s.log, string(kind)+".deleted", key)
	return nil
}

// ImportEvents is the bulk intake path. Every input is validated before any
// write, the sufficiency guard is skipped, and the whole batch is logged as
// one batch_add entry under tab.
func (s *ledgerService) ImportEvents(ctx context.Context, kind model.EventKind, inputs []EventInput, tab string) (ImportResult, error) {
	var result ImportResult
	if !kind.Valid() {
		return result, model.NewValidationError("kind", "must be stock_in or stock_out")
	}
	if len(inputs) == 0 {
		return result, model.NewValidationError("records", "must not be empty")
	}
	if tab == "" {
		tab = model.TabOCRImport
	}

	ins := make([]*model.StockIn, 0, len(inputs))
	outs := make([]*model.StockOut, 0, len(inputs))
	for i, in := range inputs {
		if kind == model.KindStockIn {
			e, err := s.buildStockIn(in)
			if err != nil {
				return result, fmt.Errorf("record %d: %w", i, err)
			}
			ins = append(ins, e)
		} else {
			e, err := s.buildStockOut(in)
			if err != nil {
				return result, fmt.Errorf("record %d: %w", i, err)
			}
			outs = append(outs, e)
		}
	}

	s.pen.Lock()
	defer s.pen.Unlock()

	err := s.store.Tx.RunInTx(ctx, func(txCtx context.Context) error {
		var (
			items   []string
			records []json.RawMessage
			target  string
		)
		for i, e := range ins {
			if inputs[i].TransactionTime.IsZero() {
				at, err := freeKeyTime(txCtx, s.store.Stock, model.KindStockIn, e.ItemName, e.TransactionTime)
				if err != nil {
					return err
				}
				e.TransactionTime = at
			}
			if _, err := s.store.Items.EnsureExists(txCtx, e.ItemName); err != nil {
				return err
			}
			if err := s.store.Stock.AppendStockIn(txCtx, e); err != nil {
				return err
			}
			raw, err := encodeRecord(e)
			if err != nil {
				return err
			}
			records = append(records, raw)
			items = append(items, e.ItemName)
			target = model.TargetStockIn
		}
		for i, e := range outs {
			if inputs[i].TransactionTime.IsZero() {
				at, err := freeKeyTime(txCtx, s.store.Stock, model.KindStockOut, e.ItemName, e.TransactionTime)
				if err != nil {
					return err
				}
				e.TransactionTime = at
			}
			if _, err := s.store.Items.EnsureExists(txCtx, e.ItemName); err != nil {
				return err
			}
			if err := s.store.Stock.AppendStockOut(txCtx, e); err != nil {
				return err
			}
			raw, err := encodeRecord(e)
			if err != nil {
				return err
			}
			records = append(records, raw)
			items = append(items, e.ItemName)
			target = model.TargetStockOut
		}

		if err := refreshProjection(txCtx, s.store, items...); err != nil {
			return err
		}

		entry, err := writeLog(txCtx, s.store.Logs, model.OpBatchAdd, tab, model.Payload{
			Target:  target,
			Records: records,
		})
		if err != nil {
			return err
		}
		result.LogID = entry.ID
		result.Items = uniqueStrings(items)
		result.Imported = len(records)
		return nil
	})
	if err != nil {
		return ImportResult{}, model.AsStorageError("import events", err)
	}

	publish(s.hub, s.log, string(kind)+".imported", result)
	return result, nil
}

// RecordTradeMonitor upserts the watch row of in.ItemName. An existing row
// only takes the new monitor time, quantity and market price.
func (s *ledgerService) RecordTradeMonitor(ctx context.Context, in TradeMonitorInput) (*model.TradeMonitor, error) {
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	for field, v := range map[string]decimal.Decimal{
		"market_price":  in.MarketPrice,
		"target_price":  in.TargetPrice,
		"planned_price": in.PlannedPrice,
	} {
		if v.IsNegative() {
			return nil, model.NewValidationError(field, "must not be negative")
		}
	}
	at := in.MonitorTime
	if at.IsZero() {
		at = now()
	}
	at = normalizeTime(at)

	s.pen.Lock()
	defer s.pen.Unlock()

	var saved *model.TradeMonitor
	err := s.store.Tx.RunInTx(ctx, func(txCtx context.Context) error {
		existing, err := s.store.Monitors.Get(txCtx, in.ItemName)
		if err != nil && !model.IsNotFound(err) {
			return err
		}

		if existing == nil {
			row := &model.TradeMonitor{
				ItemName:     in.ItemName,
				MonitorTime:  at,
				Quantity:     in.Quantity,
				MarketPrice:  money(in.MarketPrice),
				TargetPrice:  money(in.TargetPrice),
				PlannedPrice: money(in.PlannedPrice),
				Strategy:     in.Strategy,
			}
			row.Derive()
			if err := s.store.Monitors.Create(txCtx, row); err != nil {
				return err
			}
			records, err := encodeRecords(*row)
			if err != nil {
				return err
			}
			if _, err := writeLog(txCtx, s.store.Logs, model.OpAdd, model.TabTradeMonitor, model.Payload{
				Target:  model.TargetTradeMonitor,
				Records: records,
			}); err != nil {
				return err
			}
			saved = row
			return nil
		}

		old := *existing
		updated := *existing
		updated.MonitorTime = at
		updated.Quantity = in.Quantity
		updated.MarketPrice = money(in.MarketPrice)
		updated.Derive()
		if err := s.store.Monitors.Update(txCtx, &updated); err != nil {
			return err
		}
		oldRaw, err := encodeRecord(old)
		if err != nil {
			return err
		}
		newRaw, err := encodeRecord(updated)
		if err != nil {
			return err
		}
		if _, err := writeLog(txCtx, s.store.Logs, model.OpModify, model.TabTradeMonitor, model.Payload{
			Target: model.TargetTradeMonitor,
			Old:    oldRaw,
			New:    newRaw,
		}); err != nil {
			return err
		}
		saved = &updated
		return nil
	})
	if err != nil {
		return nil, model.AsStorageError("record trade monitor", err)
	}

	publish(s.hub, s.log, "trade_monitor.saved", saved)
	return saved, nil
}

// DeleteTradeMonitor removes the row of item whose monitor time is exactly at.
func (s *ledgerService) DeleteTradeMonitor(ctx context.Context, item string, at time.Time) error {
	if item == "" {
		return model.NewValidationError("item_name", "is required")
	}
	at = normalizeTime(at)

	s.pen.Lock()
	defer s.pen.Unlock()

	err := s.store.Tx.RunInTx(ctx, func(txCtx context.Context) error {
		row, err := s.store.Monitors.Get(txCtx, item)
		if err != nil {
			return err
		}
		if !row.MonitorTime.Equal(at) {
			return fmt.Errorf("%w: no trade monitor row for %s at %s", model.ErrNotFound, item, at.Format(time.RFC3339))
		}
		if _, err := s.store.Monitors.Delete(txCtx, item); err != nil {
			return err
		}
		records, err := encodeRecords(*row)
		if err != nil {
			return err
		}
		_, err = writeLog(txCtx, s.store.Logs, model.OpDelete, model.TabTradeMonitor, model.Payload{
			Target:  model.TargetTradeMonitor,
			Records: records,
		})
		return err
	})
	if err != nil {
		return model.AsStorageError("delete trade monitor", err)
	}

	publish(s.hub, s.log, "trade_monitor.deleted", map[string]any{"item_name": item, "monitor_time": at})
	return nil
}

func uniqueStrings(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
