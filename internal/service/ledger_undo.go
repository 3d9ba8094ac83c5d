package service

import (
	"context"
	"encoding/json"
	"fmt"

	"itemledger/internal/model"
)

// recordHandler removes or re-inserts one payload record of a target table
// and reports the item whose projection must be refreshed.
type recordHandler struct {
	remove  func(ctx context.Context, raw json.RawMessage) (string, error)
	restore func(ctx context.Context, raw json.RawMessage) (string, error)
}

func (s *ledgerService) handlerFor(target string) (recordHandler, error) {
	switch target {
	case model.TargetStockIn:
		return recordHandler{
			remove: func(ctx context.Context, raw json.RawMessage) (string, error) {
				var e model.StockIn
				if err := json.Unmarshal(raw, &e); err != nil {
					return "", err
				}
				return e.ItemName, s.store.Stock.DeleteStockIn(ctx, e.ID)
			},
			restore: func(ctx context.Context, raw json.RawMessage) (string, error) {
				var e model.StockIn
				if err := json.Unmarshal(raw, &e); err != nil {
					return "", err
				}
				if _, err := s.store.Items.EnsureExists(ctx, e.ItemName); err != nil {
					return "", err
				}
				return e.ItemName, s.store.Stock.RestoreStockIn(ctx, &e)
			},
		}, nil
	case model.TargetStockOut:
		return recordHandler{
			remove: func(ctx context.Context, raw json.RawMessage) (string, error) {
				var e model.StockOut
				if err := json.Unmarshal(raw, &e); err != nil {
					return "", err
				}
				return e.ItemName, s.store.Stock.DeleteStockOut(ctx, e.ID)
			},
			restore: func(ctx context.Context, raw json.RawMessage) (string, error) {
				var e model.StockOut
				if err := json.Unmarshal(raw, &e); err != nil {
					return "", err
				}
				if _, err := s.store.Items.EnsureExists(ctx, e.ItemName); err != nil {
					return "", err
				}
				return e.ItemName, s.store.Stock.RestoreStockOut(ctx, &e)
			},
		}, nil
	case model.TargetTradeMonitor:
		return recordHandler{
			remove: func(ctx context.Context, raw json.RawMessage) (string, error) {
				var m model.TradeMonitor
				if err := json.Unmarshal(raw, &m); err != nil {
					return "", err
				}
				current, err := s.store.Monitors.Get(ctx, m.ItemName)
				if err != nil {
					return "", err
				}
				if current.ID != m.ID {
					return "", fmt.Errorf("%w: trade monitor row %d for %s", model.ErrNotFound, m.ID, m.ItemName)
				}
				_, err = s.store.Monitors.Delete(ctx, m.ItemName)
				return "", err
			},
			restore: func(ctx context.Context, raw json.RawMessage) (string, error) {
				var m model.TradeMonitor
				if err := json.Unmarshal(raw, &m); err != nil {
					return "", err
				}
				return "", s.store.Monitors.Restore(ctx, &m)
			},
		}, nil
	default:
		return recordHandler{}, fmt.Errorf("%w: unsupported payload target %q", model.ErrNotReversible, target)
	}
}

// apply runs the forward (redo) or inverse (undo) of a decoded payload and
// returns the items whose projection changed.
func (s *ledgerService) apply(ctx context.Context, p model.Payload, inverse bool) ([]string, error) {
	h, err := s.handlerFor(p.Target)
	if err != nil {
		return nil, err
	}

	var items []string
	run := func(fn func(context.Context, json.RawMessage) (string, error), raws ...json.RawMessage) error {
		for _, raw := range raws {
			item, err := fn(ctx, raw)
			if err != nil {
				return err
			}
			items = append(items, item)
		}
		return nil
	}

	switch p.Kind {
	case model.OpAdd, model.OpBatchAdd:
		if inverse {
			err = run(h.remove, p.Records...)
		} else {
			err = run(h.restore, p.Records...)
		}
	case model.OpDelete, model.OpBatchDelete:
		if inverse {
			err = run(h.restore, p.Records...)
		} else {
			err = run(h.remove, p.Records...)
		}
	case model.OpModify:
		if len(p.Old) == 0 || len(p.New) == 0 {
			return nil, fmt.Errorf("%w: modify payload without old/new", model.ErrNotReversible)
		}
		if inverse {
			if err = run(h.remove, p.New); err == nil {
				err = run(h.restore, p.Old)
			}
		} else {
			if err = run(h.remove, p.Old); err == nil {
				err = run(h.restore, p.New)
			}
		}
	default:
		return nil, fmt.Errorf("%w: %s", model.ErrNotReversible, p.Kind)
	}
	if err != nil {
		return nil, err
	}
	return items, nil
}

// flip undoes (inverse) or redoes the entry atomically and toggles its
// reverted flag. No new log entry is written.
func (s *ledgerService) flip(ctx context.Context, pick func(context.Context) (*model.OperationLog, error), inverse bool) (*model.OperationLog, error) {
	s.pen.Lock()
	defer s.pen.Unlock()

	var entry *model.OperationLog
	err := s.store.Tx.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		entry, err = pick(txCtx)
		if err != nil {
			return err
		}
		if !entry.CanRevert || !model.CanRevert(entry.OperationType) {
			return fmt.Errorf("%w: %s entry %d", model.ErrNotReversible, entry.OperationType, entry.ID)
		}
		if inverse && entry.Reverted {
			return fmt.Errorf("%w: entry %d", model.ErrAlreadyReverted, entry.ID)
		}
		if !inverse && !entry.Reverted {
			return fmt.Errorf("%w: entry %d", model.ErrNotReverted, entry.ID)
		}

		p, err := entry.Decode()
		if err != nil {
			return fmt.Errorf("decode entry %d: %w", entry.ID, err)
		}
		if p.Kind == "" {
			p.Kind = entry.OperationType
		}
		items, err := s.apply(txCtx, p, inverse)
		if err != nil {
			return err
		}
		if err := refreshProjection(txCtx, s.store, items...); err != nil {
			return err
		}
		if err := s.store.Logs.SetReverted(txCtx, entry.ID, inverse); err != nil {
			return err
		}
		entry.Reverted = inverse
		return nil
	})
	if err != nil {
		return nil, model.AsStorageError("flip operation", err)
	}

	event := "operation.redone"
	if inverse {
		event = "operation.undone"
	}
	publish(s.hub, s.log, event, entry)
	return entry, nil
}

func (s *ledgerService) Undo(ctx context.Context, logID uint) (*model.OperationLog, error) {
	return s.flip(ctx, func(c context.Context) (*model.OperationLog, error) {
		return s.store.Logs.FindByID(c, logID)
	}, true)
}

func (s *ledgerService) Redo(ctx context.Context, logID uint) (*model.OperationLog, error) {
	return s.flip(ctx, func(c context.Context) (*model.OperationLog, error) {
		return s.store.Logs.FindByID(c, logID)
	}, false)
}

// UndoLast undoes the newest reversible entry that is still applied.
func (s *ledgerService) UndoLast(ctx context.Context) (*model.OperationLog, error) {
	return s.flip(ctx, func(c context.Context) (*model.OperationLog, error) {
		return s.store.Logs.LatestReversible(c, false)
	}, true)
}

// RedoLast redoes the most recently written entry that is currently reverted.
func (s *ledgerService) RedoLast(ctx context.Context) (*model.OperationLog, error) {
	return s.flip(ctx, func(c context.Context) (*model.OperationLog, error) {
		return s.store.Logs.LatestReversible(c, true)
	}, false)
}
