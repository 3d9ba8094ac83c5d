package service

import (
	"context"

	"itemledger/internal/config"
	"itemledger/internal/model"
	"itemledger/internal/projection"
	ws "itemledger/internal/websocket"

	"github.com/sirupsen/logrus"
)

// ProjectionService reads and repairs the derived inventory table.
type ProjectionService interface {
	Get(ctx context.Context, item string) (*model.InventoryRow, error)
	GetAll(ctx context.Context, search string) []model.InventoryRow
	RebuildOne(ctx context.Context, item string) (*model.InventoryRow, error)
	RebuildAll(ctx context.Context) ([]model.InventoryRow, error)
	Verify(ctx context.Context) ([]projection.Mismatch, error)
	Dedup(ctx context.Context) (int64, error)
}

type projectionService struct {
	store Store
	pen   *Pen
	hub   *ws.Hub
	log   logrus.FieldLogger
}

func NewProjectionService(store Store, pen *Pen, hub *ws.Hub, log logrus.FieldLogger) ProjectionService {
	if pen == nil {
		pen = &Pen{}
	}
	return &projectionService{store: store, pen: pen, hub: hub, log: log}
}

func (s *projectionService) Get(ctx context.Context, item string) (*model.InventoryRow, error) {
	row, err := s.store.Inventory.Get(ctx, item)
	if err != nil {
		return nil, model.AsStorageError("get inventory", err)
	}
	return row, nil
}

// GetAll degrades to an empty list when storage is unreachable.
func (s *projectionService) GetAll(ctx context.Context, search string) []model.InventoryRow {
	rows, err := s.store.Inventory.List(ctx, search)
	if err != nil {
		config.LogError(s.log, "service", "GetAll", "list inventory", search, err)
		return []model.InventoryRow{}
	}
	return rows
}

func (s *projectionService) RebuildOne(ctx context.Context, item string) (*model.InventoryRow, error) {
	if item == "" {
		return nil, model.NewValidationError("item_name", "is required")
	}

	s.pen.Lock()
	defer s.pen.Unlock()

	var row *model.InventoryRow
	err := s.store.Tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := refreshProjection(txCtx, s.store, item); err != nil {
			return err
		}
		r, err := s.store.Inventory.Get(txCtx, item)
		if err != nil {
			return err
		}
		row = r
		return nil
	})
	if err != nil {
		return nil, model.AsStorageError("rebuild inventory row", err)
	}
	return row, nil
}

// RebuildAll truncates the projection and writes one row per item that has
// events. The rebuild is logged as a system operation.
func (s *projectionService) RebuildAll(ctx context.Context) ([]model.InventoryRow, error) {
	s.pen.Lock()
	defer s.pen.Unlock()

	var rows []model.InventoryRow
	err := s.store.Tx.RunInTx(ctx, func(txCtx context.Context) error {
		ins, err := s.store.Stock.AllStockIn(txCtx)
		if err != nil {
			return err
		}
		outs, err := s.store.Stock.AllStockOut(txCtx)
		if err != nil {
			return err
		}
		if err := s.store.Inventory.Truncate(txCtx); err != nil {
			return err
		}

		rows = projection.ComputeAll(ins, outs)
		for i := range rows {
			if err := s.store.Inventory.Upsert(txCtx, &rows[i]); err != nil {
				return err
			}
		}

		_, err = writeLog(txCtx, s.store.Logs, model.OpRebuild, model.TabInventory, model.Payload{
			Target: model.TargetInventory,
			Note:   "rebuilt from event log",
		})
		return err
	})
	if err != nil {
		return nil, model.AsStorageError("rebuild inventory", err)
	}

	if s.log != nil {
		s.log.WithField("items", len(rows)).Info("inventory rebuilt")
	}
	publish(s.hub, s.log, "inventory.rebuilt", map[string]int{"items": len(rows)})
	return rows, nil
}

// Verify recomputes every item in memory and reports where the stored
// projection disagrees. Nothing is written.
func (s *projectionService) Verify(ctx context.Context) ([]projection.Mismatch, error) {
	ins, err := s.store.Stock.AllStockIn(ctx)
	if err != nil {
		return nil, model.AsStorageError("verify inventory", err)
	}
	outs, err := s.store.Stock.AllStockOut(ctx)
	if err != nil {
		return nil, model.AsStorageError("verify inventory", err)
	}
	stored, err := s.store.Inventory.List(ctx, "")
	if err != nil {
		return nil, model.AsStorageError("verify inventory", err)
	}
	return projection.Diff(stored, projection.ComputeAll(ins, outs)), nil
}

// Dedup removes duplicate projection rows keeping the newest id per item.
func (s *projectionService) Dedup(ctx context.Context) (int64, error) {
	s.pen.Lock()
	defer s.pen.Unlock()

	var removed int64
	err := s.store.Tx.RunInTx(ctx, func(txCtx context.Context) error {
		n, err := s.store.Inventory.Dedup(txCtx)
		if err != nil {
			return err
		}
		removed = n
		_, err = writeLog(txCtx, s.store.Logs, model.OpDedup, model.TabInventory, model.Payload{
			Target: model.TargetInventory,
			Note:   "removed duplicate rows",
		})
		return err
	})
	if err != nil {
		return 0, model.AsStorageError("dedup inventory", err)
	}
	return removed, nil
}
