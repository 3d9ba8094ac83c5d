package service

import (
	"context"

	"itemledger/internal/config"
	"itemledger/internal/model"

	"github.com/sirupsen/logrus"
)

type CreateItemRequest struct {
	ItemName    string `json:"item_name" validate:"required,max=255"`
	Description string `json:"description" validate:"max=2000"`
}

// CatalogService manages canonical item names. Names compare exactly.
type CatalogService interface {
	Exists(ctx context.Context, name string) (bool, error)
	List(ctx context.Context) []model.Item
	Add(ctx context.Context, req CreateItemRequest) (*model.Item, error)
}

type catalogService struct {
	store Store
	pen   *Pen
	log   logrus.FieldLogger
}

func NewCatalogService(store Store, pen *Pen, log logrus.FieldLogger) CatalogService {
	if pen == nil {
		pen = &Pen{}
	}
	return &catalogService{store: store, pen: pen, log: log}
}

func (s *catalogService) Exists(ctx context.Context, name string) (bool, error) {
	ok, err := s.store.Items.Exists(ctx, name)
	if err != nil {
		return false, model.AsStorageError("item exists", err)
	}
	return ok, nil
}

func (s *catalogService) List(ctx context.Context) []model.Item {
	items, err := s.store.Items.List(ctx)
	if err != nil {
		config.LogError(s.log, "service", "List", "list items", nil, err)
		return []model.Item{}
	}
	return items
}

// Add registers a new item explicitly. The create_item entry is logged but
// cannot be reverted since items are never deleted.
func (s *catalogService) Add(ctx context.Context, req CreateItemRequest) (*model.Item, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	s.pen.Lock()
	defer s.pen.Unlock()

	item := &model.Item{ItemName: req.ItemName, Description: req.Description}
	err := s.store.Tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.store.Items.Create(txCtx, item); err != nil {
			return err
		}
		records, err := encodeRecords(*item)
		if err != nil {
			return err
		}
		_, err = writeLog(txCtx, s.store.Logs, model.OpCreateItem, model.TabItemDict, model.Payload{
			Target:  model.TargetItem,
			Records: records,
		})
		return err
	})
	if err != nil {
		return nil, model.AsStorageError("add item", err)
	}
	return item, nil
}
