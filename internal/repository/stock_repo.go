package repository

import (
	"context"

	"itemledger/internal/model"

	"gorm.io/gorm"
)

// StockRepository is the append-only event store for stock-in and stock-out
// rows. Surrogate ids are assigned in append order.
type StockRepository interface {
	AppendStockIn(ctx context.Context, e *model.StockIn) error
	AppendStockOut(ctx context.Context, e *model.StockOut) error

	// Restore re-inserts a previously removed event under its original id.
	RestoreStockIn(ctx context.Context, e *model.StockIn) error
	RestoreStockOut(ctx context.Context, e *model.StockOut) error

	FindStockInByKey(ctx context.Context, key model.EventKey) (*model.StockIn, error)
	FindStockOutByKey(ctx context.Context, key model.EventKey) (*model.StockOut, error)
	DeleteStockInByKey(ctx context.Context, key model.EventKey) (*model.StockIn, error)
	DeleteStockOutByKey(ctx context.Context, key model.EventKey) (*model.StockOut, error)
	DeleteStockIn(ctx context.Context, id uint) error
	DeleteStockOut(ctx context.Context, id uint) error

	ListStockIn(ctx context.Context, filter model.EventFilter) ([]model.StockIn, int64, error)
	ListStockOut(ctx context.Context, filter model.EventFilter) ([]model.StockOut, int64, error)

	StockInForItem(ctx context.Context, item string) ([]model.StockIn, error)
	StockOutForItem(ctx context.Context, item string) ([]model.StockOut, error)
	AllStockIn(ctx context.Context) ([]model.StockIn, error)
	AllStockOut(ctx context.Context) ([]model.StockOut, error)
	ItemNames(ctx context.Context) ([]string, error)
}

type stockRepository struct {
	db *gorm.DB
}

func NewStockRepository(db *gorm.DB) StockRepository {
	return &stockRepository{db: db}
}

func (r *stockRepository) AppendStockIn(ctx context.Context, e *model.StockIn) error {
	e.ID = 0
	return GetDB(ctx, r.db).Create(e).Error
}

func (r *stockRepository) AppendStockOut(ctx context.Context, e *model.StockOut) error {
	e.ID = 0
	return GetDB(ctx, r.db).Create(e).Error
}

func (r *stockRepository) RestoreStockIn(ctx context.Context, e *model.StockIn) error {
	return GetDB(ctx, r.db).Create(e).Error
}

func (r *stockRepository) RestoreStockOut(ctx context.Context, e *model.StockOut) error {
	return GetDB(ctx, r.db).Create(e).Error
}

// findUniqueByKey loads the single row of T matching key.
func findUniqueByKey[T any](db *gorm.DB, key model.EventKey) (*T, error) {
	var rows []T
	err := db.Where("item_name = ? AND transaction_time = ?", key.ItemName, key.TransactionTime).
		Limit(2).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	switch len(rows) {
	case 0:
		return nil, model.ErrNotFound
	case 1:
		return &rows[0], nil
	default:
		return nil, model.ErrAmbiguous
	}
}

func (r *stockRepository) FindStockInByKey(ctx context.Context, key model.EventKey) (*model.StockIn, error) {
	return findUniqueByKey[model.StockIn](GetDB(ctx, r.db), key)
}

func (r *stockRepository) FindStockOutByKey(ctx context.Context, key model.EventKey) (*model.StockOut, error) {
	return findUniqueByKey[model.StockOut](GetDB(ctx, r.db), key)
}

func (r *stockRepository) DeleteStockInByKey(ctx context.Context, key model.EventKey) (*model.StockIn, error) {
	e, err := r.FindStockInByKey(ctx, key)
	if err != nil {
		return nil, err
	}
	if err := r.DeleteStockIn(ctx, e.ID); err != nil {
		return nil, err
	}
	return e, nil
}

func (r *stockRepository) DeleteStockOutByKey(ctx context.Context, key model.EventKey) (*model.StockOut, error) {
	e, err := r.FindStockOutByKey(ctx, key)
	if err != nil {
		return nil, err
	}
	if err := r.DeleteStockOut(ctx, e.ID); err != nil {
		return nil, err
	}
	return e, nil
}

func deleteByID(db *gorm.DB, value any, id uint) error {
	res := db.Where("id = ?", id).Delete(value)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return model.ErrNotFound
	}
	return nil
}

func (r *stockRepository) DeleteStockIn(ctx context.Context, id uint) error {
	return deleteByID(GetDB(ctx, r.db), &model.StockIn{}, id)
}

func (r *stockRepository) DeleteStockOut(ctx context.Context, id uint) error {
	return deleteByID(GetDB(ctx, r.db), &model.StockOut{}, id)
}

func applyEventFilter(db *gorm.DB, f model.EventFilter) *gorm.DB {
	if f.Item != "" {
		db = db.Where(whereContains("item_name"), containsPattern(f.Item))
	}
	if f.Note != "" {
		db = db.Where(whereContains("note"), containsPattern(f.Note))
	}
	if f.From != nil {
		db = db.Where("transaction_time >= ?", *f.From)
	}
	if f.To != nil {
		db = db.Where("transaction_time <= ?", *f.To)
	}
	return db
}

func listEvents[T any](db *gorm.DB, f model.EventFilter) ([]T, int64, error) {
	var rows []T
	var total int64

	q := applyEventFilter(db.Model(new(T)), f)
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	q = applyEventFilter(db.Model(new(T)), f).Order("transaction_time desc, id desc")
	if f.Limit > 0 {
		q = q.Offset(f.Offset).Limit(f.Limit)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

func (r *stockRepository) ListStockIn(ctx context.Context, filter model.EventFilter) ([]model.StockIn, int64, error) {
	return listEvents[model.StockIn](GetDB(ctx, r.db), filter)
}

func (r *stockRepository) ListStockOut(ctx context.Context, filter model.EventFilter) ([]model.StockOut, int64, error) {
	return listEvents[model.StockOut](GetDB(ctx, r.db), filter)
}

func (r *stockRepository) StockInForItem(ctx context.Context, item string) ([]model.StockIn, error) {
	var rows []model.StockIn
	err := GetDB(ctx, r.db).Where("item_name = ?", item).Order("id asc").Find(&rows).Error
	return rows, err
}

func (r *stockRepository) StockOutForItem(ctx context.Context, item string) ([]model.StockOut, error) {
	var rows []model.StockOut
	err := GetDB(ctx, r.db).Where("item_name = ?", item).Order("id asc").Find(&rows).Error
	return rows, err
}

func (r *stockRepository) AllStockIn(ctx context.Context) ([]model.StockIn, error) {
	var rows []model.StockIn
	err := GetDB(ctx, r.db).Order("id asc").Find(&rows).Error
	return rows, err
}

func (r *stockRepository) AllStockOut(ctx context.Context) ([]model.StockOut, error) {
	var rows []model.StockOut
	err := GetDB(ctx, r.db).Order("id asc").Find(&rows).Error
	return rows, err
}

// ItemNames lists every item with at least one event.
func (r *stockRepository) ItemNames(ctx context.Context) ([]string, error) {
	var names []string
	err := GetDB(ctx, r.db).Raw(`
		SELECT item_name FROM stock_in
		UNION
		SELECT item_name FROM stock_out
		ORDER BY item_name`).Scan(&names).Error
	return names, err
}
