package repository

import (
	"context"
	"errors"

	"itemledger/internal/database"
	"itemledger/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// InventoryRepository stores the derived projection rows, one per item.
type InventoryRepository interface {
	Get(ctx context.Context, item string) (*model.InventoryRow, error)
	List(ctx context.Context, search string) ([]model.InventoryRow, error)
	Upsert(ctx context.Context, row *model.InventoryRow) error
	Delete(ctx context.Context, item string) error
	Truncate(ctx context.Context) error
	Dedup(ctx context.Context) (int64, error)
}

type inventoryRepository struct {
	db *gorm.DB
}

func NewInventoryRepository(db *gorm.DB) InventoryRepository {
	return &inventoryRepository{db: db}
}

func (r *inventoryRepository) Get(ctx context.Context, item string) (*model.InventoryRow, error) {
	var row model.InventoryRow
	if err := GetDB(ctx, r.db).Where("item_name = ?", item).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, model.ErrNotFound
		}
		return nil, err
	}
	return &row, nil
}

func (r *inventoryRepository) List(ctx context.Context, search string) ([]model.InventoryRow, error) {
	var rows []model.InventoryRow
	db := GetDB(ctx, r.db).Model(&model.InventoryRow{})
	if search != "" {
		db = db.Where(whereContains("item_name"), containsPattern(search))
	}
	if err := db.Order("item_name asc, id asc").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

var projectionColumns = []string{
	"quantity", "avg_price", "break_even_price", "selling_price",
	"profit", "profit_rate", "total_profit", "inventory_value",
}

// Upsert writes row keyed by item_name.
func (r *inventoryRepository) Upsert(ctx context.Context, row *model.InventoryRow) error {
	row.ID = 0
	return GetDB(ctx, r.db).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "item_name"}},
		DoUpdates: clause.AssignmentColumns(projectionColumns),
	}).Create(row).Error
}

func (r *inventoryRepository) Delete(ctx context.Context, item string) error {
	return GetDB(ctx, r.db).Where("item_name = ?", item).Delete(&model.InventoryRow{}).Error
}

func (r *inventoryRepository) Truncate(ctx context.Context) error {
	return GetDB(ctx, r.db).Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&model.InventoryRow{}).Error
}

// Dedup keeps the most recently written row of every item name.
func (r *inventoryRepository) Dedup(ctx context.Context) (int64, error) {
	return database.DedupInventory(GetDB(ctx, r.db))
}
