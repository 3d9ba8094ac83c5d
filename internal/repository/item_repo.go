package repository

import (
	"context"
	"errors"

	"itemledger/internal/model"

	"gorm.io/gorm"
)

type ItemRepository interface {
	Exists(ctx context.Context, name string) (bool, error)
	List(ctx context.Context) ([]model.Item, error)
	Create(ctx context.Context, item *model.Item) error
	EnsureExists(ctx context.Context, name string) (created bool, err error)
}

type itemRepository struct {
	db *gorm.DB
}

func NewItemRepository(db *gorm.DB) ItemRepository {
	return &itemRepository{db: db}
}

func (r *itemRepository) Exists(ctx context.Context, name string) (bool, error) {
	var count int64
	err := GetDB(ctx, r.db).Model(&model.Item{}).Where("item_name = ?", name).Count(&count).Error
	return count > 0, err
}

func (r *itemRepository) List(ctx context.Context) ([]model.Item, error) {
	var items []model.Item
	if err := GetDB(ctx, r.db).Order("item_name asc").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *itemRepository) Create(ctx context.Context, item *model.Item) error {
	exists, err := r.Exists(ctx, item.ItemName)
	if err != nil {
		return err
	}
	if exists {
		return model.ErrDuplicateName
	}
	return GetDB(ctx, r.db).Create(item).Error
}

func (r *itemRepository) EnsureExists(ctx context.Context, name string) (bool, error) {
	var item model.Item
	err := GetDB(ctx, r.db).Where("item_name = ?", name).First(&item).Error
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, err
	}
	if err := GetDB(ctx, r.db).Create(&model.Item{ItemName: name}).Error; err != nil {
		return false, err
	}
	return true, nil
}
