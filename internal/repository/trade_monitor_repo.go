package repository

import (
	"context"
	"errors"

	"itemledger/internal/model"

	"gorm.io/gorm"
)

type TradeMonitorRepository interface {
	Get(ctx context.Context, item string) (*model.TradeMonitor, error)
	List(ctx context.Context, search string) ([]model.TradeMonitor, error)
	Create(ctx context.Context, m *model.TradeMonitor) error
	Update(ctx context.Context, m *model.TradeMonitor) error
	Delete(ctx context.Context, item string) (*model.TradeMonitor, error)
	Restore(ctx context.Context, m *model.TradeMonitor) error
}

type tradeMonitorRepository struct {
	db *gorm.DB
}

func NewTradeMonitorRepository(db *gorm.DB) TradeMonitorRepository {
	return &tradeMonitorRepository{db: db}
}

func (r *tradeMonitorRepository) Get(ctx context.Context, item string) (*model.TradeMonitor, error) {
	var m model.TradeMonitor
	if err := GetDB(ctx, r.db).Where("item_name = ?", item).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, model.ErrNotFound
		}
		return nil, err
	}
	return &m, nil
}

func (r *tradeMonitorRepository) List(ctx context.Context, search string) ([]model.TradeMonitor, error) {
	var rows []model.TradeMonitor
	db := GetDB(ctx, r.db).Model(&model.TradeMonitor{})
	if search != "" {
		db = db.Where(whereContains("item_name"), containsPattern(search))
	}
	if err := db.Order("monitor_time desc, id desc").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *tradeMonitorRepository) Create(ctx context.Context, m *model.TradeMonitor) error {
	m.ID = 0
	return GetDB(ctx, r.db).Create(m).Error
}

// Update saves every column of an existing row, zero values included.
func (r *tradeMonitorRepository) Update(ctx context.Context, m *model.TradeMonitor) error {
	return GetDB(ctx, r.db).Select("*").Where("id = ?", m.ID).Updates(m).Error
}

func (r *tradeMonitorRepository) Delete(ctx context.Context, item string) (*model.TradeMonitor, error) {
	m, err := r.Get(ctx, item)
	if err != nil {
		return nil, err
	}
	if err := deleteByID(GetDB(ctx, r.db), &model.TradeMonitor{}, m.ID); err != nil {
		return nil, err
	}
	return m, nil
}

// Restore re-inserts a deleted row under its original id.
func (r *tradeMonitorRepository) Restore(ctx context.Context, m *model.TradeMonitor) error {
	return GetDB(ctx, r.db).Create(m).Error
}
