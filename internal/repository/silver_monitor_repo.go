package repository

import (
	"context"
	"time"

	"itemledger/internal/model"

	"gorm.io/gorm"
)

type SilverMonitorRepository interface {
	Create(ctx context.Context, p *model.SilverMonitor) error
	// RecentPrices returns up to n of the newest observations, newest first.
	RecentPrices(ctx context.Context, server, series string, n int) ([]model.SilverMonitor, error)
	List(ctx context.Context, server, series string, since time.Time) ([]model.SilverMonitor, error)
}

type silverMonitorRepository struct {
	db *gorm.DB
}

func NewSilverMonitorRepository(db *gorm.DB) SilverMonitorRepository {
	return &silverMonitorRepository{db: db}
}

func (r *silverMonitorRepository) Create(ctx context.Context, p *model.SilverMonitor) error {
	p.ID = 0
	return GetDB(ctx, r.db).Create(p).Error
}

func (r *silverMonitorRepository) RecentPrices(ctx context.Context, server, series string, n int) ([]model.SilverMonitor, error) {
	var rows []model.SilverMonitor
	err := GetDB(ctx, r.db).
		Where("server = ? AND series = ?", server, series).
		Order("timestamp desc, id desc").
		Limit(n).
		Find(&rows).Error
	return rows, err
}

func (r *silverMonitorRepository) List(ctx context.Context, server, series string, since time.Time) ([]model.SilverMonitor, error) {
	var rows []model.SilverMonitor
	db := GetDB(ctx, r.db).Model(&model.SilverMonitor{})
	if server != "" {
		db = db.Where("server = ?", server)
	}
	if series != "" {
		db = db.Where("series = ?", series)
	}
	if !since.IsZero() {
		db = db.Where("timestamp >= ?", since)
	}
	if err := db.Order("timestamp asc, id asc").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
