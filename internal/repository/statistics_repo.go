package repository

import (
	"context"
	"fmt"
	"time"

	"itemledger/internal/model"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// MovementTotals sums one event table over a time range.
type MovementTotals struct {
	Amount decimal.Decimal
	Count  int
}

type StatisticsRepository interface {
	StockInTotals(ctx context.Context, start, end time.Time) (MovementTotals, error)
	StockOutTotals(ctx context.Context, start, end time.Time) (MovementTotals, error)
}

type statisticsRepository struct {
	db *gorm.DB
}

func NewStatisticsRepository(db *gorm.DB) StatisticsRepository {
	return &statisticsRepository{db: db}
}

func (r *statisticsRepository) StockInTotals(ctx context.Context, start, end time.Time) (MovementTotals, error) {
	return r.sumColumn(ctx, &model.StockIn{}, "cost", start, end)
}

func (r *statisticsRepository) StockOutTotals(ctx context.Context, start, end time.Time) (MovementTotals, error) {
	return r.sumColumn(ctx, &model.StockOut{}, "total_amount", start, end)
}

// sumColumn plucks the column and sums in decimal, because SQL SUM over
// numeric columns comes back as a float on some drivers.
func (r *statisticsRepository) sumColumn(ctx context.Context, table any, column string, start, end time.Time) (MovementTotals, error) {
	var values []decimal.Decimal
	err := GetDB(ctx, r.db).Model(table).
		Where("transaction_time >= ? AND transaction_time <= ?", start, end).
		Pluck(column, &values).Error
	if err != nil {
		return MovementTotals{}, fmt.Errorf("failed to sum %s: %w", column, err)
	}

	totals := MovementTotals{Amount: decimal.Zero, Count: len(values)}
	for _, v := range values {
		totals.Amount = totals.Amount.Add(v)
	}
	return totals, nil
}
