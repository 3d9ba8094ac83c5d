package service

import (
	"context"

	"itemledger/internal/config"
	"itemledger/internal/model"

	"github.com/sirupsen/logrus"
)

// EventService answers read-only event and trade monitor queries. Storage
// failures are logged and reported as empty results.
type EventService interface {
	ListStockIn(ctx context.Context, filter model.EventFilter) ([]model.StockIn, int64)
	ListStockOut(ctx context.Context, filter model.EventFilter) ([]model.StockOut, int64)
	ListTradeMonitors(ctx context.Context, search string) []model.TradeMonitor
}

type eventService struct {
	store Store
	log   logrus.FieldLogger
}

func NewEventService(store Store, log logrus.FieldLogger) EventService {
	return &eventService{store: store, log: log}
}

func (s *eventService) ListStockIn(ctx context.Context, filter model.EventFilter) ([]model.StockIn, int64) {
	rows, total, err := s.store.Stock.ListStockIn(ctx, filter)
	if err != nil {
		config.LogError(s.log, "service", "ListStockIn", "list stock_in", filter, err)
		return []model.StockIn{}, 0
	}
	return rows, total
}

func (s *eventService) ListStockOut(ctx context.Context, filter model.EventFilter) ([]model.StockOut, int64) {
	rows, total, err := s.store.Stock.ListStockOut(ctx, filter)
	if err != nil {
		config.LogError(s.log, "service", "ListStockOut", "list stock_out", filter, err)
		return []model.StockOut{}, 0
	}
	return rows, total
}

func (s *eventService) ListTradeMonitors(ctx context.Context, search string) []model.TradeMonitor {
	rows, err := s.store.Monitors.List(ctx, search)
	if err != nil {
		config.LogError(s.log, "service", "ListTradeMonitors", "list trade_monitor", search, err)
		return []model.TradeMonitor{}
	}
	return rows
}
