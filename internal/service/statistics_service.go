package service

import (
	"context"
	"sort"
	"time"

	"itemledger/internal/config"
	"itemledger/internal/model"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const topItemsLimit = 5

type StatisticsService interface {
	GetStatistics(ctx context.Context, startDate, endDate time.Time) (model.StatisticsResponse, error)
}

type statisticsService struct {
	store Store
	log   logrus.FieldLogger
}

func NewStatisticsService(store Store, log logrus.FieldLogger) StatisticsService {
	return &statisticsService{store: store, log: log}
}

// GetStatistics sums stock movements between startDate and endDate and
// summarises the current projection.
func (s *statisticsService) GetStatistics(ctx context.Context, startDate, endDate time.Time) (model.StatisticsResponse, error) {
	if endDate.Before(startDate) {
		return model.StatisticsResponse{}, model.NewValidationError("end_date", "must not be before start_date")
	}

	response := model.StatisticsResponse{
		TotalStockInCost:    decimal.Zero,
		TotalStockOutAmount: decimal.Zero,
		InventoryValue:      decimal.Zero,
		RealizedProfit:      decimal.Zero,
		NegativeItems:       []string{},
		TopByValue:          []model.ItemRanking{},
		TimeRangeStartDate:  startDate,
		TimeRangeEndDate:    endDate,
	}

	in, err := s.store.Statistics.StockInTotals(ctx, startDate, endDate)
	if err != nil {
		config.LogError(s.log, "service", "GetStatistics", "stock_in totals", nil, err)
	} else {
		response.TotalStockInCost = in.Amount
		response.StockInCount = in.Count
	}

	out, err := s.store.Statistics.StockOutTotals(ctx, startDate, endDate)
	if err != nil {
		config.LogError(s.log, "service", "GetStatistics", "stock_out totals", nil, err)
	} else {
		response.TotalStockOutAmount = out.Amount
		response.StockOutCount = out.Count
	}

	rows, err := s.store.Inventory.List(ctx, "")
	if err != nil {
		config.LogError(s.log, "service", "GetStatistics", "list inventory", nil, err)
		return response, nil
	}

	response.ItemCount = len(rows)
	for _, r := range rows {
		response.TotalQuantity += r.Quantity
		response.InventoryValue = response.InventoryValue.Add(r.InventoryValue)
		response.RealizedProfit = response.RealizedProfit.Add(r.TotalProfit)
		if r.Quantity < 0 {
			response.NegativeItems = append(response.NegativeItems, r.ItemName)
		}
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].InventoryValue.GreaterThan(rows[j].InventoryValue)
	})
	for i := 0; i < len(rows) && i < topItemsLimit; i++ {
		response.TopByValue = append(response.TopByValue, model.ItemRanking{
			ItemName:       rows[i].ItemName,
			Quantity:       rows[i].Quantity,
			InventoryValue: rows[i].InventoryValue,
			Profit:         rows[i].TotalProfit,
		})
	}

	return response, nil
}
