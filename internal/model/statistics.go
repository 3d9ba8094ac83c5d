package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// StatisticsResponse aggregates stock movements in a time range together
// with the current inventory position
type StatisticsResponse struct {
	TotalStockInCost    decimal.Decimal `json:"total_stock_in_cost"`
	TotalStockOutAmount decimal.Decimal `json:"total_stock_out_amount"`
	StockInCount        int             `json:"stock_in_count"`
	StockOutCount       int             `json:"stock_out_count"`
	ItemCount           int             `json:"item_count"`
	TotalQuantity       int             `json:"total_quantity"`
	InventoryValue      decimal.Decimal `json:"inventory_value"`
	RealizedProfit      decimal.Decimal `json:"realized_profit"`
	NegativeItems       []string        `json:"negative_items"`
	TopByValue          []ItemRanking   `json:"top_by_value"`
	TimeRangeStartDate  time.Time       `json:"time_range_start_date"`
	TimeRangeEndDate    time.Time       `json:"time_range_end_date"`
}

// ItemRanking represents a ranked item based on its inventory value
type ItemRanking struct {
	ItemName       string          `json:"item_name"`
	Quantity       int             `json:"quantity"`
	InventoryValue decimal.Decimal `json:"inventory_value"`
	Profit         decimal.Decimal `json:"profit"`
}
