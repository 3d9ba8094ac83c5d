package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// InventoryRow is the derived position of one item. It is a cache over the
// stock_in/stock_out tables and can be rebuilt from them at any time.
type InventoryRow struct {
	ID             uint            `gorm:"primaryKey;autoIncrement" json:"id"`
	ItemName       string          `gorm:"type:varchar(255);uniqueIndex;not null" json:"item_name"`
	Quantity       int             `gorm:"type:int;not null;default:0" json:"quantity"` // negative only as a diagnostic
	AvgPrice       decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"avg_price"`
	BreakEvenPrice decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"break_even_price"`
	SellingPrice   decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"selling_price"`
	Profit         decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"profit"`
	ProfitRate     decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0" json:"profit_rate"` // percent
	TotalProfit    decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"total_profit"`
	InventoryValue decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"inventory_value"`
}

func (InventoryRow) TableName() string {
	return "inventory"
}

// SameFigures compares every derived field, ignoring the surrogate id.
func (r InventoryRow) SameFigures(o InventoryRow) bool {
	return r.ItemName == o.ItemName &&
		r.Quantity == o.Quantity &&
		r.AvgPrice.Equal(o.AvgPrice) &&
		r.BreakEvenPrice.Equal(o.BreakEvenPrice) &&
		r.SellingPrice.Equal(o.SellingPrice) &&
		r.Profit.Equal(o.Profit) &&
		r.ProfitRate.Equal(o.ProfitRate) &&
		r.TotalProfit.Equal(o.TotalProfit) &&
		r.InventoryValue.Equal(o.InventoryValue)
}

// TradeMonitor is a watch row for one item. Writes with an existing item
// update monitor_time, quantity and market_price in place.
type TradeMonitor struct {
	ID             uint            `gorm:"primaryKey;autoIncrement" json:"id"`
	ItemName       string          `gorm:"type:varchar(255);uniqueIndex;not null" json:"item_name"`
	MonitorTime    time.Time       `gorm:"not null;index" json:"monitor_time"`
	Quantity       int             `gorm:"type:int;not null;default:0" json:"quantity"`
	MarketPrice    decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"market_price"`
	TargetPrice    decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"target_price"`
	PlannedPrice   decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"planned_price"`
	BreakEvenPrice decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"break_even_price"`
	Profit         decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"profit"`
	ProfitRate     decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0" json:"profit_rate"`
	Strategy       string          `gorm:"type:text" json:"strategy"`
}

func (TradeMonitor) TableName() string {
	return "trade_monitor"
}

var (
	breakEvenMarkup = decimal.RequireFromString("1.03")
	hundred         = decimal.NewFromInt(100)
)

// Derive fills break-even, profit and profit rate from target, planned
// price and quantity.
func (m *TradeMonitor) Derive() {
	m.BreakEvenPrice = m.TargetPrice.Mul(breakEvenMarkup).Round(0)
	spread := m.PlannedPrice.Sub(m.TargetPrice)
	m.Profit = spread.Mul(decimal.NewFromInt(int64(m.Quantity))).Round(2)
	if m.TargetPrice.IsPositive() {
		m.ProfitRate = spread.Div(m.TargetPrice).Mul(hundred).Round(2)
	} else {
		m.ProfitRate = decimal.Zero
	}
}

// SilverMonitor is one observed currency price for a game server.
type SilverMonitor struct {
	ID        uint            `gorm:"primaryKey;autoIncrement" json:"id"`
	Server    string          `gorm:"type:varchar(100);not null;index:idx_silver_server_series" json:"server"`
	Series    string          `gorm:"type:varchar(100);not null;index:idx_silver_server_series" json:"series"`
	Price     decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"price"`
	MAPrice   decimal.Decimal `gorm:"column:ma_price;type:decimal(18,4);not null;default:0" json:"ma_price"`
	Timestamp time.Time       `gorm:"not null;index" json:"timestamp"`
}

func (SilverMonitor) TableName() string {
	return "silver_monitor"
}
