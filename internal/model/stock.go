package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// EventKind selects one of the two event collections
type EventKind string

const (
	KindStockIn  EventKind = "stock_in"
	KindStockOut EventKind = "stock_out"
)

// Valid reports whether k names a known event collection.
func (k EventKind) Valid() bool {
	return k == KindStockIn || k == KindStockOut
}

// Item is a canonical item identity in the catalog
type Item struct {
	ID          uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	ItemName    string `gorm:"type:varchar(255);uniqueIndex;not null" json:"item_name"`
	Description string `gorm:"type:text" json:"description"`
}

func (Item) TableName() string {
	return "item_dict"
}

// StockIn records a purchase. Immutable once written: edits are a delete plus
// a re-insert, both carried by one operation log entry.
type StockIn struct {
	ID              uint            `gorm:"primaryKey;autoIncrement" json:"id"`
	ItemName        string          `gorm:"type:varchar(255);not null;index:idx_stock_in_item_time" json:"item_name"`
	TransactionTime time.Time       `gorm:"not null;index:idx_stock_in_item_time" json:"transaction_time"`
	Quantity        int             `gorm:"type:int;not null" json:"quantity"`
	Cost            decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"cost"`     // total cost of the lot
	AvgCost         decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"avg_cost"` // cost / quantity of this row
	Deposit         decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"deposit"`
	Note            string          `gorm:"type:text" json:"note"`
}

func (StockIn) TableName() string {
	return "stock_in"
}

// StockOut records a sale.
type StockOut struct {
	ID              uint            `gorm:"primaryKey;autoIncrement" json:"id"`
	ItemName        string          `gorm:"type:varchar(255);not null;index:idx_stock_out_item_time" json:"item_name"`
	TransactionTime time.Time       `gorm:"not null;index:idx_stock_out_item_time" json:"transaction_time"`
	Quantity        int             `gorm:"type:int;not null" json:"quantity"`
	UnitPrice       decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"unit_price"`
	Fee             decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"fee"`
	Deposit         decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"deposit"`
	TotalAmount     decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"total_amount"` // quantity*unit_price - fee + deposit
	Note            string          `gorm:"type:text" json:"note"`
}

func (StockOut) TableName() string {
	return "stock_out"
}

// ComputeTotal derives TotalAmount from the other monetary fields.
func (s *StockOut) ComputeTotal() {
	s.TotalAmount = s.UnitPrice.Mul(decimal.NewFromInt(int64(s.Quantity))).
		Sub(s.Fee).
		Add(s.Deposit).
		Round(2)
}

// ComputeAvgCost derives the per-row unit cost.
func (s *StockIn) ComputeAvgCost() {
	if s.Quantity <= 0 {
		s.AvgCost = decimal.Zero
		return
	}
	s.AvgCost = s.Cost.Div(decimal.NewFromInt(int64(s.Quantity))).Round(2)
}

// EventKey addresses a single event by its natural compound key.
type EventKey struct {
	ItemName        string    `json:"item_name"`
	TransactionTime time.Time `json:"transaction_time"`
}

// EventFilter narrows event listings. Empty strings match everything.
type EventFilter struct {
	Item   string
	Note   string
	From   *time.Time
	To     *time.Time
	Limit  int
	Offset int
}
