// Package projection derives inventory positions from the stock event log.
//
// Everything here is a pure function of the events handed in: the stored
// inventory table is only a cache of Compute and must always agree with it.
package projection

import (
	"sort"

	"itemledger/internal/model"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Aggregate accumulates the totals of one item's event stream.
type Aggregate struct {
	InQty     int64
	InCost    decimal.Decimal
	OutQty    int64
	OutAmount decimal.Decimal
}

// AddIn folds a stock-in event into the aggregate.
func (a *Aggregate) AddIn(e model.StockIn) {
	a.InQty += int64(e.Quantity)
	a.InCost = a.InCost.Add(e.Cost)
}

// AddOut folds a stock-out event into the aggregate.
func (a *Aggregate) AddOut(e model.StockOut) {
	a.OutQty += int64(e.Quantity)
	a.OutAmount = a.OutAmount.Add(e.TotalAmount)
}

// Empty reports whether no events were folded in.
func (a Aggregate) Empty() bool {
	return a.InQty == 0 && a.OutQty == 0 && a.InCost.IsZero() && a.OutAmount.IsZero()
}

// Row turns the aggregate into an inventory row for item.
//
// Every figure is derived from the exact totals; rounding to cents happens
// only on the values written to the row.
func (a Aggregate) Row(item string) model.InventoryRow {
	qty := a.InQty - a.OutQty
	inQty := decimal.NewFromInt(a.InQty)
	outQty := decimal.NewFromInt(a.OutQty)

	avg := decimal.Zero
	if a.InQty > 0 {
		avg = a.InCost.Div(inQty)
	}
	outAvg := decimal.Zero
	if a.OutQty > 0 {
		outAvg = a.OutAmount.Div(outQty)
	}

	profit := decimal.Zero
	rate := decimal.Zero
	if a.OutQty > 0 {
		// cost of the units sold at the weighted average: in_cost * out_qty / in_qty
		soldCost := decimal.Zero
		if a.InQty > 0 {
			soldCost = a.InCost.Mul(outQty).Div(inQty)
		}
		profit = a.OutAmount.Sub(soldCost)
		if soldCost.IsPositive() {
			rate = profit.Div(soldCost).Mul(hundred)
		}
	}
	selling := avg
	if outAvg.IsPositive() {
		selling = outAvg
	}
	value := decimal.Zero
	if qty > 0 && a.InQty > 0 {
		value = a.InCost.Mul(decimal.NewFromInt(qty)).Div(inQty)
	}

	return model.InventoryRow{
		ItemName:       item,
		Quantity:       int(qty),
		AvgPrice:       avg.Round(2),
		BreakEvenPrice: avg.Round(2),
		SellingPrice:   selling.Round(2),
		Profit:         profit.Round(2),
		ProfitRate:     rate.Round(2),
		TotalProfit:    profit.Round(2),
		InventoryValue: value.Round(2),
	}
}

// Compute derives the inventory row of one item from its full event log.
func Compute(item string, ins []model.StockIn, outs []model.StockOut) model.InventoryRow {
	var agg Aggregate
	for _, e := range ins {
		agg.AddIn(e)
	}
	for _, e := range outs {
		agg.AddOut(e)
	}
	return agg.Row(item)
}

// ComputeAll groups events by item and derives one row per item that has
// at least one event. Rows are ordered by item name.
func ComputeAll(ins []model.StockIn, outs []model.StockOut) []model.InventoryRow {
	aggs := make(map[string]*Aggregate)
	get := func(item string) *Aggregate {
		a, ok := aggs[item]
		if !ok {
			a = &Aggregate{}
			aggs[item] = a
		}
		return a
	}
	for _, e := range ins {
		get(e.ItemName).AddIn(e)
	}
	for _, e := range outs {
		get(e.ItemName).AddOut(e)
	}

	names := make([]string, 0, len(aggs))
	for name := range aggs {
		names = append(names, name)
	}
	sort.Strings(names)

	rows := make([]model.InventoryRow, 0, len(names))
	for _, name := range names {
		rows = append(rows, aggs[name].Row(name))
	}
	return rows
}

// Mismatch describes a stored row that disagrees with the recomputed one.
type Mismatch struct {
	ItemName string              `json:"item_name"`
	Reason   string              `json:"reason"` // missing | stale | extra | duplicate
	Stored   *model.InventoryRow `json:"stored,omitempty"`
	Expected *model.InventoryRow `json:"expected,omitempty"`
}

// Diff compares stored rows against freshly computed ones.
func Diff(stored, expected []model.InventoryRow) []Mismatch {
	var out []Mismatch

	byName := make(map[string]model.InventoryRow, len(stored))
	for _, r := range stored {
		if _, dup := byName[r.ItemName]; dup {
			row := r
			out = append(out, Mismatch{ItemName: r.ItemName, Reason: "duplicate", Stored: &row})
			continue
		}
		byName[r.ItemName] = r
	}

	seen := make(map[string]bool, len(expected))
	for _, e := range expected {
		exp := e
		seen[e.ItemName] = true
		s, ok := byName[e.ItemName]
		if !ok {
			out = append(out, Mismatch{ItemName: e.ItemName, Reason: "missing", Expected: &exp})
			continue
		}
		if !s.SameFigures(e) {
			st := s
			out = append(out, Mismatch{ItemName: e.ItemName, Reason: "stale", Stored: &st, Expected: &exp})
		}
	}

	for _, r := range stored {
		if !seen[r.ItemName] {
			row := r
			out = append(out, Mismatch{ItemName: r.ItemName, Reason: "extra", Stored: &row})
			seen[r.ItemName] = true
		}
	}
	return out
}
