// Package export renders ledger tables as Excel workbooks or CSV.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"itemledger/internal/model"

	"github.com/xuri/excelize/v2"
)

// Format names accepted by Write.
const (
	FormatXLSX = "xlsx"
	FormatCSV  = "csv"
)

// Table is a header row plus data rows.
type Table struct {
	Sheet   string
	Headers []string
	Rows    [][]any
}

// InventoryTable lays out projection rows.
func InventoryTable(rows []model.InventoryRow) Table {
	t := Table{
		Sheet: "inventory",
		Headers: []string{
			"item_name", "quantity", "avg_price", "break_even_price", "selling_price",
			"profit", "profit_rate", "total_profit", "inventory_value",
		},
	}
	for _, r := range rows {
		t.Rows = append(t.Rows, []any{
			r.ItemName, r.Quantity, r.AvgPrice.StringFixed(2), r.BreakEvenPrice.StringFixed(2),
			r.SellingPrice.StringFixed(2), r.Profit.StringFixed(2), r.ProfitRate.StringFixed(2),
			r.TotalProfit.StringFixed(2), r.InventoryValue.StringFixed(2),
		})
	}
	return t
}

// OperationLogTable lays out operation log entries with their raw payload.
func OperationLogTable(logs []model.OperationLog) Table {
	t := Table{
		Sheet: "operation_logs",
		Headers: []string{
			"id", "operation_type", "operation_category", "tab_name",
			"operation_time", "reverted", "can_revert", "operation_data",
		},
	}
	for _, l := range logs {
		t.Rows = append(t.Rows, []any{
			l.ID, l.OperationType, l.OperationCategory, l.TabName,
			l.OperationTime.Format(time.DateTime), l.Reverted, l.CanRevert, string(l.OperationData),
		})
	}
	return t
}

// StockInTable lays out purchase events.
func StockInTable(events []model.StockIn) Table {
	t := Table{
		Sheet:   "stock_in",
		Headers: []string{"id", "item_name", "transaction_time", "quantity", "cost", "avg_cost", "deposit", "note"},
	}
	for _, e := range events {
		t.Rows = append(t.Rows, []any{
			e.ID, e.ItemName, e.TransactionTime.Format(time.DateTime), e.Quantity,
			e.Cost.StringFixed(2), e.AvgCost.StringFixed(2), e.Deposit.StringFixed(2), e.Note,
		})
	}
	return t
}

// StockOutTable lays out sale events.
func StockOutTable(events []model.StockOut) Table {
	t := Table{
		Sheet: "stock_out",
		Headers: []string{
			"id", "item_name", "transaction_time", "quantity", "unit_price",
			"fee", "deposit", "total_amount", "note",
		},
	}
	for _, e := range events {
		t.Rows = append(t.Rows, []any{
			e.ID, e.ItemName, e.TransactionTime.Format(time.DateTime), e.Quantity,
			e.UnitPrice.StringFixed(2), e.Fee.StringFixed(2), e.Deposit.StringFixed(2),
			e.TotalAmount.StringFixed(2), e.Note,
		})
	}
	return t
}

// ContentType returns the MIME type of format.
func ContentType(format string) string {
	if format == FormatCSV {
		return "text/csv; charset=utf-8"
	}
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

// Write renders t to w in format.
func Write(w io.Writer, format string, t Table) error {
	switch format {
	case FormatXLSX, "":
		return WriteXLSX(w, t)
	case FormatCSV:
		return WriteCSV(w, t)
	default:
		return fmt.Errorf("unsupported export format %q", format)
	}
}

// WriteXLSX writes t as a single-sheet workbook.
func WriteXLSX(w io.Writer, t Table) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := t.Sheet
	if sheet == "" {
		sheet = "Sheet1"
	}
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return err
	}

	if err := setRow(f, sheet, 1, toAny(t.Headers)); err != nil {
		return err
	}
	for i, row := range t.Rows {
		if err := setRow(f, sheet, i+2, row); err != nil {
			return err
		}
	}
	return f.Write(w)
}

func setRow(f *excelize.File, sheet string, rowNo int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, rowNo)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &values)
}

// WriteCSV writes t with a header line.
func WriteCSV(w io.Writer, t Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Headers); err != nil {
		return err
	}
	for _, row := range t.Rows {
		record := make([]string, len(row))
		for i, v := range row {
			record[i] = fmt.Sprint(v)
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func toAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
