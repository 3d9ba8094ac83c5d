package ocr

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Row is one recognised line: an item, a quantity and a unit price.
type Row struct {
	ItemName  string          `json:"item_name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// ParseRows reads lines of the form "<item name> <quantity> <unit price>".
// The last two whitespace separated tokens must be numeric; thousands
// separators are ignored. Lines that do not fit are returned in skipped.
func ParseRows(text string) (rows []Row, skipped []string) {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		row, ok := parseLine(line)
		if !ok {
			skipped = append(skipped, line)
			continue
		}
		rows = append(rows, row)
	}
	return rows, skipped
}

func parseLine(line string) (Row, bool) {
	fields := strings.Fields(line)
	if len(fields) < 3 {
		return Row{}, false
	}
	n := len(fields)

	qty, err := strconv.Atoi(stripSeparators(fields[n-2]))
	if err != nil || qty <= 0 {
		return Row{}, false
	}
	price, err := decimal.NewFromString(stripSeparators(fields[n-1]))
	if err != nil || !price.IsPositive() {
		return Row{}, false
	}

	name := strings.Join(fields[:n-2], " ")
	if name == "" {
		return Row{}, false
	}
	return Row{ItemName: name, Quantity: qty, UnitPrice: price}, true
}

func stripSeparators(s string) string {
	return strings.NewReplacer(",", "", "_", "").Replace(s)
}
