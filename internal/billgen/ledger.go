package billgen

import (
	"math"
	"slices"

	"billsmith/backend/internal/domain"
)

const (
	// Stock at or below this is treated as exhausted dust.
	dustStock = 0.001
	// Smallest fractional quantity worth putting on a bill.
	dustQty = 0.01
	// MRP above which an item may always be sold fractionally.
	highValueMRP = 10000
	// Day leftover below this (and above the margin) is considered
	// unusable dust that would strand the day.
	minUsableLeftover = 50
)

// Item is one ledger entry: the input row plus running state.
type Item struct {
	Name        string
	UnitPrice   float64
	GSTPercent  float64
	CESSPercent float64
	MRP         float64
	Remaining   float64
	// UnitCost is the tax-inclusive price of one unit, fixed at load.
	UnitCost float64
	// LoadedFractional records whether the row arrived with a
	// non-integer quantity.
	LoadedFractional bool
}

// Ledger tracks remaining stock across a whole run. It is not safe for
// concurrent use; each run owns one ledger.
type Ledger struct {
	items []*Item
	index map[string]*Item
}

func NewLedger(rows []domain.InventoryRow) *Ledger {
	l := &Ledger{index: make(map[string]*Item, len(rows))}
	for _, row := range rows {
		if row.Name == "" || row.Quantity <= 0 || row.UnitPrice <= 0 {
			continue
		}
		if _, dup := l.index[row.Name]; dup {
			continue
		}
		item := &Item{
			Name:             row.Name,
			UnitPrice:        row.UnitPrice,
			GSTPercent:       row.GSTPercent,
			CESSPercent:      row.CESSPercent,
			MRP:              row.MRP,
			Remaining:        row.Quantity,
			UnitCost:         LineTotal(row.UnitPrice, 1, row.GSTPercent, row.CESSPercent, row.MRP),
			LoadedFractional: isFractional(row.Quantity),
		}
		l.items = append(l.items, item)
		l.index[row.Name] = item
	}
	return l
}

// Available returns the items with sellable stock, cheapest unit first.
// The returned slice is a fresh copy; callers may reorder it.
func (l *Ledger) Available() []*Item {
	out := make([]*Item, 0, len(l.items))
	for _, item := range l.items {
		if item.Remaining > dustStock {
			out = append(out, item)
		}
	}
	slices.SortFunc(out, func(a, b *Item) int {
		switch {
		case a.UnitCost < b.UnitCost:
			return -1
		case a.UnitCost > b.UnitCost:
			return 1
		default:
			return 0
		}
	})
	return out
}

// Commit deducts an accepted attempt from stock. Remaining quantities
// are rounded to 3 decimals and clamped at zero.
func (l *Ledger) Commit(att *Attempt) {
	for name, qty := range att.consumed {
		item := l.index[name]
		if item == nil {
			continue
		}
		item.Remaining = Round3(item.Remaining - qty)
		if item.Remaining < 0 {
			item.Remaining = 0
		}
	}
}

// StockRows snapshots the remaining stock, cheapest unit first,
// omitting exhausted dust.
func (l *Ledger) StockRows() []domain.StockRow {
	avail := l.Available()
	rows := make([]domain.StockRow, 0, len(avail))
	for _, item := range avail {
		rows = append(rows, domain.StockRow{
			Name:      item.Name,
			Remaining: item.Remaining,
			UnitPrice: item.UnitPrice,
			Amount:    Round2(item.Remaining * item.UnitPrice),
		})
	}
	return rows
}

// TotalValue is the tax-inclusive worth of all remaining stock. The
// scheduler uses it to tell an empty ledger from an unlucky search.
func (l *Ledger) TotalValue() float64 {
	total := 0.0
	for _, item := range l.items {
		if item.Remaining > dustStock {
			total += item.Remaining * item.UnitCost
		}
	}
	return total
}

func isFractional(v float64) bool {
	return math.Abs(v-math.Round(v)) > 1e-9
}
