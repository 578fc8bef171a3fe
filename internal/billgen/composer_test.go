package billgen

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"billsmith/backend/internal/domain"
)

func testRNG(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}

// Plenty of loose high-MRP stock: fractional quantities let the search
// land almost any target.
func looseInventory() []domain.InventoryRow {
	rows := make([]domain.InventoryRow, 0, 8)
	names := []string{"Cardamom", "Saffron", "Clove", "Vanilla", "Nutmeg", "Mace", "Cinnamon", "Anise"}
	for i, name := range names {
		rows = append(rows, domain.InventoryRow{
			Name:      name,
			Quantity:  500,
			UnitPrice: 40 + float64(i)*7,
			MRP:       12000,
		})
	}
	return rows
}

func TestComposeRangeMode(t *testing.T) {
	ledger := NewLedger([]domain.InventoryRow{
		{Name: "Sugar", Quantity: 100, UnitPrice: 50, MRP: 55},
	})
	composer := NewComposer(testRNG(7), nil)

	att, ok := composer.Compose(ledger, ComposeParams{
		Mode:         ModeRange,
		TargetMin:    50,
		TargetMax:    1000,
		Margin:       10,
		DayRemaining: 5000,
	})
	if !ok {
		t.Fatalf("expected a bill from ample stock")
	}
	if att.Total < 50 || att.Total > 1000 {
		t.Fatalf("total %v outside accepted range", att.Total)
	}
	// Composition alone must not touch stock.
	if got := ledger.Available()[0].Remaining; got != 100 {
		t.Fatalf("compose mutated ledger: remaining %v", got)
	}
}

func TestComposeExactMode(t *testing.T) {
	ledger := NewLedger(looseInventory())
	composer := NewComposer(testRNG(11), nil)

	att, ok := composer.Compose(ledger, ComposeParams{
		Mode:         ModeExact,
		TargetMin:    490,
		TargetMax:    500,
		Margin:       10,
		DayRemaining: 500,
	})
	if !ok {
		t.Fatalf("expected exact composition to land")
	}
	if math.Abs(500-att.Total) > 10 {
		t.Fatalf("total %v outside exact margin", att.Total)
	}
	sum := 0.0
	for _, line := range att.Lines {
		if line.Qty <= 0 {
			t.Fatalf("non-positive line qty %v", line.Qty)
		}
		sum += line.Total
	}
	if Round2(sum) != att.Total {
		t.Fatalf("attempt total %v != line sum %v", att.Total, Round2(sum))
	}
}

func TestComposeFailsCleanly(t *testing.T) {
	// A single 3-rupee item can never reach the [1000, 1001] window.
	ledger := NewLedger([]domain.InventoryRow{
		{Name: "Match Box", Quantity: 5000, UnitPrice: 3, MRP: 3},
	})
	composer := NewComposer(testRNG(3), nil)

	att, ok := composer.Compose(ledger, ComposeParams{
		Mode:         ModeRange,
		TargetMin:    1000,
		TargetMax:    1001,
		Margin:       1,
		DayRemaining: 1001,
	})
	if ok || att != nil {
		t.Fatalf("expected failure, got total %v", att.Total)
	}
	if got := ledger.Available()[0].Remaining; got != 5000 {
		t.Fatalf("failed compose mutated ledger: remaining %v", got)
	}
}

func TestComposeHonorsSafeLanding(t *testing.T) {
	ledger := NewLedger([]domain.InventoryRow{
		{Name: "Sugar", Quantity: 1000, UnitPrice: 50, MRP: 55},
	})
	composer := NewComposer(testRNG(5), nil)

	// Day remaining 1030 with max bill 1000: any accepted bill must
	// leave ≤ 10 (margin) or > 50 for the next bill.
	for i := 0; i < 20; i++ {
		att, ok := composer.Compose(ledger, ComposeParams{
			Mode:         ModeRange,
			TargetMin:    100,
			TargetMax:    1000,
			Margin:       10,
			DayRemaining: 1030,
		})
		if !ok {
			continue
		}
		leftover := Round2(1030 - att.Total)
		if leftover > 10 && leftover <= 50 {
			t.Fatalf("unsafe landing: leftover %v", leftover)
		}
	}
}

func TestFirstPassTakesFixedFraction(t *testing.T) {
	// High-MRP item, so fractional quantities apply. The deterministic
	// first pass must take the fixed large fraction of what fits, not a
	// random draw.
	item := &Item{Name: "Saffron", UnitPrice: 100, MRP: 20000, Remaining: 10, UnitCost: 100}
	composer := NewComposer(testRNG(9), nil)

	att := composer.build([]*Item{item}, 1, ComposeParams{
		Mode:         ModeRange,
		TargetMin:    100,
		TargetMax:    500,
		Margin:       10,
		DayRemaining: 5000,
	}, true)
	if att == nil || len(att.Lines) != 1 {
		t.Fatalf("first pass produced no line: %+v", att)
	}
	// roomLeft/unitCost = 5 fits less than the 10 in stock.
	want := Round2(5 * firstPassFraction)
	if att.Lines[0].Qty != want {
		t.Fatalf("first-pass qty = %v, want %v", att.Lines[0].Qty, want)
	}
}

func TestComposeStopsOnCancelledYield(t *testing.T) {
	// Stock worth well under the target keeps every attempt failing,
	// forcing the search through its yield points.
	ledger := NewLedger([]domain.InventoryRow{
		{Name: "A", Quantity: 10, UnitPrice: 3, MRP: 3},
		{Name: "B", Quantity: 10, UnitPrice: 3, MRP: 3},
		{Name: "C", Quantity: 10, UnitPrice: 3, MRP: 3},
		{Name: "D", Quantity: 10, UnitPrice: 3, MRP: 3},
	})
	yields := 0
	composer := NewComposer(testRNG(1), func() error {
		yields++
		return errors.New("cancelled")
	})

	_, ok := composer.Compose(ledger, ComposeParams{
		Mode:         ModeExact,
		TargetMin:    99990,
		TargetMax:    100000,
		Margin:       10,
		DayRemaining: 100000,
	})
	if ok {
		t.Fatalf("expected failure under cancellation")
	}
	if yields != 1 {
		t.Fatalf("search continued after cancelled yield: %d yields", yields)
	}
}
