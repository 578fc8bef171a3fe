package billgen

import (
	"context"
	"math"
	"testing"

	"github.com/rs/zerolog"

	"billsmith/backend/internal/domain"
)

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

func TestSchedulerFillsDaysWithinMargin(t *testing.T) {
	rows := looseInventory()
	ledger := NewLedger(rows)
	sched := NewScheduler(Options{
		MaxBillAmount: 4000,
		ExactMargin:   10,
		BillPrefix:    "TST-",
		BillStart:     1,
		Purchasers:    []string{"Asha", "Binod", "Chitra"},
		Seed:          42,
	}, testLogger())

	targets := []domain.DailyTarget{
		{Date: "2026-01-05", Amount: 500},
		{Date: "2026-01-06", Amount: 750},
	}
	res := sched.Run(context.Background(), ledger, targets)

	if res.Status != ResultCompleted {
		t.Fatalf("status = %s, want completed (skips %+v)", res.Status, res.Skips)
	}
	if res.TargetTotal != 1250 {
		t.Fatalf("target total = %v, want 1250", res.TargetTotal)
	}
	if math.Abs(res.TargetTotal-res.GeneratedTotal) > 20 {
		t.Fatalf("generated %v strayed from target %v beyond per-day margin", res.GeneratedTotal, res.TargetTotal)
	}
	if len(res.Bills) == 0 {
		t.Fatalf("no bills generated")
	}

	// Conservation: per item, billed + remaining equals the load.
	billed := make(map[string]float64)
	for _, bill := range res.Bills {
		for _, line := range bill.Lines {
			billed[line.ItemName] += line.Qty
		}
	}
	remaining := make(map[string]float64)
	for _, row := range ledger.StockRows() {
		remaining[row.Name] = row.Remaining
	}
	for _, row := range rows {
		got := billed[row.Name] + remaining[row.Name]
		if math.Abs(got-row.Quantity) > 0.01 {
			t.Fatalf("item %s: billed+remaining = %v, loaded %v", row.Name, got, row.Quantity)
		}
	}

	// Sequential numbering with the configured prefix.
	for i, bill := range res.Bills {
		want := BillNumber("TST-", 1+i)
		if bill.Number != want {
			t.Fatalf("bill %d numbered %s, want %s", i, bill.Number, want)
		}
		if bill.Purchaser == "" {
			t.Fatalf("bill %s has no purchaser", bill.Number)
		}
	}
}

func TestSchedulerSkipsZeroTargetDays(t *testing.T) {
	ledger := NewLedger(looseInventory())
	sched := NewScheduler(Options{Seed: 9}, testLogger())

	res := sched.Run(context.Background(), ledger, []domain.DailyTarget{
		{Date: "2026-01-04", Amount: 0},
		{Date: "2026-01-11", Amount: -50},
	})
	if res.Status != ResultCompleted {
		t.Fatalf("status = %s, want completed", res.Status)
	}
	if len(res.Bills) != 0 || len(res.Skips) != 0 {
		t.Fatalf("zero-target days produced output: %d bills, %d skips", len(res.Bills), len(res.Skips))
	}
}

func TestSchedulerCriticalDayStrictHalt(t *testing.T) {
	// One near-worthless item cannot open any bill for a 5000 target.
	ledger := NewLedger([]domain.InventoryRow{
		{Name: "Pin", Quantity: 1, UnitPrice: 10, MRP: 10},
	})
	sched := NewScheduler(Options{
		MaxBillAmount:  4000,
		FailureCeiling: 60,
		Strict:         true,
		Seed:           13,
	}, testLogger())

	res := sched.Run(context.Background(), ledger, []domain.DailyTarget{
		{Date: "2026-02-02", Amount: 5000},
		{Date: "2026-02-03", Amount: 5000},
	})
	if res.Status != ResultAborted {
		t.Fatalf("status = %s, want aborted", res.Status)
	}
	if len(res.Skips) != 1 {
		t.Fatalf("expected the halt after the first critical day, got %d skips", len(res.Skips))
	}
	if res.Skips[0].Kind != domain.SkipKindCritical {
		t.Fatalf("skip kind = %s, want critical", res.Skips[0].Kind)
	}
	if len(res.Bills) != 0 {
		t.Fatalf("critical day emitted bills")
	}
}

func TestSchedulerPartialSkipContinues(t *testing.T) {
	// Stock worth ~3000 against a 5000-rupee day: at least one bill
	// lands, then the day runs out and is skipped as partial.
	ledger := NewLedger([]domain.InventoryRow{
		{Name: "Atta", Quantity: 30, UnitPrice: 100, MRP: 110},
	})
	sched := NewScheduler(Options{
		MaxBillAmount:  4000,
		FailureCeiling: 60,
		Seed:           21,
	}, testLogger())

	res := sched.Run(context.Background(), ledger, []domain.DailyTarget{
		{Date: "2026-03-02", Amount: 5000},
	})
	if res.Status != ResultPartial {
		t.Fatalf("status = %s, want partial", res.Status)
	}
	if len(res.Bills) == 0 {
		t.Fatalf("expected at least one bill before the skip")
	}
	if len(res.Skips) != 1 || res.Skips[0].Kind != domain.SkipKindPartial {
		t.Fatalf("unexpected skip log %+v", res.Skips)
	}
	if res.Skips[0].Achieved <= 0 {
		t.Fatalf("partial skip recorded no achieved amount")
	}
}

func TestSchedulerHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ledger := NewLedger(looseInventory())
	sched := NewScheduler(Options{Seed: 3}, testLogger())
	res := sched.Run(ctx, ledger, []domain.DailyTarget{
		{Date: "2026-01-05", Amount: 500},
	})
	if res.Status != ResultAborted {
		t.Fatalf("status = %s, want aborted", res.Status)
	}
	if len(res.Bills) != 0 {
		t.Fatalf("cancelled run emitted bills")
	}
}

func TestNamePoolRotates(t *testing.T) {
	pool := newNamePool([]string{"Asha", "Binod", "", "Chitra"}, testRNG(2))
	seen := make(map[string]int)
	for i := 0; i < 6; i++ {
		name := pool.next()
		if name == "" {
			t.Fatalf("empty purchaser from non-empty pool")
		}
		seen[name]++
	}
	if len(seen) != 3 {
		t.Fatalf("pool served %d distinct names, want 3", len(seen))
	}
}
