package billgen

import (
	"reflect"
	"testing"
)

func sampleAttempt() *Attempt {
	rice := &Item{Name: "Rice", UnitPrice: 60, GSTPercent: 5, MRP: 70}
	cola := &Item{Name: "Cola", UnitPrice: 40, GSTPercent: 28, CESSPercent: 12, MRP: 45}
	att := newAttempt()
	att.add(rice, 2.5, LineTotal(60, 2.5, 5, 0, 70))
	att.add(cola, 3, LineTotal(40, 3, 28, 12, 45))
	return att
}

func TestFormatBillIsIdempotent(t *testing.T) {
	att := sampleAttempt()
	first := FormatBill(att, "INV-0001", "2026-01-05", "Asha", "cash", 500)
	second := FormatBill(att, "INV-0001", "2026-01-05", "Asha", "cash", 500)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("formatting the same attempt twice diverged:\n%+v\n%+v", first, second)
	}
	if first.Total != Round2(att.Lines[0].Total+att.Lines[1].Total) {
		t.Fatalf("bill total %v != sum of line totals", first.Total)
	}
}

func TestExportRowsTaxSplit(t *testing.T) {
	att := sampleAttempt()
	bill := FormatBill(att, "INV-0007", "2026-01-09", "Binod", "cash", 500)
	rows := ExportRows(bill)
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}

	rice := rows[0]
	if rice.BillDate != "09/01/2026" {
		t.Fatalf("display date = %s, want 09/01/2026", rice.BillDate)
	}
	if rice.PreTaxAmount != 150.00 {
		t.Fatalf("pre-tax = %v, want 150.00", rice.PreTaxAmount)
	}
	if rice.CGSTPercent != 2.5 || rice.SGSTPercent != 2.5 {
		t.Fatalf("GST 5%% should split 2.5/2.5, got %v/%v", rice.CGSTPercent, rice.SGSTPercent)
	}
	if rice.CGSTAmount != 3.75 || rice.SGSTAmount != 3.75 {
		t.Fatalf("GST amount 7.50 should split 3.75/3.75, got %v/%v", rice.CGSTAmount, rice.SGSTAmount)
	}

	cola := rows[1]
	if cola.CESSAmount != 16.20 {
		t.Fatalf("cess amount = %v, want 16.20", cola.CESSAmount)
	}
	for _, row := range rows {
		if row.BillTotal != bill.Total {
			t.Fatalf("row bill total %v != %v", row.BillTotal, bill.Total)
		}
	}
}

func TestExportRowsCashRoundOff(t *testing.T) {
	item := &Item{Name: "Gum", UnitPrice: 10.30, MRP: 11}
	att := newAttempt()
	att.add(item, 3, LineTotal(10.30, 3, 0, 0, 11))

	cash := FormatBill(att, "INV-0002", "2026-01-05", "Asha", "cash", 31)
	cashRows := ExportRows(cash)
	if cashRows[0].RoundOff != 0.10 {
		t.Fatalf("cash round-off = %v, want 0.10", cashRows[0].RoundOff)
	}
	if cashRows[0].PayableTotal != 31 {
		t.Fatalf("cash payable = %v, want 31", cashRows[0].PayableTotal)
	}

	upi := FormatBill(att, "INV-0003", "2026-01-05", "Asha", "upi", 31)
	upiRows := ExportRows(upi)
	if upiRows[0].RoundOff != 0 {
		t.Fatalf("non-cash round-off = %v, want 0", upiRows[0].RoundOff)
	}
	if upiRows[0].PayableTotal != 30.90 {
		t.Fatalf("non-cash payable = %v, want 30.90", upiRows[0].PayableTotal)
	}
}

func TestBillNumberPadding(t *testing.T) {
	if got := BillNumber("INV-", 7); got != "INV-0007" {
		t.Fatalf("BillNumber = %s", got)
	}
	if got := BillNumber("GST/26/", 12345); got != "GST/26/12345" {
		t.Fatalf("wide index = %s", got)
	}
}

func TestDisplayDatePassThrough(t *testing.T) {
	if got := DisplayDate("not-a-date"); got != "not-a-date" {
		t.Fatalf("malformed input rewritten to %s", got)
	}
}
