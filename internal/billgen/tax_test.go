package billgen

import "testing"

func TestLineTotal(t *testing.T) {
	cases := []struct {
		name        string
		unitPrice   float64
		qty         float64
		gstPercent  float64
		cessPercent float64
		mrp         float64
		want        float64
	}{
		{name: "gst only", unitPrice: 100, qty: 2, gstPercent: 18, want: 236.00},
		{name: "gst plus cess on mrp", unitPrice: 50, qty: 1, gstPercent: 5, cessPercent: 2, mrp: 200, want: 56.50},
		{name: "no taxes", unitPrice: 99.99, qty: 1, want: 99.99},
		{name: "fractional qty", unitPrice: 80, qty: 0.25, gstPercent: 12, want: 22.40},
		{name: "zero qty", unitPrice: 100, qty: 0, gstPercent: 18, want: 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := LineTotal(tc.unitPrice, tc.qty, tc.gstPercent, tc.cessPercent, tc.mrp)
			if got != tc.want {
				t.Fatalf("LineTotal = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestRounding(t *testing.T) {
	if got := Round2(3.14159); got != 3.14 {
		t.Fatalf("Round2(3.14159) = %v, want 3.14", got)
	}
	if got := Round2(2.718); got != 2.72 {
		t.Fatalf("Round2(2.718) = %v, want 2.72", got)
	}
	if got := Round2(-1.239); got != -1.24 {
		t.Fatalf("Round2(-1.239) = %v, want -1.24", got)
	}
	if got := Round3(2.0006); got != 2.001 {
		t.Fatalf("Round3(2.0006) = %v, want 2.001", got)
	}
}
