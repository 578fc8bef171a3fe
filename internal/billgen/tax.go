package billgen

import "math"

// LineTotal prices a quantity of an item, GST and CESS inclusive.
// GST applies to the sale value, CESS to the MRP value, and the result
// is rounded to 2 decimals half away from zero.
func LineTotal(unitPrice, qty, gstPercent, cessPercent, mrp float64) float64 {
	total := unitPrice*qty*(1+gstPercent/100) + mrp*qty*(cessPercent/100)
	return Round2(total)
}

func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func Round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
