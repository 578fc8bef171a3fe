package billgen

// allowsFraction reports whether an item may be sold in a non-integer
// quantity right now. True when the item is high value by MRP, when the
// stock on hand is already broken (including rows loaded fractional),
// or when a single whole unit no longer fits the room left in the bill.
func allowsFraction(item *Item, stock, roomLeft float64) bool {
	if item.MRP > highValueMRP {
		return true
	}
	if item.LoadedFractional || isFractional(stock) {
		return true
	}
	return item.UnitCost > roomLeft
}
