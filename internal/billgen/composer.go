package billgen

import (
	"math"
	"math/rand"
	"slices"
)

// Acceptance modes. Range accepts any total inside [TargetMin, TargetMax];
// Exact accepts totals within Margin of TargetMax.
const (
	ModeRange = "range"
	ModeExact = "exact"
)

// searchTiers is the variety ladder: prefer bills with more distinct
// items, spending a bounded number of attempts per tier before relaxing.
var searchTiers = []struct {
	minItems int
	attempts int
}{
	{4, 50},
	{3, 50},
	{2, 100},
	{1, 20},
}

const yieldEvery = 50

// firstPassFraction is the fractional take on the deterministic
// expensive-first attempt. It is larger than the randomized 20–100%
// draw so the first attempt of each tier drains high-cost stock fast.
const firstPassFraction = 0.9

// ComposeParams describes one bill-composition request.
type ComposeParams struct {
	Mode      string
	TargetMin float64
	TargetMax float64
	// Margin is the acceptance tolerance in Exact mode and the
	// safe-landing tolerance in both modes.
	Margin float64
	// DayRemaining is the day budget still open before this bill.
	DayRemaining float64
	// Failures is the day's consecutive-failure count; high counts
	// shrink the attempt budget so hopeless days fail fast.
	Failures int
	// Used marks items already sold today; randomized orderings
	// prefer fresh items about half the time.
	Used map[string]bool
}

// Attempt is a candidate bill allocation. It only becomes real stock
// movement when the ledger commits it.
type Attempt struct {
	Lines    []AttemptLine
	Total    float64
	consumed map[string]float64
}

type AttemptLine struct {
	Item  *Item
	Qty   float64
	Total float64
}

func newAttempt() *Attempt {
	return &Attempt{consumed: make(map[string]float64)}
}

func (a *Attempt) add(item *Item, qty, total float64) {
	a.Lines = append(a.Lines, AttemptLine{Item: item, Qty: qty, Total: total})
	a.consumed[item.Name] += qty
	a.Total = Round2(a.Total + total)
}

// stockLeft is the stock still open for item within this attempt.
func (a *Attempt) stockLeft(item *Item) float64 {
	return item.Remaining - a.consumed[item.Name]
}

// Composer runs the randomized constructive search for a single bill.
type Composer struct {
	rng *rand.Rand
	// yield is invoked every yieldEvery attempts; a non-nil return
	// aborts the search (cancellation).
	yield func() error
}

func NewComposer(rng *rand.Rand, yield func() error) *Composer {
	return &Composer{rng: rng, yield: yield}
}

// Compose searches for an acceptable bill against the ledger. It never
// mutates the ledger; failure is an ordinary outcome, not an error.
func (c *Composer) Compose(ledger *Ledger, p ComposeParams) (*Attempt, bool) {
	avail := ledger.Available()
	if len(avail) == 0 {
		return nil, false
	}

	scale := effortScale(p.Failures)
	attemptNo := 0
	for _, tier := range searchTiers {
		budget := int(math.Ceil(float64(tier.attempts) * scale))
		if budget < 1 {
			budget = 1
		}
		if tier.minItems > len(avail) {
			continue
		}
		for i := 0; i < budget; i++ {
			attemptNo++
			if c.yield != nil && attemptNo%yieldEvery == 0 {
				if err := c.yield(); err != nil {
					return nil, false
				}
			}
			order := c.ordering(avail, i, p.Used)
			att := c.build(order, tier.minItems, p, i == 0)
			if att == nil || len(att.Lines) < tier.minItems {
				continue
			}
			if !accepts(p, att.Total) {
				continue
			}
			if !safeLanding(p.DayRemaining, att.Total, p.Margin) {
				continue
			}
			return att, true
		}
	}
	return nil, false
}

// ordering picks the walk order for one attempt: a deterministic
// expensive-first pass on the first attempt of a tier, shuffled copies
// after that, with a coin-flip preference for items not yet sold today.
func (c *Composer) ordering(avail []*Item, attempt int, used map[string]bool) []*Item {
	order := slices.Clone(avail)
	if attempt == 0 {
		slices.Reverse(order) // Available() is cheapest-first
		return order
	}
	c.rng.Shuffle(len(order), func(i, j int) {
		order[i], order[j] = order[j], order[i]
	})
	if len(used) > 0 && c.rng.Float64() < 0.5 {
		slices.SortStableFunc(order, func(a, b *Item) int {
			ua, ub := used[a.Name], used[b.Name]
			switch {
			case !ua && ub:
				return -1
			case ua && !ub:
				return 1
			default:
				return 0
			}
		})
	}
	return order
}

// build walks one ordering and greedily fills a candidate bill. The
// first pass of a tier takes a fixed large fraction of fractional
// stock; randomized passes draw the fraction from the rng.
func (c *Composer) build(order []*Item, minItems int, p ComposeParams, firstPass bool) *Attempt {
	att := newAttempt()
	for _, item := range order {
		stock := att.stockLeft(item)
		if stock <= dustStock {
			continue
		}
		roomLeft := p.TargetMax - att.Total
		if roomLeft < 1 {
			break
		}

		var qty float64
		if allowsFraction(item, stock, roomLeft) {
			maxQty := math.Min(stock, roomLeft/item.UnitCost)
			frac := firstPassFraction
			if !firstPass {
				frac = 0.2 + 0.8*c.rng.Float64()
			}
			qty = Round2(maxQty * frac)
			if qty < dustQty {
				continue
			}
		} else {
			maxWhole := int(math.Min(stock, roomLeft/item.UnitCost))
			if maxWhole < 1 {
				continue
			}
			capUnits := maxWhole
			// Hold back stock while the bill still needs variety.
			if len(att.Lines)+1 < minItems && capUnits > 2 {
				capUnits = 2
			}
			qty = float64(1 + c.rng.Intn(capUnits))
		}

		total := LineTotal(item.UnitPrice, qty, item.GSTPercent, item.CESSPercent, item.MRP)
		if total <= 0 {
			continue
		}
		att.add(item, qty, total)

		if att.Total >= p.TargetMin && len(att.Lines) >= minItems && c.rng.Float64() < 0.5 {
			break
		}
	}
	if len(att.Lines) == 0 {
		return nil
	}
	return att
}

func accepts(p ComposeParams, total float64) bool {
	if p.Mode == ModeExact {
		return math.Abs(p.TargetMax-total) <= p.Margin
	}
	return total >= p.TargetMin && total <= p.TargetMax
}

// safeLanding rejects bills that would strand the day with a leftover
// too small to fill but too big to ignore.
func safeLanding(dayRemaining, total, margin float64) bool {
	leftover := Round2(dayRemaining - total)
	return leftover <= margin || leftover > minUsableLeftover
}

// effortScale shrinks the attempt budget as a day keeps failing, so a
// day that cannot be filled burns through its ceiling quickly.
func effortScale(failures int) float64 {
	switch {
	case failures < 50:
		return 1.0
	case failures < 500:
		return 0.4
	case failures < 2000:
		return 0.2
	default:
		return 0.02
	}
}
