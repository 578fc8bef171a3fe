package billgen

import (
	"context"
	"math/rand"

	"github.com/rs/zerolog"

	"billsmith/backend/internal/domain"
)

// Options tune one scheduling run. Zero values fall back to defaults in
// NewScheduler.
type Options struct {
	MaxBillAmount  float64
	MinBillAmount  float64
	ExactMargin    float64
	FailureCeiling int
	Strict         bool
	BillPrefix     string
	BillStart      int
	PaymentMethod  string
	Purchasers     []string
	Seed           int64
	// Progress, when set, receives a snapshot after every accepted
	// bill and at each day boundary.
	Progress func(Progress)
}

type Progress struct {
	CurrentDate    string
	DaysDone       int
	DayCount       int
	BillCount      int
	GeneratedTotal float64
}

// Result statuses mirror the run statuses the service persists.
const (
	ResultCompleted = domain.RunStatusCompleted
	ResultPartial   = domain.RunStatusPartial
	ResultAborted   = domain.RunStatusAborted
)

type Result struct {
	Status         string
	Bills          []domain.Bill
	Skips          []domain.SkippedDay
	TargetTotal    float64
	GeneratedTotal float64
}

// Scheduler walks the day targets and drains the ledger into bills.
type Scheduler struct {
	opts Options
	rng  *rand.Rand
	log  zerolog.Logger
}

func NewScheduler(opts Options, log zerolog.Logger) *Scheduler {
	if opts.MaxBillAmount <= 0 {
		opts.MaxBillAmount = 4000
	}
	if opts.MinBillAmount <= 0 || opts.MinBillAmount >= opts.MaxBillAmount {
		opts.MinBillAmount = Round2(opts.MaxBillAmount * 0.35)
	}
	if opts.ExactMargin <= 0 {
		opts.ExactMargin = 10
	}
	if opts.FailureCeiling <= 0 {
		opts.FailureCeiling = 2500
	}
	if opts.BillPrefix == "" {
		opts.BillPrefix = "INV-"
	}
	if opts.BillStart <= 0 {
		opts.BillStart = 1
	}
	if opts.PaymentMethod == "" {
		opts.PaymentMethod = "cash"
	}
	return &Scheduler{
		opts: opts,
		rng:  rand.New(rand.NewSource(opts.Seed)),
		log:  log,
	}
}

// Run executes the whole schedule. Cancellation via ctx is observed at
// composer yield points and day boundaries and surfaces as an aborted
// result, never as a panic or partial ledger state.
func (s *Scheduler) Run(ctx context.Context, ledger *Ledger, targets []domain.DailyTarget) Result {
	res := Result{Status: ResultCompleted}
	for _, t := range targets {
		res.TargetTotal = Round2(res.TargetTotal + t.Amount)
	}

	composer := NewComposer(s.rng, func() error { return ctx.Err() })
	pool := newNamePool(s.opts.Purchasers, s.rng)
	billIndex := s.opts.BillStart

	var recentTotals []float64
	lastTotal := -1.0

	for dayNo, target := range targets {
		if err := ctx.Err(); err != nil {
			res.Status = ResultAborted
			return res
		}
		if target.Amount <= 0 {
			continue
		}

		achieved := 0.0
		failures := 0
		repeatRejections := 0
		used := make(map[string]bool)
		dayBills := 0

	dayLoop:
		for {
			remaining := Round2(target.Amount - achieved)
			if remaining <= s.opts.ExactMargin {
				break
			}

			p := ComposeParams{
				DayRemaining: remaining,
				Margin:       s.opts.ExactMargin,
				Failures:     failures,
				Used:         used,
			}
			if remaining > s.opts.MaxBillAmount {
				p.Mode = ModeRange
				p.TargetMin = s.opts.MinBillAmount
				p.TargetMax = s.opts.MaxBillAmount
			} else {
				p.Mode = ModeExact
				p.TargetMin = remaining - s.opts.ExactMargin
				p.TargetMax = remaining
			}

			att, ok := composer.Compose(ledger, p)
			if !ok {
				failures++
				if failures > s.opts.FailureCeiling {
					kind := domain.SkipKindPartial
					if dayBills == 0 {
						kind = domain.SkipKindCritical
					}
					skip := domain.SkippedDay{
						Date:      target.Date,
						Kind:      kind,
						Target:    target.Amount,
						Achieved:  achieved,
						Remaining: remaining,
					}
					res.Skips = append(res.Skips, skip)
					s.log.Warn().
						Str("date", target.Date).
						Str("kind", kind).
						Float64("remaining", remaining).
						Msg("day target unreachable, skipping")
					if kind == domain.SkipKindCritical && s.opts.Strict {
						res.Status = ResultAborted
						return res
					}
					res.Status = ResultPartial
					break dayLoop
				}
				if err := ctx.Err(); err != nil {
					res.Status = ResultAborted
					return res
				}
				continue
			}

			// Avoid runs of identical bill totals; best effort with
			// an escape valve so pathological inventories still finish.
			if repeatsRecent(recentTotals, att.Total) && repeatRejections < 25 {
				repeatRejections++
				failures++
				continue
			}
			repeatRejections = 0

			if att.Total == lastTotal {
				pool.skip()
			}
			purchaser := pool.next()

			number := BillNumber(s.opts.BillPrefix, billIndex)
			billIndex++
			bill := FormatBill(att, number, target.Date, purchaser, s.opts.PaymentMethod, p.TargetMax)
			ledger.Commit(att)

			res.Bills = append(res.Bills, bill)
			res.GeneratedTotal = Round2(res.GeneratedTotal + bill.Total)
			achieved = Round2(achieved + bill.Total)
			dayBills++
			failures = 0
			for _, line := range bill.Lines {
				used[line.ItemName] = true
			}

			recentTotals = append(recentTotals, bill.Total)
			if len(recentTotals) > 3 {
				recentTotals = recentTotals[1:]
			}
			lastTotal = bill.Total

			s.emit(Progress{
				CurrentDate:    target.Date,
				DaysDone:       dayNo,
				DayCount:       len(targets),
				BillCount:      len(res.Bills),
				GeneratedTotal: res.GeneratedTotal,
			})
		}

		s.emit(Progress{
			CurrentDate:    target.Date,
			DaysDone:       dayNo + 1,
			DayCount:       len(targets),
			BillCount:      len(res.Bills),
			GeneratedTotal: res.GeneratedTotal,
		})
	}
	return res
}

func (s *Scheduler) emit(p Progress) {
	if s.opts.Progress != nil {
		s.opts.Progress(p)
	}
}

func repeatsRecent(recent []float64, total float64) bool {
	for _, r := range recent {
		if r == total {
			return true
		}
	}
	return false
}
