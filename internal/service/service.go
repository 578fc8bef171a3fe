package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"billsmith/backend/internal/billgen"
	"billsmith/backend/internal/cache"
	"billsmith/backend/internal/domain"
	"billsmith/backend/internal/store"
)

var ErrForbidden = errors.New("admin role required")

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

type Options struct {
	StatusTTL         time.Duration
	MaxBillAmount     float64
	ExactMargin       float64
	AsyncDayThreshold int
}

type Service struct {
	repo        store.Repository
	statusCache cache.RunStatusCache
	log         zerolog.Logger
	opts        Options
}

func New(repo store.Repository, statusCache cache.RunStatusCache, logger zerolog.Logger, opts Options) *Service {
	if statusCache == nil {
		statusCache = cache.NoopRunStatusCache{}
	}
	if opts.StatusTTL <= 0 {
		opts.StatusTTL = 10 * time.Minute
	}
	if opts.MaxBillAmount <= 0 {
		opts.MaxBillAmount = 4000
	}
	if opts.ExactMargin <= 0 {
		opts.ExactMargin = 10
	}
	if opts.AsyncDayThreshold <= 0 {
		opts.AsyncDayThreshold = 7
	}
	return &Service{
		repo:        repo,
		statusCache: statusCache,
		log:         logger,
		opts:        opts,
	}
}

// StartRun validates the request, persists a running record, and
// executes the generation. Short schedules run inline; long ones
// continue in the background with progress visible through RunStatus.
func (s *Service) StartRun(ctx context.Context, req domain.GenerationRequest) (*domain.GenerationRun, error) {
	req = normalizeRequest(req)
	if req.MaxBillAmount <= 0 {
		req.MaxBillAmount = s.opts.MaxBillAmount
	}
	if req.ExactMargin <= 0 {
		req.ExactMargin = s.opts.ExactMargin
	}

	targets, warnings, err := s.resolveTargets(req)
	if err != nil {
		return nil, err
	}

	warnings = append(warnings, inventoryWarnings(req.Inventory)...)
	ledger := billgen.NewLedger(req.Inventory)
	if len(ledger.Available()) == 0 {
		return nil, fmt.Errorf("%w: no usable inventory rows", store.ErrInvalidInput)
	}

	targetTotal := 0.0
	for _, t := range targets {
		if t.Amount > 0 {
			targetTotal += t.Amount
		}
	}

	actor, _ := ActorFromContext(ctx)
	run := domain.GenerationRun{
		Status:        domain.RunStatusRunning,
		BillPrefix:    req.BillPrefix,
		PaymentMethod: req.PaymentMethod,
		Strict:        req.Strict,
		Seed:          req.Seed,
		TargetTotal:   billgen.Round2(targetTotal),
		DayCount:      len(targets),
		Warnings:      warnings,
		CreatedBy:     actor.Username,
		CreatedAt:     time.Now().UTC(),
	}
	created, err := s.repo.CreateRun(ctx, run)
	if err != nil {
		return nil, fmt.Errorf("create run: %w", err)
	}

	s.logAudit(ctx, "run_started", "generation_run", created.ID,
		fmt.Sprintf("days=%d target_total=%.2f strict=%t", len(targets), created.TargetTotal, req.Strict))

	if len(targets) >= s.opts.AsyncDayThreshold {
		// Detached from the request context: the run outlives the
		// HTTP call and is cancelled only by process shutdown.
		bg := context.Background()
		if actorCtx, ok := ActorFromContext(ctx); ok {
			bg = WithActor(bg, actorCtx)
		}
		go func() {
			if _, err := s.execute(bg, *created, req, ledger, targets); err != nil {
				s.log.Error().Err(err).Str("run_id", created.ID).Msg("background run failed")
			}
		}()
		return created, nil
	}
	return s.execute(ctx, *created, req, ledger, targets)
}

func (s *Service) execute(ctx context.Context, run domain.GenerationRun, req domain.GenerationRequest, ledger *billgen.Ledger, targets []domain.DailyTarget) (*domain.GenerationRun, error) {
	sched := billgen.NewScheduler(billgen.Options{
		MaxBillAmount: req.MaxBillAmount,
		ExactMargin:   req.ExactMargin,
		Strict:        req.Strict,
		BillPrefix:    req.BillPrefix,
		BillStart:     req.BillStart,
		PaymentMethod: req.PaymentMethod,
		Purchasers:    req.Purchasers,
		Seed:          req.Seed,
		Progress:      s.progressWriter(run.ID),
	}, s.log.With().Str("run_id", run.ID).Logger())

	result := sched.Run(ctx, ledger, targets)

	run.Status = result.Status
	run.GeneratedTotal = result.GeneratedTotal
	run.BillCount = len(result.Bills)
	run.Bills = result.Bills
	run.Stock = ledger.StockRows()
	run.Skips = result.Skips

	finished, err := s.repo.FinishRun(ctx, run)
	if err != nil {
		s.log.Error().Err(err).Str("run_id", run.ID).Msg("persisting finished run failed")
		return nil, fmt.Errorf("finish run: %w", err)
	}

	s.writeStatus(ctx, finished.ID, &domain.RunStatus{
		RunID:          finished.ID,
		Status:         finished.Status,
		DaysDone:       finished.DayCount,
		DayCount:       finished.DayCount,
		BillCount:      finished.BillCount,
		GeneratedTotal: finished.GeneratedTotal,
		UpdatedAt:      time.Now().UTC().Format(time.RFC3339),
	})

	s.logAudit(ctx, "run_"+finished.Status, "generation_run", finished.ID,
		fmt.Sprintf("bills=%d generated_total=%.2f skips=%d", finished.BillCount, finished.GeneratedTotal, len(finished.Skips)))

	s.log.Info().
		Str("run_id", finished.ID).
		Str("status", finished.Status).
		Int("bills", finished.BillCount).
		Float64("generated_total", finished.GeneratedTotal).
		Msg("generation run finished")
	return finished, nil
}

func (s *Service) progressWriter(runID string) func(billgen.Progress) {
	return func(p billgen.Progress) {
		s.writeStatus(context.Background(), runID, &domain.RunStatus{
			RunID:          runID,
			Status:         domain.RunStatusRunning,
			CurrentDate:    p.CurrentDate,
			DaysDone:       p.DaysDone,
			DayCount:       p.DayCount,
			BillCount:      p.BillCount,
			GeneratedTotal: p.GeneratedTotal,
			UpdatedAt:      time.Now().UTC().Format(time.RFC3339),
		})
	}
}

func (s *Service) writeStatus(ctx context.Context, runID string, status *domain.RunStatus) {
	if err := s.statusCache.Set(ctx, runID, status, s.opts.StatusTTL); err != nil {
		s.log.Warn().Err(err).Str("run_id", runID).Msg("run status cache write failed")
	}
}

func (s *Service) GetRun(ctx context.Context, id string) (*domain.GenerationRun, error) {
	return s.repo.GetRun(ctx, id)
}

func (s *Service) ListRuns(ctx context.Context, limit int) ([]domain.RunSummary, error) {
	return s.repo.ListRuns(ctx, limit)
}

// RunStatus serves the cached progress snapshot when present and falls
// back to the persisted run record.
func (s *Service) RunStatus(ctx context.Context, id string) (*domain.RunStatus, error) {
	if cached, ok, err := s.statusCache.Get(ctx, id); err == nil && ok {
		return cached, nil
	}
	run, err := s.repo.GetRun(ctx, id)
	if err != nil {
		return nil, err
	}
	status := &domain.RunStatus{
		RunID:          run.ID,
		Status:         run.Status,
		DaysDone:       run.DayCount,
		DayCount:       run.DayCount,
		BillCount:      run.BillCount,
		GeneratedTotal: run.GeneratedTotal,
		UpdatedAt:      run.CreatedAt.Format(time.RFC3339),
	}
	if run.Status == domain.RunStatusRunning {
		status.DaysDone = 0
	}
	if run.FinishedAt != nil {
		status.UpdatedAt = run.FinishedAt.Format(time.RFC3339)
	}
	return status, nil
}

func (s *Service) ListBills(ctx context.Context, runID string) ([]domain.Bill, error) {
	return s.repo.ListBills(ctx, runID)
}

// BillRows flattens a run's bills into export rows, one per line item.
func (s *Service) BillRows(ctx context.Context, runID string) ([]domain.BillExportRow, error) {
	bills, err := s.repo.ListBills(ctx, runID)
	if err != nil {
		return nil, err
	}
	rows := make([]domain.BillExportRow, 0, len(bills)*3)
	for _, bill := range bills {
		rows = append(rows, billgen.ExportRows(bill)...)
	}
	return rows, nil
}

func (s *Service) StockRows(ctx context.Context, runID string) ([]domain.StockRow, error) {
	return s.repo.ListStockRows(ctx, runID)
}

func (s *Service) Skips(ctx context.Context, runID string) ([]domain.SkippedDay, error) {
	return s.repo.ListSkips(ctx, runID)
}

// PreviewCalendar expands a calendar spec into the day targets a run
// with that spec would schedule.
func (s *Service) PreviewCalendar(ctx context.Context, spec domain.CalendarSpec) ([]domain.DailyTarget, error) {
	return BuildCalendar(spec)
}

func (s *Service) ListAuditLogs(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != domain.RoleAdmin {
		return nil, ErrForbidden
	}
	return s.repo.ListAuditLogs(ctx, from, to, limit)
}

func (s *Service) logAudit(ctx context.Context, action, entityType, entityID, detail string) {
	actor, _ := ActorFromContext(ctx)
	err := s.repo.CreateAuditLog(ctx, domain.AuditLog{
		ActorUsername: actor.Username,
		ActorRole:     actor.Role,
		Action:        action,
		EntityType:    entityType,
		EntityID:      entityID,
		Detail:        detail,
		CreatedAt:     time.Now().UTC(),
	})
	if err != nil {
		s.log.Warn().Err(err).Str("action", action).Msg("audit log write failed")
	}
}

func (s *Service) resolveTargets(req domain.GenerationRequest) ([]domain.DailyTarget, []string, error) {
	if req.Calendar != nil {
		targets, err := BuildCalendar(*req.Calendar)
		if err != nil {
			return nil, nil, err
		}
		return targets, nil, nil
	}

	targets := make([]domain.DailyTarget, 0, len(req.Targets))
	warnings := make([]string, 0)
	seen := make(map[string]bool, len(req.Targets))
	for _, t := range req.Targets {
		if _, err := time.Parse("2006-01-02", t.Date); err != nil {
			warnings = append(warnings, fmt.Sprintf("target %q skipped: bad date", t.Date))
			continue
		}
		if math.IsNaN(t.Amount) || math.IsInf(t.Amount, 0) || t.Amount < 0 {
			warnings = append(warnings, fmt.Sprintf("target %s skipped: bad amount", t.Date))
			continue
		}
		if seen[t.Date] {
			warnings = append(warnings, fmt.Sprintf("target %s skipped: duplicate date", t.Date))
			continue
		}
		seen[t.Date] = true
		targets = append(targets, t)
	}
	if len(targets) == 0 {
		return nil, nil, fmt.Errorf("%w: no usable day targets", store.ErrInvalidInput)
	}
	return targets, warnings, nil
}

// BuildCalendar lists every day of the month except the weekly off-day.
func BuildCalendar(spec domain.CalendarSpec) ([]domain.DailyTarget, error) {
	month, err := time.Parse("2006-01", spec.Month)
	if err != nil {
		return nil, fmt.Errorf("%w: month must be YYYY-MM", store.ErrInvalidInput)
	}
	off, err := parseWeekday(spec.OffWeekday)
	if err != nil {
		return nil, err
	}
	if spec.DefaultAmount < 0 || math.IsNaN(spec.DefaultAmount) || math.IsInf(spec.DefaultAmount, 0) {
		return nil, fmt.Errorf("%w: bad default amount", store.ErrInvalidInput)
	}

	targets := make([]domain.DailyTarget, 0, 27)
	for day := month; day.Month() == month.Month(); day = day.AddDate(0, 0, 1) {
		if day.Weekday() == off {
			continue
		}
		date := day.Format("2006-01-02")
		amount := spec.DefaultAmount
		if override, ok := spec.Overrides[date]; ok {
			amount = override
		}
		targets = append(targets, domain.DailyTarget{Date: date, Amount: amount})
	}
	return targets, nil
}

func parseWeekday(name string) (time.Weekday, error) {
	if strings.TrimSpace(name) == "" {
		return time.Sunday, nil
	}
	for d := time.Sunday; d <= time.Saturday; d++ {
		if strings.EqualFold(d.String(), name) {
			return d, nil
		}
	}
	return time.Sunday, fmt.Errorf("%w: unknown weekday %q", store.ErrInvalidInput, name)
}

func normalizeRequest(req domain.GenerationRequest) domain.GenerationRequest {
	req.BillPrefix = strings.TrimSpace(req.BillPrefix)
	if req.BillPrefix == "" {
		req.BillPrefix = "INV-"
	}
	if req.BillStart <= 0 {
		req.BillStart = 1
	}
	req.PaymentMethod = strings.ToLower(strings.TrimSpace(req.PaymentMethod))
	if req.PaymentMethod == "" {
		req.PaymentMethod = "cash"
	}
	if req.Seed == 0 {
		req.Seed = time.Now().UnixNano()
	}
	return req
}

func inventoryWarnings(rows []domain.InventoryRow) []string {
	warnings := make([]string, 0)
	seen := make(map[string]bool, len(rows))
	for i, row := range rows {
		switch {
		case row.Name == "":
			warnings = append(warnings, fmt.Sprintf("inventory row %d skipped: empty name", i))
		case row.Quantity <= 0:
			warnings = append(warnings, fmt.Sprintf("inventory row %q skipped: non-positive quantity", row.Name))
		case row.UnitPrice <= 0:
			warnings = append(warnings, fmt.Sprintf("inventory row %q skipped: non-positive price", row.Name))
		case seen[row.Name]:
			warnings = append(warnings, fmt.Sprintf("inventory row %q skipped: duplicate name", row.Name))
		default:
			seen[row.Name] = true
		}
	}
	return warnings
}
