package memory

import (
	"context"
	"log"
	"os"
	"slices"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"billsmith/backend/internal/domain"
	"billsmith/backend/internal/store"
	"billsmith/backend/internal/xid"
)

type Store struct {
	mu              sync.RWMutex
	runsByID        map[string]*domain.GenerationRun
	runOrder        []string
	auditLogs       []domain.AuditLog
	usersByUsername map[string]domain.UserAccount
}

// seedUsers builds the initial in-memory user accounts for dev/demo mode.
// Credentials are read from SEED_ADMIN_PASSWORD and SEED_OPERATOR_PASSWORD
// environment variables. If unset, hardcoded dev defaults are used with a
// warning printed to stdout. These credentials are never used in production
// (the backend uses PostgreSQL when DATABASE_URL is set).
func seedUsers() map[string]domain.UserAccount {
	adminPwd := envOr("SEED_ADMIN_PASSWORD", "admin123")
	operatorPwd := envOr("SEED_OPERATOR_PASSWORD", "operator123")
	if os.Getenv("SEED_ADMIN_PASSWORD") == "" || os.Getenv("SEED_OPERATOR_PASSWORD") == "" {
		log.Println("[memory-store] WARNING: using default dev credentials. Set SEED_ADMIN_PASSWORD and SEED_OPERATOR_PASSWORD to override.")
	}

	now := time.Now().UTC()
	users := map[string]domain.UserAccount{}
	for _, u := range []struct {
		username string
		password string
		role     string
	}{
		{"admin", adminPwd, domain.RoleAdmin},
		{"operator", operatorPwd, domain.RoleOperator},
	} {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			log.Fatalf("[memory-store] failed to hash seed password for %s: %v", u.username, err)
		}
		users[u.username] = domain.UserAccount{
			Username:  u.username,
			Password:  string(hash),
			Role:      u.role,
			Active:    true,
			CreatedAt: now,
		}
	}
	return users
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func New() *Store {
	return &Store{
		runsByID:        make(map[string]*domain.GenerationRun),
		usersByUsername: make(map[string]domain.UserAccount),
	}
}

// NewSeeded returns a store pre-loaded with dev/demo user accounts.
func NewSeeded() *Store {
	s := New()
	s.usersByUsername = seedUsers()
	return s
}

func (s *Store) CreateRun(ctx context.Context, run domain.GenerationRun) (*domain.GenerationRun, error) {
	if run.ID == "" {
		run.ID = xid.New("run")
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	if run.Status == "" {
		run.Status = domain.RunStatusRunning
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.runsByID[run.ID]; exists {
		return nil, store.ErrInvalidInput
	}
	stored := cloneRun(run)
	s.runsByID[run.ID] = &stored
	s.runOrder = append(s.runOrder, run.ID)
	result := cloneRun(stored)
	return &result, nil
}

func (s *Store) FinishRun(ctx context.Context, run domain.GenerationRun) (*domain.GenerationRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.runsByID[run.ID]
	if !ok {
		return nil, store.ErrNotFound
	}
	if existing.FinishedAt != nil {
		return nil, store.ErrRunFinished
	}
	if run.FinishedAt == nil {
		now := time.Now().UTC()
		run.FinishedAt = &now
	}
	run.CreatedAt = existing.CreatedAt
	run.CreatedBy = existing.CreatedBy
	stored := cloneRun(run)
	s.runsByID[run.ID] = &stored
	result := cloneRun(stored)
	return &result, nil
}

func (s *Store) GetRun(ctx context.Context, id string) (*domain.GenerationRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	run, ok := s.runsByID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	result := cloneRun(*run)
	return &result, nil
}

func (s *Store) ListRuns(ctx context.Context, limit int) ([]domain.RunSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	summaries := make([]domain.RunSummary, 0, len(s.runOrder))
	// Newest first.
	for i := len(s.runOrder) - 1; i >= 0; i-- {
		run := s.runsByID[s.runOrder[i]]
		summaries = append(summaries, domain.RunSummary{
			ID:             run.ID,
			Status:         run.Status,
			BillPrefix:     run.BillPrefix,
			TargetTotal:    run.TargetTotal,
			GeneratedTotal: run.GeneratedTotal,
			BillCount:      run.BillCount,
			DayCount:       run.DayCount,
			CreatedBy:      run.CreatedBy,
			CreatedAt:      run.CreatedAt,
			FinishedAt:     cloneTime(run.FinishedAt),
		})
		if limit > 0 && len(summaries) >= limit {
			break
		}
	}
	return summaries, nil
}

func (s *Store) ListBills(ctx context.Context, runID string) ([]domain.Bill, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	run, ok := s.runsByID[runID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return cloneBills(run.Bills), nil
}

func (s *Store) ListStockRows(ctx context.Context, runID string) ([]domain.StockRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	run, ok := s.runsByID[runID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return slices.Clone(run.Stock), nil
}

func (s *Store) ListSkips(ctx context.Context, runID string) ([]domain.SkippedDay, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	run, ok := s.runsByID[runID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return slices.Clone(run.Skips), nil
}

func (s *Store) CreateAuditLog(ctx context.Context, entry domain.AuditLog) error {
	if entry.ID == "" {
		entry.ID = xid.New("audit")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.auditLogs = append(s.auditLogs, entry)
	return nil
}

func (s *Store) ListAuditLogs(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	logs := make([]domain.AuditLog, 0, len(s.auditLogs))
	for _, entry := range s.auditLogs {
		if !from.IsZero() && entry.CreatedAt.Before(from) {
			continue
		}
		if !to.IsZero() && entry.CreatedAt.After(to) {
			continue
		}
		logs = append(logs, entry)
	}
	slices.SortFunc(logs, func(a, b domain.AuditLog) int {
		switch {
		case a.CreatedAt.After(b.CreatedAt):
			return -1
		case a.CreatedAt.Before(b.CreatedAt):
			return 1
		default:
			return 0
		}
	})
	if limit > 0 && len(logs) > limit {
		logs = logs[:limit]
	}
	return logs, nil
}

func (s *Store) CreateUser(ctx context.Context, user domain.UserAccount) error {
	if user.Username == "" {
		return store.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.usersByUsername[user.Username]; exists {
		return store.ErrInvalidInput
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	s.usersByUsername[user.Username] = user
	return nil
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	users := make([]domain.UserAccount, 0, len(s.usersByUsername))
	for _, user := range s.usersByUsername {
		users = append(users, user)
	}
	slices.SortFunc(users, func(a, b domain.UserAccount) int {
		return cmpString(a.Username, b.Username)
	})
	return users, nil
}

func (s *Store) UpdateUserPassword(ctx context.Context, username string, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.usersByUsername[username]
	if !ok {
		return store.ErrNotFound
	}
	user.Password = password
	s.usersByUsername[username] = user
	return nil
}

func cloneRun(run domain.GenerationRun) domain.GenerationRun {
	out := run
	out.Warnings = slices.Clone(run.Warnings)
	out.Bills = cloneBills(run.Bills)
	out.Stock = slices.Clone(run.Stock)
	out.Skips = slices.Clone(run.Skips)
	out.FinishedAt = cloneTime(run.FinishedAt)
	return out
}

func cloneBills(bills []domain.Bill) []domain.Bill {
	if bills == nil {
		return nil
	}
	out := make([]domain.Bill, len(bills))
	for i, bill := range bills {
		out[i] = bill
		out[i].Lines = slices.Clone(bill.Lines)
	}
	return out
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	copied := *t
	return &copied
}

func cmpString(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
