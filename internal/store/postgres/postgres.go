package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"billsmith/backend/internal/domain"
	"billsmith/backend/internal/store"
	"billsmith/backend/internal/xid"
)

type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &Store{db: db}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS generation_runs (
			id TEXT PRIMARY KEY,
			status TEXT NOT NULL,
			bill_prefix TEXT NOT NULL DEFAULT '',
			payment_method TEXT NOT NULL DEFAULT 'cash',
			strict BOOLEAN NOT NULL DEFAULT false,
			seed BIGINT NOT NULL DEFAULT 0,
			target_total DOUBLE PRECISION NOT NULL DEFAULT 0,
			generated_total DOUBLE PRECISION NOT NULL DEFAULT 0,
			bill_count INTEGER NOT NULL DEFAULT 0,
			day_count INTEGER NOT NULL DEFAULT 0,
			warnings JSONB NOT NULL DEFAULT '[]',
			stock JSONB NOT NULL DEFAULT '[]',
			skips JSONB NOT NULL DEFAULT '[]',
			created_by TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			finished_at TIMESTAMPTZ
		)`,
		`CREATE TABLE IF NOT EXISTS generation_bills (
			run_id TEXT NOT NULL REFERENCES generation_runs(id) ON DELETE CASCADE,
			seq INTEGER NOT NULL,
			number TEXT NOT NULL,
			bill_date TEXT NOT NULL,
			purchaser TEXT NOT NULL DEFAULT '',
			payment_method TEXT NOT NULL DEFAULT 'cash',
			target DOUBLE PRECISION NOT NULL DEFAULT 0,
			total DOUBLE PRECISION NOT NULL DEFAULT 0,
			lines JSONB NOT NULL DEFAULT '[]',
			PRIMARY KEY (run_id, seq)
		)`,
		`CREATE TABLE IF NOT EXISTS audit_logs (
			id TEXT PRIMARY KEY,
			actor_username TEXT NOT NULL DEFAULT '',
			actor_role TEXT NOT NULL DEFAULT '',
			action TEXT NOT NULL,
			entity_type TEXT NOT NULL DEFAULT '',
			entity_id TEXT NOT NULL DEFAULT '',
			detail TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS users (
			username TEXT PRIMARY KEY,
			password TEXT NOT NULL,
			role TEXT NOT NULL,
			active BOOLEAN NOT NULL DEFAULT true,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
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

	warnings, err := json.Marshal(emptySlice(run.Warnings))
	if err != nil {
		return nil, err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO generation_runs
			(id, status, bill_prefix, payment_method, strict, seed,
			 target_total, generated_total, bill_count, day_count,
			 warnings, created_by, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
	`, run.ID, run.Status, run.BillPrefix, run.PaymentMethod, run.Strict, run.Seed,
		run.TargetTotal, run.GeneratedTotal, run.BillCount, run.DayCount,
		warnings, run.CreatedBy, run.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrInvalidInput
		}
		return nil, err
	}
	created := run
	return &created, nil
}

func (s *Store) FinishRun(ctx context.Context, run domain.GenerationRun) (*domain.GenerationRun, error) {
	if run.FinishedAt == nil {
		now := time.Now().UTC()
		run.FinishedAt = &now
	}

	warnings, err := json.Marshal(emptySlice(run.Warnings))
	if err != nil {
		return nil, err
	}
	stock, err := json.Marshal(emptyStock(run.Stock))
	if err != nil {
		return nil, err
	}
	skips, err := json.Marshal(emptySkips(run.Skips))
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
		UPDATE generation_runs
		SET status = $2, target_total = $3, generated_total = $4,
			bill_count = $5, day_count = $6, warnings = $7,
			stock = $8, skips = $9, finished_at = $10
		WHERE id = $1 AND finished_at IS NULL
	`, run.ID, run.Status, run.TargetTotal, run.GeneratedTotal,
		run.BillCount, run.DayCount, warnings, stock, skips, run.FinishedAt)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		var exists bool
		if err := tx.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM generation_runs WHERE id = $1)`, run.ID,
		).Scan(&exists); err != nil {
			return nil, err
		}
		if !exists {
			return nil, store.ErrNotFound
		}
		return nil, store.ErrRunFinished
	}

	for i, bill := range run.Bills {
		lines, err := json.Marshal(bill.Lines)
		if err != nil {
			return nil, err
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO generation_bills
				(run_id, seq, number, bill_date, purchaser, payment_method, target, total, lines)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		`, run.ID, i, bill.Number, bill.Date, bill.Purchaser, bill.PaymentMethod,
			bill.Target, bill.Total, lines); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	finished := run
	return &finished, nil
}

func (s *Store) GetRun(ctx context.Context, id string) (*domain.GenerationRun, error) {
	var (
		run      domain.GenerationRun
		warnings []byte
		stock    []byte
		skips    []byte
		finished sql.NullTime
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, status, bill_prefix, payment_method, strict, seed,
			target_total, generated_total, bill_count, day_count,
			warnings, stock, skips, created_by, created_at, finished_at
		FROM generation_runs
		WHERE id = $1
	`, id).Scan(&run.ID, &run.Status, &run.BillPrefix, &run.PaymentMethod, &run.Strict, &run.Seed,
		&run.TargetTotal, &run.GeneratedTotal, &run.BillCount, &run.DayCount,
		&warnings, &stock, &skips, &run.CreatedBy, &run.CreatedAt, &finished)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	if err := json.Unmarshal(warnings, &run.Warnings); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(stock, &run.Stock); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(skips, &run.Skips); err != nil {
		return nil, err
	}
	if finished.Valid {
		t := finished.Time
		run.FinishedAt = &t
	}

	bills, err := s.ListBills(ctx, run.ID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}
	run.Bills = bills
	return &run, nil
}

func (s *Store) ListRuns(ctx context.Context, limit int) ([]domain.RunSummary, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, status, bill_prefix, target_total, generated_total,
			bill_count, day_count, created_by, created_at, finished_at
		FROM generation_runs
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	summaries := make([]domain.RunSummary, 0, limit)
	for rows.Next() {
		var (
			summary  domain.RunSummary
			finished sql.NullTime
		)
		if err := rows.Scan(&summary.ID, &summary.Status, &summary.BillPrefix,
			&summary.TargetTotal, &summary.GeneratedTotal,
			&summary.BillCount, &summary.DayCount,
			&summary.CreatedBy, &summary.CreatedAt, &finished); err != nil {
			return nil, err
		}
		if finished.Valid {
			t := finished.Time
			summary.FinishedAt = &t
		}
		summaries = append(summaries, summary)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return summaries, nil
}

func (s *Store) ListBills(ctx context.Context, runID string) ([]domain.Bill, error) {
	if err := s.requireRun(ctx, runID); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT number, bill_date, purchaser, payment_method, target, total, lines
		FROM generation_bills
		WHERE run_id = $1
		ORDER BY seq
	`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	bills := make([]domain.Bill, 0, 64)
	for rows.Next() {
		var (
			bill  domain.Bill
			lines []byte
		)
		if err := rows.Scan(&bill.Number, &bill.Date, &bill.Purchaser,
			&bill.PaymentMethod, &bill.Target, &bill.Total, &lines); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(lines, &bill.Lines); err != nil {
			return nil, err
		}
		bills = append(bills, bill)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return bills, nil
}

func (s *Store) ListStockRows(ctx context.Context, runID string) ([]domain.StockRow, error) {
	var raw []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT stock FROM generation_runs WHERE id = $1`, runID,
	).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	var stock []domain.StockRow
	if err := json.Unmarshal(raw, &stock); err != nil {
		return nil, err
	}
	return stock, nil
}

func (s *Store) ListSkips(ctx context.Context, runID string) ([]domain.SkippedDay, error) {
	var raw []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT skips FROM generation_runs WHERE id = $1`, runID,
	).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	var skips []domain.SkippedDay
	if err := json.Unmarshal(raw, &skips); err != nil {
		return nil, err
	}
	return skips, nil
}

func (s *Store) CreateAuditLog(ctx context.Context, entry domain.AuditLog) error {
	if entry.ID == "" {
		entry.ID = xid.New("audit")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_logs (id, actor_username, actor_role, action, entity_type, entity_id, detail, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, entry.ID, entry.ActorUsername, entry.ActorRole, entry.Action,
		entry.EntityType, entry.EntityID, entry.Detail, entry.CreatedAt)
	return err
}

func (s *Store) ListAuditLogs(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error) {
	if limit <= 0 {
		limit = 100
	}
	if from.IsZero() {
		from = time.Unix(0, 0).UTC()
	}
	if to.IsZero() {
		to = time.Now().UTC().Add(24 * time.Hour)
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, actor_username, actor_role, action, entity_type, entity_id, detail, created_at
		FROM audit_logs
		WHERE created_at >= $1 AND created_at <= $2
		ORDER BY created_at DESC
		LIMIT $3
	`, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := make([]domain.AuditLog, 0, limit)
	for rows.Next() {
		var entry domain.AuditLog
		if err := rows.Scan(&entry.ID, &entry.ActorUsername, &entry.ActorRole,
			&entry.Action, &entry.EntityType, &entry.EntityID, &entry.Detail, &entry.CreatedAt); err != nil {
			return nil, err
		}
		logs = append(logs, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return logs, nil
}

func (s *Store) CreateUser(ctx context.Context, user domain.UserAccount) error {
	if user.Username == "" || user.Password == "" {
		return store.ErrInvalidInput
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (username, password, role, active, created_at)
		VALUES ($1,$2,$3,$4,$5)
	`, user.Username, user.Password, user.Role, user.Active, user.CreatedAt)
	if err != nil && isUniqueViolation(err) {
		return store.ErrInvalidInput
	}
	return err
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.UserAccount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT username, password, role, active, created_at
		FROM users
		ORDER BY username
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]domain.UserAccount, 0, 16)
	for rows.Next() {
		var user domain.UserAccount
		if err := rows.Scan(&user.Username, &user.Password, &user.Role, &user.Active, &user.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

func (s *Store) UpdateUserPassword(ctx context.Context, username string, password string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE users SET password = $2 WHERE username = $1
	`, username, password)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) requireRun(ctx context.Context, runID string) error {
	var exists bool
	if err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM generation_runs WHERE id = $1)`, runID,
	).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return store.ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func emptySlice(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}

func emptyStock(in []domain.StockRow) []domain.StockRow {
	if in == nil {
		return []domain.StockRow{}
	}
	return in
}

func emptySkips(in []domain.SkippedDay) []domain.SkippedDay {
	if in == nil {
		return []domain.SkippedDay{}
	}
	return in
}
