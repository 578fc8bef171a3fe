package store

import (
	"context"
	"errors"
	"time"

	"billsmith/backend/internal/domain"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrRunFinished  = errors.New("run already finished")
)

type Repository interface {
	CreateRun(ctx context.Context, run domain.GenerationRun) (*domain.GenerationRun, error)
	FinishRun(ctx context.Context, run domain.GenerationRun) (*domain.GenerationRun, error)
	GetRun(ctx context.Context, id string) (*domain.GenerationRun, error)
	ListRuns(ctx context.Context, limit int) ([]domain.RunSummary, error)
	ListBills(ctx context.Context, runID string) ([]domain.Bill, error)
	ListStockRows(ctx context.Context, runID string) ([]domain.StockRow, error)
	ListSkips(ctx context.Context, runID string) ([]domain.SkippedDay, error)
	CreateAuditLog(ctx context.Context, entry domain.AuditLog) error
	ListAuditLogs(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error)
	CreateUser(ctx context.Context, user domain.UserAccount) error
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
	UpdateUserPassword(ctx context.Context, username string, password string) error
}
