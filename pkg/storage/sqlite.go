package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fintrack-labs/budgetguard/pkg/model"

	_ "modernc.org/sqlite"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

// SQLite implements the Store interface using an SQLite database.
// The increment and cooldown-claim operations are single conditional
// statements, so concurrent callers never lose updates.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens or creates an SQLite database at the given path.
func NewSQLite(dbPath string) (*SQLite, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	// The _pragma form applies per pooled connection; WAL for concurrent
	// reads, busy_timeout so concurrent writers queue instead of failing
	// with SQLITE_BUSY.
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// SQLite allows one writer at a time; serializing the pool keeps the
	// increment and cooldown-claim statements free of lock contention.
	db.SetMaxOpenConns(1)

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLite{db: db}, nil
}

const budgetColumns = `id, user_id, category, amount, spent, period, alert_threshold, is_active, last_alert_sent_at, created_at, updated_at`

func scanBudget(row interface{ Scan(...any) error }) (*model.Budget, error) {
	var b model.Budget
	var lastAlert sql.NullTime
	err := row.Scan(&b.ID, &b.UserID, &b.Category, &b.Amount, &b.Spent,
		&b.Period, &b.AlertThreshold, &b.IsActive, &lastAlert, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if lastAlert.Valid {
		t := lastAlert.Time
		b.LastAlertSentAt = &t
	}
	return &b, nil
}

func (s *SQLite) CreateBudget(ctx context.Context, budget *model.Budget) error {
	if budget.ID == "" {
		budget.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if budget.CreatedAt.IsZero() {
		budget.CreatedAt = now
	}
	budget.UpdatedAt = now
	budget.IsActive = true
	budget.Spent = 0
	budget.LastAlertSentAt = nil

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO budgets (id, user_id, category, amount, spent, period, alert_threshold, is_active, last_alert_sent_at, created_at, updated_at)
		 VALUES (?, ?, ?, ?, 0, ?, ?, 1, NULL, ?, ?)`,
		budget.ID, budget.UserID, budget.Category, budget.Amount,
		budget.Period, budget.AlertThreshold, budget.CreatedAt, budget.UpdatedAt,
	)
	if err != nil {
		return mapConstraintErr("insert budget", err)
	}
	return nil
}

func (s *SQLite) GetBudget(ctx context.Context, id string) (*model.Budget, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+budgetColumns+` FROM budgets WHERE id = ?`, id)
	b, err := scanBudget(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("budget %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get budget: %w", err)
	}
	return b, nil
}

func (s *SQLite) ListActiveByUser(ctx context.Context, userID string, page, limit int) ([]model.Budget, error) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+budgetColumns+` FROM budgets
		 WHERE user_id = ? AND is_active = 1
		 ORDER BY category, period
		 LIMIT ? OFFSET ?`,
		userID, limit, (page-1)*limit)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	defer rows.Close()

	var budgets []model.Budget
	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			return nil, fmt.Errorf("scan budget row: %w", err)
		}
		budgets = append(budgets, *b)
	}
	return budgets, rows.Err()
}

func (s *SQLite) AtomicIncrementSpend(ctx context.Context, id string, delta float64) (*model.Budget, error) {
	if delta < 0 {
		return nil, model.ErrInvalidDelta
	}

	// Clamp at the ceiling inside the UPDATE itself so interleaved
	// increments can never push spent past amount.
	row := s.db.QueryRowContext(ctx,
		`UPDATE budgets
		 SET spent = MIN(spent + ?, amount), updated_at = ?
		 WHERE id = ? AND is_active = 1
		 RETURNING `+budgetColumns,
		delta, time.Now().UTC(), id)
	b, err := scanBudget(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("budget %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("increment spend: %w", err)
	}
	return b, nil
}

func (s *SQLite) ClaimAlertCooldown(ctx context.Context, id string, now time.Time, cooldown time.Duration) (bool, error) {
	// Compare-and-set: the guard fails as soon as any writer has stamped
	// a time inside the cooldown window, so exactly one racing caller
	// observes rows == 1.
	cutoff := now.UTC().Add(-cooldown)
	result, err := s.db.ExecContext(ctx,
		`UPDATE budgets
		 SET last_alert_sent_at = ?, updated_at = ?
		 WHERE id = ? AND is_active = 1
		   AND (last_alert_sent_at IS NULL OR last_alert_sent_at <= ?)`,
		now.UTC(), now.UTC(), id, cutoff)
	if err != nil {
		return false, fmt.Errorf("claim alert cooldown: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("check rows affected: %w", err)
	}
	return rows == 1, nil
}

func (s *SQLite) UpdateBudget(ctx context.Context, id string, newAmount, newThreshold float64) (*model.Budget, error) {
	// The ceiling is floored at the current spend; lowering amount below
	// spent raises the edit to spent instead of rejecting it.
	row := s.db.QueryRowContext(ctx,
		`UPDATE budgets
		 SET amount = MAX(?, spent), alert_threshold = ?, updated_at = ?
		 WHERE id = ? AND is_active = 1
		 RETURNING `+budgetColumns,
		newAmount, newThreshold, time.Now().UTC(), id)
	b, err := scanBudget(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("budget %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, mapConstraintErr("update budget", err)
	}
	return b, nil
}

func (s *SQLite) Deactivate(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE budgets SET is_active = 0, updated_at = ? WHERE id = ? AND is_active = 1`,
		time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("deactivate budget: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("budget %q: %w", id, ErrNotFound)
	}
	return nil
}

func (s *SQLite) ResetPeriodSpend(ctx context.Context, period model.BudgetPeriod) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		`UPDATE budgets
		 SET spent = 0, last_alert_sent_at = NULL, updated_at = ?
		 WHERE period = ? AND is_active = 1`,
		time.Now().UTC(), period)
	if err != nil {
		return 0, fmt.Errorf("reset period spend: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("check rows affected: %w", err)
	}
	return rows, nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

// mapConstraintErr translates SQLite constraint violations into the store's
// sentinel errors; anything else is wrapped and propagated as-is.
func mapConstraintErr(op string, err error) error {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "UNIQUE constraint failed"):
		return fmt.Errorf("%s: %w", op, ErrDuplicateCategory)
	case strings.Contains(msg, "CHECK constraint failed"):
		return fmt.Errorf("%s: %w", op, ErrValidation)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
