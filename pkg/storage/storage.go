package storage

import (
	"context"
	"errors"
	"time"

	"github.com/fintrack-labs/budgetguard/pkg/model"
)

var (
	// ErrNotFound is returned when a budget id is absent or inactive.
	ErrNotFound = errors.New("budget not found")

	// ErrDuplicateCategory is returned when an active budget already exists
	// for the same (user, category, period) tuple.
	ErrDuplicateCategory = errors.New("active budget already exists for category and period")

	// ErrValidation is returned when the backing store rejects a constraint.
	ErrValidation = errors.New("budget failed store validation")
)

// Store defines the persistence gateway for budgets. Implementations own the
// atomicity guarantees; application code never does read-modify-write on a
// budget outside these operations.
type Store interface {
	// CreateBudget persists a new budget. Fails with ErrDuplicateCategory
	// when an active budget with the same user, category and period exists.
	CreateBudget(ctx context.Context, budget *model.Budget) error

	// GetBudget retrieves a budget by id regardless of active state.
	GetBudget(ctx context.Context, id string) (*model.Budget, error)

	// ListActiveByUser returns a page of the user's active budgets.
	// Pages are 1-based; limit is capped by the implementation.
	ListActiveByUser(ctx context.Context, userID string, page, limit int) ([]model.Budget, error)

	// AtomicIncrementSpend adds delta to the budget's spend in a single
	// atomic store operation, re-applying the ceiling clamp server-side,
	// and returns the post-update record. Fails with ErrNotFound when the
	// budget is absent or inactive.
	AtomicIncrementSpend(ctx context.Context, id string, delta float64) (*model.Budget, error)

	// ClaimAlertCooldown attempts to stamp the budget's last-alert time to
	// now via compare-and-set. It succeeds only when no alert was recorded
	// inside the cooldown window; exactly one of N racing callers wins.
	ClaimAlertCooldown(ctx context.Context, id string, now time.Time, cooldown time.Duration) (bool, error)

	// UpdateBudget edits the ceiling and threshold. The ceiling is floored
	// at the current spend server-side.
	UpdateBudget(ctx context.Context, id string, newAmount, newThreshold float64) (*model.Budget, error)

	// Deactivate soft-deletes the budget, leaving spend and amount intact.
	Deactivate(ctx context.Context, id string) error

	// ResetPeriodSpend zeroes spend and clears the alert stamp for all
	// active budgets of the given period. Used at period rollovers.
	ResetPeriodSpend(ctx context.Context, period model.BudgetPeriod) (int64, error)

	// Close releases resources.
	Close() error
}
