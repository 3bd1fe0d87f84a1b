package tracker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/fintrack-labs/budgetguard/pkg/model"
	"github.com/fintrack-labs/budgetguard/pkg/storage"
)

// Dispatcher publishes a single alert event. Satisfied by *alerts.Dispatcher.
type Dispatcher interface {
	Dispatch(ctx context.Context, ev model.AlertEvent) error
}

// Manager orchestrates spend accounting and alert dispatch. It holds no
// per-budget state between requests; correctness under concurrent callers
// rests entirely on the store's atomic increment and cooldown claim.
type Manager struct {
	store      storage.Store
	dispatcher Dispatcher
	cooldown   time.Duration
	logger     *slog.Logger
}

// NewManager creates a budget manager. A nil dispatcher disables alerting;
// a non-positive cooldown falls back to the 24h default.
func NewManager(store storage.Store, dispatcher Dispatcher, cooldown time.Duration, logger *slog.Logger) *Manager {
	if cooldown <= 0 {
		cooldown = model.DefaultAlertCooldown
	}
	return &Manager{
		store:      store,
		dispatcher: dispatcher,
		cooldown:   cooldown,
		logger:     logger,
	}
}

// Create validates and persists a new budget with zero spend.
func (m *Manager) Create(ctx context.Context, userID, category string, amount float64, period model.BudgetPeriod, alertThreshold float64) (*model.Budget, error) {
	budget := &model.Budget{
		UserID:         userID,
		Category:       category,
		Amount:         amount,
		Period:         period,
		AlertThreshold: alertThreshold,
		IsActive:       true,
	}
	if err := budget.Validate(); err != nil {
		return nil, err
	}
	if err := m.store.CreateBudget(ctx, budget); err != nil {
		return nil, err
	}

	m.logger.Info("budget created",
		"budget_id", budget.ID,
		"user_id", userID,
		"category", category,
		"amount", amount,
		"period", period,
	)
	return budget, nil
}

// Increment applies a spend delta and, when the post-update record crosses
// its threshold, dispatches at most one alert per cooldown window.
//
// A successful increment always returns the updated budget; alert delivery
// is best-effort and never part of the increment's contract. Of N callers
// that concurrently observe the threshold crossed, exactly one wins the
// cooldown claim and publishes; the others skip.
func (m *Manager) Increment(ctx context.Context, id string, delta float64) (*model.Budget, error) {
	if delta < 0 {
		return nil, fmt.Errorf("%w: got %.2f", model.ErrInvalidDelta, delta)
	}

	budget, err := m.store.AtomicIncrementSpend(ctx, id, delta)
	if err != nil {
		return nil, fmt.Errorf("apply spend: %w", err)
	}
	spendIncrements.Inc()

	now := time.Now().UTC()
	if !budget.AlertDue(now, m.cooldown) || m.dispatcher == nil {
		return budget, nil
	}

	won, err := m.store.ClaimAlertCooldown(ctx, id, now, m.cooldown)
	if err != nil {
		// The spend already committed; a failed claim must not fail it.
		m.logger.Error("claim alert cooldown", "budget_id", id, "error", err)
		return budget, nil
	}
	if !won {
		alertClaims.WithLabelValues("lost").Inc()
		m.logger.Debug("alert claim lost",
			"budget_id", id,
			"spent_pct", budget.SpentPercentage(),
		)
		return budget, nil
	}
	alertClaims.WithLabelValues("won").Inc()

	if err := m.dispatcher.Dispatch(ctx, model.NewAlertEvent(*budget, now)); err != nil {
		swallowedDispatchErrs.Inc()
		m.logger.Error("alert dispatch failed",
			"budget_id", id,
			"category", budget.Category,
			"error", err,
		)
	}

	return budget, nil
}

// Edit updates the ceiling and threshold of an active budget. A ceiling
// below the current spend is raised to the spend, never dropped below it.
func (m *Manager) Edit(ctx context.Context, id string, newAmount, newThreshold float64) (*model.Budget, error) {
	if newAmount < 0 {
		return nil, fmt.Errorf("%w: got %.2f", model.ErrInvalidAmount, newAmount)
	}
	if newThreshold < 0 || newThreshold > 100 {
		return nil, fmt.Errorf("%w: got %.1f", model.ErrInvalidThreshold, newThreshold)
	}

	budget, err := m.store.UpdateBudget(ctx, id, newAmount, newThreshold)
	if err != nil {
		return nil, err
	}

	m.logger.Info("budget updated",
		"budget_id", id,
		"amount", budget.Amount,
		"alert_threshold", budget.AlertThreshold,
	)
	return budget, nil
}

// Deactivate soft-deletes a budget. Spend and amount are left untouched.
func (m *Manager) Deactivate(ctx context.Context, id string) error {
	if err := m.store.Deactivate(ctx, id); err != nil {
		return err
	}
	m.logger.Info("budget deactivated", "budget_id", id)
	return nil
}

// Get returns a budget by id.
func (m *Manager) Get(ctx context.Context, id string) (*model.Budget, error) {
	return m.store.GetBudget(ctx, id)
}

// ListActive returns a page of the user's active budgets.
func (m *Manager) ListActive(ctx context.Context, userID string, page, limit int) ([]model.Budget, error) {
	return m.store.ListActiveByUser(ctx, userID, page, limit)
}
