package model

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// BudgetPeriod defines the accounting window for a budget.
type BudgetPeriod string

const (
	PeriodMonthly   BudgetPeriod = "MONTHLY"
	PeriodQuarterly BudgetPeriod = "QUARTERLY"
	PeriodYearly    BudgetPeriod = "YEARLY"
)

// DefaultAlertCooldown is the minimum gap between two alerts for one budget.
const DefaultAlertCooldown = 24 * time.Hour

var (
	// ErrInvalidDelta is returned when a spend increment is negative.
	ErrInvalidDelta = errors.New("spend delta must be non-negative")

	// ErrInvalidAmount is returned when a budget ceiling is negative.
	ErrInvalidAmount = errors.New("budget amount must be non-negative")

	// ErrInvalidThreshold is returned when an alert threshold is outside [0, 100].
	ErrInvalidThreshold = errors.New("alert threshold must be between 0 and 100")

	// ErrInvalidPeriod is returned for an unknown budget period.
	ErrInvalidPeriod = errors.New("period must be MONTHLY, QUARTERLY or YEARLY")
)

// Budget defines a per-user spending ceiling for one category and period.
// Durable mutation happens in the store; methods on Budget are pure and
// return copies.
type Budget struct {
	ID              string       `json:"id" db:"id"`
	UserID          string       `json:"user_id" db:"user_id"`
	Category        string       `json:"category" db:"category"`
	Amount          float64      `json:"amount" db:"amount"`
	Spent           float64      `json:"spent" db:"spent"`
	Period          BudgetPeriod `json:"period" db:"period"`
	AlertThreshold  float64      `json:"alert_threshold" db:"alert_threshold"`
	IsActive        bool         `json:"is_active" db:"is_active"`
	LastAlertSentAt *time.Time   `json:"last_alert_sent_at,omitempty" db:"last_alert_sent_at"`
	CreatedAt       time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at" db:"updated_at"`
}

// ApplySpend returns a copy with delta added to Spent, capped at Amount.
// Spend past the ceiling is capped, not rejected; an overrunning caller
// still succeeds and observes the clamped value.
func (b Budget) ApplySpend(delta float64) (Budget, error) {
	if delta < 0 {
		return b, fmt.Errorf("%w: got %.2f", ErrInvalidDelta, delta)
	}
	b.Spent = math.Min(b.Spent+delta, b.Amount)
	return b, nil
}

// SpentPercentage returns spend as a percentage of the ceiling, rounded to
// two decimals and clamped to [0, 100]. A zero-amount budget reports 0.
func (b Budget) SpentPercentage() float64 {
	if b.Amount == 0 {
		return 0
	}
	pct := math.Round(b.Spent/b.Amount*100*100) / 100
	return math.Min(math.Max(pct, 0), 100)
}

// Remaining returns the unspent portion of the ceiling, never negative.
func (b Budget) Remaining() float64 {
	return math.Max(b.Amount-b.Spent, 0)
}

// AlertDue reports whether a threshold alert should be attempted at now.
// True only for an active budget at or past its threshold whose last alert
// is either absent or older than the cooldown window.
func (b Budget) AlertDue(now time.Time, cooldown time.Duration) bool {
	if !b.IsActive || b.SpentPercentage() < b.AlertThreshold {
		return false
	}
	if b.LastAlertSentAt == nil {
		return true
	}
	return now.Sub(*b.LastAlertSentAt) >= cooldown
}

// ClampAmountEdit returns the effective new ceiling for an amount edit.
// The ceiling can never drop below what is already spent; an edit below
// Spent is raised to Spent rather than rejected.
func (b Budget) ClampAmountEdit(newAmount float64) float64 {
	return math.Max(newAmount, b.Spent)
}

// Validate checks the budget's static constraints.
func (b Budget) Validate() error {
	if b.Amount < 0 {
		return fmt.Errorf("%w: got %.2f", ErrInvalidAmount, b.Amount)
	}
	if b.AlertThreshold < 0 || b.AlertThreshold > 100 {
		return fmt.Errorf("%w: got %.1f", ErrInvalidThreshold, b.AlertThreshold)
	}
	return ValidatePeriod(b.Period)
}

// ValidatePeriod checks that p is one of the known budget periods.
func ValidatePeriod(p BudgetPeriod) error {
	switch p {
	case PeriodMonthly, PeriodQuarterly, PeriodYearly:
		return nil
	default:
		return fmt.Errorf("%w: got %q", ErrInvalidPeriod, p)
	}
}

// AlertEvent is the ephemeral notification derived from a threshold crossing.
// It lives for one dispatch attempt sequence and is never persisted.
type AlertEvent struct {
	BudgetID        string       `json:"budget_id"`
	UserID          string       `json:"user_id"`
	Category        string       `json:"category"`
	Spent           float64      `json:"spent"`
	Amount          float64      `json:"amount"`
	Remaining       float64      `json:"remaining"`
	SpentPercentage float64      `json:"spent_percentage"`
	Threshold       float64      `json:"threshold"`
	Period          BudgetPeriod `json:"period"`
	Timestamp       time.Time    `json:"timestamp"`
}

// NewAlertEvent builds an AlertEvent from a post-update budget snapshot.
func NewAlertEvent(b Budget, now time.Time) AlertEvent {
	return AlertEvent{
		BudgetID:        b.ID,
		UserID:          b.UserID,
		Category:        b.Category,
		Spent:           b.Spent,
		Amount:          b.Amount,
		Remaining:       b.Remaining(),
		SpentPercentage: b.SpentPercentage(),
		Threshold:       b.AlertThreshold,
		Period:          b.Period,
		Timestamp:       now.UTC(),
	}
}
