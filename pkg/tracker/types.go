package tracker

import "github.com/fintrack-labs/budgetguard/pkg/model"

// Re-export types from model package for convenience.
type (
	Budget       = model.Budget
	BudgetPeriod = model.BudgetPeriod
	AlertEvent   = model.AlertEvent
)

// Re-export constants.
const (
	PeriodMonthly   = model.PeriodMonthly
	PeriodQuarterly = model.PeriodQuarterly
	PeriodYearly    = model.PeriodYearly
)
