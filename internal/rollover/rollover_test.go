package rollover_test

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fintrack-labs/budgetguard/internal/rollover"
	"github.com/fintrack-labs/budgetguard/pkg/model"
	"github.com/fintrack-labs/budgetguard/pkg/storage"
)

func TestPeriodsRollingOver(t *testing.T) {
	tests := []struct {
		name string
		day  time.Time
		want []model.BudgetPeriod
	}{
		{"mid-month", time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC), nil},
		{"first of plain month", time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
			[]model.BudgetPeriod{model.PeriodMonthly}},
		{"first of quarter", time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
			[]model.BudgetPeriod{model.PeriodMonthly, model.PeriodQuarterly}},
		{"new year", time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
			[]model.BudgetPeriod{model.PeriodMonthly, model.PeriodQuarterly, model.PeriodYearly}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, rollover.PeriodsRollingOver(tt.day))
		})
	}
}

func TestRunOnce_ResetsMatchingPeriods(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	store, err := storage.NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	ctx := context.Background()

	monthly := &model.Budget{
		UserID: "u-1", Category: "groceries", Amount: 500,
		Period: model.PeriodMonthly, AlertThreshold: 80,
	}
	require.NoError(t, store.CreateBudget(ctx, monthly))
	yearly := &model.Budget{
		UserID: "u-1", Category: "travel", Amount: 3000,
		Period: model.PeriodYearly, AlertThreshold: 80,
	}
	require.NoError(t, store.CreateBudget(ctx, yearly))

	_, err = store.AtomicIncrementSpend(ctx, monthly.ID, 400)
	require.NoError(t, err)
	_, err = store.AtomicIncrementSpend(ctx, yearly.ID, 1000)
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	sched := rollover.NewScheduler(store, logger)

	// March 1: only monthly budgets roll over.
	sched.RunOnce(ctx, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))

	gotMonthly, err := store.GetBudget(ctx, monthly.ID)
	require.NoError(t, err)
	assert.Zero(t, gotMonthly.Spent)

	gotYearly, err := store.GetBudget(ctx, yearly.ID)
	require.NoError(t, err)
	assert.InDelta(t, 1000, gotYearly.Spent, 0.001)
}

func TestRegister_InvalidSchedule(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	store, err := storage.NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	sched := rollover.NewScheduler(store, logger)

	assert.Error(t, sched.Register("not a cron spec"))
	assert.NoError(t, sched.Register("0 0 * * *"))
}
