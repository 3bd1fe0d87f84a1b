// Package rollover resets budget spend at period boundaries.
package rollover

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/fintrack-labs/budgetguard/pkg/model"
	"github.com/fintrack-labs/budgetguard/pkg/storage"
)

// Scheduler runs a cron job that zeroes spend and clears alert stamps for
// budgets whose period window ended. The schedule is expected to fire daily;
// the tick itself decides which periods roll over.
type Scheduler struct {
	cron   *cron.Cron
	store  storage.Store
	logger *slog.Logger
}

// NewScheduler creates a rollover scheduler over the given store.
func NewScheduler(store storage.Store, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		cron:   cron.New(),
		store:  store,
		logger: logger,
	}
}

// Register installs the rollover job on the given cron schedule.
func (s *Scheduler) Register(schedule string) error {
	if _, err := s.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		s.RunOnce(ctx, time.Now().UTC())
	}); err != nil {
		return fmt.Errorf("register rollover task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("rollover scheduler started")
}

// Stop stops the cron scheduler and waits for a running job to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// RunOnce resets every period that rolls over on the given day.
func (s *Scheduler) RunOnce(ctx context.Context, now time.Time) {
	for _, period := range PeriodsRollingOver(now) {
		n, err := s.store.ResetPeriodSpend(ctx, period)
		if err != nil {
			s.logger.Error("period rollover failed", "period", period, "error", err)
			continue
		}
		s.logger.Info("period rolled over", "period", period, "budgets_reset", n)
	}
}

// PeriodsRollingOver returns the budget periods whose window starts on the
// given day: monthly on the 1st, quarterly on the 1st of Jan/Apr/Jul/Oct,
// yearly on Jan 1.
func PeriodsRollingOver(now time.Time) []model.BudgetPeriod {
	if now.Day() != 1 {
		return nil
	}
	periods := []model.BudgetPeriod{model.PeriodMonthly}
	switch now.Month() {
	case time.January:
		periods = append(periods, model.PeriodQuarterly, model.PeriodYearly)
	case time.April, time.July, time.October:
		periods = append(periods, model.PeriodQuarterly)
	}
	return periods
}
