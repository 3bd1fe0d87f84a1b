package alerts

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/fintrack-labs/budgetguard/pkg/model"
)

// DefaultPublishTimeout bounds a single publish attempt.
const DefaultPublishTimeout = 10 * time.Second

// Dispatcher formats threshold-crossing events and publishes them through a
// retrying publish pipeline. Exhausted messages are not re-published by the
// dispatcher itself; the dead-letter target stamped on the message tells the
// transport to redirect on final failure.
type Dispatcher struct {
	publisher        Publisher
	policy           RetryPolicy
	publishTimeout   time.Duration
	deadLetterTarget string
	logger           *slog.Logger
}

// NewDispatcher creates a dispatcher over the given publisher.
// Zero-valued policy fields fall back to the default retry policy, and a
// zero publishTimeout falls back to DefaultPublishTimeout.
func NewDispatcher(publisher Publisher, policy RetryPolicy, publishTimeout time.Duration, deadLetterTarget string, logger *slog.Logger) *Dispatcher {
	if policy.MaxAttempts <= 0 {
		policy = DefaultRetryPolicy()
	}
	if publishTimeout <= 0 {
		publishTimeout = DefaultPublishTimeout
	}
	return &Dispatcher{
		publisher:        publisher,
		policy:           policy,
		publishTimeout:   publishTimeout,
		deadLetterTarget: deadLetterTarget,
		logger:           logger,
	}
}

// Dispatch publishes one alert event, retrying with exponential backoff.
// It returns ErrDispatchFailed once every attempt is exhausted.
func (d *Dispatcher) Dispatch(ctx context.Context, ev model.AlertEvent) error {
	msg, err := BuildMessage(ev, d.deadLetterTarget)
	if err != nil {
		return err
	}

	var lastErr error
	for attempt := 1; attempt <= d.policy.MaxAttempts; attempt++ {
		if attempt > 1 {
			delay := d.policy.Delay(attempt - 1)
			d.logger.Warn("retrying alert publish",
				"budget_id", ev.BudgetID,
				"attempt", attempt,
				"backoff", delay,
				"error", lastErr,
			)
			select {
			case <-ctx.Done():
				return fmt.Errorf("%w: %v", ErrDispatchFailed, ctx.Err())
			case <-time.After(delay):
			}
		}

		attemptCtx, cancel := context.WithTimeout(ctx, d.publishTimeout)
		err := d.publisher.Publish(attemptCtx, msg)
		cancel()

		if err == nil {
			publishAttempts.WithLabelValues(d.publisher.Name(), "ok").Inc()
			dispatchedAlerts.Inc()
			d.logger.Info("alert published",
				"budget_id", ev.BudgetID,
				"category", ev.Category,
				"spent_pct", ev.SpentPercentage,
				"attempt", attempt,
			)
			return nil
		}

		publishAttempts.WithLabelValues(d.publisher.Name(), "error").Inc()
		lastErr = err
	}

	dispatchFailures.Inc()
	return fmt.Errorf("%w after %d attempts: %v", ErrDispatchFailed, d.policy.MaxAttempts, lastErr)
}
