package alerts

import (
	"context"
	"errors"
	"time"
)

// ErrDispatchFailed is returned when every publish attempt was exhausted.
// The caller treats notification as best-effort; this error never reverts
// the spend update that produced the alert.
var ErrDispatchFailed = errors.New("alert dispatch failed")

// Message is a single pub/sub publish request. Attributes travel as discrete
// key/value metadata, not inside the body, so downstream routing can filter
// without deserializing the payload. DeadLetterTarget tells the transport
// where to redirect the message when delivery finally fails.
type Message struct {
	Body             []byte
	Attributes       map[string]string
	DeadLetterTarget string
}

// Publisher delivers messages to an external pub/sub transport.
type Publisher interface {
	// Name returns the publisher identifier.
	Name() string

	// Publish delivers one message. Implementations must be safe for
	// concurrent use.
	Publish(ctx context.Context, msg Message) error
}

// RetryPolicy describes the exponential backoff applied between publish
// attempts: BaseDelay doubles per retry up to MaxDelay, for MaxAttempts
// attempts total.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// DefaultRetryPolicy is three attempts with 1s base delay capped at 5s.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   time.Second,
		MaxDelay:    5 * time.Second,
	}
}

// Delay returns the backoff before the given retry (1-based: the delay
// preceding attempt retry+1).
func (p RetryPolicy) Delay(retry int) time.Duration {
	d := p.BaseDelay << (retry - 1)
	if d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}
