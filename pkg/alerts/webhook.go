package alerts

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"time"
)

// WebhookPublisher publishes alert messages to an HTTP pub/sub ingress.
// Message attributes are carried as X-Alert-* headers and the dead-letter
// target as X-Dead-Letter-Target, so the receiving broker can route without
// touching the body.
type WebhookPublisher struct {
	url    string
	secret string
	client *http.Client
}

// NewWebhookPublisher creates an HTTP publisher.
// If secret is non-empty, requests are signed with HMAC-SHA256.
func NewWebhookPublisher(url, secret string) *WebhookPublisher {
	return &WebhookPublisher{
		url:    url,
		secret: secret,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (w *WebhookPublisher) Name() string { return "webhook" }

func (w *WebhookPublisher) Publish(ctx context.Context, msg Message) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(msg.Body))
	if err != nil {
		return fmt.Errorf("create publish request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "BudgetGuard/1.0")

	for key, value := range msg.Attributes {
		req.Header.Set("X-Alert-"+key, value)
	}
	if msg.DeadLetterTarget != "" {
		req.Header.Set("X-Dead-Letter-Target", msg.DeadLetterTarget)
	}

	if w.secret != "" {
		sig := computeHMAC(msg.Body, []byte(w.secret))
		req.Header.Set("X-Signature-256", "sha256="+sig)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("publish alert: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("publish endpoint returned status %d", resp.StatusCode)
	}
	return nil
}

func computeHMAC(message, key []byte) string {
	mac := hmac.New(sha256.New, key)
	mac.Write(message)
	return hex.EncodeToString(mac.Sum(nil))
}
