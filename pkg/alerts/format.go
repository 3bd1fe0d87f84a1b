package alerts

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/fintrack-labs/budgetguard/pkg/model"
)

// MessageType tags every published alert payload.
const MessageType = "BUDGET_ALERT"

// alertPayload is the wire body of a budget alert. Currency values are
// rendered with two decimals and percentages with one, so receiving clients
// can display the fields verbatim.
type alertPayload struct {
	Type      string       `json:"type"`
	Title     string       `json:"title"`
	Message   string       `json:"message"`
	Details   alertDetails `json:"details"`
	Timestamp string       `json:"timestamp"`
	ActionRef string       `json:"actionRef"`
}

type alertDetails struct {
	Category        string `json:"category"`
	Spent           string `json:"spent"`
	BudgetAmount    string `json:"budgetAmount"`
	Remaining       string `json:"remaining"`
	SpentPercentage string `json:"spentPercentage"`
	Threshold       string `json:"threshold"`
	Period          string `json:"period"`
}

// BuildMessage formats an alert event into a publishable message. The user,
// budget and category ride along as attributes for downstream routing;
// deadLetterTarget is stamped on the message so the transport redirects it
// when all delivery attempts fail.
func BuildMessage(ev model.AlertEvent, deadLetterTarget string) (Message, error) {
	payload := alertPayload{
		Type:  MessageType,
		Title: fmt.Sprintf("Budget alert: %s", ev.Category),
		Message: fmt.Sprintf("Your %s budget is at %.1f%% ($%.2f of $%.2f)",
			ev.Category, ev.SpentPercentage, ev.Spent, ev.Amount),
		Details: alertDetails{
			Category:        ev.Category,
			Spent:           fmt.Sprintf("%.2f", ev.Spent),
			BudgetAmount:    fmt.Sprintf("%.2f", ev.Amount),
			Remaining:       fmt.Sprintf("%.2f", ev.Remaining),
			SpentPercentage: fmt.Sprintf("%.1f", ev.SpentPercentage),
			Threshold:       fmt.Sprintf("%.1f", ev.Threshold),
			Period:          string(ev.Period),
		},
		Timestamp: ev.Timestamp.UTC().Format(time.RFC3339),
		ActionRef: fmt.Sprintf("app://budgets/%s", ev.BudgetID),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return Message{}, fmt.Errorf("marshal alert payload: %w", err)
	}

	return Message{
		Body: body,
		Attributes: map[string]string{
			"userId":   ev.UserID,
			"budgetId": ev.BudgetID,
			"category": ev.Category,
		},
		DeadLetterTarget: deadLetterTarget,
	}, nil
}
