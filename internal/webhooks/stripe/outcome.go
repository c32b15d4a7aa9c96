package stripewebhook

import (
	"github.com/aurelhart/scoreline-backend/internal/orders"
	"github.com/aurelhart/scoreline-backend/pkg/metrics"
)

// OutcomeStatus names what the router did with a verified event.
type OutcomeStatus string

const (
	// StatusFulfilled means the full pipeline ran and an order exists.
	StatusFulfilled OutcomeStatus = "fulfilled"
	// StatusRecovered means a step failed or data was missing; the event was
	// absorbed with the reason recorded instead of propagating an error.
	StatusRecovered OutcomeStatus = "recovered"
	// StatusDuplicate means the payment reference was already processed.
	StatusDuplicate OutcomeStatus = "duplicate"
	// StatusIgnored means the event type carries no work by policy.
	StatusIgnored OutcomeStatus = "ignored"
)

// Outcome is the explicit result every handler step returns. The
// always-acknowledge policy lives here: whatever the status, the provider
// gets a 200 once the signature checked out, and the reason for anything
// short of fulfilled is carried for logging rather than being swallowed.
type Outcome struct {
	Status OutcomeStatus
	Reason string
	Order  *orders.OrderDTO
}

// Fulfilled reports a completed pipeline run for the given order.
func Fulfilled(order *orders.OrderDTO) Outcome {
	return Outcome{Status: StatusFulfilled, Order: order}
}

// Recovered reports an absorbed failure with its reason.
func Recovered(reason string) Outcome {
	return Outcome{Status: StatusRecovered, Reason: reason}
}

// Duplicate reports a replayed delivery that produced no new side effects.
// The existing order is attached when it could be loaded.
func Duplicate(reason string, order *orders.OrderDTO) Outcome {
	return Outcome{Status: StatusDuplicate, Reason: reason, Order: order}
}

// Ignored reports an event type that is absorbed by policy.
func Ignored(reason string) Outcome {
	return Outcome{Status: StatusIgnored, Reason: reason}
}

// MetricLabel maps the outcome onto its pipeline metric label.
func (o Outcome) MetricLabel() string {
	switch o.Status {
	case StatusFulfilled:
		return metrics.OutcomeFulfilled
	case StatusDuplicate:
		return metrics.OutcomeDuplicate
	case StatusIgnored:
		return metrics.OutcomeIgnored
	default:
		return metrics.OutcomeRecovered
	}
}
