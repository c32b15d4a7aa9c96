package stripewebhook

import (
	"encoding/json"
	"strings"

	pkgerrors "github.com/aurelhart/scoreline-backend/pkg/errors"
	"github.com/stripe/stripe-go/v84"
)

// EventKind classifies a provider delivery for routing.
type EventKind string

const (
	KindSucceeded        EventKind = "succeeded"
	KindFailed           EventKind = "failed"
	KindSessionCompleted EventKind = "session_completed"
	KindInvoicePaid      EventKind = "invoice_paid"
	KindIgnored          EventKind = "ignored"
)

const defaultFailureReason = "Payment failed"

// PaymentEvent is the normalized view of one provider delivery. It is built
// once per delivery and never persisted.
type PaymentEvent struct {
	Kind                EventKind
	ProviderEventID     string
	PaymentReference    string
	RawMetadata         map[string]string
	CustomerEmail       string
	CustomerName        string
	AmountMinorUnits    int64
	Currency            string
	LineItemDescription string
	FailureReason       string
	IgnoreReason        string
}

// HasIdentitySource reports whether the event carries anything the product
// identity cascade can work with: a slug, a title, or a line item description.
func (e PaymentEvent) HasIdentitySource() bool {
	for key, value := range e.RawMetadata {
		lower := strings.ToLower(strings.TrimSpace(key))
		if (lower == "slug" || lower == "title") && strings.TrimSpace(value) != "" {
			return true
		}
	}
	return strings.TrimSpace(e.LineItemDescription) != ""
}

// NormalizeEvent maps a verified provider event onto a PaymentEvent.
// charge.succeeded deliveries duplicate a purchase already handled via the
// checkout session and are classified as ignored. Unrecognized types are
// ignored as well, never rejected.
func NormalizeEvent(event *stripe.Event) (PaymentEvent, error) {
	if event == nil || event.Data == nil {
		return PaymentEvent{}, pkgerrors.New(pkgerrors.CodeValidation, "stripe event data required")
	}

	switch event.Type {
	case stripe.EventTypePaymentIntentSucceeded:
		return normalizePaymentIntent(event, KindSucceeded)
	case stripe.EventTypePaymentIntentPaymentFailed:
		return normalizePaymentIntent(event, KindFailed)
	case stripe.EventTypeCheckoutSessionCompleted:
		return normalizeCheckoutSession(event)
	case stripe.EventTypeInvoicePaymentSucceeded:
		return PaymentEvent{
			Kind:            KindInvoicePaid,
			ProviderEventID: event.ID,
		}, nil
	case stripe.EventTypeChargeSucceeded:
		return ignored(event, "charge already covered by its checkout session"), nil
	default:
		return ignored(event, "unhandled event type "+string(event.Type)), nil
	}
}

func normalizePaymentIntent(event *stripe.Event, kind EventKind) (PaymentEvent, error) {
	var intent stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
		return PaymentEvent{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode payment intent event")
	}

	if kind == KindSucceeded && intent.Status != stripe.PaymentIntentStatusSucceeded {
		return ignored(event, "payment intent status is "+string(intent.Status)), nil
	}

	ev := PaymentEvent{
		Kind:             kind,
		ProviderEventID:  event.ID,
		PaymentReference: intent.ID,
		RawMetadata:      intent.Metadata,
		CustomerEmail:    metadataEmail(intent.Metadata, intent.ReceiptEmail),
		CustomerName:     strings.TrimSpace(metadataLookup(intent.Metadata, "customer_name")),
		AmountMinorUnits: intent.Amount,
		Currency:         string(intent.Currency),
	}

	if kind == KindFailed {
		ev.FailureReason = defaultFailureReason
		if intent.LastPaymentError != nil && intent.LastPaymentError.Msg != "" {
			ev.FailureReason = intent.LastPaymentError.Msg
		}
	}
	return ev, nil
}

func normalizeCheckoutSession(event *stripe.Event) (PaymentEvent, error) {
	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		return PaymentEvent{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode checkout session event")
	}

	reference := session.ID
	if session.PaymentIntent != nil && session.PaymentIntent.ID != "" {
		reference = session.PaymentIntent.ID
	}

	ev := PaymentEvent{
		Kind:             KindSessionCompleted,
		ProviderEventID:  event.ID,
		PaymentReference: reference,
		RawMetadata:      session.Metadata,
		AmountMinorUnits: session.AmountTotal,
		Currency:         string(session.Currency),
	}

	if session.CustomerDetails != nil {
		ev.CustomerEmail = strings.TrimSpace(session.CustomerDetails.Email)
		ev.CustomerName = strings.TrimSpace(session.CustomerDetails.Name)
	}
	if session.LineItems != nil && len(session.LineItems.Data) > 0 {
		ev.LineItemDescription = strings.TrimSpace(session.LineItems.Data[0].Description)
	}
	return ev, nil
}

func ignored(event *stripe.Event, reason string) PaymentEvent {
	return PaymentEvent{
		Kind:            KindIgnored,
		ProviderEventID: event.ID,
		IgnoreReason:    reason,
	}
}

func metadataLookup(metadata map[string]string, key string) string {
	for k, v := range metadata {
		if strings.EqualFold(strings.TrimSpace(k), key) {
			return v
		}
	}
	return ""
}

func metadataEmail(metadata map[string]string, receiptEmail string) string {
	if email := strings.TrimSpace(metadataLookup(metadata, "customer_email")); email != "" {
		return email
	}
	return strings.TrimSpace(receiptEmail)
}
