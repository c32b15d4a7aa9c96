package webhooks

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stripe/stripe-go/v84"

	stripewebhook "github.com/aurelhart/scoreline-backend/internal/webhooks/stripe"
	pkgerrors "github.com/aurelhart/scoreline-backend/pkg/errors"
)

func TestStripe_AcknowledgesVerifiedEvent(t *testing.T) {
	event := &stripe.Event{ID: "evt_1", Type: stripe.EventTypePaymentIntentSucceeded}
	verifier := &fakeVerifier{event: event}
	handler := &fakeEventHandler{outcome: stripewebhook.Fulfilled(nil)}

	rec := serveStripe(t, verifier, handler, `{"id":"evt_1"}`, "t=1,v1=abc")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	var body map[string]bool
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if !body["received"] {
		t.Fatalf("expected received acknowledgement, got %v", body)
	}
	if handler.calls != 1 {
		t.Fatalf("expected handler called once, got %d", handler.calls)
	}
	if verifier.gotHeader != "t=1,v1=abc" {
		t.Fatalf("unexpected signature header %q", verifier.gotHeader)
	}
}

func TestStripe_AcknowledgesAbsorbedOutcome(t *testing.T) {
	event := &stripe.Event{ID: "evt_2", Type: stripe.EventTypeChargeSucceeded}
	verifier := &fakeVerifier{event: event}
	handler := &fakeEventHandler{outcome: stripewebhook.Ignored("charge already covered by its checkout session")}

	rec := serveStripe(t, verifier, handler, `{"id":"evt_2"}`, "t=1,v1=abc")

	if rec.Code != http.StatusOK {
		t.Fatalf("absorbed outcomes must still acknowledge, got %d", rec.Code)
	}
}

func TestStripe_AcknowledgesRecoveredOutcome(t *testing.T) {
	event := &stripe.Event{ID: "evt_3", Type: stripe.EventTypePaymentIntentSucceeded}
	verifier := &fakeVerifier{event: event}
	handler := &fakeEventHandler{outcome: stripewebhook.Recovered("order ledger write failed")}

	rec := serveStripe(t, verifier, handler, `{"id":"evt_3"}`, "t=1,v1=abc")

	if rec.Code != http.StatusOK {
		t.Fatalf("pipeline failures must not surface to the provider, got %d", rec.Code)
	}
}

func TestStripe_RejectsInvalidSignature(t *testing.T) {
	verifier := &fakeVerifier{err: pkgerrors.New(pkgerrors.CodeSignature, "signature verification failed")}
	handler := &fakeEventHandler{}

	rec := serveStripe(t, verifier, handler, `{"id":"evt_4"}`, "t=1,v1=bad")

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid signature, got %d", rec.Code)
	}
	if handler.calls != 0 {
		t.Fatalf("handler must not run on signature failure")
	}
}

func TestStripe_MissingWiringIsInternal(t *testing.T) {
	rec := serveStripe(t, nil, nil, `{}`, "")

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 without wiring, got %d", rec.Code)
	}
}

func serveStripe(t *testing.T, verifier stripeVerifier, handler stripeEventHandler, payload, sig string) *httptest.ResponseRecorder {
	t.Helper()
	h := Stripe(verifier, handler, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/stripe", bytes.NewReader([]byte(payload)))
	if sig != "" {
		req.Header.Set(stripewebhook.SignatureHeader, sig)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

type fakeVerifier struct {
	event     *stripe.Event
	err       error
	gotHeader string
}

func (f *fakeVerifier) Verify(_ []byte, signatureHeader string) (*stripe.Event, error) {
	f.gotHeader = signatureHeader
	if f.err != nil {
		return nil, f.err
	}
	if f.event == nil {
		return nil, errors.New("no event configured")
	}
	return f.event, nil
}

type fakeEventHandler struct {
	outcome stripewebhook.Outcome
	calls   int
}

func (f *fakeEventHandler) HandleEvent(_ context.Context, _ *stripe.Event) stripewebhook.Outcome {
	f.calls++
	return f.outcome
}
