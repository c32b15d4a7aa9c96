package webhooks

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/stripe/stripe-go/v84"

	"github.com/aurelhart/scoreline-backend/api/responses"
	stripewebhook "github.com/aurelhart/scoreline-backend/internal/webhooks/stripe"
	pkgerrors "github.com/aurelhart/scoreline-backend/pkg/errors"
	"github.com/aurelhart/scoreline-backend/pkg/logger"
)

const maxPayloadBytes = 1 << 20

type stripeVerifier interface {
	Verify(payload []byte, signatureHeader string) (*stripe.Event, error)
}

type stripeEventHandler interface {
	HandleEvent(ctx context.Context, event *stripe.Event) stripewebhook.Outcome
}

// Stripe handles signed payment events. Only a failed signature check is
// reported back to the provider as an error; every verified event is
// acknowledged regardless of how fulfillment went, so the provider never
// retries an event the pipeline has already absorbed.
func Stripe(verifier stripeVerifier, handler stripeEventHandler, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if verifier == nil || handler == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook pipeline unavailable"))
			return
		}

		payload, err := io.ReadAll(io.LimitReader(r.Body, maxPayloadBytes))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request body"))
			return
		}

		event, err := verifier.Verify(payload, r.Header.Get(stripewebhook.SignatureHeader))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		handler.HandleEvent(ctx, event)

		writeReceived(w)
	}
}

func writeReceived(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]bool{"received": true})
}
