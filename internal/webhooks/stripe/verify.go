package stripewebhook

import (
	"strings"

	"github.com/aurelhart/scoreline-backend/pkg/config"
	pkgerrors "github.com/aurelhart/scoreline-backend/pkg/errors"
	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/webhook"
)

// SignatureHeader is the provider header carrying the payload signature.
const SignatureHeader = "Stripe-Signature"

// Verifier checks inbound payloads against the shared webhook secret.
// Verification fails closed: a missing header, a malformed signature, or a
// single flipped byte all reject the delivery before anything is parsed.
type Verifier struct {
	secret string
}

// NewVerifier builds the verifier from configuration.
func NewVerifier(cfg config.StripeConfig) (*Verifier, error) {
	secret := strings.TrimSpace(cfg.WebhookSecret)
	if secret == "" {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "stripe webhook secret required")
	}
	return &Verifier{secret: secret}, nil
}

// Verify validates the raw body against the signature header and returns the
// parsed event. This is the only pipeline failure surfaced to the provider as
// a non-200 response.
func (v *Verifier) Verify(payload []byte, signatureHeader string) (*stripe.Event, error) {
	if v == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "verifier not configured")
	}
	if strings.TrimSpace(signatureHeader) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeSignature, "signature header missing")
	}

	event, err := webhook.ConstructEvent(payload, signatureHeader, v.secret)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeSignature, err, "verify webhook signature")
	}
	return &event, nil
}
