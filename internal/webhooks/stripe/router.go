package stripewebhook

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aurelhart/scoreline-backend/internal/assets"
	"github.com/aurelhart/scoreline-backend/internal/extledger"
	"github.com/aurelhart/scoreline-backend/internal/identity"
	"github.com/aurelhart/scoreline-backend/internal/notifications"
	"github.com/aurelhart/scoreline-backend/internal/orders"
	"github.com/aurelhart/scoreline-backend/pkg/enums"
	pkgerrors "github.com/aurelhart/scoreline-backend/pkg/errors"
	"github.com/aurelhart/scoreline-backend/pkg/logger"
	"github.com/aurelhart/scoreline-backend/pkg/metrics"
	"github.com/stripe/stripe-go/v84"
)

type identityResolver interface {
	Resolve(ctx context.Context, input identity.Input) identity.ProductIdentity
}

type assetResolver interface {
	GetAsset(ctx context.Context, catalogID, assetReference string) *assets.Asset
}

type notifier interface {
	SendCustomerConfirmation(ctx context.Context, order orders.OrderDTO, asset *assets.Asset) notifications.AttemptDTO
	SendCustomerFailure(ctx context.Context, order orders.OrderDTO) notifications.AttemptDTO
	SendOperatorNotice(ctx context.Context, order orders.OrderDTO) notifications.AttemptDTO
}

type ledgerMirror interface {
	Mirror(ctx context.Context, order orders.OrderDTO) extledger.MirrorResult
}

type idempotencyGuard interface {
	CheckAndMark(ctx context.Context, paymentReference string) (bool, error)
	Release(ctx context.Context, paymentReference string) error
}

// Service routes verified payment events through the fulfillment pipeline.
// Once a signature has been accepted the provider always gets an
// acknowledgement; HandleEvent reports what happened as an Outcome, never as
// an error.
type Service interface {
	HandleEvent(ctx context.Context, event *stripe.Event) Outcome
	ResendConfirmation(ctx context.Context, orderID string) (notifications.AttemptDTO, error)
}

// ServiceParams wires the router's collaborators.
type ServiceParams struct {
	Identity      identityResolver
	Orders        orders.Service
	Assets        assetResolver
	Notifications notifier
	Ledger        ledgerMirror
	Guard         idempotencyGuard
	Logger        *logger.Logger
	Pipeline      *metrics.PipelineMetrics
}

type service struct {
	identity identityResolver
	orders   orders.Service
	assets   assetResolver
	notify   notifier
	ledger   ledgerMirror
	guard    idempotencyGuard
	logg     *logger.Logger
	pipeline *metrics.PipelineMetrics
}

// NewService constructs the event router.
func NewService(params ServiceParams) (Service, error) {
	if params.Identity == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "identity resolver required")
	}
	if params.Orders == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "order service required")
	}
	if params.Assets == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "asset resolver required")
	}
	if params.Notifications == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "notification dispatcher required")
	}
	if params.Guard == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "idempotency guard required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &service{
		identity: params.Identity,
		orders:   params.Orders,
		assets:   params.Assets,
		notify:   params.Notifications,
		ledger:   params.Ledger,
		guard:    params.Guard,
		logg:     params.Logger,
		pipeline: params.Pipeline,
	}, nil
}

// HandleEvent normalizes the verified event and drives the pipeline for its
// kind. A panic in any step is converted into a recovered outcome so a single
// broken delivery cannot take the worker down or trigger redelivery storms.
func (s *service) HandleEvent(ctx context.Context, event *stripe.Event) (outcome Outcome) {
	start := time.Now()

	ev, err := NormalizeEvent(event)
	if err != nil {
		s.logg.Error(ctx, "normalize stripe event", err)
		return Recovered("malformed event payload")
	}

	ctx = s.logg.WithEventID(ctx, ev.ProviderEventID)
	s.pipeline.IncEventReceived(string(ev.Kind))

	defer func() {
		if r := recover(); r != nil {
			outcome = Recovered(fmt.Sprintf("handler panic: %v", r))
		}
		s.pipeline.ObserveEventHandled(string(ev.Kind), outcome.MetricLabel(), time.Since(start))
		s.logOutcome(ctx, ev, outcome)
	}()

	switch ev.Kind {
	case KindSucceeded, KindSessionCompleted:
		return s.handleSuccess(ctx, ev)
	case KindFailed:
		return s.handleFailure(ctx, ev)
	case KindInvoicePaid:
		// Reserved for subscription support.
		return Ignored("invoice handling reserved")
	default:
		return Ignored(ev.IgnoreReason)
	}
}

func (s *service) handleSuccess(ctx context.Context, ev PaymentEvent) Outcome {
	if absorb, reason := s.mustAbsorb(ev); absorb {
		return Recovered(reason)
	}
	if done, outcome := s.markProcessed(ctx, ev); done {
		return outcome
	}

	resolved := s.identity.Resolve(ctx, identity.Input{
		RawMetadata:         ev.RawMetadata,
		LineItemDescription: ev.LineItemDescription,
	})

	order, outcome := s.createOrder(ctx, ev, resolved, enums.OrderStatusCompleted)
	if order == nil {
		return outcome
	}

	asset := s.assets.GetAsset(ctx, resolved.CatalogID, resolved.AssetReference)
	s.notify.SendCustomerConfirmation(ctx, *order, asset)
	s.notify.SendOperatorNotice(ctx, *order)
	s.mirror(ctx, *order)

	return Fulfilled(order)
}

func (s *service) handleFailure(ctx context.Context, ev PaymentEvent) Outcome {
	if absorb, reason := s.mustAbsorb(ev); absorb {
		return Recovered(reason)
	}
	if done, outcome := s.markProcessed(ctx, ev); done {
		return outcome
	}

	resolved := s.identity.Resolve(ctx, identity.Input{
		RawMetadata:         ev.RawMetadata,
		LineItemDescription: ev.LineItemDescription,
	})

	order, outcome := s.createOrder(ctx, ev, resolved, enums.OrderStatusFailed)
	if order == nil {
		return outcome
	}

	s.notify.SendCustomerFailure(ctx, *order)
	s.notify.SendOperatorNotice(ctx, *order)
	s.mirror(ctx, *order)

	return Fulfilled(order)
}

// mustAbsorb enforces the no-op rule: without a customer email or anything
// the identity cascade can resolve, the event produces no record and no
// notification.
func (s *service) mustAbsorb(ev PaymentEvent) (bool, string) {
	if strings.TrimSpace(ev.CustomerEmail) == "" {
		return true, "customer email missing"
	}
	if !ev.HasIdentitySource() {
		return true, "no resolvable product identity"
	}
	return false, ""
}

// markProcessed claims the payment reference. A redis outage downgrades to
// unguarded processing rather than dropping the purchase.
func (s *service) markProcessed(ctx context.Context, ev PaymentEvent) (bool, Outcome) {
	seen, err := s.guard.CheckAndMark(ctx, ev.PaymentReference)
	if err != nil {
		s.logg.Error(ctx, "idempotency check unavailable", err)
		return false, Outcome{}
	}
	if !seen {
		return false, Outcome{}
	}

	// Lookup goes through the payment reference column, not the order id;
	// records created under a metadata order id would be invisible to an
	// order id lookup here.
	existing, getErr := s.orders.GetByPaymentReference(ctx, ev.PaymentReference)
	if getErr != nil {
		existing = nil
	}
	return true, Duplicate("payment reference already processed", existing)
}

func (s *service) createOrder(ctx context.Context, ev PaymentEvent, resolved identity.ProductIdentity, status enums.OrderStatus) (*orders.OrderDTO, Outcome) {
	input := orders.CreateOrderInput{
		OrderID:          metadataLookup(ev.RawMetadata, "order_id"),
		PaymentReference: ev.PaymentReference,
		CustomerEmail:    ev.CustomerEmail,
		CustomerName:     ev.CustomerName,
		CatalogID:        resolved.CatalogID,
		Title:            resolved.Title,
		AmountMinorUnits: ev.AmountMinorUnits,
		Currency:         ev.Currency,
		Status:           status,
	}
	if status == enums.OrderStatusFailed && ev.FailureReason != "" {
		reason := ev.FailureReason
		input.FailureReason = &reason
	}
	if resolved.AssetReference != "" {
		ref := resolved.AssetReference
		input.AssetReference = &ref
	}

	order, err := s.orders.Create(ctx, input)
	if err != nil {
		if coded := pkgerrors.As(err); coded != nil && coded.Code() == pkgerrors.CodeIdempotency {
			var existing *orders.OrderDTO
			if dto, ok := coded.Details().(orders.OrderDTO); ok {
				existing = &dto
			}
			return nil, Duplicate("order already recorded", existing)
		}
		// A failed ledger write releases the mark so the provider's
		// redelivery gets another attempt at persisting the purchase.
		if releaseErr := s.guard.Release(ctx, ev.PaymentReference); releaseErr != nil {
			s.logg.Error(ctx, "release idempotency mark", releaseErr)
		}
		s.logg.Error(ctx, "persist order", err)
		return nil, Recovered("order ledger write failed")
	}
	return order, Outcome{}
}

func (s *service) mirror(ctx context.Context, order orders.OrderDTO) {
	if s.ledger == nil {
		return
	}
	s.ledger.Mirror(ctx, order)
}

func (s *service) logOutcome(ctx context.Context, ev PaymentEvent, outcome Outcome) {
	fields := map[string]any{
		"event_kind": string(ev.Kind),
		"outcome":    string(outcome.Status),
	}
	if outcome.Reason != "" {
		fields["reason"] = outcome.Reason
	}
	if outcome.Order != nil {
		fields["order_id"] = outcome.Order.OrderID
	}
	s.logg.Info(s.logg.WithFields(ctx, fields), "stripe event handled")
}

// ResendConfirmation re-runs asset resolution and the customer confirmation
// for an existing order. This is the administrative remedy for a confirmation
// that failed to send; the pipeline itself never retries.
func (s *service) ResendConfirmation(ctx context.Context, orderID string) (notifications.AttemptDTO, error) {
	order, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return notifications.AttemptDTO{}, err
	}
	if order.Status != enums.OrderStatusCompleted {
		return notifications.AttemptDTO{}, pkgerrors.New(pkgerrors.CodeConflict, "only completed orders have confirmations")
	}

	assetReference := ""
	if order.AssetReference != nil {
		assetReference = *order.AssetReference
	}
	asset := s.assets.GetAsset(ctx, order.CatalogID, assetReference)
	return s.notify.SendCustomerConfirmation(ctx, *order, asset), nil
}
