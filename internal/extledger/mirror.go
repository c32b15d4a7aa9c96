package extledger

import (
	"context"
	"fmt"

	"github.com/aurelhart/scoreline-backend/internal/orders"
	"github.com/aurelhart/scoreline-backend/pkg/logger"
	"github.com/aurelhart/scoreline-backend/pkg/metrics"
)

// Sync result labels.
const (
	resultCreated = "created"
	resultUpdated = "updated"
	resultFailed  = "failed"
	resultSkipped = "skipped"
)

// MirrorResult reports what the external ledger sync did for one order.
type MirrorResult struct {
	Synced     bool
	ExternalID string
}

// ledgerClient is the subset of Client the mirror needs.
type ledgerClient interface {
	CreateEntry(ctx context.Context, order orders.OrderDTO) (string, error)
	UpdateStatus(ctx context.Context, externalID, orderID, status string) error
}

// externalIDStore persists the returned ledger id on the order record.
type externalIDStore interface {
	SetExternalLedgerID(ctx context.Context, orderID, externalID string) error
}

// Service mirrors orders into the external ledger. Every method is
// best-effort: failures are logged and counted, never returned, so the
// pipeline's acknowledgement does not depend on the mirror.
type Service interface {
	Mirror(ctx context.Context, order orders.OrderDTO) MirrorResult
	MirrorStatus(ctx context.Context, order orders.OrderDTO) MirrorResult
	Enabled() bool
}

// ServiceParams are the dependencies for NewService. Client may be nil when
// the ledger is not configured; the service then skips every sync.
type ServiceParams struct {
	Client   ledgerClient
	Orders   externalIDStore
	Logger   *logger.Logger
	Pipeline *metrics.PipelineMetrics
}

type service struct {
	client   ledgerClient
	orders   externalIDStore
	logg     *logger.Logger
	pipeline *metrics.PipelineMetrics
}

// NewService constructs the external ledger mirror.
func NewService(params ServiceParams) (Service, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		client:   params.Client,
		orders:   params.Orders,
		logg:     params.Logger,
		pipeline: params.Pipeline,
	}, nil
}

func (s *service) Enabled() bool {
	return s.client != nil
}

// Mirror creates a ledger entry for the order and stores the returned page
// id on the order record.
func (s *service) Mirror(ctx context.Context, order orders.OrderDTO) MirrorResult {
	if s.client == nil {
		s.pipeline.IncLedgerSync(resultSkipped)
		return MirrorResult{}
	}

	ctx = s.logg.WithOrderID(ctx, order.OrderID)
	externalID, err := s.client.CreateEntry(ctx, order)
	if err != nil {
		s.pipeline.IncLedgerSync(resultFailed)
		s.logg.Error(ctx, "mirror order to external ledger", err)
		return MirrorResult{}
	}

	if s.orders != nil && externalID != "" {
		if err := s.orders.SetExternalLedgerID(ctx, order.OrderID, externalID); err != nil {
			s.logg.Error(ctx, "store external ledger id", err)
		}
	}

	s.pipeline.IncLedgerSync(resultCreated)
	s.logg.Info(s.logg.WithField(ctx, "external_ledger_id", externalID), "order mirrored to external ledger")
	return MirrorResult{Synced: true, ExternalID: externalID}
}

// MirrorStatus pushes the order's current status onto its existing ledger
// entry, locating it by order id when no page id was stored.
func (s *service) MirrorStatus(ctx context.Context, order orders.OrderDTO) MirrorResult {
	if s.client == nil {
		s.pipeline.IncLedgerSync(resultSkipped)
		return MirrorResult{}
	}

	ctx = s.logg.WithOrderID(ctx, order.OrderID)
	externalID := ""
	if order.ExternalLedgerID != nil {
		externalID = *order.ExternalLedgerID
	}

	if err := s.client.UpdateStatus(ctx, externalID, order.OrderID, string(order.Status)); err != nil {
		s.pipeline.IncLedgerSync(resultFailed)
		s.logg.Error(ctx, "update external ledger status", err)
		return MirrorResult{}
	}

	s.pipeline.IncLedgerSync(resultUpdated)
	return MirrorResult{Synced: true, ExternalID: externalID}
}
