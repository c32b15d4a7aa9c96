package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aurelhart/scoreline-backend/pkg/db/models"
	"github.com/aurelhart/scoreline-backend/pkg/enums"
	pkgerrors "github.com/aurelhart/scoreline-backend/pkg/errors"
	"github.com/aurelhart/scoreline-backend/pkg/pagination"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Service exposes the order ledger operations.
type Service interface {
	Create(ctx context.Context, input CreateOrderInput) (*OrderDTO, error)
	Get(ctx context.Context, orderID string) (*OrderDTO, error)
	GetByPaymentReference(ctx context.Context, ref string) (*OrderDTO, error)
	ListByCustomer(ctx context.Context, email string, params pagination.Params) (*OrderList, error)
	UpdateStatus(ctx context.Context, orderID string, input UpdateStatusInput) (*OrderDTO, error)
	SetExternalLedgerID(ctx context.Context, orderID, externalID string) error
	Stats(ctx context.Context) (*StatsDTO, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type service struct {
	repo Repository
	now  func() time.Time
}

// NewService constructs the order ledger service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("order repository required")
	}
	return &service{repo: repo, now: time.Now}, nil
}

// Create persists one purchase record. The caller must supply a customer
// email and a resolved title; events missing both are absorbed upstream and
// never reach the ledger. A replayed order id surfaces as an idempotency
// error carrying the already-persisted record in its details.
func (s *service) Create(ctx context.Context, input CreateOrderInput) (*OrderDTO, error) {
	email := strings.TrimSpace(input.CustomerEmail)
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer email is required")
	}
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order title is required")
	}
	if !input.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order status")
	}

	orderID := strings.TrimSpace(input.OrderID)
	if orderID == "" {
		orderID = strings.TrimSpace(input.PaymentReference)
	}
	if orderID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id or payment reference is required")
	}

	name := strings.TrimSpace(input.CustomerName)
	if name == "" {
		name = email
	}

	order := &models.Order{
		ID:               uuid.New(),
		OrderID:          orderID,
		PaymentReference: strings.TrimSpace(input.PaymentReference),
		CustomerEmail:    email,
		CustomerName:     name,
		CatalogID:        strings.TrimSpace(input.CatalogID),
		Title:            title,
		Amount:           minorToMajor(input.AmountMinorUnits),
		Currency:         enums.NormalizeCurrency(input.Currency),
		Status:           input.Status,
		FailureReason:    input.FailureReason,
		AssetReference:   input.AssetReference,
	}

	created, err := s.repo.Create(ctx, order)
	if err != nil {
		if pkgerrors.IsUniqueViolation(err) || errors.Is(err, gorm.ErrDuplicatedKey) {
			existing, findErr := s.repo.FindByOrderID(ctx, orderID)
			if findErr == nil && existing != nil {
				dto := toDTO(existing)
				return nil, pkgerrors.New(pkgerrors.CodeIdempotency, "order already recorded").WithDetails(dto)
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeIdempotency, err, "order already recorded")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create order")
	}

	dto := toDTO(created)
	return &dto, nil
}

func (s *service) Get(ctx context.Context, orderID string) (*OrderDTO, error) {
	trimmed := strings.TrimSpace(orderID)
	if trimmed == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}

	order, err := s.repo.FindByOrderID(ctx, trimmed)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "find order")
	}

	dto := toDTO(order)
	return &dto, nil
}

// GetByPaymentReference finds the record for a provider payment reference.
// Records keyed by a metadata order id are still reachable this way, since
// the payment reference is persisted on every row.
func (s *service) GetByPaymentReference(ctx context.Context, ref string) (*OrderDTO, error) {
	trimmed := strings.TrimSpace(ref)
	if trimmed == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment reference is required")
	}

	order, err := s.repo.FindByPaymentReference(ctx, trimmed)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "find order by payment reference")
	}

	dto := toDTO(order)
	return &dto, nil
}

func (s *service) ListByCustomer(ctx context.Context, email string, params pagination.Params) (*OrderList, error) {
	trimmed := strings.TrimSpace(email)
	if trimmed == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer email is required")
	}

	rows, err := s.repo.ListByCustomer(ctx, trimmed, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list orders")
	}

	limit := pagination.NormalizeLimit(params.Limit)
	list := &OrderList{Orders: make([]OrderDTO, 0, len(rows))}
	for i := range rows {
		if i >= limit {
			last := rows[limit-1]
			list.NextCursor = pagination.EncodeCursor(pagination.Cursor{
				CreatedAt: last.CreatedAt,
				ID:        last.ID,
			})
			break
		}
		list.Orders = append(list.Orders, toDTO(&rows[i]))
	}
	return list, nil
}

func (s *service) UpdateStatus(ctx context.Context, orderID string, input UpdateStatusInput) (*OrderDTO, error) {
	trimmed := strings.TrimSpace(orderID)
	if trimmed == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	if !input.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order status")
	}

	updates := map[string]any{"status": input.Status}
	if input.FailureReason != nil {
		updates["failure_reason"] = *input.FailureReason
	}

	order, err := s.repo.Update(ctx, trimmed, updates)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update order status")
	}

	dto := toDTO(order)
	return &dto, nil
}

func (s *service) SetExternalLedgerID(ctx context.Context, orderID, externalID string) error {
	trimmed := strings.TrimSpace(orderID)
	if trimmed == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	if strings.TrimSpace(externalID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "external ledger id is required")
	}

	if _, err := s.repo.Update(ctx, trimmed, map[string]any{"external_ledger_id": externalID}); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "set external ledger id")
	}
	return nil
}

func (s *service) Stats(ctx context.Context) (*StatsDTO, error) {
	now := s.now().UTC()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	stats, err := s.repo.Stats(ctx, monthStart)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "order stats")
	}
	if stats.CompletedOrders > 0 {
		stats.AverageOrderValue = stats.Revenue.Div(decimal.NewFromInt(stats.CompletedOrders)).Round(2)
	}
	return stats, nil
}

func (s *service) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	deleted, err := s.repo.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete expired orders")
	}
	return deleted, nil
}

// minorToMajor converts provider integer amounts (cents) to major units.
func minorToMajor(minor int64) decimal.Decimal {
	return decimal.New(minor, -2)
}

func toDTO(order *models.Order) OrderDTO {
	return OrderDTO{
		ID:               order.ID,
		OrderID:          order.OrderID,
		PaymentReference: order.PaymentReference,
		CustomerEmail:    order.CustomerEmail,
		CustomerName:     order.CustomerName,
		CatalogID:        order.CatalogID,
		Title:            order.Title,
		Amount:           order.Amount,
		Currency:         order.Currency,
		Status:           order.Status,
		FailureReason:    order.FailureReason,
		AssetReference:   order.AssetReference,
		ExternalLedgerID: order.ExternalLedgerID,
		CreatedAt:        order.CreatedAt,
		UpdatedAt:        order.UpdatedAt,
	}
}
