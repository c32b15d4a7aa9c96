package orders

import (
	"time"

	"github.com/aurelhart/scoreline-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreateOrderInput carries everything needed to persist one purchase.
// AmountMinorUnits is the provider's integer amount; the ledger stores
// major units.
type CreateOrderInput struct {
	OrderID          string
	PaymentReference string
	CustomerEmail    string
	CustomerName     string
	CatalogID        string
	Title            string
	AmountMinorUnits int64
	Currency         string
	Status           enums.OrderStatus
	FailureReason    *string
	AssetReference   *string
}

// UpdateStatusInput captures an administrative status mutation.
type UpdateStatusInput struct {
	Status        enums.OrderStatus
	FailureReason *string
}

// OrderDTO is the order representation returned to callers.
type OrderDTO struct {
	ID               uuid.UUID         `json:"id"`
	OrderID          string            `json:"order_id"`
	PaymentReference string            `json:"payment_reference"`
	CustomerEmail    string            `json:"customer_email"`
	CustomerName     string            `json:"customer_name,omitempty"`
	CatalogID        string            `json:"catalog_id"`
	Title            string            `json:"title"`
	Amount           decimal.Decimal   `json:"amount"`
	Currency         enums.Currency    `json:"currency"`
	Status           enums.OrderStatus `json:"status"`
	FailureReason    *string           `json:"failure_reason,omitempty"`
	AssetReference   *string           `json:"asset_reference,omitempty"`
	ExternalLedgerID *string           `json:"external_ledger_id,omitempty"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

// OrderList wraps a page of orders plus the next page cursor.
type OrderList struct {
	Orders     []OrderDTO `json:"orders"`
	NextCursor string     `json:"next_cursor,omitempty"`
}

// StatsDTO aggregates revenue and count figures across the ledger. Revenue
// figures count completed orders only.
type StatsDTO struct {
	TotalOrders       int64           `json:"total_orders"`
	CompletedOrders   int64           `json:"completed_orders"`
	FailedOrders      int64           `json:"failed_orders"`
	RefundedOrders    int64           `json:"refunded_orders"`
	UniqueCustomers   int64           `json:"unique_customers"`
	Revenue           decimal.Decimal `json:"revenue"`
	MonthlyRevenue    decimal.Decimal `json:"monthly_revenue"`
	AverageOrderValue decimal.Decimal `json:"average_order_value"`
}
