package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/aurelhart/scoreline-backend/pkg/enums"
)

// Order is the durable record of a completed or failed purchase. OrderID is the
// external-facing key (defaults to the payment reference) and carries a unique
// index so replayed webhook deliveries cannot produce a second row.
type Order struct {
	ID               uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	OrderID          string            `gorm:"column:order_id;not null;uniqueIndex"`
	PaymentReference string            `gorm:"column:payment_reference;not null;index"`
	CustomerEmail    string            `gorm:"column:customer_email;not null;index"`
	CustomerName     string            `gorm:"column:customer_name"`
	CatalogID        string            `gorm:"column:catalog_id;not null"`
	Title            string            `gorm:"column:title;not null"`
	Amount           decimal.Decimal   `gorm:"column:amount;type:numeric(12,2);not null"`
	Currency         enums.Currency    `gorm:"column:currency;type:text;not null;default:'USD'"`
	Status           enums.OrderStatus `gorm:"column:status;type:text;not null"`
	FailureReason    *string           `gorm:"column:failure_reason"`
	AssetReference   *string           `gorm:"column:asset_reference"`
	ExternalLedgerID *string           `gorm:"column:external_ledger_id"`
	CreatedAt        time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
