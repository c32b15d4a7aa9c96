package orders

import (
	"context"
	"time"

	"github.com/aurelhart/scoreline-backend/pkg/db/models"
	"github.com/aurelhart/scoreline-backend/pkg/pagination"
	"gorm.io/gorm"
)

// Repository defines persistence operations for the order ledger.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) (*models.Order, error)
	FindByOrderID(ctx context.Context, orderID string) (*models.Order, error)
	FindByPaymentReference(ctx context.Context, ref string) (*models.Order, error)
	ListByCustomer(ctx context.Context, email string, params pagination.Params) ([]models.Order, error)
	Update(ctx context.Context, orderID string, updates map[string]any) (*models.Order, error)
	Stats(ctx context.Context, monthStart time.Time) (*StatsDTO, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
