package orders

import (
	"context"
	"time"

	"github.com/aurelhart/scoreline-backend/pkg/db/models"
	"github.com/aurelhart/scoreline-backend/pkg/enums"
	"github.com/aurelhart/scoreline-backend/pkg/pagination"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds an order ledger repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, order *models.Order) (*models.Order, error) {
	if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
		return nil, err
	}
	return order, nil
}

func (r *repository) FindByOrderID(ctx context.Context, orderID string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindByPaymentReference(ctx context.Context, ref string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Where("payment_reference = ?", ref).
		Order("created_at ASC").
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) ListByCustomer(ctx context.Context, email string, params pagination.Params) ([]models.Order, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}

	q := r.db.WithContext(ctx).
		Where("customer_email = ?", email).
		Order("created_at DESC, id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit))
	if cursor != nil {
		q = q.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	var rows []models.Order
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) Update(ctx context.Context, orderID string, updates map[string]any) (*models.Order, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("order_id = ?", orderID).
		Updates(updates)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return r.FindByOrderID(ctx, orderID)
}

func (r *repository) Stats(ctx context.Context, monthStart time.Time) (*StatsDTO, error) {
	var row struct {
		Total          int64
		Completed      int64
		Failed         int64
		Refunded       int64
		Customers      int64
		Revenue        decimal.NullDecimal
		MonthlyRevenue decimal.NullDecimal
	}
	err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Select(`
			COUNT(*) AS total,
			COUNT(CASE WHEN status = ? THEN 1 END) AS completed,
			COUNT(CASE WHEN status = ? THEN 1 END) AS failed,
			COUNT(CASE WHEN status = ? THEN 1 END) AS refunded,
			COUNT(DISTINCT customer_email) AS customers,
			SUM(CASE WHEN status = ? THEN amount ELSE 0 END) AS revenue,
			SUM(CASE WHEN status = ? AND created_at >= ? THEN amount ELSE 0 END) AS monthly_revenue`,
			enums.OrderStatusCompleted, enums.OrderStatusFailed,
			enums.OrderStatusRefunded, enums.OrderStatusCompleted,
			enums.OrderStatusCompleted, monthStart).
		Scan(&row).Error
	if err != nil {
		return nil, err
	}

	revenue := decimal.Zero
	if row.Revenue.Valid {
		revenue = row.Revenue.Decimal
	}
	monthly := decimal.Zero
	if row.MonthlyRevenue.Valid {
		monthly = row.MonthlyRevenue.Decimal
	}
	return &StatsDTO{
		TotalOrders:     row.Total,
		CompletedOrders: row.Completed,
		FailedOrders:    row.Failed,
		RefundedOrders:  row.Refunded,
		UniqueCustomers: row.Customers,
		Revenue:         revenue,
		MonthlyRevenue:  monthly,
	}, nil
}

func (r *repository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("created_at < ?", cutoff).
		Delete(&models.Order{})
	return result.RowsAffected, result.Error
}
