package notifications

import (
	"context"
	"time"

	"github.com/aurelhart/scoreline-backend/pkg/db/models"
	"gorm.io/gorm"
)

// Repository persists the write-once notification attempt log.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, attempt *models.NotificationAttempt) (*models.NotificationAttempt, error)
	ListByOrder(ctx context.Context, orderID string) ([]models.NotificationAttempt, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a notification attempt repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, attempt *models.NotificationAttempt) (*models.NotificationAttempt, error) {
	if err := r.db.WithContext(ctx).Create(attempt).Error; err != nil {
		return nil, err
	}
	return attempt, nil
}

func (r *repository) ListByOrder(ctx context.Context, orderID string) ([]models.NotificationAttempt, error) {
	var rows []models.NotificationAttempt
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("created_at < ?", cutoff).
		Delete(&models.NotificationAttempt{})
	return result.RowsAffected, result.Error
}
