package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/aurelhart/scoreline-backend/pkg/enums"
)

// NotificationAttempt is a write-once log entry for every outbound message the
// dispatcher tried to send. Rows are never updated, only aged out by the
// retention job.
type NotificationAttempt struct {
	ID                uuid.UUID                 `gorm:"column:id;type:uuid;primaryKey"`
	OrderID           string                    `gorm:"column:order_id;not null;index"`
	Channel           enums.NotificationChannel `gorm:"column:channel;type:text;not null"`
	Transport         enums.TransportKind       `gorm:"column:transport;type:text;not null"`
	Recipient         string                    `gorm:"column:recipient;not null"`
	Outcome           enums.NotificationOutcome `gorm:"column:outcome;type:text;not null"`
	ProviderMessageID *string                   `gorm:"column:provider_message_id"`
	ErrorDetail       *string                   `gorm:"column:error_detail"`
	CreatedAt         time.Time                 `gorm:"column:created_at;autoCreateTime;index"`
}
