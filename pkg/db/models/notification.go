package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/relaydrop/relaydrop-backend/pkg/enums"
)

// Notification stores in-app notification payloads for stores and drivers.
type Notification struct {
	ID            uuid.UUID              `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	RecipientRole enums.ActorRole        `gorm:"column:recipient_role;type:text;not null"`
	RecipientID   uuid.UUID              `gorm:"column:recipient_id;type:uuid;not null;index"`
	OrderID       *uuid.UUID             `gorm:"column:order_id;type:uuid"`
	Type          enums.NotificationType `gorm:"column:type;type:text;not null"`
	Title         string                 `gorm:"column:title;type:text;not null"`
	Message       string                 `gorm:"column:message;type:text;not null"`
	ReadAt        *time.Time             `gorm:"column:read_at"`
	CreatedAt     time.Time              `gorm:"column:created_at;autoCreateTime"`
}
