package models

import (
	"time"

	"github.com/google/uuid"
)

// DeliveryInstructions is the optional 1:1 attachment written at order
// creation; it is never updated afterwards.
type DeliveryInstructions struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID   uuid.UUID `gorm:"column:order_id;type:uuid;not null;uniqueIndex"`
	BuzzCode  *string   `gorm:"column:buzz_code"`
	Unit      *string   `gorm:"column:unit"`
	Note      *string   `gorm:"column:note"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}
