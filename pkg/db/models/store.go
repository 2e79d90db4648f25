package models

import (
	"time"

	"github.com/google/uuid"
)

// Store represents a sender tenant. Its address doubles as every order's
// pickup point, so the coordinates are resolved once at onboarding.
type Store struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Name      string    `gorm:"column:name;not null"`
	Phone     string    `gorm:"column:phone;not null"`
	Address   string    `gorm:"column:address;not null"`
	Lat       float64   `gorm:"column:lat;not null"`
	Lng       float64   `gorm:"column:lng;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
