package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/relaydrop/relaydrop-backend/pkg/enums"
)

// ProofRecord stores one piece of delivery evidence. Rows are append-only;
// they are removed only when the parent order is deleted.
type ProofRecord struct {
	ID         uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID    uuid.UUID       `gorm:"column:order_id;type:uuid;not null;index"`
	ImageURL   string          `gorm:"column:image_url;not null"`
	UploadedBy enums.ActorRole `gorm:"column:uploaded_by;type:text;not null"`
	CreatedAt  time.Time       `gorm:"column:created_at;autoCreateTime"`
}
