package drivers

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/relaydrop/relaydrop-backend/pkg/db/models"
)

// Repository handles driver persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds a GORM DB to driver operations.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// ListActiveIDs returns the IDs of every driver eligible for the
// new-delivery broadcast.
func (r *Repository) ListActiveIDs(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if err := r.db.WithContext(ctx).
		Model(&models.Driver{}).
		Where("active = ?", true).
		Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}
