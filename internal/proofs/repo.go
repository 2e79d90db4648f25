package proofs

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/relaydrop/relaydrop-backend/pkg/db/models"
	"github.com/relaydrop/relaydrop-backend/pkg/enums"
)

// Repository exposes persistence helpers for proof records.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateUnderCap(ctx context.Context, proof *models.ProofRecord, perOrderCap int) (int64, error)
	CountByRole(ctx context.Context, orderID uuid.UUID, role enums.ActorRole) (int64, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a proofs repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

// CreateUnderCap inserts the proof only while the order holds fewer than
// perOrderCap rows for the uploader's role. The guard lives in the statement
// itself, so two racing uploads resolve to at most the cap; a zero row count
// means the cap was already reached.
func (r *repositoryImpl) CreateUnderCap(ctx context.Context, proof *models.ProofRecord, perOrderCap int) (int64, error) {
	if proof.ID == uuid.Nil {
		proof.ID = uuid.New()
	}
	if proof.CreatedAt.IsZero() {
		proof.CreatedAt = time.Now().UTC()
	}

	result := r.db.WithContext(ctx).Exec(
		`INSERT INTO proof_records (id, order_id, image_url, uploaded_by, created_at)
		 SELECT ?, ?, ?, ?, ?
		 WHERE (SELECT COUNT(*) FROM proof_records WHERE order_id = ? AND uploaded_by = ?) < ?`,
		proof.ID, proof.OrderID, proof.ImageURL, proof.UploadedBy, proof.CreatedAt,
		proof.OrderID, proof.UploadedBy, perOrderCap,
	)
	return result.RowsAffected, result.Error
}

func (r *repositoryImpl) CountByRole(ctx context.Context, orderID uuid.UUID, role enums.ActorRole) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.ProofRecord{}).
		Where("order_id = ? AND uploaded_by = ?", orderID, role).
		Count(&count).Error
	return count, err
}
