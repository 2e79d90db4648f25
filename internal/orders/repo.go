package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/relaydrop/relaydrop-backend/pkg/db/models"
	"github.com/relaydrop/relaydrop-backend/pkg/enums"
	"github.com/relaydrop/relaydrop-backend/pkg/pagination"
)

// Repository defines persistence operations for delivery orders.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) (*models.Order, error)
	CreateInstructions(ctx context.Context, instructions *models.DeliveryInstructions) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	ListByStore(ctx context.Context, storeID uuid.UUID, params pagination.Params) ([]models.Order, *pagination.Cursor, error)
	ListForDriver(ctx context.Context, driverID uuid.UUID, params pagination.Params) ([]models.Order, *pagination.Cursor, error)
	UpdateStatus(ctx context.Context, orderID uuid.UUID, from, to enums.OrderStatus) (int64, error)
	Claim(ctx context.Context, orderID, driverID uuid.UUID) (int64, error)
	UpdateStatusForDriver(ctx context.Context, orderID, driverID uuid.UUID, from, to enums.OrderStatus) (int64, error)
	DeleteProofsByOrderID(ctx context.Context, orderID uuid.UUID) error
	DeleteInstructionsByOrderID(ctx context.Context, orderID uuid.UUID) error
	Delete(ctx context.Context, orderID uuid.UUID) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
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

func (r *repository) CreateInstructions(ctx context.Context, instructions *models.DeliveryInstructions) error {
	return r.db.WithContext(ctx).Create(instructions).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Proofs", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Preload("Instructions").
		Preload("Driver").
		Preload("Store").
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) ListByStore(ctx context.Context, storeID uuid.UUID, params pagination.Params) ([]models.Order, *pagination.Cursor, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Preload("Proofs", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Preload("Instructions").
		Preload("Driver").
		Where("store_id = ?", storeID)

	return r.page(query, params)
}

// ListForDriver returns the driver's work queue: unclaimed READY_FOR_PICKUP
// orders plus the caller's own in-flight assignments.
func (r *repository) ListForDriver(ctx context.Context, driverID uuid.UUID, params pagination.Params) ([]models.Order, *pagination.Cursor, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Preload("Proofs", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Preload("Instructions").
		Preload("Store").
		Where(
			"(status = ? AND driver_id IS NULL) OR (driver_id = ? AND status IN ?)",
			enums.OrderStatusReadyForPickup,
			driverID,
			[]enums.OrderStatus{enums.OrderStatusAccepted, enums.OrderStatusPickedUp},
		)

	return r.page(query, params)
}

func (r *repository) page(query *gorm.DB, params pagination.Params) ([]models.Order, *pagination.Cursor, error) {
	limit := pagination.LimitWithBuffer(params.Limit)
	normalized := pagination.NormalizeLimit(params.Limit)

	if params.Cursor != "" {
		cursor, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, nil, err
		}
		if cursor != nil {
			query = query.Where("(created_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID)
		}
	}

	var rows []models.Order
	if err := query.Order("created_at DESC, id DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, nil, err
	}

	if len(rows) > normalized {
		next := rows[normalized]
		rows = rows[:normalized]
		return rows, &pagination.Cursor{CreatedAt: next.CreatedAt, ID: next.ID}, nil
	}
	return rows, nil, nil
}

// UpdateStatus flips from -> to in a single conditional UPDATE. A zero row
// count means the order moved on under the caller's feet.
func (r *repository) UpdateStatus(ctx context.Context, orderID uuid.UUID, from, to enums.OrderStatus) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status = ?", orderID, from).
		Update("status", to)
	return result.RowsAffected, result.Error
}

// Claim atomically assigns the order to the driver. The WHERE guard makes two
// racing accepts resolve to exactly one winner; the loser observes zero rows.
func (r *repository) Claim(ctx context.Context, orderID, driverID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status = ? AND driver_id IS NULL", orderID, enums.OrderStatusReadyForPickup).
		Updates(map[string]any{
			"status":    enums.OrderStatusAccepted,
			"driver_id": driverID,
		})
	return result.RowsAffected, result.Error
}

// UpdateStatusForDriver is UpdateStatus with an assignee guard, so a stale or
// foreign driver can never advance the order.
func (r *repository) UpdateStatusForDriver(ctx context.Context, orderID, driverID uuid.UUID, from, to enums.OrderStatus) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status = ? AND driver_id = ?", orderID, from, driverID).
		Update("status", to)
	return result.RowsAffected, result.Error
}

func (r *repository) DeleteProofsByOrderID(ctx context.Context, orderID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Delete(&models.ProofRecord{}).Error
}

func (r *repository) DeleteInstructionsByOrderID(ctx context.Context, orderID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Delete(&models.DeliveryInstructions{}).Error
}

func (r *repository) Delete(ctx context.Context, orderID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("id = ?", orderID).
		Delete(&models.Order{}).Error
}
