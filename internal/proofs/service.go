package proofs

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/relaydrop/relaydrop-backend/pkg/db/models"
	"github.com/relaydrop/relaydrop-backend/pkg/enums"
	pkgerrors "github.com/relaydrop/relaydrop-backend/pkg/errors"
)

// Two driver photos are required before the delivered edge opens; a third
// upload is rejected outright.
const (
	DriverProofFloor = 2
	DriverProofCap   = 2
)

// Service guards proof-of-delivery evidence.
type Service interface {
	Upload(ctx context.Context, input UploadInput) (*models.ProofRecord, error)
	CanMarkDelivered(ctx context.Context, orderID uuid.UUID) (bool, error)
}

type service struct {
	repo Repository
}

// UploadInput carries one evidence upload attempt. Order is the current
// persisted row; the caller is responsible for having loaded it.
type UploadInput struct {
	Order    *models.Order
	DriverID uuid.UUID
	ImageURL string
}

// NewService wires proof dependencies.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "proofs repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Upload(ctx context.Context, input UploadInput) (*models.ProofRecord, error) {
	if input.Order == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order required")
	}
	if strings.TrimSpace(input.ImageURL) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "image_url required")
	}

	order := input.Order
	if order.DriverID == nil || *order.DriverID != input.DriverID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order is not assigned to you")
	}
	if order.Status != enums.OrderStatusPickedUp {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "proof uploads are only accepted while the order is PICKED_UP")
	}

	proof := &models.ProofRecord{
		OrderID:    order.ID,
		ImageURL:   strings.TrimSpace(input.ImageURL),
		UploadedBy: enums.ActorRoleDriver,
	}
	rows, err := s.repo.CreateUnderCap(ctx, proof, DriverProofCap)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create proof record")
	}
	if rows == 0 {
		return nil, pkgerrors.New(pkgerrors.CodePrecondition, "proof photo limit reached (2 per order)")
	}
	return proof, nil
}

// CanMarkDelivered reports whether the delivered edge's evidence floor holds.
// It is evaluated per transition, independently of the upload cap.
func (s *service) CanMarkDelivered(ctx context.Context, orderID uuid.UUID) (bool, error) {
	count, err := s.repo.CountByRole(ctx, orderID, enums.ActorRoleDriver)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count proof records")
	}
	return count >= DriverProofFloor, nil
}
