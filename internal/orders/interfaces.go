package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/relaydrop/relaydrop-backend/internal/geo"
	"github.com/relaydrop/relaydrop-backend/internal/proofs"
	"github.com/relaydrop/relaydrop-backend/pkg/db/models"
	"github.com/relaydrop/relaydrop-backend/pkg/enums"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// tripResolver abstracts the geo pipeline so order flows can be tested
// without a live provider.
type tripResolver interface {
	ResolveTrip(ctx context.Context, pickup geo.Coordinate, dropoffAddress string) (*geo.Location, *geo.TripEstimate, error)
}

// proofGate is the evidence contract consulted at upload time and at the
// delivered edge.
type proofGate interface {
	Upload(ctx context.Context, input proofs.UploadInput) (*models.ProofRecord, error)
	CanMarkDelivered(ctx context.Context, orderID uuid.UUID) (bool, error)
}

// eventDispatcher fans out lifecycle events after a transition commits. Both
// calls are fire-and-forget.
type eventDispatcher interface {
	BroadcastDeliveryAvailable(ctx context.Context, order *models.Order)
	NotifyStore(ctx context.Context, order *models.Order, eventType enums.NotificationType)
}

// storeFinder resolves the caller's store, whose address is the pickup point.
type storeFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Store, error)
}
