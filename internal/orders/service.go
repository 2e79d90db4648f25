package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/relaydrop/relaydrop-backend/internal/geo"
	"github.com/relaydrop/relaydrop-backend/internal/pricing"
	"github.com/relaydrop/relaydrop-backend/internal/proofs"
	"github.com/relaydrop/relaydrop-backend/pkg/db/models"
	"github.com/relaydrop/relaydrop-backend/pkg/enums"
	pkgerrors "github.com/relaydrop/relaydrop-backend/pkg/errors"
	"github.com/relaydrop/relaydrop-backend/pkg/pagination"
)

// Service owns the order lifecycle: creation, transitions, listing, deletion
// and proof intake.
type Service interface {
	Preview(ctx context.Context, input PreviewInput) (*PreviewResult, error)
	Create(ctx context.Context, input CreateInput) (*CreateResult, error)
	ListStoreOrders(ctx context.Context, input ListInput) (*OrderList, error)
	StoreUpdateStatus(ctx context.Context, input StoreStatusInput) (*OrderView, error)
	DeleteOrder(ctx context.Context, orderID, storeID uuid.UUID) error
	ListDriverOrders(ctx context.Context, input ListInput) (*OrderList, error)
	DriverUpdateStatus(ctx context.Context, input DriverStatusInput) (*OrderView, error)
	UploadProof(ctx context.Context, input UploadProofInput) (*models.ProofRecord, error)
}

type service struct {
	repo       Repository
	tx         txRunner
	stores     storeFinder
	resolver   tripResolver
	gate       proofGate
	dispatcher eventDispatcher
	now        func() time.Time
}

// NewService wires the order lifecycle dependencies.
func NewService(repo Repository, tx txRunner, stores storeFinder, resolver tripResolver, gate proofGate, dispatcher eventDispatcher) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "orders repository required")
	}
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction runner required")
	}
	if stores == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "stores repository required")
	}
	if resolver == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "geo resolver required")
	}
	if gate == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "proof service required")
	}
	if dispatcher == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notification dispatcher required")
	}
	return &service{
		repo:       repo,
		tx:         tx,
		stores:     stores,
		resolver:   resolver,
		gate:       gate,
		dispatcher: dispatcher,
		now:        time.Now,
	}, nil
}

func (s *service) Preview(ctx context.Context, input PreviewInput) (*PreviewResult, error) {
	store, trip, location, err := s.resolveQuote(ctx, input.StoreID, input.DropoffAddress)
	if err != nil {
		return nil, err
	}

	breakdown := pricing.Quote(trip.DistanceKm, input.DeliverBefore, input.DeliverAfter, s.now())

	result := &PreviewResult{
		DistanceKm:    trip.DistanceKm,
		ETAMinutes:    trip.ETAMinutes,
		PricingView:   pricingViewFromBreakdown(breakdown),
		TotalPrice:    breakdown.StorePrice.InexactFloat64(),
		BasePrice:     breakdown.StorePrice.Sub(breakdown.RushFee).InexactFloat64(),
		PickupAddress: store.Address,
		PickupLat:     store.Lat,
		PickupLng:     store.Lng,
		DropoffLat:    location.Point.Lat,
		DropoffLng:    location.Point.Lng,
	}
	return result, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*CreateResult, error) {
	if strings.TrimSpace(input.RecipientName) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "recipient_name is required")
	}
	if strings.TrimSpace(input.RecipientPhone) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "recipient_phone is required")
	}

	store, trip, location, err := s.resolveQuote(ctx, input.StoreID, input.DropoffAddress)
	if err != nil {
		return nil, err
	}

	breakdown := pricing.Quote(trip.DistanceKm, input.DeliverBefore, input.DeliverAfter, s.now())

	order := &models.Order{
		StoreID:        store.ID,
		RecipientName:  strings.TrimSpace(input.RecipientName),
		RecipientPhone: strings.TrimSpace(input.RecipientPhone),
		TagNumber:      input.TagNumber,
		PickupAddress:  store.Address,
		PickupLat:      store.Lat,
		PickupLng:      store.Lng,
		DropoffAddress: location.Address,
		DropoffLat:     location.Point.Lat,
		DropoffLng:     location.Point.Lng,
		DistanceKm:     trip.DistanceKm,
		ETAMinutes:     trip.ETAMinutes,
		DeliverAfter:   input.DeliverAfter,
		DeliverBefore:  input.DeliverBefore,
		Status:         enums.OrderStatusCreated,
		DriverPrice:    breakdown.DriverPrice,
		PlatformProfit: breakdown.PlatformProfit,
		ProfitRaw:      breakdown.ProfitRaw,
		StorePrice:     breakdown.StorePrice,
		RushFee:        breakdown.RushFee,
		RushApplied:    breakdown.RushApplied,
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := repo.Create(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}
		if input.BuzzCode != nil || input.Unit != nil || input.Note != nil {
			instructions := &models.DeliveryInstructions{
				OrderID:  order.ID,
				BuzzCode: input.BuzzCode,
				Unit:     input.Unit,
				Note:     input.Note,
			}
			if err := repo.CreateInstructions(ctx, instructions); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create delivery instructions")
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &CreateResult{
		Success:     true,
		ID:          order.ID,
		DistanceKm:  trip.DistanceKm,
		ETAMinutes:  trip.ETAMinutes,
		PricingView: pricingViewFromBreakdown(breakdown),
		TotalPrice:  breakdown.StorePrice.InexactFloat64(),
		BasePrice:   breakdown.StorePrice.Sub(breakdown.RushFee).InexactFloat64(),
	}, nil
}

func (s *service) resolveQuote(ctx context.Context, storeID uuid.UUID, dropoffAddress string) (*models.Store, *geo.TripEstimate, *geo.Location, error) {
	if strings.TrimSpace(dropoffAddress) == "" {
		return nil, nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "dropoff_address is required")
	}

	store, err := s.stores.FindByID(ctx, storeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, nil, pkgerrors.New(pkgerrors.CodeNotFound, "store not found")
		}
		return nil, nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load store")
	}

	location, trip, err := s.resolver.ResolveTrip(ctx, geo.Coordinate{Lat: store.Lat, Lng: store.Lng}, dropoffAddress)
	if err != nil {
		return nil, nil, nil, err
	}
	return store, trip, location, nil
}

func (s *service) ListStoreOrders(ctx context.Context, input ListInput) (*OrderList, error) {
	if _, err := pagination.ParseCursor(input.Cursor); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, next, err := s.repo.ListByStore(ctx, input.ActorID, pagination.Params{Limit: input.Limit, Cursor: input.Cursor})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return buildOrderList(rows, next), nil
}

func (s *service) ListDriverOrders(ctx context.Context, input ListInput) (*OrderList, error) {
	if _, err := pagination.ParseCursor(input.Cursor); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, next, err := s.repo.ListForDriver(ctx, input.ActorID, pagination.Params{Limit: input.Limit, Cursor: input.Cursor})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return buildOrderList(rows, next), nil
}

func (s *service) StoreUpdateStatus(ctx context.Context, input StoreStatusInput) (*OrderView, error) {
	if input.Target != enums.OrderStatusPreparing && input.Target != enums.OrderStatusReadyForPickup {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "status must be PREPARING or READY_FOR_PICKUP")
	}

	order, err := s.findOrder(ctx, input.OrderID)
	if err != nil {
		return nil, err
	}
	if order.StoreID != input.StoreID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to your store")
	}
	if !order.Status.CanTransitionTo(input.Target) {
		return nil, invalidTransition(order.Status, input.Target)
	}

	rows, err := s.repo.UpdateStatus(ctx, order.ID, order.Status, input.Target)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
	}
	if rows == 0 {
		return nil, pkgerrors.New(pkgerrors.CodePrecondition, "order status changed concurrently, reload and retry")
	}

	order.Status = input.Target
	if input.Target == enums.OrderStatusReadyForPickup {
		s.dispatcher.BroadcastDeliveryAvailable(ctx, order)
	}

	view := orderView(order)
	return &view, nil
}

func (s *service) DeleteOrder(ctx context.Context, orderID, storeID uuid.UUID) error {
	order, err := s.findOrder(ctx, orderID)
	if err != nil {
		return err
	}
	if order.StoreID != storeID {
		return pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to your store")
	}
	if !order.Status.Deletable() {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "orders can only be deleted while CREATED or PREPARING")
	}

	// Dependent rows go first; the aggregate owns them.
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.DeleteProofsByOrderID(ctx, order.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete proof records")
		}
		if err := repo.DeleteInstructionsByOrderID(ctx, order.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete delivery instructions")
		}
		if err := repo.Delete(ctx, order.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete order")
		}
		return nil
	})
}

func (s *service) DriverUpdateStatus(ctx context.Context, input DriverStatusInput) (*OrderView, error) {
	switch input.Target {
	case enums.OrderStatusAccepted:
		return s.accept(ctx, input)
	case enums.OrderStatusPickedUp, enums.OrderStatusDelivered:
		return s.advance(ctx, input)
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "status must be ACCEPTED, PICKED_UP or DELIVERED")
	}
}

// accept claims an unassigned order. The conditional update is the entire
// race-resolution mechanism: the losing driver sees zero rows, never a
// double assignment.
func (s *service) accept(ctx context.Context, input DriverStatusInput) (*OrderView, error) {
	order, err := s.findOrder(ctx, input.OrderID)
	if err != nil {
		return nil, err
	}
	if !order.Status.CanTransitionTo(enums.OrderStatusAccepted) {
		return nil, invalidTransition(order.Status, enums.OrderStatusAccepted)
	}
	if order.DriverID != nil {
		return nil, pkgerrors.New(pkgerrors.CodePrecondition, "order was already accepted by another driver")
	}

	rows, err := s.repo.Claim(ctx, order.ID, input.DriverID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "claim order")
	}
	if rows == 0 {
		return nil, pkgerrors.New(pkgerrors.CodePrecondition, "order was already accepted by another driver")
	}

	order.Status = enums.OrderStatusAccepted
	order.DriverID = &input.DriverID
	s.dispatcher.NotifyStore(ctx, order, enums.NotificationTypeOrderAccepted)

	view := orderView(order)
	return &view, nil
}

func (s *service) advance(ctx context.Context, input DriverStatusInput) (*OrderView, error) {
	order, err := s.findOrder(ctx, input.OrderID)
	if err != nil {
		return nil, err
	}
	if order.DriverID == nil || *order.DriverID != input.DriverID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order is not assigned to you")
	}
	if !order.Status.CanTransitionTo(input.Target) {
		return nil, invalidTransition(order.Status, input.Target)
	}

	if input.Target == enums.OrderStatusDelivered {
		ok, err := s.gate.CanMarkDelivered(ctx, order.ID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, pkgerrors.New(pkgerrors.CodePrecondition,
				fmt.Sprintf("%d proof photos required before delivery", proofs.DriverProofFloor))
		}
	}

	rows, err := s.repo.UpdateStatusForDriver(ctx, order.ID, input.DriverID, order.Status, input.Target)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
	}
	if rows == 0 {
		return nil, pkgerrors.New(pkgerrors.CodePrecondition, "order status changed concurrently, reload and retry")
	}

	order.Status = input.Target
	switch input.Target {
	case enums.OrderStatusPickedUp:
		s.dispatcher.NotifyStore(ctx, order, enums.NotificationTypeOrderPickedUp)
	case enums.OrderStatusDelivered:
		s.dispatcher.NotifyStore(ctx, order, enums.NotificationTypeOrderDelivered)
	}

	view := orderView(order)
	return &view, nil
}

func (s *service) UploadProof(ctx context.Context, input UploadProofInput) (*models.ProofRecord, error) {
	order, err := s.findOrder(ctx, input.OrderID)
	if err != nil {
		return nil, err
	}
	return s.gate.Upload(ctx, proofs.UploadInput{
		Order:    order,
		DriverID: input.DriverID,
		ImageURL: input.ImageURL,
	})
}

func (s *service) findOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

// invalidTransition names the rule that blocked the edge so clients can show
// it verbatim.
func invalidTransition(current, target enums.OrderStatus) error {
	rule := map[enums.OrderStatus]string{
		enums.OrderStatusPreparing:      "must be CREATED first",
		enums.OrderStatusReadyForPickup: "must be PREPARING first",
		enums.OrderStatusAccepted:       "must be READY_FOR_PICKUP first",
		enums.OrderStatusPickedUp:       "must be ACCEPTED first",
		enums.OrderStatusDelivered:      "must be PICKED_UP first",
	}[target]
	if rule == "" {
		rule = "transition not allowed"
	}
	return pkgerrors.New(pkgerrors.CodeStateConflict,
		fmt.Sprintf("cannot move %s order to %s: %s", current, target, rule))
}

func buildOrderList(rows []models.Order, next *pagination.Cursor) *OrderList {
	items := make([]OrderView, 0, len(rows))
	for i := range rows {
		items = append(items, orderView(&rows[i]))
	}
	cursor := ""
	if next != nil {
		cursor = pagination.EncodeCursor(*next)
	}
	return &OrderList{Items: items, Cursor: cursor}
}
