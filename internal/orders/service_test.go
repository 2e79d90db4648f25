package orders

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/relaydrop/relaydrop-backend/internal/geo"
	"github.com/relaydrop/relaydrop-backend/internal/proofs"
	"github.com/relaydrop/relaydrop-backend/pkg/db/models"
	"github.com/relaydrop/relaydrop-backend/pkg/enums"
	pkgerrors "github.com/relaydrop/relaydrop-backend/pkg/errors"
	"github.com/relaydrop/relaydrop-backend/pkg/pagination"
)

type stubRepo struct {
	order *models.Order

	claimRows  int64
	updateRows int64

	claimed     bool
	claimedBy   uuid.UUID
	updatedTo   enums.OrderStatus
	deleted     bool
	proofsGone  bool
	instrGone   bool
	createdRows []*models.Order
}

func (s *stubRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubRepo) Create(ctx context.Context, order *models.Order) (*models.Order, error) {
	order.ID = uuid.New()
	s.createdRows = append(s.createdRows, order)
	return order, nil
}

func (s *stubRepo) CreateInstructions(ctx context.Context, instructions *models.DeliveryInstructions) error {
	return nil
}

func (s *stubRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	if s.order == nil || s.order.ID != id {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *s.order
	return &copied, nil
}

func (s *stubRepo) ListByStore(ctx context.Context, storeID uuid.UUID, params pagination.Params) ([]models.Order, *pagination.Cursor, error) {
	if s.order != nil && s.order.StoreID == storeID {
		return []models.Order{*s.order}, nil, nil
	}
	return nil, nil, nil
}

func (s *stubRepo) ListForDriver(ctx context.Context, driverID uuid.UUID, params pagination.Params) ([]models.Order, *pagination.Cursor, error) {
	return nil, nil, nil
}

func (s *stubRepo) UpdateStatus(ctx context.Context, orderID uuid.UUID, from, to enums.OrderStatus) (int64, error) {
	if s.updateRows > 0 {
		s.updatedTo = to
	}
	return s.updateRows, nil
}

func (s *stubRepo) Claim(ctx context.Context, orderID, driverID uuid.UUID) (int64, error) {
	if s.claimRows > 0 {
		s.claimed = true
		s.claimedBy = driverID
	}
	return s.claimRows, nil
}

func (s *stubRepo) UpdateStatusForDriver(ctx context.Context, orderID, driverID uuid.UUID, from, to enums.OrderStatus) (int64, error) {
	if s.updateRows > 0 {
		s.updatedTo = to
	}
	return s.updateRows, nil
}

func (s *stubRepo) DeleteProofsByOrderID(ctx context.Context, orderID uuid.UUID) error {
	s.proofsGone = true
	return nil
}

func (s *stubRepo) DeleteInstructionsByOrderID(ctx context.Context, orderID uuid.UUID) error {
	s.instrGone = true
	return nil
}

func (s *stubRepo) Delete(ctx context.Context, orderID uuid.UUID) error {
	s.deleted = true
	return nil
}

type stubTx struct{}

func (stubTx) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error { return fn(nil) }

type stubStores struct {
	store *models.Store
}

func (s stubStores) FindByID(ctx context.Context, id uuid.UUID) (*models.Store, error) {
	if s.store == nil || s.store.ID != id {
		return nil, gorm.ErrRecordNotFound
	}
	return s.store, nil
}

type stubResolver struct {
	location *geo.Location
	trip     *geo.TripEstimate
	err      error
}

func (s stubResolver) ResolveTrip(ctx context.Context, pickup geo.Coordinate, dropoffAddress string) (*geo.Location, *geo.TripEstimate, error) {
	if s.err != nil {
		return nil, nil, s.err
	}
	return s.location, s.trip, nil
}

type stubGate struct {
	deliverable bool
	uploaded    *models.ProofRecord
	uploadErr   error
}

func (s *stubGate) Upload(ctx context.Context, input proofs.UploadInput) (*models.ProofRecord, error) {
	if s.uploadErr != nil {
		return nil, s.uploadErr
	}
	return s.uploaded, nil
}

func (s *stubGate) CanMarkDelivered(ctx context.Context, orderID uuid.UUID) (bool, error) {
	return s.deliverable, nil
}

type stubDispatcher struct {
	broadcasts int
	storeTypes []enums.NotificationType
}

func (s *stubDispatcher) BroadcastDeliveryAvailable(ctx context.Context, order *models.Order) {
	s.broadcasts++
}

func (s *stubDispatcher) NotifyStore(ctx context.Context, order *models.Order, eventType enums.NotificationType) {
	s.storeTypes = append(s.storeTypes, eventType)
}

type fixture struct {
	repo       *stubRepo
	stores     stubStores
	resolver   stubResolver
	gate       *stubGate
	dispatcher *stubDispatcher
	svc        *service
}

func newFixture(t *testing.T, order *models.Order) *fixture {
	t.Helper()

	store := &models.Store{
		ID:      uuid.New(),
		Name:    "Relay Pharmacy",
		Phone:   "416-555-0100",
		Address: "100 Queen St W, Toronto",
		Lat:     43.6534,
		Lng:     -79.3841,
	}
	if order != nil {
		order.StoreID = store.ID
	}

	f := &fixture{
		repo:   &stubRepo{order: order, claimRows: 1, updateRows: 1},
		stores: stubStores{store: store},
		resolver: stubResolver{
			location: &geo.Location{
				Address: "12 King St W, Toronto",
				Point:   geo.Coordinate{Lat: 43.6489, Lng: -79.3781},
			},
			trip: &geo.TripEstimate{DistanceKm: 5, ETAMinutes: 12},
		},
		gate:       &stubGate{deliverable: true},
		dispatcher: &stubDispatcher{},
	}

	f.svc = &service{
		repo:       f.repo,
		tx:         stubTx{},
		stores:     f.stores,
		resolver:   f.resolver,
		gate:       f.gate,
		dispatcher: f.dispatcher,
		now:        func() time.Time { return time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC) },
	}
	return f
}

func orderIn(status enums.OrderStatus, driverID *uuid.UUID) *models.Order {
	return &models.Order{
		ID:             uuid.New(),
		DriverID:       driverID,
		RecipientName:  "Alex",
		RecipientPhone: "416-555-0199",
		Status:         status,
	}
}

func expectCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	appErr := pkgerrors.As(err)
	if appErr == nil {
		t.Fatalf("expected typed error with code %s, got %v", code, err)
	}
	if appErr.Code() != code {
		t.Fatalf("expected code %s, got %s: %v", code, appErr.Code(), err)
	}
}

func TestPreviewQuotesTrip(t *testing.T) {
	f := newFixture(t, nil)

	result, err := f.svc.Preview(context.Background(), PreviewInput{
		StoreID:        f.stores.store.ID,
		DropoffAddress: "12 King St W",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.DistanceKm != 5 {
		t.Fatalf("expected 5 km, got %f", result.DistanceKm)
	}
	if result.DriverPrice != 9.00 {
		t.Fatalf("expected driver price 9.00, got %f", result.DriverPrice)
	}
	if result.StorePrice != 13.60 {
		t.Fatalf("expected store price 13.60, got %f", result.StorePrice)
	}
	if result.TotalPrice != result.BasePrice {
		t.Fatal("non-rush preview must have total == base")
	}
	if result.PickupAddress != f.stores.store.Address {
		t.Fatalf("expected pickup address from store, got %q", result.PickupAddress)
	}
}

func TestPreviewGeoFailureAborts(t *testing.T) {
	f := newFixture(t, nil)
	f.resolver = stubResolver{err: pkgerrors.New(pkgerrors.CodeDependency, "geocode request failed")}
	f.svc.resolver = f.resolver

	_, err := f.svc.Preview(context.Background(), PreviewInput{
		StoreID:        f.stores.store.ID,
		DropoffAddress: "nowhere",
	})
	expectCode(t, err, pkgerrors.CodeDependency)
}

func TestCreatePersistsOrderWithQuote(t *testing.T) {
	f := newFixture(t, nil)

	result, err := f.svc.Create(context.Background(), CreateInput{
		StoreID:        f.stores.store.ID,
		RecipientName:  "Alex",
		RecipientPhone: "416-555-0199",
		DropoffAddress: "12 King St W",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Success {
		t.Fatal("expected success flag")
	}

	if len(f.repo.createdRows) != 1 {
		t.Fatalf("expected one created order, got %d", len(f.repo.createdRows))
	}
	created := f.repo.createdRows[0]
	if created.Status != enums.OrderStatusCreated {
		t.Fatalf("new orders must start CREATED, got %s", created.Status)
	}
	if created.DriverID != nil {
		t.Fatal("new orders must be unassigned")
	}
	if created.DropoffAddress != "12 King St W, Toronto" {
		t.Fatalf("expected geocoded dropoff address, got %q", created.DropoffAddress)
	}
	if created.StorePrice.InexactFloat64() != 13.60 {
		t.Fatalf("expected stored quote 13.60, got %s", created.StorePrice)
	}
}

func TestCreateRequiresRecipient(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.svc.Create(context.Background(), CreateInput{
		StoreID:        f.stores.store.ID,
		RecipientPhone: "416-555-0199",
		DropoffAddress: "12 King St W",
	})
	expectCode(t, err, pkgerrors.CodeValidation)

	_, err = f.svc.Create(context.Background(), CreateInput{
		StoreID:        f.stores.store.ID,
		RecipientName:  "Alex",
		DropoffAddress: "12 King St W",
	})
	expectCode(t, err, pkgerrors.CodeValidation)
}

func TestCreateGeoFailurePersistsNothing(t *testing.T) {
	f := newFixture(t, nil)
	f.resolver = stubResolver{err: pkgerrors.New(pkgerrors.CodeDependency, "no route between endpoints")}
	f.svc.resolver = f.resolver

	_, err := f.svc.Create(context.Background(), CreateInput{
		StoreID:        f.stores.store.ID,
		RecipientName:  "Alex",
		RecipientPhone: "416-555-0199",
		DropoffAddress: "12 King St W",
	})
	expectCode(t, err, pkgerrors.CodeDependency)
	if len(f.repo.createdRows) != 0 {
		t.Fatal("no order may be persisted without coordinates")
	}
}

func TestStoreUpdateStatusHappyPath(t *testing.T) {
	order := orderIn(enums.OrderStatusCreated, nil)
	f := newFixture(t, order)

	view, err := f.svc.StoreUpdateStatus(context.Background(), StoreStatusInput{
		OrderID: order.ID,
		StoreID: order.StoreID,
		Target:  enums.OrderStatusPreparing,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if view.Status != enums.OrderStatusPreparing {
		t.Fatalf("expected PREPARING, got %s", view.Status)
	}
	if f.dispatcher.broadcasts != 0 {
		t.Fatal("PREPARING must not broadcast to drivers")
	}
}

func TestStoreReadyForPickupBroadcasts(t *testing.T) {
	order := orderIn(enums.OrderStatusPreparing, nil)
	f := newFixture(t, order)

	_, err := f.svc.StoreUpdateStatus(context.Background(), StoreStatusInput{
		OrderID: order.ID,
		StoreID: order.StoreID,
		Target:  enums.OrderStatusReadyForPickup,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.dispatcher.broadcasts != 1 {
		t.Fatalf("expected one broadcast, got %d", f.dispatcher.broadcasts)
	}
}

func TestStoreUpdateStatusRejectsSkippedEdge(t *testing.T) {
	order := orderIn(enums.OrderStatusCreated, nil)
	f := newFixture(t, order)

	_, err := f.svc.StoreUpdateStatus(context.Background(), StoreStatusInput{
		OrderID: order.ID,
		StoreID: order.StoreID,
		Target:  enums.OrderStatusReadyForPickup,
	})
	expectCode(t, err, pkgerrors.CodeStateConflict)
}

func TestStoreUpdateStatusRejectsDriverTargets(t *testing.T) {
	order := orderIn(enums.OrderStatusReadyForPickup, nil)
	f := newFixture(t, order)

	_, err := f.svc.StoreUpdateStatus(context.Background(), StoreStatusInput{
		OrderID: order.ID,
		StoreID: order.StoreID,
		Target:  enums.OrderStatusAccepted,
	})
	expectCode(t, err, pkgerrors.CodeValidation)
}

func TestStoreUpdateStatusForeignOrderForbidden(t *testing.T) {
	order := orderIn(enums.OrderStatusCreated, nil)
	f := newFixture(t, order)

	_, err := f.svc.StoreUpdateStatus(context.Background(), StoreStatusInput{
		OrderID: order.ID,
		StoreID: uuid.New(),
		Target:  enums.OrderStatusPreparing,
	})
	expectCode(t, err, pkgerrors.CodeForbidden)
}

func TestStoreUpdateStatusUnknownOrder(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.svc.StoreUpdateStatus(context.Background(), StoreStatusInput{
		OrderID: uuid.New(),
		StoreID: f.stores.store.ID,
		Target:  enums.OrderStatusPreparing,
	})
	expectCode(t, err, pkgerrors.CodeNotFound)
}

func TestDriverAcceptClaimsOrder(t *testing.T) {
	order := orderIn(enums.OrderStatusReadyForPickup, nil)
	f := newFixture(t, order)
	driverID := uuid.New()

	view, err := f.svc.DriverUpdateStatus(context.Background(), DriverStatusInput{
		OrderID:  order.ID,
		DriverID: driverID,
		Target:   enums.OrderStatusAccepted,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if view.Status != enums.OrderStatusAccepted {
		t.Fatalf("expected ACCEPTED, got %s", view.Status)
	}
	if !f.repo.claimed || f.repo.claimedBy != driverID {
		t.Fatal("expected conditional claim for the calling driver")
	}
	if len(f.dispatcher.storeTypes) != 1 || f.dispatcher.storeTypes[0] != enums.NotificationTypeOrderAccepted {
		t.Fatalf("expected order_accepted notification, got %v", f.dispatcher.storeTypes)
	}
}

func TestDriverAcceptRaceLoser(t *testing.T) {
	order := orderIn(enums.OrderStatusReadyForPickup, nil)
	f := newFixture(t, order)
	// The conditional update matched zero rows: another driver won.
	f.repo.claimRows = 0

	_, err := f.svc.DriverUpdateStatus(context.Background(), DriverStatusInput{
		OrderID:  order.ID,
		DriverID: uuid.New(),
		Target:   enums.OrderStatusAccepted,
	})
	expectCode(t, err, pkgerrors.CodePrecondition)
	if len(f.dispatcher.storeTypes) != 0 {
		t.Fatal("losing accept must not notify")
	}
}

func TestDriverAcceptAlreadyAssigned(t *testing.T) {
	winner := uuid.New()
	order := orderIn(enums.OrderStatusAccepted, &winner)
	f := newFixture(t, order)

	_, err := f.svc.DriverUpdateStatus(context.Background(), DriverStatusInput{
		OrderID:  order.ID,
		DriverID: uuid.New(),
		Target:   enums.OrderStatusAccepted,
	})
	// ACCEPTED -> ACCEPTED is not an edge; re-issuing is rejected.
	expectCode(t, err, pkgerrors.CodeStateConflict)
}

func TestDriverPickupRequiresAssignee(t *testing.T) {
	assignee := uuid.New()
	order := orderIn(enums.OrderStatusAccepted, &assignee)
	f := newFixture(t, order)

	_, err := f.svc.DriverUpdateStatus(context.Background(), DriverStatusInput{
		OrderID:  order.ID,
		DriverID: uuid.New(),
		Target:   enums.OrderStatusPickedUp,
	})
	expectCode(t, err, pkgerrors.CodeForbidden)
}

func TestDriverPickupHappyPath(t *testing.T) {
	assignee := uuid.New()
	order := orderIn(enums.OrderStatusAccepted, &assignee)
	f := newFixture(t, order)

	view, err := f.svc.DriverUpdateStatus(context.Background(), DriverStatusInput{
		OrderID:  order.ID,
		DriverID: assignee,
		Target:   enums.OrderStatusPickedUp,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if view.Status != enums.OrderStatusPickedUp {
		t.Fatalf("expected PICKED_UP, got %s", view.Status)
	}
}

func TestDriverDeliverRequiresProofFloor(t *testing.T) {
	assignee := uuid.New()
	order := orderIn(enums.OrderStatusPickedUp, &assignee)
	f := newFixture(t, order)
	f.gate.deliverable = false

	_, err := f.svc.DriverUpdateStatus(context.Background(), DriverStatusInput{
		OrderID:  order.ID,
		DriverID: assignee,
		Target:   enums.OrderStatusDelivered,
	})
	expectCode(t, err, pkgerrors.CodePrecondition)
	if f.repo.updatedTo == enums.OrderStatusDelivered {
		t.Fatal("blocked delivery must not update status")
	}
}

func TestDriverDeliverWithProofs(t *testing.T) {
	assignee := uuid.New()
	order := orderIn(enums.OrderStatusPickedUp, &assignee)
	f := newFixture(t, order)

	view, err := f.svc.DriverUpdateStatus(context.Background(), DriverStatusInput{
		OrderID:  order.ID,
		DriverID: assignee,
		Target:   enums.OrderStatusDelivered,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if view.Status != enums.OrderStatusDelivered {
		t.Fatalf("expected DELIVERED, got %s", view.Status)
	}
	if len(f.dispatcher.storeTypes) != 1 || f.dispatcher.storeTypes[0] != enums.NotificationTypeOrderDelivered {
		t.Fatalf("expected order_delivered notification, got %v", f.dispatcher.storeTypes)
	}
}

func TestDriverSkippedEdgeRejected(t *testing.T) {
	assignee := uuid.New()
	order := orderIn(enums.OrderStatusAccepted, &assignee)
	f := newFixture(t, order)

	_, err := f.svc.DriverUpdateStatus(context.Background(), DriverStatusInput{
		OrderID:  order.ID,
		DriverID: assignee,
		Target:   enums.OrderStatusDelivered,
	})
	expectCode(t, err, pkgerrors.CodeStateConflict)
}

func TestDeleteOrderWhileCreated(t *testing.T) {
	order := orderIn(enums.OrderStatusCreated, nil)
	f := newFixture(t, order)

	if err := f.svc.DeleteOrder(context.Background(), order.ID, order.StoreID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !f.repo.deleted || !f.repo.proofsGone || !f.repo.instrGone {
		t.Fatal("expected order and dependents removed")
	}
}

func TestDeleteOrderRejectedOnceAssigned(t *testing.T) {
	for _, status := range []enums.OrderStatus{
		enums.OrderStatusReadyForPickup,
		enums.OrderStatusAccepted,
		enums.OrderStatusPickedUp,
		enums.OrderStatusDelivered,
	} {
		driverID := uuid.New()
		var assignee *uuid.UUID
		if status.Assigned() {
			assignee = &driverID
		}
		order := orderIn(status, assignee)
		f := newFixture(t, order)

		err := f.svc.DeleteOrder(context.Background(), order.ID, order.StoreID)
		expectCode(t, err, pkgerrors.CodeStateConflict)
		if f.repo.deleted {
			t.Fatalf("order in %s must not be deleted", status)
		}
	}
}

func TestDeleteForeignOrderForbidden(t *testing.T) {
	order := orderIn(enums.OrderStatusCreated, nil)
	f := newFixture(t, order)

	err := f.svc.DeleteOrder(context.Background(), order.ID, uuid.New())
	expectCode(t, err, pkgerrors.CodeForbidden)
}

func TestUploadProofDelegatesWithLoadedOrder(t *testing.T) {
	assignee := uuid.New()
	order := orderIn(enums.OrderStatusPickedUp, &assignee)
	f := newFixture(t, order)
	f.gate.uploaded = &models.ProofRecord{OrderID: order.ID, ImageURL: "https://example.com/p.jpg"}

	proof, err := f.svc.UploadProof(context.Background(), UploadProofInput{
		OrderID:  order.ID,
		DriverID: assignee,
		ImageURL: "https://example.com/p.jpg",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if proof.OrderID != order.ID {
		t.Fatalf("expected proof for order %s", order.ID)
	}
}

func TestListRejectsMalformedCursor(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.svc.ListStoreOrders(context.Background(), ListInput{
		ActorID: f.stores.store.ID,
		Cursor:  "!!not-a-cursor!!",
	})
	expectCode(t, err, pkgerrors.CodeValidation)

	_, err = f.svc.ListDriverOrders(context.Background(), ListInput{
		ActorID: uuid.New(),
		Cursor:  "!!not-a-cursor!!",
	})
	expectCode(t, err, pkgerrors.CodeValidation)
}

func TestUploadProofUnknownOrder(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.svc.UploadProof(context.Background(), UploadProofInput{
		OrderID:  uuid.New(),
		DriverID: uuid.New(),
		ImageURL: "https://example.com/p.jpg",
	})
	expectCode(t, err, pkgerrors.CodeNotFound)
}
