package notifications

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/relaydrop/relaydrop-backend/pkg/db/models"
	"github.com/relaydrop/relaydrop-backend/pkg/enums"
	"github.com/relaydrop/relaydrop-backend/pkg/pagination"
)

type recordingRepo struct {
	mu      sync.Mutex
	rows    []models.Notification
	failure error
}

func (r *recordingRepo) WithTx(tx *gorm.DB) Repository { return r }

func (r *recordingRepo) Create(ctx context.Context, notification *models.Notification) error {
	if r.failure != nil {
		return r.failure
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows = append(r.rows, *notification)
	return nil
}

func (r *recordingRepo) CreateBatch(ctx context.Context, notifications []models.Notification) error {
	if r.failure != nil {
		return r.failure
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows = append(r.rows, notifications...)
	return nil
}

func (r *recordingRepo) List(ctx context.Context, params listNotificationsParams) ([]models.Notification, *pagination.Cursor, error) {
	return nil, nil, nil
}

func (r *recordingRepo) MarkRead(ctx context.Context, recipientID, notificationID uuid.UUID, now time.Time) (notificationMarkResult, error) {
	return notificationMarkResult{}, nil
}

func (r *recordingRepo) MarkAllRead(ctx context.Context, recipientID uuid.UUID, now time.Time) (int64, error) {
	return 0, nil
}

type staticDrivers struct {
	ids []uuid.UUID
	err error
}

func (s staticDrivers) ListActiveIDs(ctx context.Context) ([]uuid.UUID, error) {
	return s.ids, s.err
}

type recordingPublisher struct {
	mu           sync.Mutex
	driverEvents []OrderEvent
	storeEvents  []OrderEvent
	failure      error
}

func (p *recordingPublisher) PublishDriverEvent(ctx context.Context, event OrderEvent) error {
	if p.failure != nil {
		return p.failure
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.driverEvents = append(p.driverEvents, event)
	return nil
}

func (p *recordingPublisher) PublishStoreEvent(ctx context.Context, event OrderEvent) error {
	if p.failure != nil {
		return p.failure
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.storeEvents = append(p.storeEvents, event)
	return nil
}

func testOrder() *models.Order {
	driverID := uuid.New()
	return &models.Order{
		ID:             uuid.New(),
		StoreID:        uuid.New(),
		DriverID:       &driverID,
		RecipientName:  "Alex",
		DropoffAddress: "12 King St W",
		Status:         enums.OrderStatusReadyForPickup,
	}
}

func TestBroadcastDeliveryAvailableFansOutToActiveDrivers(t *testing.T) {
	repo := &recordingRepo{}
	publisher := &recordingPublisher{}
	drivers := staticDrivers{ids: []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}}

	dispatcher := NewDispatcher(repo, drivers, publisher, nil, time.Second)
	dispatcher.BroadcastDeliveryAvailable(context.Background(), testOrder())
	dispatcher.Wait()

	if len(repo.rows) != 3 {
		t.Fatalf("expected 3 notification rows, got %d", len(repo.rows))
	}
	for _, row := range repo.rows {
		if row.RecipientRole != enums.ActorRoleDriver {
			t.Fatalf("expected driver recipient, got %s", row.RecipientRole)
		}
		if row.Type != enums.NotificationTypeDeliveryAvailable {
			t.Fatalf("expected delivery_available, got %s", row.Type)
		}
	}
	if len(publisher.driverEvents) != 1 {
		t.Fatalf("expected one driver event, got %d", len(publisher.driverEvents))
	}
}

func TestNotifyStoreWritesRowAndEvent(t *testing.T) {
	repo := &recordingRepo{}
	publisher := &recordingPublisher{}
	order := testOrder()
	order.Status = enums.OrderStatusAccepted

	dispatcher := NewDispatcher(repo, staticDrivers{}, publisher, nil, time.Second)
	dispatcher.NotifyStore(context.Background(), order, enums.NotificationTypeOrderAccepted)
	dispatcher.Wait()

	if len(repo.rows) != 1 {
		t.Fatalf("expected one notification row, got %d", len(repo.rows))
	}
	row := repo.rows[0]
	if row.RecipientID != order.StoreID {
		t.Fatalf("expected recipient %s, got %s", order.StoreID, row.RecipientID)
	}
	if row.RecipientRole != enums.ActorRoleStore {
		t.Fatalf("expected store recipient, got %s", row.RecipientRole)
	}
	if len(publisher.storeEvents) != 1 {
		t.Fatalf("expected one store event, got %d", len(publisher.storeEvents))
	}
	if publisher.storeEvents[0].DriverID == nil {
		t.Fatal("expected driver id on the store event")
	}
}

func TestDispatchSwallowsFailures(t *testing.T) {
	repo := &recordingRepo{failure: errors.New("db down")}

	dispatcher := NewDispatcher(repo, staticDrivers{}, nil, nil, time.Second)
	// Neither call may panic or surface the failure to the caller.
	dispatcher.NotifyStore(context.Background(), testOrder(), enums.NotificationTypeOrderAccepted)
	dispatcher.BroadcastDeliveryAvailable(context.Background(), testOrder())
	dispatcher.Wait()
}

func TestDispatchSurvivesCallerCancellation(t *testing.T) {
	repo := &recordingRepo{}
	dispatcher := NewDispatcher(repo, staticDrivers{}, nil, nil, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	dispatcher.NotifyStore(ctx, testOrder(), enums.NotificationTypeOrderDelivered)
	dispatcher.Wait()

	if len(repo.rows) != 1 {
		t.Fatalf("expected dispatch to outlive caller cancellation, got %d rows", len(repo.rows))
	}
}
