package notifications

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/relaydrop/relaydrop-backend/pkg/db/models"
	"github.com/relaydrop/relaydrop-backend/pkg/enums"
	"github.com/relaydrop/relaydrop-backend/pkg/logger"
)

// OrderEvent is the payload pushed to the role-scoped event topics.
type OrderEvent struct {
	Type     enums.NotificationType `json:"type"`
	OrderID  uuid.UUID              `json:"order_id"`
	StoreID  uuid.UUID              `json:"store_id"`
	DriverID *uuid.UUID             `json:"driver_id,omitempty"`
	Status   enums.OrderStatus      `json:"status"`
}

// EventPublisher pushes an event to the external notification provider.
type EventPublisher interface {
	PublishDriverEvent(ctx context.Context, event OrderEvent) error
	PublishStoreEvent(ctx context.Context, event OrderEvent) error
}

// DriverLister yields the drivers eligible for the new-delivery broadcast.
type DriverLister interface {
	ListActiveIDs(ctx context.Context) ([]uuid.UUID, error)
}

// Dispatcher fans out lifecycle events. Every dispatch is fire-and-forget:
// the triggering transition has already committed, so failures here are
// logged and swallowed, never surfaced to the caller.
type Dispatcher struct {
	repo      Repository
	drivers   DriverLister
	publisher EventPublisher
	logg      *logger.Logger
	timeout   time.Duration

	wg sync.WaitGroup
}

// NewDispatcher wires the dispatcher. publisher may be nil when no push
// provider is configured; in-app rows are still written.
func NewDispatcher(repo Repository, drivers DriverLister, publisher EventPublisher, logg *logger.Logger, timeout time.Duration) *Dispatcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Dispatcher{
		repo:      repo,
		drivers:   drivers,
		publisher: publisher,
		logg:      logg,
		timeout:   timeout,
	}
}

// BroadcastDeliveryAvailable notifies every active driver that an order is
// ready for pickup.
func (d *Dispatcher) BroadcastDeliveryAvailable(ctx context.Context, order *models.Order) {
	d.dispatch(ctx, func(ctx context.Context) error {
		driverIDs, err := d.drivers.ListActiveIDs(ctx)
		if err != nil {
			return fmt.Errorf("list active drivers: %w", err)
		}

		rows := make([]models.Notification, 0, len(driverIDs))
		orderID := order.ID
		for _, driverID := range driverIDs {
			rows = append(rows, models.Notification{
				RecipientRole: enums.ActorRoleDriver,
				RecipientID:   driverID,
				OrderID:       &orderID,
				Type:          enums.NotificationTypeDeliveryAvailable,
				Title:         "New delivery available",
				Message:       fmt.Sprintf("A delivery to %s is ready for pickup", order.DropoffAddress),
			})
		}
		if err := d.repo.CreateBatch(ctx, rows); err != nil {
			return fmt.Errorf("persist driver notifications: %w", err)
		}

		if d.publisher != nil {
			event := OrderEvent{
				Type:    enums.NotificationTypeDeliveryAvailable,
				OrderID: order.ID,
				StoreID: order.StoreID,
				Status:  order.Status,
			}
			if err := d.publisher.PublishDriverEvent(ctx, event); err != nil {
				return fmt.Errorf("publish driver event: %w", err)
			}
		}
		return nil
	})
}

// NotifyStore tells the owning store about a driver-side transition.
func (d *Dispatcher) NotifyStore(ctx context.Context, order *models.Order, eventType enums.NotificationType) {
	d.dispatch(ctx, func(ctx context.Context) error {
		orderID := order.ID
		row := models.Notification{
			RecipientRole: enums.ActorRoleStore,
			RecipientID:   order.StoreID,
			OrderID:       &orderID,
			Type:          eventType,
			Title:         storeTitle(eventType),
			Message:       storeMessage(eventType, order),
		}
		if err := d.repo.Create(ctx, &row); err != nil {
			return fmt.Errorf("persist store notification: %w", err)
		}

		if d.publisher != nil {
			event := OrderEvent{
				Type:     eventType,
				OrderID:  order.ID,
				StoreID:  order.StoreID,
				DriverID: order.DriverID,
				Status:   order.Status,
			}
			if err := d.publisher.PublishStoreEvent(ctx, event); err != nil {
				return fmt.Errorf("publish store event: %w", err)
			}
		}
		return nil
	})
}

// Wait blocks until all in-flight dispatches finish. Used in shutdown and tests.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// dispatch runs fn detached from the request lifecycle: the caller's
// cancellation must not abort a notification for a transition that already
// committed.
func (d *Dispatcher) dispatch(ctx context.Context, fn func(ctx context.Context) error) {
	detached := context.WithoutCancel(ctx)
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ctx, cancel := context.WithTimeout(detached, d.timeout)
		defer cancel()
		if err := fn(ctx); err != nil && d.logg != nil {
			d.logg.Error(ctx, "notification dispatch failed", err)
		}
	}()
}

func storeTitle(eventType enums.NotificationType) string {
	switch eventType {
	case enums.NotificationTypeOrderAccepted:
		return "Order accepted"
	case enums.NotificationTypeOrderPickedUp:
		return "Order picked up"
	case enums.NotificationTypeOrderDelivered:
		return "Order delivered"
	default:
		return "Order update"
	}
}

func storeMessage(eventType enums.NotificationType, order *models.Order) string {
	switch eventType {
	case enums.NotificationTypeOrderAccepted:
		return fmt.Sprintf("A driver accepted the delivery for %s", order.RecipientName)
	case enums.NotificationTypeOrderPickedUp:
		return fmt.Sprintf("The delivery for %s was picked up", order.RecipientName)
	case enums.NotificationTypeOrderDelivered:
		return fmt.Sprintf("The delivery for %s was completed", order.RecipientName)
	default:
		return fmt.Sprintf("Order %s was updated", order.ID)
	}
}
