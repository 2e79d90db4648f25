package enums

import "fmt"

// OrderStatus tracks a delivery through its lifecycle. The graph is a straight
// line; no status is ever revisited and DELIVERED is terminal.
//
//	CREATED -> PREPARING -> READY_FOR_PICKUP -> ACCEPTED -> PICKED_UP -> DELIVERED
type OrderStatus string

const (
	OrderStatusCreated        OrderStatus = "CREATED"
	OrderStatusPreparing      OrderStatus = "PREPARING"
	OrderStatusReadyForPickup OrderStatus = "READY_FOR_PICKUP"
	OrderStatusAccepted       OrderStatus = "ACCEPTED"
	OrderStatusPickedUp       OrderStatus = "PICKED_UP"
	OrderStatusDelivered      OrderStatus = "DELIVERED"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusCreated,
	OrderStatusPreparing,
	OrderStatusReadyForPickup,
	OrderStatusAccepted,
	OrderStatusPickedUp,
	OrderStatusDelivered,
}

var nextOrderStatus = map[OrderStatus]OrderStatus{
	OrderStatusCreated:        OrderStatusPreparing,
	OrderStatusPreparing:      OrderStatusReadyForPickup,
	OrderStatusReadyForPickup: OrderStatusAccepted,
	OrderStatusAccepted:       OrderStatusPickedUp,
	OrderStatusPickedUp:       OrderStatusDelivered,
}

// String implements fmt.Stringer.
func (s OrderStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known OrderStatus.
func (s OrderStatus) IsValid() bool {
	for _, candidate := range validOrderStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// CanTransitionTo reports whether target is the single legal successor of s.
// Re-issuing the current status is not a transition and returns false.
func (s OrderStatus) CanTransitionTo(target OrderStatus) bool {
	next, ok := nextOrderStatus[s]
	return ok && next == target
}

// Assigned reports whether an order in this status must carry a driver.
func (s OrderStatus) Assigned() bool {
	switch s {
	case OrderStatusAccepted, OrderStatusPickedUp, OrderStatusDelivered:
		return true
	default:
		return false
	}
}

// Deletable reports whether an order in this status may still be removed. Once
// a driver could plausibly be engaged, deletion is refused.
func (s OrderStatus) Deletable() bool {
	return s == OrderStatusCreated || s == OrderStatusPreparing
}

// ParseOrderStatus converts raw strings into OrderStatus.
func ParseOrderStatus(value string) (OrderStatus, error) {
	for _, candidate := range validOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order status %q", value)
}
