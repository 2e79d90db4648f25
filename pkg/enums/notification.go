package enums

import "fmt"

// NotificationType labels the in-app notification rows written by the dispatcher.
type NotificationType string

const (
	NotificationTypeDeliveryAvailable NotificationType = "delivery_available"
	NotificationTypeOrderAccepted     NotificationType = "order_accepted"
	NotificationTypeOrderPickedUp     NotificationType = "order_picked_up"
	NotificationTypeOrderDelivered    NotificationType = "order_delivered"
)

var validNotificationTypes = []NotificationType{
	NotificationTypeDeliveryAvailable,
	NotificationTypeOrderAccepted,
	NotificationTypeOrderPickedUp,
	NotificationTypeOrderDelivered,
}

// IsValid checks whether the given type matches the canonical enum.
func (n NotificationType) IsValid() bool {
	for _, candidate := range validNotificationTypes {
		if candidate == n {
			return true
		}
	}
	return false
}

// ParseNotificationType converts raw strings into NotificationType.
func ParseNotificationType(value string) (NotificationType, error) {
	for _, candidate := range validNotificationTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notification type %q", value)
}
