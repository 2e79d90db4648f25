package enums

import "fmt"

// ActorRole identifies which side of a delivery a principal acts for.
type ActorRole string

const (
	ActorRoleStore  ActorRole = "STORE"
	ActorRoleDriver ActorRole = "DRIVER"
)

var validActorRoles = []ActorRole{
	ActorRoleStore,
	ActorRoleDriver,
}

// String implements fmt.Stringer.
func (r ActorRole) String() string {
	return string(r)
}

// IsValid reports whether the value is a known ActorRole.
func (r ActorRole) IsValid() bool {
	for _, candidate := range validActorRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseActorRole converts raw strings into ActorRole.
func ParseActorRole(value string) (ActorRole, error) {
	for _, candidate := range validActorRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid actor role %q", value)
}
