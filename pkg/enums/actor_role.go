package enums

import "fmt"

// ActorRole identifies which kind of principal is acting on an order.
type ActorRole string

const (
	ActorRoleCustomer      ActorRole = "customer"
	ActorRoleSeller        ActorRole = "seller"
	ActorRoleDeliveryAgent ActorRole = "delivery_agent"
	ActorRoleDepotAgent    ActorRole = "depot_agent"
	ActorRoleAdmin         ActorRole = "admin"
)

var validActorRoles = []ActorRole{
	ActorRoleCustomer,
	ActorRoleSeller,
	ActorRoleDeliveryAgent,
	ActorRoleDepotAgent,
	ActorRoleAdmin,
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

// ParseActorRole converts raw input into an ActorRole.
func ParseActorRole(value string) (ActorRole, error) {
	for _, candidate := range validActorRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid actor role %q", value)
}
