package fulfillment

import (
	"github.com/plazagoods/plaza-backend/pkg/enums"
)

type transitionKey struct {
	From enums.OrderStatus
	To   enums.OrderStatus
}

// transitionTable is the closed legality table: who may move an order from
// where to where. Anything absent is rejected, never silently ignored. The
// admin escape hatch lives in the engine, not here, so the table stays an
// exact record of normal operations.
var transitionTable = map[transitionKey][]enums.ActorRole{
	{From: enums.OrderStatusConfirmed, To: enums.OrderStatusCanceled}:      {enums.ActorRoleCustomer},
	{From: enums.OrderStatusReadyForPickup, To: enums.OrderStatusCanceled}: {enums.ActorRoleCustomer},
	{From: enums.OrderStatusDelivered, To: enums.OrderStatusRefundRequested}: {
		enums.ActorRoleCustomer,
	},

	{From: enums.OrderStatusConfirmed, To: enums.OrderStatusReadyForPickup}: {enums.ActorRoleSeller},

	{From: enums.OrderStatusReadyForPickup, To: enums.OrderStatusPickedUp}: {enums.ActorRoleDeliveryAgent},
	{From: enums.OrderStatusPickedUp, To: enums.OrderStatusAtDepot}: {
		enums.ActorRoleDeliveryAgent,
		enums.ActorRoleDepotAgent,
	},
	{From: enums.OrderStatusAtDepot, To: enums.OrderStatusOutForDelivery}: {
		enums.ActorRoleDeliveryAgent,
		enums.ActorRoleDepotAgent,
	},
	{From: enums.OrderStatusOutForDelivery, To: enums.OrderStatusDelivered}:      {enums.ActorRoleDeliveryAgent},
	{From: enums.OrderStatusOutForDelivery, To: enums.OrderStatusDeliveryFailed}: {enums.ActorRoleDeliveryAgent},

	// pickup-point collection: the depot hands the parcel to the customer and
	// the order skips out_for_delivery entirely
	{From: enums.OrderStatusAtDepot, To: enums.OrderStatusDelivered}:  {enums.ActorRoleDepotAgent},
	{From: enums.OrderStatusAtDepot, To: enums.OrderStatusDepotIssue}: {enums.ActorRoleDepotAgent},
	{From: enums.OrderStatusPickedUp, To: enums.OrderStatusDepotIssue}: {
		enums.ActorRoleDepotAgent,
	},

	{From: enums.OrderStatusRefundRequested, To: enums.OrderStatusRefunded}: {enums.ActorRoleAdmin},
}

// CanTransition reports whether the role may move an order between the two
// statuses under normal (non-forced) rules.
func CanTransition(role enums.ActorRole, from, to enums.OrderStatus) bool {
	allowed, ok := transitionTable[transitionKey{From: from, To: to}]
	if !ok {
		return false
	}
	for _, candidate := range allowed {
		if candidate == role {
			return true
		}
	}
	return false
}
