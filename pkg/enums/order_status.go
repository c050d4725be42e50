package enums

import "fmt"

// OrderStatus tracks where an order sits in the fulfillment lifecycle.
type OrderStatus string

const (
	OrderStatusConfirmed       OrderStatus = "confirmed"
	OrderStatusReadyForPickup  OrderStatus = "ready_for_pickup"
	OrderStatusPickedUp        OrderStatus = "picked_up"
	OrderStatusAtDepot         OrderStatus = "at_depot"
	OrderStatusOutForDelivery  OrderStatus = "out_for_delivery"
	OrderStatusDelivered       OrderStatus = "delivered"
	OrderStatusCanceled        OrderStatus = "canceled"
	OrderStatusRefundRequested OrderStatus = "refund_requested"
	OrderStatusRefunded        OrderStatus = "refunded"
	OrderStatusReturned        OrderStatus = "returned"
	OrderStatusDepotIssue      OrderStatus = "depot_issue"
	OrderStatusDeliveryFailed  OrderStatus = "delivery_failed"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusConfirmed,
	OrderStatusReadyForPickup,
	OrderStatusPickedUp,
	OrderStatusAtDepot,
	OrderStatusOutForDelivery,
	OrderStatusDelivered,
	OrderStatusCanceled,
	OrderStatusRefundRequested,
	OrderStatusRefunded,
	OrderStatusReturned,
	OrderStatusDepotIssue,
	OrderStatusDeliveryFailed,
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

// IsTerminal reports whether the status ends the order lifecycle.
func (s OrderStatus) IsTerminal() bool {
	switch s {
	case OrderStatusDelivered, OrderStatusCanceled, OrderStatusRefunded, OrderStatusReturned:
		return true
	default:
		return false
	}
}

// ParseOrderStatus converts raw input into an OrderStatus.
func ParseOrderStatus(value string) (OrderStatus, error) {
	for _, candidate := range validOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order status %q", value)
}
