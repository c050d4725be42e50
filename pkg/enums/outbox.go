package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type enum in Postgres.
type OutboxAggregateType string

const (
	AggregateOrder  OutboxAggregateType = "order"
	AggregatePayout OutboxAggregateType = "payout"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateOrder,
	AggregatePayout,
}

// IsValid reports whether the value matches the canonical aggregate_type enum.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxDLQErrorReason maps to the outbox_dlq_error_reason enum in Postgres.
type OutboxDLQErrorReason string

const (
	DLQReasonNonRetryable OutboxDLQErrorReason = "non_retryable"
	DLQReasonMaxAttempts  OutboxDLQErrorReason = "max_attempts"
)

// IsValid reports whether the value matches the canonical error reason enum.
func (r OutboxDLQErrorReason) IsValid() bool {
	return r == DLQReasonNonRetryable || r == DLQReasonMaxAttempts
}

// OutboxEventType maps to the event_type enum in Postgres.
type OutboxEventType string

const (
	EventOrderPlaced          OutboxEventType = "order_placed"
	EventOrderStatusChanged   OutboxEventType = "order_status_changed"
	EventOrderCanceled        OutboxEventType = "order_canceled"
	EventOrderRefundRequested OutboxEventType = "order_refund_requested"
	EventOrderRefundResolved  OutboxEventType = "order_refund_resolved"
	EventOrderDisputeMessage  OutboxEventType = "order_dispute_message"
	EventOrderDepotCheckedIn  OutboxEventType = "order_depot_checked_in"
	EventOrderDepotDeparted   OutboxEventType = "order_depot_departed"
	EventOrderDiscrepancy     OutboxEventType = "order_discrepancy"
	EventPayoutRecorded       OutboxEventType = "payout_recorded"
)

var validOutboxEventTypes = []OutboxEventType{
	EventOrderPlaced,
	EventOrderStatusChanged,
	EventOrderCanceled,
	EventOrderRefundRequested,
	EventOrderRefundResolved,
	EventOrderDisputeMessage,
	EventOrderDepotCheckedIn,
	EventOrderDepotDeparted,
	EventOrderDiscrepancy,
	EventPayoutRecorded,
}

// IsValid reports whether the value matches the canonical event_type enum.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
