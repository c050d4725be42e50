package types

import (
	"time"

	"github.com/google/uuid"

	"github.com/plazagoods/plaza-backend/pkg/enums"
)

// VariantSelector is the option set a customer chose, e.g. {"color": "red"}.
type VariantSelector map[string]string

// Discrepancy records an anomaly observed against a parcel at the depot. Advisory
// entries are informational; non-advisory ones accompany a depot_issue transition.
type Discrepancy struct {
	Reason     string    `json:"reason"`
	ReportedBy uuid.UUID `json:"reported_by"`
	ReportedAt time.Time `json:"reported_at"`
	Advisory   bool      `json:"advisory"`
}

// DeliveryFailure captures a structured failed-delivery report.
type DeliveryFailure struct {
	Reason  enums.DeliveryFailureReason `json:"reason"`
	Details string                      `json:"details,omitempty"`
}

// RecipientInfo identifies who collected a pickup-point order.
type RecipientInfo struct {
	Name     string `json:"name"`
	IDNumber string `json:"id_number"`
}

// RefundRequest is the customer claim attached to a disputed order.
type RefundRequest struct {
	Reason       string    `json:"reason"`
	EvidenceURLs []string  `json:"evidence_urls,omitempty"`
	RequestedAt  time.Time `json:"requested_at"`
}
