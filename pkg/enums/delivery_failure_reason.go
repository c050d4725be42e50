package enums

import "fmt"

// DeliveryFailureReason is the closed set of causes a delivery agent may report.
type DeliveryFailureReason string

const (
	DeliveryFailureClientAbsent   DeliveryFailureReason = "client_absent"
	DeliveryFailureWrongAddress   DeliveryFailureReason = "wrong_address"
	DeliveryFailurePackageRefused DeliveryFailureReason = "package_refused"
)

var validDeliveryFailureReasons = []DeliveryFailureReason{
	DeliveryFailureClientAbsent,
	DeliveryFailureWrongAddress,
	DeliveryFailurePackageRefused,
}

// String implements fmt.Stringer.
func (r DeliveryFailureReason) String() string {
	return string(r)
}

// IsValid reports whether the value is a known DeliveryFailureReason.
func (r DeliveryFailureReason) IsValid() bool {
	for _, candidate := range validDeliveryFailureReasons {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseDeliveryFailureReason converts raw input into a DeliveryFailureReason.
func ParseDeliveryFailureReason(value string) (DeliveryFailureReason, error) {
	for _, candidate := range validDeliveryFailureReasons {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid delivery failure reason %q", value)
}
