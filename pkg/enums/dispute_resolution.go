package enums

import "fmt"

// DisputeResolution is the admin verdict on a refund request.
type DisputeResolution string

const (
	DisputeResolutionRefunded DisputeResolution = "refunded"
	DisputeResolutionRejected DisputeResolution = "rejected"
)

// IsValid reports whether the value is a known DisputeResolution.
func (r DisputeResolution) IsValid() bool {
	return r == DisputeResolutionRefunded || r == DisputeResolutionRejected
}

// ParseDisputeResolution converts raw input into a DisputeResolution.
func ParseDisputeResolution(value string) (DisputeResolution, error) {
	switch DisputeResolution(value) {
	case DisputeResolutionRefunded:
		return DisputeResolutionRefunded, nil
	case DisputeResolutionRejected:
		return DisputeResolutionRejected, nil
	default:
		return "", fmt.Errorf("invalid dispute resolution %q", value)
	}
}
