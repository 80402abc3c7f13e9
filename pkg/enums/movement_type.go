package enums

import "fmt"

// MovementType classifies a stock ledger entry.
type MovementType string

const (
	// MovementTypeIn adds quantity to stock (purchase, reversal).
	MovementTypeIn MovementType = "in"
	// MovementTypeOut removes quantity from stock (sale, reservation).
	MovementTypeOut MovementType = "out"
	// MovementTypeAdjustment sets the absolute quantity (stocktake).
	MovementTypeAdjustment MovementType = "adjustment"
)

var validMovementTypes = []MovementType{
	MovementTypeIn,
	MovementTypeOut,
	MovementTypeAdjustment,
}

// String implements fmt.Stringer.
func (m MovementType) String() string {
	return string(m)
}

// IsValid reports whether the value is a known MovementType.
func (m MovementType) IsValid() bool {
	for _, candidate := range validMovementTypes {
		if candidate == m {
			return true
		}
	}
	return false
}

// ParseMovementType converts raw input into a MovementType.
func ParseMovementType(value string) (MovementType, error) {
	for _, candidate := range validMovementTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid movement type %q", value)
}
