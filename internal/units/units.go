// Package units provides the distance units lidar readings can be reported in
package units

import "fmt"

// Unit constants
const (
	M  = "m"
	CM = "cm"
	MM = "mm"
)

// ValidUnits contains all valid unit values
var ValidUnits = []string{M, CM, MM}

// IsValid checks if the given unit is in the list of valid units
func IsValid(unit string) bool {
	for _, validUnit := range ValidUnits {
		if unit == validUnit {
			return true
		}
	}
	return false
}

// GetValidUnitsString returns a comma-separated string of valid units for error messages
func GetValidUnitsString() string {
	return "m, cm, mm"
}

// Scale returns how many of unit make up one metre. The simulation measures
// in metres, so this is the factor applied to every reported reading.
func Scale(unit string) (float64, error) {
	switch unit {
	case M:
		return 1, nil
	case CM:
		return 100, nil
	case MM:
		return 1000, nil
	default:
		return 0, fmt.Errorf("unknown distance unit %q (valid: %s)", unit, GetValidUnitsString())
	}
}

// ConvertDistance converts a reading from one unit to another. Unknown units
// are treated as metres.
func ConvertDistance(v float64, from, to string) float64 {
	f, err := Scale(from)
	if err != nil {
		f = 1
	}
	t, err := Scale(to)
	if err != nil {
		t = 1
	}
	return v / f * t
}
