package tenant

import "fmt"

// ValidateTransition checks if a status transition is valid
func ValidateTransition(from, to Status) error {
	allowed, ok := ValidTransitions[from]
	if !ok {
		return fmt.Errorf("unknown source status: %s", from)
	}

	for _, valid := range allowed {
		if to == valid {
			return nil
		}
	}

	return fmt.Errorf("invalid transition from %s to %s", from, to)
}
