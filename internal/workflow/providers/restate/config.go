package restate

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
)

// normalizeServiceName converts a workflow ID (kebab-case) to a PascalCase service name
// Restate services typically use PascalCase naming convention
func normalizeServiceName(workflowID string) string {
	if workflowID == "" {
		return ""
	}

	// Convert kebab-case to PascalCase
	// Example: "tenant-provisioning" -> "TenantProvisioning"
	var result string
	capitalizeNext := true

	for _, ch := range workflowID {
		if ch == '-' {
			capitalizeNext = true
		} else if capitalizeNext {
			result += string(ch - 32) // Convert to uppercase
			capitalizeNext = false
		} else {
			result += string(ch)
		}
	}

	return result
}

// generateExecutionID generates a unique execution ID
func generateExecutionID(workflowID string) string {
	// Format: <workflow-id>-<random hex>
	return fmt.Sprintf("%s-%x", workflowID, getRandomBytes())
}

// getRandomBytes returns a random value read from crypto/rand
func getRandomBytes() uint32 {
	var b [4]byte
	_, _ = rand.Read(b[:])
	return binary.BigEndian.Uint32(b[:])
}
