package credential

import "errors"

var (
	// ErrNotFound is returned when no credential exists at any scope in
	// the resolution walk.
	ErrNotFound = errors.New("credential: not found")

	// ErrInvalidScope is returned when a caller passes a scope outside
	// of ScopeProcessor/ScopeCampaign/ScopeTenant/ScopeSystem.
	ErrInvalidScope = errors.New("credential: invalid scope")

	// ErrDecryptionFailed is returned when a stored credential fails to
	// decrypt under the configured master key — a corrupted row or a
	// key rotation that wasn't accompanied by re-encryption.
	ErrDecryptionFailed = errors.New("credential: decryption failed")
)
