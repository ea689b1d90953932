package config

import (
	"encoding/base64"
	"fmt"
)

// CredentialConfig holds configuration for the credential vault's
// encryption-at-rest key.
type CredentialConfig struct {
	// MasterKey is a base64-encoded 32-byte nacl/secretbox key used to
	// seal every credential the vault stores. Rotating it invalidates
	// every existing ciphertext, so it is loaded once at boot and never
	// derived from tenant-controlled input.
	MasterKey string `mapstructure:"master_key" env:"CREDENTIAL_MASTER_KEY"`
}

// Validate checks that MasterKey decodes to exactly 32 bytes.
func (c *CredentialConfig) Validate() error {
	if c.MasterKey == "" {
		return fmt.Errorf("credential master key is required")
	}
	raw, err := base64.StdEncoding.DecodeString(c.MasterKey)
	if err != nil {
		return fmt.Errorf("credential master key must be base64-encoded: %w", err)
	}
	if len(raw) != 32 {
		return fmt.Errorf("credential master key must decode to 32 bytes, got %d", len(raw))
	}
	return nil
}

// DecodedMasterKey decodes MasterKey into a secretbox-sized array.
func (c *CredentialConfig) DecodedMasterKey() ([32]byte, error) {
	var key [32]byte
	raw, err := base64.StdEncoding.DecodeString(c.MasterKey)
	if err != nil {
		return key, fmt.Errorf("decode credential master key: %w", err)
	}
	if len(raw) != 32 {
		return key, fmt.Errorf("credential master key must decode to 32 bytes, got %d", len(raw))
	}
	copy(key[:], raw)
	return key, nil
}
