// Package credential implements hierarchical credential storage and
// resolution: a processor step asks for a credential by key and the
// Vault walks processor -> campaign -> tenant -> system scope until it
// finds an active match, decrypting on the way out and never returning
// a plaintext value the caller could accidentally log.
package credential

import (
	"context"
	"crypto/rand"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/crypto/nacl/secretbox"
)

const nonceSize = 24

// MasterKey is the process-wide secretbox key loaded at boot from
// config.CredentialConfig.MasterKey (32 raw bytes, base64 in config).
type MasterKey [32]byte

// Store is the persistence contract Vault depends on. *Repository
// satisfies it against the real tenant database; tests use a fake.
type Store interface {
	Put(ctx context.Context, c *Credential) error
	Get(ctx context.Context, tenantID string, scope Scope, scopeRef, key string) (*Credential, error)
	TouchLastUsed(ctx context.Context, id string) error
	Delete(ctx context.Context, tenantID string, scope Scope, scopeRef, key string) error
}

// Vault resolves and stores credentials for one tenant database.
type Vault struct {
	repo      Store
	masterKey MasterKey
	logger    *zap.Logger
}

// NewVault constructs a Vault over repo, encrypting with masterKey.
func NewVault(repo Store, masterKey MasterKey, logger *zap.Logger) *Vault {
	return &Vault{
		repo:      repo,
		masterKey: masterKey,
		logger:    logger.With(zap.String("component", "credential-vault")),
	}
}

// Store encrypts plaintext and persists it at the given scope.
func (v *Vault) Store(ctx context.Context, tenantID string, scope Scope, scopeRef, key, plaintext string) error {
	if !scope.Valid() {
		return ErrInvalidScope
	}

	var nonce [nonceSize]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return fmt.Errorf("generate nonce: %w", err)
	}

	sealed := secretbox.Seal(nil, []byte(plaintext), &nonce, (*[32]byte)(&v.masterKey))

	c := &Credential{
		TenantID:       tenantID,
		Scope:          scope,
		ScopeRef:       scopeRef,
		Key:            key,
		EncryptedValue: sealed,
		Nonce:          nonce[:],
	}
	if err := v.repo.Put(ctx, c); err != nil {
		return fmt.Errorf("store credential: %w", err)
	}

	v.logger.Info("credential stored",
		zap.String("tenant_id", tenantID),
		zap.String("scope", string(scope)),
		zap.String("key", key),
	)
	return nil
}

// Resolve walks processor -> campaign -> tenant -> system scope for key,
// returning the first active match. processorSlug and campaignID may be
// empty when the caller has no narrower scope to try (e.g. resolving a
// tenant-level API key outside of any pipeline step).
func (v *Vault) Resolve(ctx context.Context, tenantID, key, processorSlug, campaignID string) (Value, error) {
	candidates := []struct {
		scope    Scope
		scopeRef string
	}{
		{ScopeProcessor, processorSlug},
		{ScopeCampaign, campaignID},
		{ScopeTenant, ""},
		{ScopeSystem, ""},
	}

	for _, cand := range candidates {
		if cand.scope == ScopeProcessor && processorSlug == "" {
			continue
		}
		if cand.scope == ScopeCampaign && campaignID == "" {
			continue
		}

		c, err := v.repo.Get(ctx, tenantID, cand.scope, cand.scopeRef, key)
		if err != nil {
			if err == ErrNotFound {
				continue
			}
			return Value{}, fmt.Errorf("resolve credential %q at scope %s: %w", key, cand.scope, err)
		}

		plaintext, err := v.decrypt(c)
		if err != nil {
			return Value{}, err
		}

		go v.touchLastUsed(c.ID)

		v.logger.Debug("credential resolved",
			zap.String("tenant_id", tenantID),
			zap.String("key", key),
			zap.String("resolved_scope", string(cand.scope)),
		)
		return NewValue(plaintext), nil
	}

	return Value{}, fmt.Errorf("%w: %s", ErrNotFound, key)
}

func (v *Vault) decrypt(c *Credential) (string, error) {
	var nonce [nonceSize]byte
	if len(c.Nonce) != nonceSize {
		return "", fmt.Errorf("%w: unexpected nonce length %d", ErrDecryptionFailed, len(c.Nonce))
	}
	copy(nonce[:], c.Nonce)

	opened, ok := secretbox.Open(nil, c.EncryptedValue, &nonce, (*[32]byte)(&v.masterKey))
	if !ok {
		return "", fmt.Errorf("%w: credential %s", ErrDecryptionFailed, c.ID)
	}
	return string(opened), nil
}

// touchLastUsed is fire-and-forget: resolution must not fail or slow
// down because the bookkeeping update failed.
func (v *Vault) touchLastUsed(id string) {
	ctx := context.Background()
	if err := v.repo.TouchLastUsed(ctx, id); err != nil {
		v.logger.Warn("failed to record credential use", zap.String("credential_id", id), zap.Error(err))
	}
}
