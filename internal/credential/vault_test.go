package credential

import (
	"context"
	"testing"

	"go.uber.org/zap"
)

// fakeStore is an in-memory Store for testing the resolution walk
// without a database.
type fakeStore struct {
	rows map[string]*Credential
}

func newFakeStore() *fakeStore {
	return &fakeStore{rows: make(map[string]*Credential)}
}

func fakeKey(tenantID string, scope Scope, scopeRef, key string) string {
	return tenantID + "|" + string(scope) + "|" + scopeRef + "|" + key
}

func (f *fakeStore) Put(ctx context.Context, c *Credential) error {
	f.rows[fakeKey(c.TenantID, c.Scope, c.ScopeRef, c.Key)] = c
	return nil
}

func (f *fakeStore) Get(ctx context.Context, tenantID string, scope Scope, scopeRef, key string) (*Credential, error) {
	c, ok := f.rows[fakeKey(tenantID, scope, scopeRef, key)]
	if !ok {
		return nil, ErrNotFound
	}
	return c, nil
}

func (f *fakeStore) TouchLastUsed(ctx context.Context, id string) error {
	return nil
}

func (f *fakeStore) Delete(ctx context.Context, tenantID string, scope Scope, scopeRef, key string) error {
	delete(f.rows, fakeKey(tenantID, scope, scopeRef, key))
	return nil
}

func testVault(t *testing.T) (*Vault, *fakeStore) {
	t.Helper()
	store := newFakeStore()
	var masterKey MasterKey
	copy(masterKey[:], []byte("01234567890123456789012345678901"))
	return NewVault(store, masterKey, zap.NewNop()), store
}

func TestVaultStoreAndResolveSameScope(t *testing.T) {
	v, _ := testVault(t)
	ctx := context.Background()

	if err := v.Store(ctx, "tenant-1", ScopeTenant, "", "api-key", "sk-live-123"); err != nil {
		t.Fatalf("Store: %v", err)
	}

	val, err := v.Resolve(ctx, "tenant-1", "api-key", "", "")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if val.Reveal() != "sk-live-123" {
		t.Fatalf("expected sk-live-123, got %q", val.Reveal())
	}
}

func TestVaultResolvePrefersNarrowestScope(t *testing.T) {
	v, _ := testVault(t)
	ctx := context.Background()

	mustStore(t, v, ctx, "tenant-1", ScopeSystem, "", "api-key", "system-value")
	mustStore(t, v, ctx, "tenant-1", ScopeTenant, "", "api-key", "tenant-value")
	mustStore(t, v, ctx, "tenant-1", ScopeCampaign, "camp-1", "api-key", "campaign-value")
	mustStore(t, v, ctx, "tenant-1", ScopeProcessor, "ocr", "api-key", "processor-value")

	val, err := v.Resolve(ctx, "tenant-1", "api-key", "ocr", "camp-1")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if val.Reveal() != "processor-value" {
		t.Fatalf("expected processor-scoped value to win, got %q", val.Reveal())
	}
}

func TestVaultResolveFallsBackWhenNarrowScopeMissing(t *testing.T) {
	v, _ := testVault(t)
	ctx := context.Background()

	mustStore(t, v, ctx, "tenant-1", ScopeTenant, "", "api-key", "tenant-value")

	val, err := v.Resolve(ctx, "tenant-1", "api-key", "ocr", "camp-1")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if val.Reveal() != "tenant-value" {
		t.Fatalf("expected fallback to tenant scope, got %q", val.Reveal())
	}
}

func TestVaultResolveNotFound(t *testing.T) {
	v, _ := testVault(t)
	ctx := context.Background()

	_, err := v.Resolve(ctx, "tenant-1", "api-key", "ocr", "camp-1")
	if err == nil {
		t.Fatal("expected error when no credential exists at any scope")
	}
}

func mustStore(t *testing.T, v *Vault, ctx context.Context, tenantID string, scope Scope, scopeRef, key, value string) {
	t.Helper()
	if err := v.Store(ctx, tenantID, scope, scopeRef, key, value); err != nil {
		t.Fatalf("Store(%s, %s): %v", scope, key, err)
	}
}
