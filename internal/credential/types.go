package credential

import "time"

// Scope is the level at which a credential is bound. Resolution walks
// from the narrowest scope to the widest, returning the first match.
type Scope string

const (
	ScopeProcessor Scope = "processor"
	ScopeCampaign  Scope = "campaign"
	ScopeTenant    Scope = "tenant"
	ScopeSystem    Scope = "system"
)

// scopeOrder is the resolution walk order, narrowest first.
var scopeOrder = []Scope{ScopeProcessor, ScopeCampaign, ScopeTenant, ScopeSystem}

// Valid reports whether s is one of the four recognized scopes.
func (s Scope) Valid() bool {
	switch s {
	case ScopeProcessor, ScopeCampaign, ScopeTenant, ScopeSystem:
		return true
	default:
		return false
	}
}

// Credential is a stored, encrypted secret bound to a scope.
type Credential struct {
	ID             string     `db:"id"`
	TenantID       string     `db:"tenant_id"`
	Scope          Scope      `db:"scope"`
	ScopeRef       string     `db:"scope_ref"` // processor slug, campaign ID, or empty for tenant/system
	Key            string     `db:"key"`
	EncryptedValue []byte     `db:"encrypted_value"`
	Nonce          []byte     `db:"nonce"`
	CreatedAt      time.Time  `db:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at"`
	LastUsedAt     *time.Time `db:"last_used_at"`
}
