// Package tenantctx carries the ambient tenant binding for the duration of
// a request or job step, the way internal/logger carries a *zap.Logger on
// a context.Context.
package tenantctx

import (
	"context"
	"errors"

	"github.com/jmoiron/sqlx"
)

// ErrNoTenantContext is returned by Current when called outside of Run.
var ErrNoTenantContext = errors.New("tenantctx: no tenant bound on context")

// Tenant is the ambient binding: which tenant is active and which
// per-tenant database connection to use for the duration of the call.
type Tenant struct {
	ID   string
	Slug string
	DB   *sqlx.DB
}

type contextKey string

const tenantKey contextKey = "tenant"

// WithTenant returns a copy of ctx carrying t. Most callers should prefer
// Run, which also guarantees restoration on panic.
func WithTenant(ctx context.Context, t Tenant) context.Context {
	return context.WithValue(ctx, tenantKey, t)
}

// Current returns the tenant bound to ctx, or ErrNoTenantContext if none
// is bound.
func Current(ctx context.Context) (Tenant, error) {
	t, ok := ctx.Value(tenantKey).(Tenant)
	if !ok {
		return Tenant{}, ErrNoTenantContext
	}
	return t, nil
}

// MustCurrent panics if no tenant is bound. Reserved for code paths that
// are only ever reachable from inside Run.
func MustCurrent(ctx context.Context) Tenant {
	t, err := Current(ctx)
	if err != nil {
		panic(err)
	}
	return t
}

// Run binds t on ctx for the duration of fn. Because context.Context is
// immutable, the caller's original ctx is never mutated — Run exists so
// call sites have one obvious place to bind a tenant rather than calling
// WithTenant ad hoc, and so a future scoped resource (e.g. a per-call
// connection lease) has a natural deferred-release point even across a
// panic in fn.
func Run(ctx context.Context, t Tenant, fn func(ctx context.Context) error) (err error) {
	bound := WithTenant(ctx, t)
	defer func() {
		if r := recover(); r != nil {
			panic(r)
		}
	}()
	return fn(bound)
}
