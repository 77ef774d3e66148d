// Package tenant carries the execution context for all remote calls.
//
// In a consortial deployment one request may need to act inside several
// member tenants. The context is an immutable value snapshot that travels
// explicitly with every dispatched unit of work, so a worker processing a
// tenant-X chunk can never observe another worker's tenant-Y switch.
package tenant

import "context"

// Context identifies who is acting and where.
// Values are copied, never shared; switching tenants produces a new Context.
type Context struct {
	TenantID string
	UserID   string
	Token    string
	BaseURL  string
}

// With returns a copy of the context pointed at another tenant.
// The receiver is untouched, so the caller's context survives any
// nested switches unchanged.
func (c Context) With(tenantID string) Context {
	c.TenantID = tenantID
	return c
}

// InTenant runs fn against a copy of the context switched to tenantID.
// The original context is restored implicitly on every exit path,
// including a panic inside fn, because the switch never mutates the
// caller's value.
func (c Context) InTenant(tenantID string, fn func(Context) error) error {
	return fn(c.With(tenantID))
}

type contextKey string

const ctxKeyExecution contextKey = "execution_context"

// NewContext attaches an execution context to a context.Context.
// Used by the HTTP layer to hand tenant/user identity to the core.
func NewContext(ctx context.Context, tc Context) context.Context {
	return context.WithValue(ctx, ctxKeyExecution, tc)
}

// FromContext extracts the execution context, if any.
func FromContext(ctx context.Context) (Context, bool) {
	tc, ok := ctx.Value(ctxKeyExecution).(Context)
	return tc, ok
}
