package shared

import "context"

type tenantContextKey struct{}

// ContextWithTenant scopes ctx to a single tenant organisation.
func ContextWithTenant(ctx context.Context, tenantOrgID int64) context.Context {
	return context.WithValue(ctx, tenantContextKey{}, tenantOrgID)
}

// TenantFromContext returns the tenant organisation bound to ctx. Sweeps run
// unscoped and see every tenant.
func TenantFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(tenantContextKey{}).(int64)
	if !ok || id <= 0 {
		return 0, false
	}
	return id, true
}
