package db

import (
	"context"
	"fmt"

	"github.com/odyssey-erp/odyssey-pm/internal/shared"
)

// TenantFilter appends a tenant predicate on column when ctx is tenant scoped.
// It returns the SQL fragment (empty when unscoped) and the extended args.
func TenantFilter(ctx context.Context, column string, args []any) (string, []any) {
	tenantID, ok := shared.TenantFromContext(ctx)
	if !ok {
		return "", args
	}
	args = append(args, tenantID)
	return fmt.Sprintf(" AND %s = $%d", column, len(args)), args
}

// LimitClause renders a LIMIT placeholder when limit is positive.
func LimitClause(limit int, args []any) (string, []any) {
	if limit <= 0 {
		return "", args
	}
	args = append(args, limit)
	return fmt.Sprintf(" LIMIT $%d", len(args)), args
}
