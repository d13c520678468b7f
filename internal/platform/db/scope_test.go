package db

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-pm/internal/shared"
)

func TestTenantFilterUnscoped(t *testing.T) {
	clause, args := TenantFilter(context.Background(), "l.tenant_org_id", []any{1})
	require.Empty(t, clause)
	require.Equal(t, []any{1}, args)
}

func TestTenantFilterScoped(t *testing.T) {
	ctx := shared.ContextWithTenant(context.Background(), 9)
	clause, args := TenantFilter(ctx, "l.tenant_org_id", []any{"x"})
	require.Equal(t, " AND l.tenant_org_id = $2", clause)
	require.Equal(t, []any{"x", int64(9)}, args)
}

func TestLimitClause(t *testing.T) {
	clause, args := LimitClause(0, nil)
	require.Empty(t, clause)
	require.Empty(t, args)

	clause, args = LimitClause(50, []any{int64(3)})
	require.Equal(t, " LIMIT $2", clause)
	require.Equal(t, []any{int64(3), 50}, args)
}

func TestIsUniqueViolation(t *testing.T) {
	require.True(t, IsUniqueViolation(fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"})))
	require.False(t, IsUniqueViolation(&pgconn.PgError{Code: "23503"}))
	require.False(t, IsUniqueViolation(errors.New("boom")))
}
