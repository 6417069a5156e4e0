package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/wolfeidau/logicore/internal/telemetry"
	"github.com/wolfeidau/logicore/internal/tenant"
)

// ScopedConn is a pooled connection whose tenant settings have been bound for
// a single request. Callers must Release it when done.
type ScopedConn struct {
	conn  *pgxpool.Conn
	scope tenant.Scope
}

// AcquireScoped checks a connection out of the pool and binds the request's
// tenant scope on it. Both settings are written on every checkout, to the
// empty string when a half of the scope is unbound, so a binding left behind
// by a previous request can never leak into this one.
func AcquireScoped(ctx context.Context, pool *pgxpool.Pool, scope tenant.Scope) (*ScopedConn, error) {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire connection: %w", err)
	}

	if err := bindScope(ctx, conn, scope); err != nil {
		telemetry.GetMetrics().ScopedAcquireErrors.Add(ctx, 1)
		// The connection is in an unknown state, destroy it rather than
		// return it to the pool.
		conn.Conn().Close(ctx) //nolint:errcheck
		conn.Release()
		return nil, fmt.Errorf("failed to bind tenant scope: %w", err)
	}

	telemetry.GetMetrics().ScopedAcquireTotal.Add(ctx, 1)

	return &ScopedConn{conn: conn, scope: scope}, nil
}

// Conn returns the underlying pooled connection.
func (s *ScopedConn) Conn() *pgxpool.Conn {
	return s.conn
}

// Scope returns the scope bound on this connection.
func (s *ScopedConn) Scope() tenant.Scope {
	return s.scope
}

// Release clears the tenant settings and returns the connection to the pool.
// If clearing fails the underlying connection is closed so the pool discards
// it instead of handing a still-scoped connection to the next request.
func (s *ScopedConn) Release() {
	ctx := context.Background()

	if err := bindScope(ctx, s.conn, tenant.Scope{}); err != nil {
		log.Warn().Err(err).Msg("failed to clear tenant scope, discarding connection")
		telemetry.GetMetrics().ScopedConnsDiscarded.Add(ctx, 1)
		s.conn.Conn().Close(ctx) //nolint:errcheck
	}

	s.conn.Release()
}

func bindScope(ctx context.Context, conn *pgxpool.Conn, scope tenant.Scope) error {
	var orgID, userID string
	if scope.HasOrg() {
		orgID = scope.OrgID.String()
	}
	if scope.HasUser() {
		userID = scope.UserID.String()
	}

	_, err := conn.Exec(ctx, `
		SELECT set_config('app.current_org_id', $1, false),
		       set_config('app.current_user_id', $2, false)
	`, orgID, userID)
	return err
}
