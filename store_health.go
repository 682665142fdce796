package accesskit

import (
	"context"

	"github.com/fernandezvara/dbkit"
)

// Health performs a health check of the database connection, including
// latency and pool statistics when the store owns a *dbkit.DBKit.
func (s *Store) Health(ctx context.Context) dbkit.HealthStatus {
	if db, ok := s.db.(*dbkit.DBKit); ok {
		return db.Health(ctx)
	}

	// Inside a transaction only a basic ping is possible.
	return dbkit.HealthStatus{
		Healthy: s.IsHealthy(ctx),
		Error:   "Limited health check - not a DBKit instance",
	}
}

// IsHealthy reports whether the database is reachable.
func (s *Store) IsHealthy(ctx context.Context) bool {
	if db, ok := s.db.(*dbkit.DBKit); ok {
		return db.IsHealthy(ctx)
	}
	return s.Ping(ctx) == nil
}

// Ping runs a trivial query against the database.
func (s *Store) Ping(ctx context.Context) error {
	var result int
	return dbkit.WithErr1(s.db.NewRaw("SELECT 1").Scan(ctx, &result), "Ping").Err()
}

// PoolStats returns connection pool statistics, or zero values when the
// store is bound to a transaction.
func (s *Store) PoolStats() dbkit.PoolStats {
	if db, ok := s.db.(*dbkit.DBKit); ok {
		return dbkit.PoolStatsFromSQL(db.Stats())
	}
	return dbkit.PoolStats{}
}
