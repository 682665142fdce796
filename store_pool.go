package accesskit

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/fernandezvara/dbkit"
)

// PoolConfig holds connection pool settings.
type PoolConfig struct {
	MaxOpenConnections    int           `mapstructure:"max_open_connections"`
	MaxIdleConnections    int           `mapstructure:"max_idle_connections"`
	ConnectionMaxLifetime time.Duration `mapstructure:"connection_max_lifetime"`
	ConnectionMaxIdleTime time.Duration `mapstructure:"connection_max_idle_time"`
}

// DefaultPoolConfig returns pool settings suited to a typical service.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		MaxOpenConnections:    25,
		MaxIdleConnections:    5,
		ConnectionMaxLifetime: 30 * time.Minute,
		ConnectionMaxIdleTime: 5 * time.Minute,
	}
}

// ConfigurePool applies pool settings to the underlying connection.
func (s *Store) ConfigurePool(config PoolConfig, logger zerolog.Logger) error {
	db, ok := s.db.(*dbkit.DBKit)
	if !ok {
		return NewError(ErrDatabaseError, "connection pool configuration requires a dbkit.DBKit instance")
	}
	bunDB := db.Bun()
	if bunDB == nil {
		return NewError(ErrDatabaseError, "database instance not available")
	}

	bunDB.SetMaxOpenConns(config.MaxOpenConnections)
	bunDB.SetMaxIdleConns(config.MaxIdleConnections)
	bunDB.SetConnMaxLifetime(config.ConnectionMaxLifetime)
	bunDB.SetConnMaxIdleTime(config.ConnectionMaxIdleTime)

	logger.Info().
		Int("max_open", config.MaxOpenConnections).
		Int("max_idle", config.MaxIdleConnections).
		Dur("max_lifetime", config.ConnectionMaxLifetime).
		Dur("max_idle_time", config.ConnectionMaxIdleTime).
		Msg("connection pool configured")
	return nil
}
