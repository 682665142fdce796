package accesskit

import (
	"context"
	"time"

	"github.com/fernandezvara/dbkit"
)

// Transaction runs fn against a store bound to a single database
// transaction. If fn returns an error the transaction is rolled back,
// otherwise it is committed. Nested calls use a savepoint.
//
// Example:
//
//	err := store.Transaction(ctx, func(ctx context.Context, tx accesskit.Backend) error {
//	    if err := tx.CreateRole(ctx, &accesskit.Role{Name: "Admin", Slug: "admin"}); err != nil {
//	        return err // rolls back
//	    }
//	    return nil // commits
//	})
func (s *Store) Transaction(ctx context.Context, fn func(ctx context.Context, tx Backend) error) error {
	return s.run(ctx, fn, func(db *dbkit.DBKit, body func(tx *dbkit.Tx) error) error {
		return db.Transaction(ctx, body)
	})
}

// TransactionWithOptions is Transaction with explicit transaction options.
// Options are ignored for nested transactions.
func (s *Store) TransactionWithOptions(ctx context.Context, opts dbkit.TxOptions, fn func(ctx context.Context, tx Backend) error) error {
	return s.run(ctx, fn, func(db *dbkit.DBKit, body func(tx *dbkit.Tx) error) error {
		return db.TransactionWithOptions(ctx, opts, body)
	})
}

func (s *Store) run(ctx context.Context, fn func(ctx context.Context, tx Backend) error, begin func(db *dbkit.DBKit, body func(tx *dbkit.Tx) error) error) error {
	start := time.Now()
	body := func(tx *dbkit.Tx) error {
		return fn(ctx, s.withDB(tx))
	}

	var err error
	switch db := s.db.(type) {
	case *dbkit.Tx:
		err = db.Transaction(ctx, body)
	case *dbkit.DBKit:
		err = begin(db, body)
	default:
		err = NewError(ErrDatabaseError, "transaction support requires a dbkit.DBKit or dbkit.Tx instance")
	}

	s.txMonitor.recordTransaction(time.Since(start), err == nil)
	return err
}

// ReadOnlyTransaction runs fn inside a read-only transaction.
func (s *Store) ReadOnlyTransaction(ctx context.Context, fn func(ctx context.Context, tx Backend) error) error {
	return s.TransactionWithOptions(ctx, dbkit.ReadOnlyTxOptions(), fn)
}

// TransactionMetrics returns the transaction statistics of the store.
func (s *Store) TransactionMetrics() TransactionMetrics {
	return s.txMonitor.getMetrics()
}

// ResetTransactionMetrics resets the transaction statistics.
func (s *Store) ResetTransactionMetrics() {
	s.txMonitor.reset()
}

// IsTransactionHealthy reports whether transactions fail less than 5% of
// the time and average under a second. Fewer than ten samples count as
// healthy.
func (s *Store) IsTransactionHealthy() bool {
	metrics := s.txMonitor.getMetrics()
	if metrics.TotalTransactions < 10 {
		return true
	}
	failureRate := float64(metrics.FailedTransactions) / float64(metrics.TotalTransactions)
	if failureRate > 0.05 {
		return false
	}
	return metrics.AverageDuration <= time.Second
}
