package accesskit

import (
	"github.com/uptrace/bun"

	"github.com/fernandezvara/dbkit"
)

// Store is the database-backed Backend. It integrates with the database
// through dbkit, so every failed query is returned wrapped with the
// operation name and keeps its original type for classification.
//
// Example error handling:
//
//	_, err := store.ListRoles(ctx, userID)
//	if err != nil {
//	    var dbErr *dbkit.Error
//	    if errors.As(err, &dbErr) {
//	        fmt.Printf("Operation: %s, Table: %s\n", dbErr.Operation, dbErr.Table)
//	    }
//	}
type Store struct {
	db        dbkit.IDB
	models    Models
	txMonitor *transactionMonitor
}

var (
	_ Backend          = (*Store)(nil)
	_ Transactor       = (*Store)(nil)
	_ MigrationManager = (*Store)(nil)
	_ HealthMonitor    = (*Store)(nil)
)

// NewStore creates a Store over db. Roles and permissions are read from the
// tables named by models; empty bindings fall back to DefaultModels.
//
// Example:
//
//	db, _ := dbkit.New(dbkit.Config{URL: "postgres://..."})
//	store := accesskit.NewStore(db, accesskit.DefaultModels())
func NewStore(db dbkit.IDB, models Models) *Store {
	d := DefaultModels()
	if models.Role == "" {
		models.Role = d.Role
	}
	if models.Permission == "" {
		models.Permission = d.Permission
	}
	return &Store{
		db:        db,
		models:    models,
		txMonitor: newTransactionMonitor(),
	}
}

// Models returns the table bindings used by the store.
func (s *Store) Models() Models {
	return s.models
}

// withDB returns a copy of the store bound to db, sharing its metrics.
func (s *Store) withDB(db dbkit.IDB) *Store {
	return &Store{
		db:        db,
		models:    s.models,
		txMonitor: s.txMonitor,
	}
}

func (s *Store) roleTable() bun.Ident {
	return bun.Ident(s.models.Role)
}

func (s *Store) permissionTable() bun.Ident {
	return bun.Ident(s.models.Permission)
}

func (s *Store) selectRoles(dest *[]Role) *bun.SelectQuery {
	return s.db.NewSelect().Model(dest).ModelTableExpr("? AS r", s.roleTable())
}

func (s *Store) selectPermissions(dest *[]Permission) *bun.SelectQuery {
	return s.db.NewSelect().Model(dest).ModelTableExpr("? AS p", s.permissionTable())
}
