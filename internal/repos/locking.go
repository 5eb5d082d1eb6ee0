package repos

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// forUpdate adds a SELECT ... FOR UPDATE clause on dialects that support it.
// The sqlite driver used in tests takes whole-database write locks instead,
// which gives the same check-then-act exclusion within a transaction.
func forUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

// advisoryLock blocks on a transaction-scoped advisory lock on postgres.
// Row locks cannot serialize check-then-act paths whose check matches no
// rows yet; the advisory lock covers those. Released automatically at
// commit or rollback. The sqlite driver used in tests serializes writing
// transactions on a database-level lock already, so the call is a no-op
// there.
func advisoryLock(ctx context.Context, tx *gorm.DB, key int64) error {
	if tx.Dialector.Name() == "sqlite" {
		return nil
	}
	return tx.WithContext(ctx).Exec("SELECT pg_advisory_xact_lock(?)", key).Error
}
