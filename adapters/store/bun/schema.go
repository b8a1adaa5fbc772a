package storebun

import (
	"context"

	"github.com/uptrace/bun"
)

// CreateTables provisions the catalog and tracker schema. Safe to call
// on every startup.
func CreateTables(ctx context.Context, db *bun.DB) error {
	models := []any{
		(*contractModel)(nil),
		(*conflictModel)(nil),
		(*ingestModel)(nil),
		(*reportModel)(nil),
	}
	for _, model := range models {
		if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return err
		}
	}
	return nil
}
