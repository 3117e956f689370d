package authgate

import (
	"context"

	"github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

// EnsureSchema creates the users table when it does not exist yet. The
// schema is a single table, so this stands in for a migration runner.
func EnsureSchema(ctx context.Context, db *bun.DB) error {
	_, err := db.NewCreateTable().
		Model((*User)(nil)).
		IfNotExists().
		Exec(ctx)

	if err != nil {
		return errors.Wrap(err, errors.CategoryOperation, "failed to create users table")
	}

	return nil
}
