package db

import (
	"context"
	"database/sql"

	_ "embed"

	"github.com/pkg/errors"
)

//go:embed schema.sql
var schemaSQL string

// Migrate applies the embedded schema. Every statement in schema.sql is
// idempotent, so this runs unconditionally on boot.
func Migrate(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, schemaSQL)
	return errors.Wrap(err, "apply schema")
}
