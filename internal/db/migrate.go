// Package db owns the relational schema of the generation pipeline.
package db

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema.sql
var Schema string

// Migrate applies the idempotent schema. It runs as one simple-protocol
// batch so multiple statements are accepted.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if pool == nil {
		return fmt.Errorf("migrate: pool is required")
	}
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("migrate: acquire connection: %w", err)
	}
	defer conn.Release()
	if _, err := conn.Conn().PgConn().Exec(ctx, Schema).ReadAll(); err != nil {
		return fmt.Errorf("migrate: apply schema: %w", err)
	}
	return nil
}
