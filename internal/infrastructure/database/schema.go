package database

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
)

//go:embed schema/postgres.sql
var postgresSchemaSQL string

//go:embed schema/sqlite.sql
var sqliteSchemaSQL string

// migrate はスキーマSQLを実行する（CREATE ... IF NOT EXISTS のみ）
func migrate(ctx context.Context, db *sql.DB, schema string) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("スキーマの適用に失敗: %w", err)
	}
	return nil
}
