package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

// SQLiteClient ローカル開発・テスト用のSQLiteクライアント
type SQLiteClient struct {
	DB *sql.DB
}

// NewSQLiteClient SQLiteを開く。autoMigrate ならスキーマも適用する
func NewSQLiteClient(ctx context.Context, path string, autoMigrate bool) (*SQLiteClient, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("SQLiteのオープンに失敗: %w", err)
	}
	// :memory: は接続ごとに別DBになるため1接続に固定する
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("SQLiteへの接続に失敗: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("外部キー制約の有効化に失敗: %w", err)
	}

	client := &SQLiteClient{DB: db}
	if autoMigrate {
		if err := client.Migrate(ctx); err != nil {
			db.Close()
			return nil, err
		}
	}

	logrus.WithField("path", path).Info("✅ SQLiteを開きました")
	return client, nil
}

// Dialect SQL方言
func (sc *SQLiteClient) Dialect() Dialect {
	return SQLiteDialect
}

// Migrate テーブルを作成する
func (sc *SQLiteClient) Migrate(ctx context.Context) error {
	return migrate(ctx, sc.DB, sqliteSchemaSQL)
}

// Close データベース接続を閉じる
func (sc *SQLiteClient) Close() error {
	return sc.DB.Close()
}

// HealthCheck データベース接続のヘルスチェック
func (sc *SQLiteClient) HealthCheck(ctx context.Context) error {
	return sc.DB.PingContext(ctx)
}
