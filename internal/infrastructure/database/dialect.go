package database

import (
	"fmt"
	"strings"
)

// Dialect SQL方言ごとの差分（プレースホルダ・時刻・位置情報の表現）
// 時刻はリポジトリ側では常にUNIXミリ秒で扱う
type Dialect struct {
	Name string
}

var (
	// PostgresDialect lib/pq + PostGIS
	PostgresDialect = Dialect{Name: "postgres"}
	// SQLiteDialect modernc.org/sqlite
	SQLiteDialect = Dialect{Name: "sqlite"}
)

// IsPostgres PostgreSQL方言かどうか
func (d Dialect) IsPostgres() bool {
	return d.Name == PostgresDialect.Name
}

// Placeholder n番目（1始まり）の引数プレースホルダ
func (d Dialect) Placeholder(n int) string {
	if d.IsPostgres() {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

// Placeholders start番目から count 個のプレースホルダをカンマ区切りで返す
func (d Dialect) Placeholders(start, count int) string {
	ps := make([]string, count)
	for i := range ps {
		ps[i] = d.Placeholder(start + i)
	}
	return strings.Join(ps, ", ")
}

// TimeColumn 時刻カラムをUNIXミリ秒として読む式
func (d Dialect) TimeColumn(col string) string {
	if d.IsPostgres() {
		return fmt.Sprintf("(EXTRACT(EPOCH FROM %s) * 1000)::BIGINT", col)
	}
	return col
}

// TimeParam UNIXミリ秒の引数を時刻カラムへ書く式
func (d Dialect) TimeParam(n int) string {
	if d.IsPostgres() {
		return fmt.Sprintf("to_timestamp(%s::BIGINT / 1000.0)", d.Placeholder(n))
	}
	return d.Placeholder(n)
}

// LocationColumn 位置カラムをWKTとして読む式
func (d Dialect) LocationColumn(col string) string {
	if d.IsPostgres() {
		return fmt.Sprintf("ST_AsText(%s::geometry)", col)
	}
	return col
}
