package database

import (
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteDialect implements Dialect for SQLite, the default single-node store
type SQLiteDialect struct{}

// NewSQLiteDialect creates a new SQLite dialect
func NewSQLiteDialect() *SQLiteDialect {
	return &SQLiteDialect{}
}

func (d *SQLiteDialect) DriverName() string { return "sqlite3" }

// DSN enables foreign keys and a busy timeout on every pooled connection. Concurrent
// completions for different users then wait for the write lock instead of failing.
func (d *SQLiteDialect) DSN(config DialectConfig) string {
	if strings.Contains(config.Path, "?") {
		return config.Path
	}
	return config.Path + "?_foreign_keys=on&_busy_timeout=5000"
}

func (d *SQLiteDialect) RewriteQuery(query string) string { return query }

func (d *SQLiteDialect) Pool() PoolLimits { return defaultPool }

// SessionStatements switches to WAL so readers never block the stats writer
func (d *SQLiteDialect) SessionStatements() []string {
	return []string{"PRAGMA journal_mode=WAL"}
}

func (d *SQLiteDialect) MigrationsSubdir() string { return "sqlite" }

func (d *SQLiteDialect) MigrationsTable() MigrationsTable {
	return MigrationsTable{
		IDType:        "INTEGER PRIMARY KEY AUTOINCREMENT",
		FilenameType:  "TEXT",
		TimestampType: "DATETIME",
		Now:           "CURRENT_TIMESTAMP",
	}
}

func (d *SQLiteDialect) InsertIgnore(table string, columns []string) string {
	return "INSERT OR IGNORE INTO " + insertPrefix(table, columns)
}

func (d *SQLiteDialect) Upsert(table, key string, columns []string) string {
	return excludedUpsert(table, key, columns)
}
