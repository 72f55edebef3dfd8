package database

import (
	_ "github.com/lib/pq"
)

// PostgresDialect implements Dialect for PostgreSQL. Foreign keys are always enforced, so
// no session setup is needed.
type PostgresDialect struct{}

// NewPostgresDialect creates a new PostgreSQL dialect
func NewPostgresDialect() *PostgresDialect {
	return &PostgresDialect{}
}

func (d *PostgresDialect) DriverName() string { return "postgres" }

func (d *PostgresDialect) DSN(config DialectConfig) string { return config.URL }

// RewriteQuery numbers placeholders as $1, $2, ...
func (d *PostgresDialect) RewriteQuery(query string) string {
	return rewritePlaceholdersToNumbered(query)
}

func (d *PostgresDialect) Pool() PoolLimits { return defaultPool }

func (d *PostgresDialect) SessionStatements() []string { return nil }

func (d *PostgresDialect) MigrationsSubdir() string { return "postgres" }

func (d *PostgresDialect) MigrationsTable() MigrationsTable {
	return MigrationsTable{
		IDType:        "BIGSERIAL PRIMARY KEY",
		FilenameType:  "TEXT",
		TimestampType: "TIMESTAMPTZ",
		Now:           "CURRENT_TIMESTAMP",
	}
}

func (d *PostgresDialect) InsertIgnore(table string, columns []string) string {
	return "INSERT INTO " + insertPrefix(table, columns) + " ON CONFLICT DO NOTHING"
}

func (d *PostgresDialect) Upsert(table, key string, columns []string) string {
	return excludedUpsert(table, key, columns)
}
