package database

import (
	"strings"

	_ "github.com/go-sql-driver/mysql"
)

// MySQLDialect implements Dialect for MySQL
type MySQLDialect struct{}

// NewMySQLDialect creates a new MySQL dialect
func NewMySQLDialect() *MySQLDialect {
	return &MySQLDialect{}
}

func (d *MySQLDialect) DriverName() string { return "mysql" }

// DSN adds parseTime so DATETIME columns scan into time.Time
func (d *MySQLDialect) DSN(config DialectConfig) string {
	dsn := config.URL
	switch {
	case strings.Contains(dsn, "parseTime="):
		return dsn
	case strings.Contains(dsn, "?"):
		return dsn + "&parseTime=true"
	default:
		return dsn + "?parseTime=true"
	}
}

// RewriteQuery is the identity; MySQL takes ? placeholders
func (d *MySQLDialect) RewriteQuery(query string) string { return query }

func (d *MySQLDialect) Pool() PoolLimits { return defaultPool }

func (d *MySQLDialect) SessionStatements() []string {
	return []string{"SET FOREIGN_KEY_CHECKS = 1"}
}

func (d *MySQLDialect) MigrationsSubdir() string { return "mysql" }

func (d *MySQLDialect) MigrationsTable() MigrationsTable {
	return MigrationsTable{
		IDType:        "BIGINT AUTO_INCREMENT PRIMARY KEY",
		FilenameType:  "VARCHAR(255)",
		TimestampType: "DATETIME(6)",
		Now:           "CURRENT_TIMESTAMP(6)",
	}
}

func (d *MySQLDialect) InsertIgnore(table string, columns []string) string {
	return "INSERT IGNORE INTO " + insertPrefix(table, columns)
}

// Upsert uses ON DUPLICATE KEY, which matches any unique key rather than only key
func (d *MySQLDialect) Upsert(table, key string, columns []string) string {
	return "INSERT INTO " + insertPrefix(table, columns) +
		" ON DUPLICATE KEY UPDATE " +
		updateAssignments(key, columns, func(col string) string { return "VALUES(" + col + ")" })
}
