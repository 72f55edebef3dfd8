package database

import (
	"database/sql"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Dialect defines the interface for database-specific operations
type Dialect interface {
	// DriverName returns the driver name for sql.Open
	DriverName() string

	// DSN returns the data source name for the connection
	DSN(config DialectConfig) string

	// RewriteQuery converts placeholder syntax if needed (e.g., ? to $1 for postgres)
	RewriteQuery(query string) string

	// Pool returns the connection pool limits
	Pool() PoolLimits

	// SessionStatements run once after the connection is established
	SessionStatements() []string

	// MigrationsSubdir returns the subdirectory name for migrations (e.g., "sqlite", "postgres")
	MigrationsSubdir() string

	// MigrationsTable returns the column types of the migrations tracking table
	MigrationsTable() MigrationsTable

	// InsertIgnore returns an INSERT that silently skips rows violating a unique key
	InsertIgnore(table string, columns []string) string

	// Upsert returns an INSERT that replaces the non-key columns when key already exists
	Upsert(table, key string, columns []string) string
}

// DialectConfig holds configuration for database connection
type DialectConfig struct {
	// For SQLite
	Path string

	// For PostgreSQL/MySQL
	URL string
}

// PoolLimits bounds the sql.DB connection pool
type PoolLimits struct {
	MaxOpen     int
	MaxIdle     int
	MaxLifetime time.Duration
	MaxIdleTime time.Duration
}

var defaultPool = PoolLimits{
	MaxOpen:     25,
	MaxIdle:     5,
	MaxLifetime: 5 * time.Minute,
	MaxIdleTime: time.Minute,
}

func (p PoolLimits) apply(db *sql.DB) {
	db.SetMaxOpenConns(p.MaxOpen)
	db.SetMaxIdleConns(p.MaxIdle)
	db.SetConnMaxLifetime(p.MaxLifetime)
	db.SetConnMaxIdleTime(p.MaxIdleTime)
}

// MigrationsTable holds the dialect-specific column types of the migrations table
type MigrationsTable struct {
	IDType        string
	FilenameType  string
	TimestampType string
	Now           string
}

// DDL renders the CREATE TABLE statement
func (t MigrationsTable) DDL() string {
	return "CREATE TABLE IF NOT EXISTS migrations (" +
		"id " + t.IDType + ", " +
		"filename " + t.FilenameType + " UNIQUE NOT NULL, " +
		"executed_at " + t.TimestampType + " DEFAULT " + t.Now +
		")"
}

// placeholderRegexp matches ? placeholders
var placeholderRegexp = regexp.MustCompile(`\?`)

// rewritePlaceholdersToNumbered converts ? placeholders to $1, $2, etc.
func rewritePlaceholdersToNumbered(query string) string {
	counter := 0
	return placeholderRegexp.ReplaceAllStringFunc(query, func(match string) string {
		counter++
		return "$" + strconv.Itoa(counter)
	})
}

// insertPrefix builds "table (a, b) VALUES (?, ?)"
func insertPrefix(table string, columns []string) string {
	marks := strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ")
	return table + " (" + strings.Join(columns, ", ") + ") VALUES (" + marks + ")"
}

// updateAssignments builds "c = <ref>(c)" style assignments for every non-key column
func updateAssignments(key string, columns []string, ref func(col string) string) string {
	var sets []string
	for _, col := range columns {
		if col == key {
			continue
		}
		sets = append(sets, col+" = "+ref(col))
	}
	return strings.Join(sets, ", ")
}

// excludedUpsert is the ON CONFLICT form shared by SQLite and PostgreSQL
func excludedUpsert(table, key string, columns []string) string {
	return "INSERT INTO " + insertPrefix(table, columns) +
		" ON CONFLICT (" + key + ") DO UPDATE SET " +
		updateAssignments(key, columns, func(col string) string { return "excluded." + col })
}
