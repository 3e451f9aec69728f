package db

import (
	"regexp"
	"strings"

	"gorm.io/gorm"
)

// Supported dialects.
const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"
)

// likeEscaper escapes LIKE wildcards so filter input matches literally.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

var jsonKeyPattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// DialectName returns the dialect behind conn, or "" when unknown.
func DialectName(conn *gorm.DB) string {
	if conn == nil || conn.Dialector == nil {
		return ""
	}
	return conn.Dialector.Name()
}

// IsSQLite reports whether conn talks to SQLite.
func IsSQLite(conn *gorm.DB) bool {
	return DialectName(conn) == DialectSQLite
}

// ContainsFold scopes a query to rows whose column contains needle, ignoring case.
// Wildcards in needle are matched literally.
func ContainsFold(column, needle string) func(*gorm.DB) *gorm.DB {
	return func(tx *gorm.DB) *gorm.DB {
		pattern := "%" + likeEscaper.Replace(strings.ToLower(needle)) + "%"
		if IsSQLite(tx) {
			return tx.Where("LOWER("+column+`) LIKE ? ESCAPE '\'`, pattern)
		}
		return tx.Where(column+` ILIKE ? ESCAPE '\'`, pattern)
	}
}

// JSONFieldEquals scopes a query to rows whose JSON column holds value at key.
// Keys outside [a-z0-9_] match nothing.
func JSONFieldEquals(column, key, value string) func(*gorm.DB) *gorm.DB {
	return func(tx *gorm.DB) *gorm.DB {
		if !jsonKeyPattern.MatchString(key) {
			return tx.Where("1 = 0")
		}
		if IsSQLite(tx) {
			return tx.Where("json_extract("+column+", '$."+key+"') = ?", value)
		}
		return tx.Where(column+"->>'"+key+"' = ?", value)
	}
}
