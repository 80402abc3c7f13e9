package db

import "strings"

// IsUniqueViolation reports whether the provided error is a unique
// constraint violation. Both the Postgres and the SQLite (test driver)
// phrasings are recognized. When constraintName is non-empty the error
// must also reference that constraint or column.
func IsUniqueViolation(err error, constraintName string) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	unique := strings.Contains(msg, "duplicate key value") ||
		strings.Contains(msg, "UNIQUE constraint failed")
	if !unique {
		return false
	}
	if constraintName == "" {
		return true
	}
	return strings.Contains(msg, constraintName)
}
