// Package repository holds the SQL data access layer. Repositories speak
// plain database/sql so the same queries run on MySQL in production and on
// SQLite in tests; every timestamp is bound from Go in UTC.
//
// The sentinel errors below let services distinguish failure scenarios
// without inspecting driver errors. ErrNotFound replaces sql.ErrNoRows,
// ErrDuplicate signals a unique-key violation and ErrStaleSession reports
// that a session row changed underneath a rotation.
package repository

import (
	"database/sql"
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
)

// ErrNotFound is returned when no row matches the lookup, including rows
// that exist but belong to another user or are soft-deleted.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when an insert or update violates a unique
// index. The concrete error is a *DuplicateError naming the key.
var ErrDuplicate = errors.New("duplicate key")

// ErrStaleSession is returned by SessionRepo.Rotate when the row no longer
// holds the expected token, because another refresh rotated it first or it
// was revoked in between.
var ErrStaleSession = errors.New("stale session")

// DuplicateError carries the column of the violated unique index when it
// can be recovered from the driver message ("email", "handle"), or "".
type DuplicateError struct {
	Key string
	Err error
}

func (e *DuplicateError) Error() string {
	if e.Key == "" {
		return "duplicate key"
	}
	return "duplicate " + e.Key
}

func (e *DuplicateError) Unwrap() error { return e.Err }

func (e *DuplicateError) Is(target error) bool { return target == ErrDuplicate }

const mysqlDuplicateEntry = 1062

// translate maps driver errors to the package sentinels.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	var me *mysql.MySQLError
	if errors.As(err, &me) && me.Number == mysqlDuplicateEntry {
		return &DuplicateError{Key: duplicateKey(me.Message), Err: err}
	}
	// SQLite: "UNIQUE constraint failed: users.email"
	if msg := err.Error(); strings.Contains(msg, "UNIQUE constraint failed") {
		return &DuplicateError{Key: duplicateKey(msg), Err: err}
	}
	return err
}

// duplicateKey extracts the column from the index name at the end of the
// driver message, so a duplicated value never influences the result.
func duplicateKey(msg string) string {
	m := strings.ToLower(msg)
	for _, marker := range []string{"for key ", "failed: "} {
		if i := strings.LastIndex(m, marker); i >= 0 {
			m = m[i+len(marker):]
			break
		}
	}
	switch {
	case strings.Contains(m, "email"):
		return "email"
	case strings.Contains(m, "handle"):
		return "handle"
	}
	return ""
}
