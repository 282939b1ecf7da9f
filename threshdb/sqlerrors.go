package threshdb

import (
	"errors"
	"fmt"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgerrcode"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

var (
	// ErrRetriesExceeded is returned when a transaction kept failing with
	// serialization errors until the retry budget ran out.
	ErrRetriesExceeded = errors.New("db tx retries exceeded")
)

// errorClass is the backend independent category of a database error.
type errorClass uint8

const (
	classUnknown errorClass = iota
	classUniqueViolation
	classSerialization
)

// sqliteClasses maps the extended sqlite result codes we act upon.
var sqliteClasses = map[int]errorClass{
	sqlite3.SQLITE_CONSTRAINT_UNIQUE:     classUniqueViolation,
	sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY: classUniqueViolation,
	sqlite3.SQLITE_BUSY:                  classSerialization,
}

// postgresClasses maps the postgres SQLSTATE codes we act upon.
var postgresClasses = map[string]errorClass{
	pgerrcode.UniqueViolation:      classUniqueViolation,
	pgerrcode.SerializationFailure: classSerialization,
}

// MapSQLError turns a driver specific error into one of the backend
// independent error types of this package. Errors that don't come from a
// known driver are returned unchanged.
func MapSQLError(err error) error {
	var (
		class  errorClass
		driver string
		dbErr  error
	)

	var sqliteErr *sqlite.Error
	var pgErr *pgconn.PgError
	switch {
	case errors.As(err, &sqliteErr):
		class, driver, dbErr = sqliteClasses[sqliteErr.Code()],
			"sqlite", sqliteErr

	case errors.As(err, &pgErr):
		class, driver, dbErr = postgresClasses[pgErr.Code],
			"postgres", pgErr

	default:
		return err
	}

	switch class {
	case classUniqueViolation:
		return &ErrSqlUniqueConstraintViolation{DbError: dbErr}

	case classSerialization:
		return &ErrSerializationError{DbError: dbErr}

	default:
		return fmt.Errorf("unknown %s error: %w", driver, dbErr)
	}
}

// ErrSqlUniqueConstraintViolation is returned when an insert collides with an
// existing primary key or unique index.
type ErrSqlUniqueConstraintViolation struct {
	DbError error
}

// Error returns the error message.
func (e ErrSqlUniqueConstraintViolation) Error() string {
	return fmt.Sprintf("sql unique constraint violation: %v", e.DbError)
}

// Unwrap returns the driver error.
func (e ErrSqlUniqueConstraintViolation) Unwrap() error {
	return e.DbError
}

// ErrSerializationError is returned when a transaction lost a conflict with a
// concurrent one and may be retried.
type ErrSerializationError struct {
	DbError error
}

// Error returns the error message.
func (e ErrSerializationError) Error() string {
	return e.DbError.Error()
}

// Unwrap returns the driver error.
func (e ErrSerializationError) Unwrap() error {
	return e.DbError
}

// IsSerializationError returns true if the transaction that produced err may
// be retried.
func IsSerializationError(err error) bool {
	var serializationErr *ErrSerializationError
	return errors.As(err, &serializationErr)
}

// IsUniqueConstraintViolation returns true if err was caused by a duplicate
// key.
func IsUniqueConstraintViolation(err error) bool {
	var uniqueErr *ErrSqlUniqueConstraintViolation
	return errors.As(err, &uniqueErr)
}
