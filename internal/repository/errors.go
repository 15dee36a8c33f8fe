// Package repository implements the data access layer for the application.
package repository

import (
	"errors"
	"strings"

	"lookup/internal/models"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// ErrDuplicateKey is wrapped by the conflict errors returned for unique violations.
var ErrDuplicateKey = errors.New("duplicate key")

const (
	mysqlDuplicateEntry = 1062
	pgUniqueViolation   = "23505"
)

// isUniqueConstraintError reports whether err is a unique index violation on any
// of the supported drivers.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == mysqlDuplicateEntry
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}

	// SQLite reports constraint failures only through the message.
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}

func conflict(message string) *models.AppError {
	return &models.AppError{
		Code:    models.CodeConflict,
		Message: message,
		Err:     ErrDuplicateKey,
	}
}

// IsDuplicate reports whether err came from a unique violation on insert.
func IsDuplicate(err error) bool {
	return errors.Is(err, ErrDuplicateKey)
}
