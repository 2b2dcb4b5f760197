// Package dberr recognizes postgres constraint violations behind gorm errors.
package dberr

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const (
	codeUniqueViolation    = "23505"
	codeExclusionViolation = "23P01"
)

func code(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// IsUniqueViolation reports a duplicate key on a unique index
func IsUniqueViolation(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey) || code(err) == codeUniqueViolation
}

// IsExclusionViolation reports a conflict with an EXCLUDE constraint
func IsExclusionViolation(err error) bool {
	return code(err) == codeExclusionViolation
}

// ConstraintName returns the violated constraint, if the driver reported one
func ConstraintName(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.ConstraintName
	}
	return ""
}
