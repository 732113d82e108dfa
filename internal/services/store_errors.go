package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// ConstraintViolation is returned when a write hits a unique constraint.
type ConstraintViolation struct {
	Constraint string
	Err        error
}

func (e *ConstraintViolation) Error() string {
	if e.Constraint != "" {
		return fmt.Sprintf("unique constraint %q violated: %v", e.Constraint, e.Err)
	}
	return fmt.Sprintf("unique constraint violated: %v", e.Err)
}

func (e *ConstraintViolation) Unwrap() error { return e.Err }

// ForeignKeyViolation is returned when a write references a missing row or a
// delete would orphan one.
type ForeignKeyViolation struct {
	Constraint string
	Err        error
}

func (e *ForeignKeyViolation) Error() string {
	return fmt.Sprintf("foreign key constraint %q violated: %v", e.Constraint, e.Err)
}

func (e *ForeignKeyViolation) Unwrap() error { return e.Err }

// classifyStoreError turns driver-specific integrity errors into the typed
// errors above. Any other error is returned unchanged.
func classifyStoreError(err error) error {
	if err == nil {
		return nil
	}

	var cv *ConstraintViolation
	var fk *ForeignKeyViolation
	if errors.As(err, &cv) || errors.As(err, &fk) {
		return err
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return &ConstraintViolation{Constraint: pgErr.ConstraintName, Err: err}
		case pgForeignKeyViolation:
			return &ForeignKeyViolation{Constraint: pgErr.ConstraintName, Err: err}
		}
		return err
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch string(pqErr.Code) {
		case pgUniqueViolation:
			return &ConstraintViolation{Constraint: pqErr.Constraint, Err: err}
		case pgForeignKeyViolation:
			return &ForeignKeyViolation{Constraint: pqErr.Constraint, Err: err}
		}
		return err
	}

	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return &ConstraintViolation{Err: err}
	}
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		return &ForeignKeyViolation{Err: err}
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "duplicate key value"), strings.Contains(msg, "unique constraint failed"):
		return &ConstraintViolation{Err: err}
	case strings.Contains(msg, "foreign key constraint failed"), strings.Contains(msg, "violates foreign key constraint"):
		return &ForeignKeyViolation{Err: err}
	}
	return err
}

// IsConstraintViolation reports whether err is (or wraps) a unique violation.
func IsConstraintViolation(err error) bool {
	var cv *ConstraintViolation
	return errors.As(classifyStoreError(err), &cv)
}
