package repository

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Domain-level errors I prefer to bubble up from repository implementations.
var (
	ErrNotFound        = errors.New("not found")
	ErrAlreadyExists   = errors.New("already exists")
	ErrRelatedNotFound = errors.New("related record not found")
)

// MapPgError translates common Postgres error codes to domain errors.
// I only map what higher layers handle explicitly; everything else passes through untouched.
// The driver error stays in the chain so logs keep the constraint name.
func MapPgError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgerrcode.UniqueViolation:
			return fmt.Errorf("%w: %s", ErrAlreadyExists, describePgError(pgErr))
		case pgerrcode.ForeignKeyViolation:
			return fmt.Errorf("%w: %s", ErrRelatedNotFound, describePgError(pgErr))
		}
	}
	return err
}

func describePgError(e *pgconn.PgError) string {
	if e.ConstraintName != "" {
		return e.ConstraintName
	}
	return e.Message
}

// MapSQLiteError does the same for SQLite. The driver only exposes extended codes behind cgo,
// so I match on the stable constraint messages instead.
func MapSQLiteError(err error) error {
	if err == nil {
		return nil
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "unique constraint failed"),
		strings.Contains(msg, "primary key must be unique"):
		return fmt.Errorf("%w: %v", ErrAlreadyExists, err)
	case strings.Contains(msg, "foreign key constraint failed"):
		return fmt.Errorf("%w: %v", ErrRelatedNotFound, err)
	}
	return err
}
