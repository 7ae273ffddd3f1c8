package repository

import (
	"context"

	"github.com/maxviazov/ats-service/internal/model"
)

// Pinger represents a minimal readiness probe capability.
// I use it to decouple health checks from storage implementation details.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Store declares persistence operations for one entity table.
// Implementations return records as column maps and surface domain errors from errors.go
// (ErrNotFound, ErrAlreadyExists, ErrRelatedNotFound) rather than driver codes.
type Store interface {
	FindMany(ctx context.Context, args FindArgs) ([]model.Record, error)
	Count(ctx context.Context, where Where) (int64, error)
	// FindUnique returns ErrNotFound when no row carries the identifier.
	FindUnique(ctx context.Context, id any) (model.Record, error)
	Create(ctx context.Context, data model.Record) (model.Record, error)
	// Update changes only the supplied columns and returns the full row.
	// A missing row is reported as ErrNotFound.
	Update(ctx context.Context, id any, data model.Record) (model.Record, error)
	Delete(ctx context.Context, id any) (model.Record, error)
	GroupCount(ctx context.Context, column string, where Where) ([]model.GroupCount, error)
}

// Tables hands out a Store per table spec. Every backend implements it.
type Tables interface {
	Table(spec Table) Store
}

// Table describes one entity table for the generic stores.
type Table struct {
	Name     string
	IDColumn string
	// CreatedAtColumn and UpdatedAtColumn are stamped by the store when set.
	// SQL backends also rely on column defaults for created_at.
	CreatedAtColumn string
	UpdatedAtColumn string
	// Unique lists column sets that must be unique. The SQL schemas declare the same
	// constraints; the memory backend enforces them from here.
	Unique [][]string
	// References maps a column to the table whose identifier it must point at.
	References map[string]string
}
