package dao

import (
	"context"
)

// Service is a generic data access contract keyed by K.
type Service[K comparable, T any] interface {
	// Save inserts or replaces t
	Save(ctx context.Context, t *T) error

	// Load returns the record with id or ErrNotFound
	Load(ctx context.Context, id K) (*T, error)

	// Delete removes the record with id or returns ErrNotFound
	Delete(ctx context.Context, id K) error

	// List returns records matching all parameters
	List(ctx context.Context, parameters ...*Parameter) ([]*T, error)
}
