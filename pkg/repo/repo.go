// Package repo provides a generic CRUD repository shape and a Neo4j-backed
// implementation of it. Domain stores build typed repositories on top
// (grape catalog, for one) instead of repeating session plumbing.
package repo

import "context"

// Repository is generic CRUD over entities of type T keyed by ID.
type Repository[T any, ID comparable] interface {
	Get(ctx context.Context, id ID) (T, error)
	List(ctx context.Context, opts ListOpts) ([]T, error)
	Create(ctx context.Context, entity T) (T, error)
	Update(ctx context.Context, entity T) (T, error)
	Delete(ctx context.Context, id ID) error
}

// ListOpts paginates and filters List calls.
type ListOpts struct {
	Offset int
	Limit  int
	Filter map[string]any
}
