// Package kv defines the key-value backends the bundle store persists to.
//
// Values are opaque bytes. Four backends exist: an in-process map, a
// directory of files, a Postgres table and an S3 bucket.
package kv

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when the key has no value
var ErrNotFound = errors.New("kv: key not found")

// Backend is a string-keyed byte store
type Backend interface {
	// Get returns ErrNotFound when key is absent
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	// Delete is a no-op when key is absent
	Delete(ctx context.Context, key string) error
	// List returns every key with the given prefix, in no particular order
	List(ctx context.Context, prefix string) ([]string, error)
}

// Batcher is implemented by backends that can apply several writes
// atomically. If fn returns an error none of its writes are applied.
type Batcher interface {
	Batch(ctx context.Context, fn func(tx Backend) error) error
}

// Closer is implemented by backends holding external resources
type Closer interface {
	Close()
}
