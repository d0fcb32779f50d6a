// Package storage persists cassettes.
//
// A Store moves opaque bytes to and from a location, a Codec turns cassettes into those
// bytes, and a Loader ties the two to a cassette stack for the duration of a scope.
package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned by a Store when nothing is stored at a location.
var ErrNotFound = errors.New("cassette not found")

// Store reads and writes serialized cassettes.
type Store interface {
	Get(ctx context.Context, location string) ([]byte, error)
	Put(ctx context.Context, location string, data []byte) error
}
