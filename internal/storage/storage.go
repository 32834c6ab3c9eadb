package storage

import "errors"

var ErrNotFound = errors.New("key not found")

// Store is the local key-value store backing tokens and the cart.
// Implementations must be safe for concurrent use.
type Store interface {
	Get(key string) ([]byte, error)
	Set(key string, value []byte) error
	Delete(key string) error
}
