// internal/storage/backend.go
package storage

import "errors"

// ErrQuotaExceeded is returned by Put when writing the value would push the
// total stored bytes past the backend's quota. Callers distinguish this from
// other storage failures to drive eviction.
var ErrQuotaExceeded = errors.New("storage quota exceeded")

// ErrKeyNotFound is returned by Get and Delete for absent keys.
var ErrKeyNotFound = errors.New("key not found")

// Backend is a key to serialized-value store under an externally imposed byte
// quota. A Put that would exceed the quota fails with ErrQuotaExceeded and
// leaves the previous value of the key intact.
type Backend interface {
	Put(key string, value []byte) error
	Get(key string) ([]byte, error)
	Delete(key string) error
}

// IsQuotaExceeded reports whether err is the backend's capacity condition.
func IsQuotaExceeded(err error) bool {
	return errors.Is(err, ErrQuotaExceeded)
}
