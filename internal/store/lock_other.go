//go:build !unix

package store

// lock is a no-op where flock is unavailable; only in-process callers are serialized.
func (s *Store) lock() (func(), error) {
	return func() {}, nil
}
