package storage

import (
	"errors"
	"io"
)

// ErrNotFound is returned by Get when no blob exists under the key.
var ErrNotFound = errors.New("blob not found")

type BlobStore interface {
	Put(key string, r io.Reader) (string, error) // returns canonical key; replaces atomically
	Get(key string) (io.ReadCloser, error)
	List(prefix string) ([]string, error) // keys under prefix, sorted
	Delete(key string) error
}
