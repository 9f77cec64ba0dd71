// Package storage persists the menu document. The stored text is replaced as a
// whole on every save; readers see either the previous or the new document.
package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when no document has been stored yet.
var ErrNotFound = errors.New("document not found")

// DocumentStore holds one document.
type DocumentStore interface {
	// Get returns the stored text or ErrNotFound.
	Get(ctx context.Context) ([]byte, error)
	// Put atomically replaces the stored text.
	Put(ctx context.Context, data []byte) error
	// Location names the document for logs and error messages.
	Location() string
}
