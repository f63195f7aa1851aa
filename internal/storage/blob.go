// Package storage defines the blob store used for dry-run previews. The
// gcs, local and memory subpackages implement it; postgres and memory also
// provide the decision state store.
package storage

import (
	"context"
	"io"
)

// BlobStore writes an object and returns a URI describing where it landed.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, r io.Reader) (string, error)
}
