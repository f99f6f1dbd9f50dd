// Package content provides durable byte storage for raw document files.
//
// The [Store] interface is the capability boundary over physical blob
// storage (local filesystem, object storage). Keys are opaque storage
// pointers minted by the ingestion coordinator; the catalog's metadata
// row holds the only reference to a blob, so deleting a document always
// deletes its blob too.
package content

import "context"

// Store handles storage and retrieval of raw document bytes.
type Store interface {
	// Put stores the bytes under the given key, overwriting any
	// previous value.
	Put(ctx context.Context, key string, data []byte) error

	// Get retrieves the bytes stored under key. Returns ErrNotFound if
	// no blob exists for the key.
	Get(ctx context.Context, key string) ([]byte, error)

	// Delete removes the blob stored under key. Deleting a missing key
	// is a no-op.
	Delete(ctx context.Context, key string) error

	// List returns every stored blob key. Reconciliation uses this to
	// find blobs no document references anymore.
	List(ctx context.Context) ([]string, error)

	// Close releases any resources held by the store.
	Close() error
}
