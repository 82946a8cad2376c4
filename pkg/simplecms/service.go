package simplecms

import (
	"context"
	"io"
)

// Service is the generic resource-access layer. Every per-resource HTTP
// handler delegates to the same six operations; the registered descriptor
// decides filtering, cascading and asset release for each entity type.
type Service interface {
	// List returns one page of rows plus the total count across all pages.
	List(ctx context.Context, entity string, req PageRequest) (*ListPage, error)

	// Get returns a single record by id.
	Get(ctx context.Context, entity string, id int64) (Record, error)

	// Create stores a new record. Unknown fields are dropped; timestamps
	// and, for ordered entities, the appended position are assigned here.
	Create(ctx context.Context, entity string, fields Record) (Record, error)

	// Update overwrites the given fields of a record.
	Update(ctx context.Context, entity string, id int64, fields Record) (Record, error)

	// Delete removes a record, its cascade-eligible children, and the
	// blobs their asset fields reference. Deleting an id that is already
	// gone is a successful, idempotent outcome.
	Delete(ctx context.Context, entity string, id int64) (*DeleteResult, error)

	// Reorder atomically reassigns positions from the ordered id list and
	// returns the collection re-read in its new order.
	Reorder(ctx context.Context, entity string, req ReorderRequest) ([]Record, error)

	// AttachAsset uploads a blob for one asset field, stores its locator
	// in the record, and releases any locator the field held before.
	AttachAsset(ctx context.Context, entity string, id int64, field, filename string, reader io.Reader) (Record, error)

	// OpenAsset opens the blob a record's asset field points at.
	OpenAsset(ctx context.Context, entity string, id int64, field string) (io.ReadCloser, error)

	// Registry exposes the descriptor registry, e.g. for route mounting.
	Registry() *Registry
}

// ListPage is the result of a listing call: the rows of the requested page
// in sort order, and the total count computed without page bounds.
type ListPage struct {
	Data  []Record
	Total int64
}

// DeleteResult reports the outcome of a cascading delete.
type DeleteResult struct {
	ID int64 `json:"id"`
	// AlreadyDeleted is true when the id no longer existed; callers that
	// need idempotent delete semantics treat this as success.
	AlreadyDeleted bool `json:"already_deleted"`
	// AssetsReleased is the number of blob deletes attempted, children
	// included.
	AssetsReleased int `json:"assets_released"`
}
