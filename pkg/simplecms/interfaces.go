package simplecms

import (
	"context"
	"io"
)

// BlobStore is the external object store holding asset files. Locators
// stored in asset fields are the object keys passed here.
type BlobStore interface {
	// Upload stores the reader's content under the given key.
	Upload(ctx context.Context, key string, reader io.Reader) error

	// Download opens the content stored under the given key.
	Download(ctx context.Context, key string) (io.ReadCloser, error)

	// Delete removes the content stored under the given key. Deleting a
	// key that does not exist is not an error.
	Delete(ctx context.Context, key string) error
}

// Query is a bounded, executable description of one page of a listing.
// Built by BuildQuery; repositories translate it to their own plan.
type Query struct {
	Filters []Filter
	Search  string
	// SearchFields are the fields Search is matched against.
	SearchFields []string
	SortField    string
	SortDesc     bool
	Skip         int
	// Take bounds the page size; zero or negative means unbounded.
	Take int
}

// CountQuery carries the same predicates as its Query with no bounds, so
// the total is computed independent of skip/take.
type CountQuery struct {
	Filters      []Filter
	Search       string
	SearchFields []string
}

// FilterOp selects how a filter value is matched.
type FilterOp string

const (
	// FilterContains matches text fields by case-insensitive substring.
	FilterContains FilterOp = "contains"
	// FilterEquals matches exactly; used for relation keys and non-text fields.
	FilterEquals FilterOp = "eq"
)

// Filter is one field predicate of a listing query.
type Filter struct {
	Field string
	Op    FilterOp
	Value any
}

// Repository is the transactional data store behind the resource layer.
// Implementations must be safe for concurrent use.
type Repository interface {
	// Query returns one page of rows for the entity.
	Query(ctx context.Context, entity string, q Query) ([]Record, error)

	// Count returns the total row count for the predicates of a listing.
	Count(ctx context.Context, entity string, q CountQuery) (int64, error)

	// Get returns a record by id, or ErrRecordNotFound.
	Get(ctx context.Context, entity string, id int64) (Record, error)

	// GetWithRelations returns a record together with the child rows of
	// the named relations, or ErrRecordNotFound when the parent is absent.
	GetWithRelations(ctx context.Context, entity string, id int64, relations []RelationDescriptor) (*RecordGraph, error)

	// Insert stores a new record and returns it with its assigned id.
	Insert(ctx context.Context, entity string, rec Record) (Record, error)

	// Update overwrites the given fields of a record and returns the
	// resulting row, or ErrRecordNotFound.
	Update(ctx context.Context, entity string, id int64, fields Record) (Record, error)

	// Delete removes a record by id, or returns ErrRecordNotFound.
	Delete(ctx context.Context, entity string, id int64) error

	// DeleteByField removes every record whose field equals value.
	// Matching nothing is a no-op, not an error.
	DeleteByField(ctx context.Context, entity string, field string, value any) error

	// UpdatePositions assigns new positions to the given rows as a single
	// all-or-nothing write. A missing id fails the whole batch with no
	// row changed.
	UpdatePositions(ctx context.Context, entity string, updates []PositionUpdate) error

	// WithTx runs fn against a repository whose writes commit together or
	// not at all.
	WithTx(ctx context.Context, fn func(Repository) error) error
}
