package simplecms

import (
	"errors"
	"fmt"
)

// Error types
var (
	// ErrEntityNotFound indicates an entity type has no registered descriptor
	ErrEntityNotFound = errors.New("entity not found")

	// ErrRecordNotFound indicates a record was not found
	ErrRecordNotFound = errors.New("record not found")

	// ErrNotOrdered indicates a reorder was requested for an entity
	// without a position field
	ErrNotOrdered = errors.New("entity is not position-ordered")

	// ErrDuplicateID indicates a reorder request repeats an id
	ErrDuplicateID = errors.New("duplicate id in reorder request")

	// ErrEmptyReorder indicates a reorder request carries no ids
	ErrEmptyReorder = errors.New("reorder request is empty")

	// ErrNotAssetField indicates an asset operation named a field the
	// descriptor does not declare as an asset reference
	ErrNotAssetField = errors.New("field is not an asset reference")
)

// EntityError represents an error from an operation on one record.
type EntityError struct {
	Entity string
	ID     int64
	Op     string
	Err    error
}

func (e *EntityError) Error() string {
	return fmt.Sprintf("%s operation %s failed for id %d: %v", e.Entity, e.Op, e.ID, e.Err)
}

func (e *EntityError) Unwrap() error {
	return e.Err
}

// ReorderError represents a reorder request rejected before commit. ID is
// the offending id for missing-row and duplicate failures.
type ReorderError struct {
	Entity string
	ID     int64
	Err    error
}

func (e *ReorderError) Error() string {
	return fmt.Sprintf("reorder of %s rejected for id %d: %v", e.Entity, e.ID, e.Err)
}

func (e *ReorderError) Unwrap() error {
	return e.Err
}

// StorageError represents a blob store operation failure.
type StorageError struct {
	Key string
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage operation %s failed for key %s: %v", e.Op, e.Key, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
