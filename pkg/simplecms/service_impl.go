package simplecms

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/tendant/simple-cms/pkg/simplecms/objectkey"
)

// service implements the Service interface
type service struct {
	registry  *Registry
	repo      Repository
	blobStore BlobStore
	keyGen    objectkey.Generator
}

// Option represents a functional option for configuring the service
type Option func(*service)

// WithRegistry sets the entity descriptor registry
func WithRegistry(registry *Registry) Option {
	return func(s *service) {
		s.registry = registry
	}
}

// WithRepository sets the repository for the service
func WithRepository(repo Repository) Option {
	return func(s *service) {
		s.repo = repo
	}
}

// WithBlobStore sets the blob store assets are released to
func WithBlobStore(store BlobStore) Option {
	return func(s *service) {
		s.blobStore = store
	}
}

// WithKeyGenerator sets the object key strategy for uploaded assets
func WithKeyGenerator(gen objectkey.Generator) Option {
	return func(s *service) {
		s.keyGen = gen
	}
}

// New creates a new service instance with the given options
func New(options ...Option) (Service, error) {
	s := &service{}

	for _, option := range options {
		option(s)
	}

	if s.registry == nil {
		return nil, fmt.Errorf("registry is required")
	}
	if s.repo == nil {
		return nil, fmt.Errorf("repository is required")
	}
	if s.blobStore == nil {
		return nil, fmt.Errorf("blob store is required")
	}
	if s.keyGen == nil {
		s.keyGen = objectkey.NewShardedGenerator()
	}

	return s, nil
}

func (s *service) Registry() *Registry {
	return s.registry
}

// Listing

func (s *service) List(ctx context.Context, entity string, req PageRequest) (*ListPage, error) {
	desc, err := s.registry.Get(entity)
	if err != nil {
		return nil, err
	}

	query, countQuery := BuildQuery(desc, req)

	rows, err := s.repo.Query(ctx, entity, query)
	if err != nil {
		return nil, &EntityError{Entity: entity, Op: "list", Err: err}
	}
	total, err := s.repo.Count(ctx, entity, countQuery)
	if err != nil {
		return nil, &EntityError{Entity: entity, Op: "count", Err: err}
	}

	if rows == nil {
		rows = []Record{}
	}
	return &ListPage{Data: rows, Total: total}, nil
}

func (s *service) Get(ctx context.Context, entity string, id int64) (Record, error) {
	if _, err := s.registry.Get(entity); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, entity, id)
}

// Writes

func (s *service) Create(ctx context.Context, entity string, fields Record) (Record, error) {
	desc, err := s.registry.Get(entity)
	if err != nil {
		return nil, err
	}

	rec := sanitizeFields(desc, fields)
	now := time.Now().UTC()
	rec["created_at"] = now
	rec["updated_at"] = now

	if desc.Ordered && rec.Position() == 0 {
		// Append to the end of the collection.
		total, err := s.repo.Count(ctx, entity, CountQuery{})
		if err != nil {
			return nil, &EntityError{Entity: entity, Op: "create", Err: err}
		}
		rec["position"] = int(total) + 1
	}

	created, err := s.repo.Insert(ctx, entity, rec)
	if err != nil {
		return nil, &EntityError{Entity: entity, Op: "create", Err: err}
	}
	return created, nil
}

func (s *service) Update(ctx context.Context, entity string, id int64, fields Record) (Record, error) {
	desc, err := s.registry.Get(entity)
	if err != nil {
		return nil, err
	}

	rec := sanitizeFields(desc, fields)
	rec["updated_at"] = time.Now().UTC()

	updated, err := s.repo.Update(ctx, entity, id, rec)
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return nil, err
		}
		return nil, &EntityError{Entity: entity, ID: id, Op: "update", Err: err}
	}
	return updated, nil
}

// Cascading delete.
//
// Fetch -> release child assets -> release parent assets -> delete children
// and parent in one transaction. Children are one level deep: the schema
// has no cascade chains below that. The explicit child deletes stay even
// when the store cascades at the schema level; deleting nothing is a no-op.
func (s *service) Delete(ctx context.Context, entity string, id int64) (*DeleteResult, error) {
	desc, err := s.registry.Get(entity)
	if err != nil {
		return nil, err
	}

	graph, err := s.repo.GetWithRelations(ctx, entity, id, desc.CascadeRelations())
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			// Deleting something already gone is not an error.
			return &DeleteResult{ID: id, AlreadyDeleted: true}, nil
		}
		return nil, &EntityError{Entity: entity, ID: id, Op: "delete", Err: err}
	}

	released, err := s.releaseChildAssets(ctx, graph)
	if err != nil {
		return nil, &EntityError{Entity: entity, ID: id, Op: "delete", Err: err}
	}
	released += s.releaseAssets(ctx, desc, graph.Record)

	err = s.repo.WithTx(ctx, func(tx Repository) error {
		for _, rel := range desc.CascadeRelations() {
			if err := tx.DeleteByField(ctx, rel.Child, rel.ForeignKey, id); err != nil {
				return err
			}
		}
		if err := tx.Delete(ctx, entity, id); err != nil && !errors.Is(err, ErrRecordNotFound) {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, &EntityError{Entity: entity, ID: id, Op: "delete", Err: err}
	}

	slog.Info("record deleted", "entity", entity, "id", id, "assets_released", released)
	return &DeleteResult{ID: id, AssetsReleased: released}, nil
}

// Reorder.
//
// Validate everything before writing anything: every id must resolve to an
// existing row (the first missing id aborts, naming it), and no id may
// repeat. The position commit is a single all-or-nothing write; a partial
// reorder would corrupt the visible order for every later listing.
func (s *service) Reorder(ctx context.Context, entity string, req ReorderRequest) ([]Record, error) {
	desc, err := s.registry.Get(entity)
	if err != nil {
		return nil, err
	}
	if !desc.Ordered {
		return nil, &ReorderError{Entity: entity, Err: ErrNotOrdered}
	}
	if len(req.IDs) == 0 {
		return nil, &ReorderError{Entity: entity, Err: ErrEmptyReorder}
	}

	for _, id := range req.IDs {
		if _, err := s.repo.Get(ctx, entity, id); err != nil {
			if errors.Is(err, ErrRecordNotFound) {
				return nil, &ReorderError{Entity: entity, ID: id, Err: ErrRecordNotFound}
			}
			return nil, &EntityError{Entity: entity, ID: id, Op: "reorder", Err: err}
		}
	}
	seen := make(map[int64]bool, len(req.IDs))
	for _, id := range req.IDs {
		if seen[id] {
			return nil, &ReorderError{Entity: entity, ID: id, Err: ErrDuplicateID}
		}
		seen[id] = true
	}

	updates := make([]PositionUpdate, len(req.IDs))
	for i, id := range req.IDs {
		updates[i] = PositionUpdate{ID: id, Position: i + 1}
	}
	if err := s.repo.UpdatePositions(ctx, entity, updates); err != nil {
		return nil, &EntityError{Entity: entity, Op: "reorder", Err: err}
	}

	// Re-read so callers observe the committed order, not their own echo.
	rows, err := s.repo.Query(ctx, entity, Query{SortField: "position"})
	if err != nil {
		return nil, &EntityError{Entity: entity, Op: "reorder", Err: err}
	}
	return rows, nil
}

// Assets

func (s *service) AttachAsset(ctx context.Context, entity string, id int64, field, filename string, reader io.Reader) (Record, error) {
	desc, err := s.registry.Get(entity)
	if err != nil {
		return nil, err
	}
	fd, ok := desc.Field(field)
	if !ok || fd.Kind != FieldAsset {
		return nil, fmt.Errorf("%s.%s: %w", entity, field, ErrNotAssetField)
	}

	rec, err := s.repo.Get(ctx, entity, id)
	if err != nil {
		return nil, err
	}

	key := s.keyGen.GenerateKey(entity, field, filename)
	if err := s.blobStore.Upload(ctx, key, reader); err != nil {
		return nil, &StorageError{Key: key, Op: "upload", Err: err}
	}

	// The previous blob, if any, is released best-effort once the new
	// locator is safely stored.
	previous := rec.String(field)

	updated, err := s.repo.Update(ctx, entity, id, Record{
		field:        key,
		"updated_at": time.Now().UTC(),
	})
	if err != nil {
		return nil, &EntityError{Entity: entity, ID: id, Op: "attach_asset", Err: err}
	}

	if previous != "" && previous != key {
		if err := s.blobStore.Delete(ctx, previous); err != nil {
			slog.Warn("stale asset release failed",
				"entity", entity, "id", id, "field", field, "locator", previous, "err", err)
		}
	}

	return updated, nil
}

func (s *service) OpenAsset(ctx context.Context, entity string, id int64, field string) (io.ReadCloser, error) {
	desc, err := s.registry.Get(entity)
	if err != nil {
		return nil, err
	}
	fd, ok := desc.Field(field)
	if !ok || fd.Kind != FieldAsset {
		return nil, fmt.Errorf("%s.%s: %w", entity, field, ErrNotAssetField)
	}

	rec, err := s.repo.Get(ctx, entity, id)
	if err != nil {
		return nil, err
	}
	locator := rec.String(field)
	if locator == "" {
		return nil, ErrRecordNotFound
	}
	return s.blobStore.Download(ctx, locator)
}

// sanitizeFields drops anything the descriptor does not declare, plus the
// columns the layer owns itself.
func sanitizeFields(desc *EntityDescriptor, fields Record) Record {
	rec := make(Record, len(fields))
	for _, f := range desc.Fields {
		switch f.Name {
		case "id", "created_at", "updated_at":
			continue
		}
		if v, ok := fields[f.Name]; ok {
			rec[f.Name] = v
		}
	}
	return rec
}
