package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/tendant/simple-cms/pkg/simplecms"
)

// Repository implements simplecms.Repository using in-memory storage. It
// backs tests and development setups; the postgres implementation is the
// production one.
type Repository struct {
	mu     sync.RWMutex
	tables map[string]map[int64]simplecms.Record
	nextID map[string]int64
}

// New creates a new in-memory repository
func New() *Repository {
	return &Repository{
		tables: make(map[string]map[int64]simplecms.Record),
		nextID: make(map[string]int64),
	}
}

func (r *Repository) table(entity string) map[int64]simplecms.Record {
	t, ok := r.tables[entity]
	if !ok {
		t = make(map[int64]simplecms.Record)
		r.tables[entity] = t
	}
	return t
}

// Query operations

func (r *Repository) Query(ctx context.Context, entity string, q simplecms.Query) ([]simplecms.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rows := r.matchingLocked(entity, q.Filters, q.Search, q.SearchFields)
	sortRecords(rows, q.SortField, q.SortDesc)

	if q.Skip > 0 {
		if q.Skip >= len(rows) {
			return []simplecms.Record{}, nil
		}
		rows = rows[q.Skip:]
	}
	if q.Take > 0 && q.Take < len(rows) {
		rows = rows[:q.Take]
	}
	return rows, nil
}

func (r *Repository) Count(ctx context.Context, entity string, q simplecms.CountQuery) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rows := r.matchingLocked(entity, q.Filters, q.Search, q.SearchFields)
	return int64(len(rows)), nil
}

func (r *Repository) matchingLocked(entity string, filters []simplecms.Filter, search string, searchFields []string) []simplecms.Record {
	var rows []simplecms.Record
	for _, rec := range r.tables[entity] {
		if matches(rec, filters, search, searchFields) {
			rows = append(rows, rec.Clone())
		}
	}
	return rows
}

func matches(rec simplecms.Record, filters []simplecms.Filter, search string, searchFields []string) bool {
	for _, f := range filters {
		switch f.Op {
		case simplecms.FilterContains:
			val, _ := rec[f.Field].(string)
			want, _ := f.Value.(string)
			if !strings.Contains(strings.ToLower(val), strings.ToLower(want)) {
				return false
			}
		default:
			if !equalValues(rec[f.Field], f.Value) {
				return false
			}
		}
	}

	if search != "" {
		found := false
		for _, field := range searchFields {
			if val, ok := rec[field].(string); ok &&
				strings.Contains(strings.ToLower(val), strings.ToLower(search)) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func equalValues(a, b any) bool {
	if an, aok := asInt64(a); aok {
		if bn, bok := asInt64(b); bok {
			return an == bn
		}
	}
	return fmt.Sprintf("%v", a) == fmt.Sprintf("%v", b)
}

func asInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case float64:
		return int64(n), true
	default:
		return 0, false
	}
}

func sortRecords(rows []simplecms.Record, field string, desc bool) {
	if field == "" {
		field = "id"
	}
	sort.SliceStable(rows, func(i, j int) bool {
		less := lessValues(rows[i][field], rows[j][field])
		if desc {
			return lessValues(rows[j][field], rows[i][field])
		}
		return less
	})
}

func lessValues(a, b any) bool {
	if at, ok := a.(time.Time); ok {
		if bt, ok := b.(time.Time); ok {
			return at.Before(bt)
		}
	}
	if an, aok := asInt64(a); aok {
		if bn, bok := asInt64(b); bok {
			return an < bn
		}
	}
	return fmt.Sprintf("%v", a) < fmt.Sprintf("%v", b)
}

// Record operations

func (r *Repository) Get(ctx context.Context, entity string, id int64) (simplecms.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, exists := r.tables[entity][id]
	if !exists {
		return nil, simplecms.ErrRecordNotFound
	}
	return rec.Clone(), nil
}

func (r *Repository) GetWithRelations(ctx context.Context, entity string, id int64, relations []simplecms.RelationDescriptor) (*simplecms.RecordGraph, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, exists := r.tables[entity][id]
	if !exists {
		return nil, simplecms.ErrRecordNotFound
	}

	graph := &simplecms.RecordGraph{
		Record:   rec.Clone(),
		Children: make(map[string][]simplecms.Record),
	}
	for _, rel := range relations {
		var children []simplecms.Record
		for _, child := range r.tables[rel.Child] {
			if child.Int64(rel.ForeignKey) == id {
				children = append(children, child.Clone())
			}
		}
		graph.Children[rel.Child] = children
	}
	return graph, nil
}

func (r *Repository) Insert(ctx context.Context, entity string, rec simplecms.Record) (simplecms.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID[entity]++
	id := r.nextID[entity]

	stored := rec.Clone()
	stored["id"] = id
	r.table(entity)[id] = stored

	return stored.Clone(), nil
}

func (r *Repository) Update(ctx context.Context, entity string, id int64, fields simplecms.Record) (simplecms.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, exists := r.tables[entity][id]
	if !exists {
		return nil, simplecms.ErrRecordNotFound
	}

	updated := rec.Clone()
	for k, v := range fields {
		updated[k] = v
	}
	r.tables[entity][id] = updated

	return updated.Clone(), nil
}

func (r *Repository) Delete(ctx context.Context, entity string, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tables[entity][id]; !exists {
		return simplecms.ErrRecordNotFound
	}
	delete(r.tables[entity], id)
	return nil
}

func (r *Repository) DeleteByField(ctx context.Context, entity string, field string, value any) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, rec := range r.tables[entity] {
		if equalValues(rec[field], value) {
			delete(r.tables[entity], id)
		}
	}
	return nil
}

// UpdatePositions verifies every id before touching any row, so a missing
// id fails the batch with nothing changed.
func (r *Repository) UpdatePositions(ctx context.Context, entity string, updates []simplecms.PositionUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range updates {
		if _, exists := r.tables[entity][u.ID]; !exists {
			return fmt.Errorf("position update for %s id %d: %w", entity, u.ID, simplecms.ErrRecordNotFound)
		}
	}
	for _, u := range updates {
		rec := r.tables[entity][u.ID].Clone()
		rec["position"] = u.Position
		r.tables[entity][u.ID] = rec
	}
	return nil
}

// WithTx snapshots the store and restores it when fn fails. Snapshot and
// restore each hold the write lock, but fn runs unlocked against the live
// repository, so concurrent writers are not isolated from the transaction;
// tests and development do not need more than rollback.
func (r *Repository) WithTx(ctx context.Context, fn func(simplecms.Repository) error) error {
	snapshot := r.snapshot()
	if err := fn(r); err != nil {
		r.restore(snapshot)
		return err
	}
	return nil
}

func (r *Repository) snapshot() map[string]map[int64]simplecms.Record {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]map[int64]simplecms.Record, len(r.tables))
	for entity, table := range r.tables {
		copied := make(map[int64]simplecms.Record, len(table))
		for id, rec := range table {
			copied[id] = rec.Clone()
		}
		out[entity] = copied
	}
	return out
}

func (r *Repository) restore(snapshot map[string]map[int64]simplecms.Record) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tables = snapshot
}
