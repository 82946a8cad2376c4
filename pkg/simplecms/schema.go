package simplecms

import (
	"fmt"
	"sort"
)

// FieldKind classifies how the resource layer treats a field.
type FieldKind string

const (
	// FieldScalar is a plain value column with no special handling.
	FieldScalar FieldKind = "scalar"

	// FieldAsset holds a locator for a blob kept in external storage.
	// Asset fields are released through the BlobStore when the owning
	// record is deleted. Whether a field is an asset is declared here,
	// never inferred from the shape of its value.
	FieldAsset FieldKind = "asset"

	// FieldRelationKey holds the id of a row in another entity.
	FieldRelationKey FieldKind = "relation_key"
)

// FieldType is the storage type of a field, used for column DDL and
// filter value coercion.
type FieldType string

const (
	FieldTypeText      FieldType = "text"
	FieldTypeInt       FieldType = "int"
	FieldTypeBool      FieldType = "bool"
	FieldTypeTimestamp FieldType = "timestamp"
)

// FieldDescriptor describes a single field of an entity.
type FieldDescriptor struct {
	Name string
	Kind FieldKind
	Type FieldType
}

// RelationDescriptor describes a one-to-many relation to a child entity.
// Cascade relations are deleted, and their asset fields released, whenever
// the parent row is deleted.
type RelationDescriptor struct {
	Child      string
	ForeignKey string
	Cascade    bool
}

// EntityDescriptor is the static description of one entity type. Descriptors
// are registered once at startup and never mutated afterwards; every generic
// component asks the descriptor what to paginate, cascade or release.
type EntityDescriptor struct {
	Name      string
	Fields    []FieldDescriptor
	Relations []RelationDescriptor

	// DefaultSortField is used when a list request names no sort field or
	// names one the entity does not have. Empty means "created_at".
	DefaultSortField string

	// Ordered marks entities that carry a client-managed position field
	// and therefore accept reorder requests.
	Ordered bool

	// SearchFields are the fields matched by the free-text search
	// parameter. Empty means every text scalar field.
	SearchFields []string
}

// Field returns the descriptor for the named field.
func (d *EntityDescriptor) Field(name string) (FieldDescriptor, bool) {
	for _, f := range d.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldDescriptor{}, false
}

// AssetFields returns the fields whose values reference external blobs.
func (d *EntityDescriptor) AssetFields() []FieldDescriptor {
	var out []FieldDescriptor
	for _, f := range d.Fields {
		if f.Kind == FieldAsset {
			out = append(out, f)
		}
	}
	return out
}

// CascadeRelations returns the relations that must be deleted with the parent.
func (d *EntityDescriptor) CascadeRelations() []RelationDescriptor {
	var out []RelationDescriptor
	for _, r := range d.Relations {
		if r.Cascade {
			out = append(out, r)
		}
	}
	return out
}

// SortFieldOrDefault resolves a requested sort field against the descriptor.
func (d *EntityDescriptor) SortFieldOrDefault(requested string) string {
	if requested != "" {
		if _, ok := d.Field(requested); ok {
			return requested
		}
	}
	if d.DefaultSortField != "" {
		return d.DefaultSortField
	}
	return "created_at"
}

// searchableFields resolves the fields used for free-text search.
func (d *EntityDescriptor) searchableFields() []string {
	if len(d.SearchFields) > 0 {
		return d.SearchFields
	}
	var out []string
	for _, f := range d.Fields {
		if f.Kind == FieldScalar && f.Type == FieldTypeText {
			out = append(out, f.Name)
		}
	}
	return out
}

// Registry holds the entity descriptors known to the process. It is built
// once at startup; lookups after Freeze are safe for concurrent use because
// the registry is never written again.
type Registry struct {
	entities map[string]*EntityDescriptor
	frozen   bool
}

// NewRegistry creates an empty descriptor registry.
func NewRegistry() *Registry {
	return &Registry{entities: make(map[string]*EntityDescriptor)}
}

// Register adds a descriptor to the registry. Registering after Freeze, or
// registering the same entity twice, is a programming error.
func (r *Registry) Register(desc EntityDescriptor) error {
	if r.frozen {
		return fmt.Errorf("registry is frozen, cannot register %q", desc.Name)
	}
	if desc.Name == "" {
		return fmt.Errorf("entity descriptor has no name")
	}
	if _, exists := r.entities[desc.Name]; exists {
		return fmt.Errorf("entity %q already registered", desc.Name)
	}

	seen := make(map[string]bool, len(desc.Fields))
	for _, f := range desc.Fields {
		if f.Name == "" {
			return fmt.Errorf("entity %q has a field with no name", desc.Name)
		}
		if seen[f.Name] {
			return fmt.Errorf("entity %q declares field %q twice", desc.Name, f.Name)
		}
		seen[f.Name] = true
	}

	d := desc
	r.entities[desc.Name] = &d
	return nil
}

// Freeze validates cross-entity references and seals the registry. Every
// relation child must itself be registered and must carry the declared
// foreign key field.
func (r *Registry) Freeze() error {
	for name, desc := range r.entities {
		for _, rel := range desc.Relations {
			child, ok := r.entities[rel.Child]
			if !ok {
				return fmt.Errorf("entity %q relates to unregistered entity %q", name, rel.Child)
			}
			if _, ok := child.Field(rel.ForeignKey); !ok {
				return fmt.Errorf("entity %q relation to %q names missing foreign key %q",
					name, rel.Child, rel.ForeignKey)
			}
		}
	}
	r.frozen = true
	return nil
}

// Get returns the descriptor for an entity type.
func (r *Registry) Get(entity string) (*EntityDescriptor, error) {
	desc, ok := r.entities[entity]
	if !ok {
		return nil, ErrEntityNotFound
	}
	return desc, nil
}

// Names returns the registered entity names in stable order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.entities))
	for name := range r.entities {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
