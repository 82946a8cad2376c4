// Package presets provides ready-made descriptor registries.
package presets

import (
	"github.com/tendant/simple-cms/pkg/simplecms"
)

// CMS returns the content-management schema: the public resources, their
// image children, and which collections are position-ordered. The registry
// comes back frozen; callers that need extra entities should build their
// own registry instead of mutating this one.
func CMS() (*simplecms.Registry, error) {
	registry := simplecms.NewRegistry()

	entities := []simplecms.EntityDescriptor{
		{
			Name: "stores",
			Fields: append(baseFields(),
				text("name"), text("description"), text("address"),
				text("phone"), text("opening_hours"),
				asset("logo_path"),
			),
			Relations: []simplecms.RelationDescriptor{
				{Child: "store_images", ForeignKey: "store_id", Cascade: true},
			},
			SearchFields: []string{"name", "description"},
		},
		{
			Name: "store_images",
			Fields: append(baseFields(),
				relationKey("store_id"),
				asset("image_path"),
				text("caption"),
			),
		},
		{
			Name: "dining",
			Fields: append(baseFields(),
				text("name"), text("description"), text("cuisine"),
				text("reservation_url"),
				asset("cover_path"),
			),
			Relations: []simplecms.RelationDescriptor{
				{Child: "dining_images", ForeignKey: "dining_id", Cascade: true},
			},
			SearchFields: []string{"name", "cuisine"},
		},
		{
			Name: "dining_images",
			Fields: append(baseFields(),
				relationKey("dining_id"),
				asset("image_path"),
				text("caption"),
			),
		},
		{
			Name: "events",
			Fields: append(baseFields(),
				text("title"), text("description"), text("venue"),
				field("starts_at", simplecms.FieldTypeTimestamp),
				field("ends_at", simplecms.FieldTypeTimestamp),
				field("published", simplecms.FieldTypeBool),
				asset("poster_path"),
				position(),
			),
			Relations: []simplecms.RelationDescriptor{
				{Child: "event_images", ForeignKey: "event_id", Cascade: true},
			},
			Ordered:      true,
			SearchFields: []string{"title", "description", "venue"},
		},
		{
			Name: "event_images",
			Fields: append(baseFields(),
				relationKey("event_id"),
				asset("image_path"),
				text("caption"),
			),
		},
		{
			Name: "offices",
			Fields: append(baseFields(),
				text("name"), text("address"), text("phone"), text("email"),
				field("floor", simplecms.FieldTypeInt),
			),
			SearchFields: []string{"name", "address"},
		},
		{
			Name: "faqs",
			Fields: append(baseFields(),
				text("question"), text("answer"),
				field("published", simplecms.FieldTypeBool),
				position(),
			),
			Ordered:      true,
			SearchFields: []string{"question", "answer"},
		},
		{
			Name: "hero_sections",
			Fields: append(baseFields(),
				text("headline"), text("subheadline"), text("cta_url"),
				asset("background_path"),
				asset("mobile_background_path"),
				position(),
			),
			Ordered:      true,
			SearchFields: []string{"headline"},
		},
	}

	for _, desc := range entities {
		if err := registry.Register(desc); err != nil {
			return nil, err
		}
	}
	if err := registry.Freeze(); err != nil {
		return nil, err
	}
	return registry, nil
}

func baseFields() []simplecms.FieldDescriptor {
	return []simplecms.FieldDescriptor{
		field("id", simplecms.FieldTypeInt),
		field("created_at", simplecms.FieldTypeTimestamp),
		field("updated_at", simplecms.FieldTypeTimestamp),
	}
}

func field(name string, typ simplecms.FieldType) simplecms.FieldDescriptor {
	return simplecms.FieldDescriptor{Name: name, Kind: simplecms.FieldScalar, Type: typ}
}

func text(name string) simplecms.FieldDescriptor {
	return field(name, simplecms.FieldTypeText)
}

func asset(name string) simplecms.FieldDescriptor {
	return simplecms.FieldDescriptor{Name: name, Kind: simplecms.FieldAsset, Type: simplecms.FieldTypeText}
}

func relationKey(name string) simplecms.FieldDescriptor {
	return simplecms.FieldDescriptor{Name: name, Kind: simplecms.FieldRelationKey, Type: simplecms.FieldTypeInt}
}

func position() simplecms.FieldDescriptor {
	return field("position", simplecms.FieldTypeInt)
}
