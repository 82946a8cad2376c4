package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/tendant/simple-cms/pkg/simplecms"
)

// Migrate creates the table for every registered entity if it does not
// exist yet, deriving column types from the descriptors. Relation keys get
// a supporting index since cascade deletes filter on them.
func (r *Repository) Migrate(ctx context.Context, registry *simplecms.Registry) error {
	for _, name := range registry.Names() {
		desc, err := registry.Get(name)
		if err != nil {
			return err
		}
		if err := r.createTable(ctx, desc); err != nil {
			return err
		}
	}
	return nil
}

func (r *Repository) createTable(ctx context.Context, desc *simplecms.EntityDescriptor) error {
	cols := []string{
		"id BIGSERIAL PRIMARY KEY",
		"created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()",
		"updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()",
	}
	for _, f := range desc.Fields {
		switch f.Name {
		case "id", "created_at", "updated_at":
			continue
		}
		cols = append(cols, fmt.Sprintf("%s %s", ident(f.Name), columnType(f)))
	}

	ddl := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)",
		ident(desc.Name), strings.Join(cols, ", "))
	if _, err := r.db.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("create table %s: %w", desc.Name, err)
	}

	for _, f := range desc.Fields {
		if f.Kind != simplecms.FieldRelationKey {
			continue
		}
		idx := fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s (%s)",
			ident(fmt.Sprintf("idx_%s_%s", desc.Name, f.Name)),
			ident(desc.Name), ident(f.Name))
		if _, err := r.db.Exec(ctx, idx); err != nil {
			return fmt.Errorf("index %s.%s: %w", desc.Name, f.Name, err)
		}
	}
	return nil
}

func columnType(f simplecms.FieldDescriptor) string {
	if f.Kind == simplecms.FieldRelationKey {
		return "BIGINT"
	}
	switch f.Type {
	case simplecms.FieldTypeInt:
		return "BIGINT"
	case simplecms.FieldTypeBool:
		return "BOOLEAN NOT NULL DEFAULT FALSE"
	case simplecms.FieldTypeTimestamp:
		return "TIMESTAMPTZ"
	default:
		return "TEXT"
	}
}
