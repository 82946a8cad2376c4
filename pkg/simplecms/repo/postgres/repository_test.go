package postgres

import (
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/tendant/simple-cms/pkg/simplecms"
)

func TestWhereClause(t *testing.T) {
	tests := []struct {
		name         string
		filters      []simplecms.Filter
		search       string
		searchFields []string
		startArg     int
		wantSQL      string
		wantArgs     []any
	}{
		{
			name:     "no predicates",
			startArg: 1,
			wantSQL:  "",
		},
		{
			name: "equality",
			filters: []simplecms.Filter{
				{Field: "store_id", Op: simplecms.FilterEquals, Value: int64(42)},
			},
			startArg: 1,
			wantSQL:  ` WHERE "store_id" = $1`,
			wantArgs: []any{int64(42)},
		},
		{
			name: "contains becomes ILIKE",
			filters: []simplecms.Filter{
				{Field: "name", Op: simplecms.FilterContains, Value: "sushi"},
			},
			startArg: 1,
			wantSQL:  ` WHERE "name" ILIKE $1`,
			wantArgs: []any{"%sushi%"},
		},
		{
			name: "filters and search share one arg sequence",
			filters: []simplecms.Filter{
				{Field: "city", Op: simplecms.FilterEquals, Value: "Austin"},
			},
			search:       "ramen",
			searchFields: []string{"name", "cuisine"},
			startArg:     1,
			wantSQL:      ` WHERE "city" = $1 AND ("name" ILIKE $2 OR "cuisine" ILIKE $2)`,
			wantArgs:     []any{"Austin", "%ramen%"},
		},
		{
			name:         "search without fields is dropped",
			search:       "ramen",
			searchFields: nil,
			startArg:     1,
			wantSQL:      "",
		},
		{
			name: "startArg offsets the placeholders",
			filters: []simplecms.Filter{
				{Field: "active", Op: simplecms.FilterEquals, Value: true},
			},
			startArg: 3,
			wantSQL:  ` WHERE "active" = $3`,
			wantArgs: []any{true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, args := whereClause(tt.filters, tt.search, tt.searchFields, tt.startArg)
			assert.Equal(t, tt.wantSQL, sql)
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}

func TestIdentQuoting(t *testing.T) {
	assert.Equal(t, `"stores"`, ident("stores"))
	// Embedded quotes are doubled rather than breaking out of the literal.
	assert.Equal(t, `"evil""name"`, ident(`evil"name`))
}

func TestColumnType(t *testing.T) {
	tests := []struct {
		name  string
		field simplecms.FieldDescriptor
		want  string
	}{
		{"text", simplecms.FieldDescriptor{Kind: simplecms.FieldScalar, Type: simplecms.FieldTypeText}, "TEXT"},
		{"int", simplecms.FieldDescriptor{Kind: simplecms.FieldScalar, Type: simplecms.FieldTypeInt}, "BIGINT"},
		{"bool", simplecms.FieldDescriptor{Kind: simplecms.FieldScalar, Type: simplecms.FieldTypeBool}, "BOOLEAN NOT NULL DEFAULT FALSE"},
		{"timestamp", simplecms.FieldDescriptor{Kind: simplecms.FieldScalar, Type: simplecms.FieldTypeTimestamp}, "TIMESTAMPTZ"},
		{"asset locator is text", simplecms.FieldDescriptor{Kind: simplecms.FieldAsset, Type: simplecms.FieldTypeText}, "TEXT"},
		{"relation key is bigint regardless of type", simplecms.FieldDescriptor{Kind: simplecms.FieldRelationKey, Type: simplecms.FieldTypeText}, "BIGINT"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, columnType(tt.field))
		})
	}
}

func TestHandlePostgresError(t *testing.T) {
	t.Run("no rows maps to record not found", func(t *testing.T) {
		err := handlePostgresError("get stores", pgx.ErrNoRows)
		assert.ErrorIs(t, err, simplecms.ErrRecordNotFound)
	})

	t.Run("unique violation", func(t *testing.T) {
		err := handlePostgresError("insert stores", &pgconn.PgError{Code: "23505"})
		assert.Contains(t, err.Error(), "duplicate entry")
	})

	t.Run("undefined table suggests migration", func(t *testing.T) {
		err := handlePostgresError("query stores", &pgconn.PgError{Code: "42P01"})
		assert.Contains(t, err.Error(), "migration")
	})

	t.Run("other errors keep their cause", func(t *testing.T) {
		cause := errors.New("connection reset")
		err := handlePostgresError("query stores", cause)
		assert.ErrorIs(t, err, cause)
	})
}
