package postgres

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tendant/simple-cms/pkg/simplecms"
)

// DBTX is an interface that allows us to use either a database connection or a transaction
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// Repository implements simplecms.Repository using PostgreSQL. Entity and
// field names come from descriptors registered at startup, never from
// request input; they are still quoted before being spliced into SQL.
type Repository struct {
	db   DBTX
	pool *pgxpool.Pool
}

// New creates a repository over an existing connection or transaction.
// WithTx degrades to running in the caller's transaction in this mode.
func New(db DBTX) *Repository {
	return &Repository{db: db}
}

// NewWithPool creates a repository that can open its own transactions.
func NewWithPool(pool *pgxpool.Pool) *Repository {
	return &Repository{db: pool, pool: pool}
}

func ident(name string) string {
	return pgx.Identifier{name}.Sanitize()
}

// Error handling helper
func handlePostgresError(operation string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return fmt.Errorf("duplicate entry in %s", operation)
		case "23503": // foreign_key_violation
			return fmt.Errorf("referenced record not found in %s", operation)
		case "23502": // not_null_violation
			return fmt.Errorf("required field %s is missing", pgErr.ColumnName)
		case "42P01": // undefined_table
			return fmt.Errorf("table does not exist - database migration required")
		default:
			return fmt.Errorf("database error in %s: %s (code: %s)", operation, pgErr.Message, pgErr.Code)
		}
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return simplecms.ErrRecordNotFound
	}
	return fmt.Errorf("database error in %s: %w", operation, err)
}

// whereClause renders the filter predicates, returning the SQL fragment
// and its arguments. Args are numbered from startArg.
func whereClause(filters []simplecms.Filter, search string, searchFields []string, startArg int) (string, []any) {
	var conds []string
	var args []any
	arg := startArg

	for _, f := range filters {
		switch f.Op {
		case simplecms.FilterContains:
			conds = append(conds, fmt.Sprintf("%s ILIKE $%d", ident(f.Field), arg))
			args = append(args, "%"+fmt.Sprintf("%v", f.Value)+"%")
		default:
			conds = append(conds, fmt.Sprintf("%s = $%d", ident(f.Field), arg))
			args = append(args, f.Value)
		}
		arg++
	}

	if search != "" && len(searchFields) > 0 {
		var ors []string
		for _, field := range searchFields {
			ors = append(ors, fmt.Sprintf("%s ILIKE $%d", ident(field), arg))
		}
		conds = append(conds, "("+strings.Join(ors, " OR ")+")")
		args = append(args, "%"+search+"%")
		arg++
	}

	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// Query operations

func (r *Repository) Query(ctx context.Context, entity string, q simplecms.Query) ([]simplecms.Record, error) {
	where, args := whereClause(q.Filters, q.Search, q.SearchFields, 1)

	sortField := q.SortField
	if sortField == "" {
		sortField = "id"
	}
	direction := "ASC"
	if q.SortDesc {
		direction = "DESC"
	}

	query := fmt.Sprintf("SELECT * FROM %s%s ORDER BY %s %s",
		ident(entity), where, ident(sortField), direction)
	if q.Take > 0 {
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", q.Take, q.Skip)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, handlePostgresError("query "+entity, err)
	}
	maps, err := pgx.CollectRows(rows, pgx.RowToMap)
	if err != nil {
		return nil, handlePostgresError("query "+entity, err)
	}

	records := make([]simplecms.Record, len(maps))
	for i, m := range maps {
		records[i] = simplecms.Record(m)
	}
	return records, nil
}

func (r *Repository) Count(ctx context.Context, entity string, q simplecms.CountQuery) (int64, error) {
	where, args := whereClause(q.Filters, q.Search, q.SearchFields, 1)
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s%s", ident(entity), where)

	var total int64
	if err := r.db.QueryRow(ctx, query, args...).Scan(&total); err != nil {
		return 0, handlePostgresError("count "+entity, err)
	}
	return total, nil
}

// Record operations

func (r *Repository) Get(ctx context.Context, entity string, id int64) (simplecms.Record, error) {
	query := fmt.Sprintf("SELECT * FROM %s WHERE id = $1", ident(entity))

	rows, err := r.db.Query(ctx, query, id)
	if err != nil {
		return nil, handlePostgresError("get "+entity, err)
	}
	m, err := pgx.CollectOneRow(rows, pgx.RowToMap)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, simplecms.ErrRecordNotFound
		}
		return nil, handlePostgresError("get "+entity, err)
	}
	return simplecms.Record(m), nil
}

func (r *Repository) GetWithRelations(ctx context.Context, entity string, id int64, relations []simplecms.RelationDescriptor) (*simplecms.RecordGraph, error) {
	parent, err := r.Get(ctx, entity, id)
	if err != nil {
		return nil, err
	}

	graph := &simplecms.RecordGraph{
		Record:   parent,
		Children: make(map[string][]simplecms.Record),
	}
	for _, rel := range relations {
		children, err := r.Query(ctx, rel.Child, simplecms.Query{
			Filters: []simplecms.Filter{{Field: rel.ForeignKey, Op: simplecms.FilterEquals, Value: id}},
		})
		if err != nil {
			return nil, err
		}
		graph.Children[rel.Child] = children
	}
	return graph, nil
}

func (r *Repository) Insert(ctx context.Context, entity string, rec simplecms.Record) (simplecms.Record, error) {
	cols := make([]string, 0, len(rec))
	for col := range rec {
		cols = append(cols, col)
	}
	sort.Strings(cols)

	quoted := make([]string, len(cols))
	placeholders := make([]string, len(cols))
	args := make([]any, len(cols))
	for i, col := range cols {
		quoted[i] = ident(col)
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = rec[col]
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING *",
		ident(entity), strings.Join(quoted, ", "), strings.Join(placeholders, ", "))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, handlePostgresError("insert "+entity, err)
	}
	m, err := pgx.CollectOneRow(rows, pgx.RowToMap)
	if err != nil {
		return nil, handlePostgresError("insert "+entity, err)
	}
	return simplecms.Record(m), nil
}

func (r *Repository) Update(ctx context.Context, entity string, id int64, fields simplecms.Record) (simplecms.Record, error) {
	if len(fields) == 0 {
		return r.Get(ctx, entity, id)
	}

	cols := make([]string, 0, len(fields))
	for col := range fields {
		cols = append(cols, col)
	}
	sort.Strings(cols)

	sets := make([]string, len(cols))
	args := make([]any, 0, len(cols)+1)
	for i, col := range cols {
		sets[i] = fmt.Sprintf("%s = $%d", ident(col), i+1)
		args = append(args, fields[col])
	}
	args = append(args, id)

	query := fmt.Sprintf("UPDATE %s SET %s WHERE id = $%d RETURNING *",
		ident(entity), strings.Join(sets, ", "), len(cols)+1)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, handlePostgresError("update "+entity, err)
	}
	m, err := pgx.CollectOneRow(rows, pgx.RowToMap)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, simplecms.ErrRecordNotFound
		}
		return nil, handlePostgresError("update "+entity, err)
	}
	return simplecms.Record(m), nil
}

func (r *Repository) Delete(ctx context.Context, entity string, id int64) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE id = $1", ident(entity))

	tag, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return handlePostgresError("delete "+entity, err)
	}
	if tag.RowsAffected() == 0 {
		return simplecms.ErrRecordNotFound
	}
	return nil
}

func (r *Repository) DeleteByField(ctx context.Context, entity string, field string, value any) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE %s = $1", ident(entity), ident(field))

	if _, err := r.db.Exec(ctx, query, value); err != nil {
		return handlePostgresError("delete "+entity, err)
	}
	return nil
}

// UpdatePositions commits every position change in one transaction; a
// missing row rolls the whole batch back.
func (r *Repository) UpdatePositions(ctx context.Context, entity string, updates []simplecms.PositionUpdate) error {
	return r.WithTx(ctx, func(txRepo simplecms.Repository) error {
		tx := txRepo.(*Repository)
		query := fmt.Sprintf("UPDATE %s SET position = $1, updated_at = NOW() WHERE id = $2", ident(entity))
		for _, u := range updates {
			tag, err := tx.db.Exec(ctx, query, u.Position, u.ID)
			if err != nil {
				return handlePostgresError("reorder "+entity, err)
			}
			if tag.RowsAffected() == 0 {
				return fmt.Errorf("position update for %s id %d: %w", entity, u.ID, simplecms.ErrRecordNotFound)
			}
		}
		return nil
	})
}

// WithTx runs fn inside a database transaction. A repository constructed
// over a bare connection or an outer transaction runs fn in place instead;
// nested transactions are not opened.
func (r *Repository) WithTx(ctx context.Context, fn func(simplecms.Repository) error) error {
	if r.pool == nil {
		return fn(r)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(New(tx)); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
