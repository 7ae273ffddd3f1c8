package postgres

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/maxviazov/ats-service/internal/model"
	"github.com/maxviazov/ats-service/internal/repository"
)

// q is the query surface shared by pgxpool.Pool and pgx.Tx.
type q interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// tableStore implements repository.Store for one table. Column names come from request
// bodies, so every identifier is quoted and every value goes through a placeholder.
type tableStore struct {
	db    q
	spec  repository.Table
	table string
	id    string
}

func newTableStore(db q, spec repository.Table) *tableStore {
	return &tableStore{
		db:    db,
		spec:  spec,
		table: ident(spec.Name),
		id:    ident(spec.IDColumn),
	}
}

var _ repository.Store = (*tableStore)(nil)

func ident(name string) string { return pgx.Identifier{name}.Sanitize() }

func (s *tableStore) FindMany(ctx context.Context, args repository.FindArgs) ([]model.Record, error) {
	var sb strings.Builder
	sb.WriteString("SELECT * FROM " + s.table)
	params := whereClause(&sb, args.Where, nil)

	orderBy := s.id
	if args.OrderBy != "" {
		orderBy = ident(args.OrderBy)
	}
	sb.WriteString(" ORDER BY " + orderBy)
	if args.Desc {
		sb.WriteString(" DESC")
	}
	if args.Take > 0 {
		params = append(params, args.Take)
		fmt.Fprintf(&sb, " LIMIT $%d", len(params))
	}
	if args.Skip > 0 {
		params = append(params, args.Skip)
		fmt.Fprintf(&sb, " OFFSET $%d", len(params))
	}

	rows, err := s.db.Query(ctx, sb.String(), params...)
	if err != nil {
		return nil, repository.MapPgError(err)
	}
	return collect(rows)
}

func (s *tableStore) Count(ctx context.Context, where repository.Where) (int64, error) {
	var sb strings.Builder
	sb.WriteString("SELECT count(*) FROM " + s.table)
	params := whereClause(&sb, where, nil)

	var n int64
	if err := s.db.QueryRow(ctx, sb.String(), params...).Scan(&n); err != nil {
		return 0, repository.MapPgError(err)
	}
	return n, nil
}

func (s *tableStore) FindUnique(ctx context.Context, id any) (model.Record, error) {
	rows, err := s.db.Query(ctx, "SELECT * FROM "+s.table+" WHERE "+s.id+" = $1", id)
	if err != nil {
		return nil, repository.MapPgError(err)
	}
	return collectOne(rows)
}

func (s *tableStore) Create(ctx context.Context, data model.Record) (model.Record, error) {
	cols := sortedKeys(data)
	var sql string
	params := make([]any, 0, len(cols))
	if len(cols) == 0 {
		sql = "INSERT INTO " + s.table + " DEFAULT VALUES RETURNING *"
	} else {
		names := make([]string, len(cols))
		marks := make([]string, len(cols))
		for i, c := range cols {
			names[i] = ident(c)
			marks[i] = fmt.Sprintf("$%d", i+1)
			params = append(params, data[c])
		}
		sql = "INSERT INTO " + s.table + " (" + strings.Join(names, ", ") + ") VALUES (" +
			strings.Join(marks, ", ") + ") RETURNING *"
	}

	if _, explicit := data[s.spec.IDColumn]; !explicit {
		rows, err := s.db.Query(ctx, sql, params...)
		if err != nil {
			return nil, repository.MapPgError(err)
		}
		return collectOne(rows)
	}

	// An explicit id bypasses the serial sequence, so move the sequence past it in the
	// same transaction or later inserts would reuse the id.
	var created model.Record
	err := pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, sql, params...)
		if err != nil {
			return repository.MapPgError(err)
		}
		if created, err = collectOne(rows); err != nil {
			return err
		}
		_, err = tx.Exec(ctx, advanceSequenceSQL, s.table, s.spec.IDColumn, created[s.spec.IDColumn])
		return repository.MapPgError(err)
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// advanceSequenceSQL raises a column's serial sequence to at least $3. Tables without a
// sequence are left alone.
const advanceSequenceSQL = `SELECT setval(seq, GREATEST($3::bigint, COALESCE(pg_sequence_last_value(seq), 0)))
FROM (SELECT pg_get_serial_sequence($1, $2)::regclass AS seq) s
WHERE seq IS NOT NULL`

func (s *tableStore) Update(ctx context.Context, id any, data model.Record) (model.Record, error) {
	data = data.Without(s.spec.IDColumn)
	cols := sortedKeys(data)

	sets := make([]string, 0, len(cols)+1)
	params := make([]any, 0, len(cols)+1)
	for _, c := range cols {
		params = append(params, data[c])
		sets = append(sets, fmt.Sprintf("%s = $%d", ident(c), len(params)))
	}
	if s.spec.UpdatedAtColumn != "" {
		if _, explicit := data[s.spec.UpdatedAtColumn]; !explicit {
			sets = append(sets, ident(s.spec.UpdatedAtColumn)+" = now()")
		}
	}
	if len(sets) == 0 {
		return s.FindUnique(ctx, id)
	}

	params = append(params, id)
	sql := fmt.Sprintf("UPDATE %s SET %s WHERE %s = $%d RETURNING *",
		s.table, strings.Join(sets, ", "), s.id, len(params))
	rows, err := s.db.Query(ctx, sql, params...)
	if err != nil {
		return nil, repository.MapPgError(err)
	}
	return collectOne(rows)
}

func (s *tableStore) Delete(ctx context.Context, id any) (model.Record, error) {
	rows, err := s.db.Query(ctx, "DELETE FROM "+s.table+" WHERE "+s.id+" = $1 RETURNING *", id)
	if err != nil {
		return nil, repository.MapPgError(err)
	}
	return collectOne(rows)
}

func (s *tableStore) GroupCount(ctx context.Context, column string, where repository.Where) ([]model.GroupCount, error) {
	col := ident(column)
	var sb strings.Builder
	sb.WriteString("SELECT " + col + ", count(*) FROM " + s.table)
	params := whereClause(&sb, where, nil)
	sb.WriteString(" GROUP BY " + col + " ORDER BY " + col)

	rows, err := s.db.Query(ctx, sb.String(), params...)
	if err != nil {
		return nil, repository.MapPgError(err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.GroupCount, error) {
		var g model.GroupCount
		err := row.Scan(&g.Value, &g.Count)
		return g, err
	})
	if err != nil {
		return nil, repository.MapPgError(err)
	}
	return out, nil
}

// whereClause appends "WHERE a = $n AND ..." in column order and returns the extended params.
// A nil filter value matches NULL.
func whereClause(sb *strings.Builder, where repository.Where, params []any) []any {
	cols := sortedKeys(where)
	for i, c := range cols {
		if i == 0 {
			sb.WriteString(" WHERE ")
		} else {
			sb.WriteString(" AND ")
		}
		if where[c] == nil {
			sb.WriteString(ident(c) + " IS NULL")
			continue
		}
		params = append(params, where[c])
		fmt.Fprintf(sb, "%s = $%d", ident(c), len(params))
	}
	return params
}

func sortedKeys[M ~map[string]any](m M) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func collect(rows pgx.Rows) ([]model.Record, error) {
	maps, err := pgx.CollectRows(rows, pgx.RowToMap)
	if err != nil {
		return nil, repository.MapPgError(err)
	}
	out := make([]model.Record, len(maps))
	for i, m := range maps {
		out[i] = model.Record(m)
	}
	return out, nil
}

// collectOne maps an empty result to repository.ErrNotFound.
func collectOne(rows pgx.Rows) (model.Record, error) {
	m, err := pgx.CollectExactlyOneRow(rows, pgx.RowToMap)
	if err != nil {
		return nil, repository.MapPgError(err)
	}
	return model.Record(m), nil
}
