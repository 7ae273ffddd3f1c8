package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/maxviazov/ats-service/internal/model"
	"github.com/maxviazov/ats-service/internal/repository"
)

type tableStore struct {
	db    *sql.DB
	spec  repository.Table
	table string
	id    string
}

var _ repository.Store = (*tableStore)(nil)

// quote renders an SQL identifier; embedded quotes are doubled.
func quote(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func (s *tableStore) FindMany(ctx context.Context, args repository.FindArgs) ([]model.Record, error) {
	var sb strings.Builder
	sb.WriteString("SELECT * FROM " + s.table)
	params, err := whereClause(&sb, args.Where)
	if err != nil {
		return nil, err
	}

	orderBy := s.id
	if args.OrderBy != "" {
		orderBy = quote(args.OrderBy)
	}
	sb.WriteString(" ORDER BY " + orderBy)
	if args.Desc {
		sb.WriteString(" DESC")
	}
	switch {
	case args.Take > 0:
		sb.WriteString(" LIMIT ?")
		params = append(params, args.Take)
	case args.Skip > 0:
		// OFFSET needs a LIMIT in SQLite
		sb.WriteString(" LIMIT -1")
	}
	if args.Skip > 0 {
		sb.WriteString(" OFFSET ?")
		params = append(params, args.Skip)
	}

	return s.query(ctx, sb.String(), params...)
}

func (s *tableStore) Count(ctx context.Context, where repository.Where) (int64, error) {
	var sb strings.Builder
	sb.WriteString("SELECT count(*) FROM " + s.table)
	params, err := whereClause(&sb, where)
	if err != nil {
		return 0, err
	}
	var n int64
	if err := s.db.QueryRowContext(ctx, sb.String(), params...).Scan(&n); err != nil {
		return 0, repository.MapSQLiteError(err)
	}
	return n, nil
}

func (s *tableStore) FindUnique(ctx context.Context, id any) (model.Record, error) {
	return s.queryOne(ctx, "SELECT * FROM "+s.table+" WHERE "+s.id+" = ?", id)
}

func (s *tableStore) Create(ctx context.Context, data model.Record) (model.Record, error) {
	cols := sortedKeys(data)
	if len(cols) == 0 {
		return s.queryOne(ctx, "INSERT INTO "+s.table+" DEFAULT VALUES RETURNING *")
	}

	names := make([]string, len(cols))
	marks := make([]string, len(cols))
	params := make([]any, len(cols))
	for i, c := range cols {
		v, err := bindValue(data[c])
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", c, err)
		}
		names[i] = quote(c)
		marks[i] = "?"
		params[i] = v
	}
	sql := "INSERT INTO " + s.table + " (" + strings.Join(names, ", ") + ") VALUES (" +
		strings.Join(marks, ", ") + ") RETURNING *"
	return s.queryOne(ctx, sql, params...)
}

func (s *tableStore) Update(ctx context.Context, id any, data model.Record) (model.Record, error) {
	data = data.Without(s.spec.IDColumn)
	cols := sortedKeys(data)

	sets := make([]string, 0, len(cols)+1)
	params := make([]any, 0, len(cols)+1)
	for _, c := range cols {
		v, err := bindValue(data[c])
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", c, err)
		}
		sets = append(sets, quote(c)+" = ?")
		params = append(params, v)
	}
	if s.spec.UpdatedAtColumn != "" {
		if _, explicit := data[s.spec.UpdatedAtColumn]; !explicit {
			sets = append(sets, quote(s.spec.UpdatedAtColumn)+" = CURRENT_TIMESTAMP")
		}
	}
	if len(sets) == 0 {
		return s.FindUnique(ctx, id)
	}

	params = append(params, id)
	sql := "UPDATE " + s.table + " SET " + strings.Join(sets, ", ") + " WHERE " + s.id + " = ? RETURNING *"
	return s.queryOne(ctx, sql, params...)
}

func (s *tableStore) Delete(ctx context.Context, id any) (model.Record, error) {
	return s.queryOne(ctx, "DELETE FROM "+s.table+" WHERE "+s.id+" = ? RETURNING *", id)
}

func (s *tableStore) GroupCount(ctx context.Context, column string, where repository.Where) ([]model.GroupCount, error) {
	col := quote(column)
	var sb strings.Builder
	sb.WriteString("SELECT " + col + ", count(*) FROM " + s.table)
	params, err := whereClause(&sb, where)
	if err != nil {
		return nil, err
	}
	sb.WriteString(" GROUP BY " + col + " ORDER BY " + col)

	rows, err := s.db.QueryContext(ctx, sb.String(), params...)
	if err != nil {
		return nil, repository.MapSQLiteError(err)
	}
	defer rows.Close()

	var out []model.GroupCount
	for rows.Next() {
		var g model.GroupCount
		if err := rows.Scan(&g.Value, &g.Count); err != nil {
			return nil, repository.MapSQLiteError(err)
		}
		g.Value = readValue(g.Value)
		out = append(out, g)
	}
	if err := rows.Err(); err != nil {
		return nil, repository.MapSQLiteError(err)
	}
	return out, nil
}

func (s *tableStore) query(ctx context.Context, query string, args ...any) ([]model.Record, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, repository.MapSQLiteError(err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, repository.MapSQLiteError(err)
	}
	out := []model.Record{}
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, repository.MapSQLiteError(err)
		}
		rec := make(model.Record, len(cols))
		for i, c := range cols {
			rec[c] = readValue(values[i])
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, repository.MapSQLiteError(err)
	}
	return out, nil
}

// queryOne runs a statement expected to yield one row; none means repository.ErrNotFound.
func (s *tableStore) queryOne(ctx context.Context, query string, args ...any) (model.Record, error) {
	recs, err := s.query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, repository.ErrNotFound
	}
	return recs[0], nil
}

func whereClause(sb *strings.Builder, where repository.Where) ([]any, error) {
	cols := sortedKeys(where)
	params := make([]any, 0, len(cols))
	for i, c := range cols {
		if i == 0 {
			sb.WriteString(" WHERE ")
		} else {
			sb.WriteString(" AND ")
		}
		if where[c] == nil {
			sb.WriteString(quote(c) + " IS NULL")
			continue
		}
		v, err := bindValue(where[c])
		if err != nil {
			return nil, fmt.Errorf("filter %s: %w", c, err)
		}
		sb.WriteString(quote(c) + " = ?")
		params = append(params, v)
	}
	return params, nil
}

// bindValue stores nested JSON values as text; SQLite has no json column type.
func bindValue(v any) (any, error) {
	switch v.(type) {
	case map[string]any, []any:
		b, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		return string(b), nil
	}
	return v, nil
}

func readValue(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}

func sortedKeys[M ~map[string]any](m M) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
