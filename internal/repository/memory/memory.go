// Package memory is an in-process repository backend. It honours the same constraint
// semantics as the SQL schemas (unique sets, references, server-assigned ids) from the
// repository.Table descriptors, so handlers behave identically on every driver.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/maxviazov/ats-service/internal/model"
	"github.com/maxviazov/ats-service/internal/repository"
)

// DB holds every table behind one lock so reference checks see a consistent view.
type DB struct {
	mu     sync.RWMutex
	tables map[string]*table
	now    func() time.Time
}

type table struct {
	spec   repository.Table
	rows   map[int64]model.Record
	nextID int64
}

var (
	_ repository.Tables = (*DB)(nil)
	_ repository.Pinger = (*DB)(nil)
)

func NewDB() *DB {
	return &DB{
		tables: make(map[string]*table),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Table registers spec (once per name) and returns its store.
func (db *DB) Table(spec repository.Table) repository.Store {
	db.mu.Lock()
	defer db.mu.Unlock()
	if t, ok := db.tables[spec.Name]; ok {
		t.spec = spec
	} else {
		db.tables[spec.Name] = &table{spec: spec, rows: make(map[int64]model.Record)}
	}
	return &store{db: db, name: spec.Name}
}

func (db *DB) Ping(context.Context) error { return nil }

type store struct {
	db   *DB
	name string
}

var _ repository.Store = (*store)(nil)

// tbl must be called with db.mu held.
func (s *store) tbl() *table { return s.db.tables[s.name] }

func (s *store) FindMany(ctx context.Context, args repository.FindArgs) ([]model.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	t := s.tbl()
	matched := t.filter(args.Where)
	orderBy := args.OrderBy
	if orderBy == "" {
		orderBy = t.spec.IDColumn
	}
	sort.SliceStable(matched, func(i, j int) bool {
		c := compare(matched[i][orderBy], matched[j][orderBy])
		if c == 0 {
			c = compare(matched[i][t.spec.IDColumn], matched[j][t.spec.IDColumn])
		}
		if args.Desc {
			return c > 0
		}
		return c < 0
	})

	if args.Skip > 0 {
		if args.Skip >= len(matched) {
			matched = nil
		} else {
			matched = matched[args.Skip:]
		}
	}
	if args.Take > 0 && len(matched) > args.Take {
		matched = matched[:args.Take]
	}

	out := make([]model.Record, len(matched))
	for i, r := range matched {
		out[i] = r.Clone()
	}
	return out, nil
}

func (s *store) Count(ctx context.Context, where repository.Where) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	return int64(len(s.tbl().filter(where))), nil
}

func (s *store) FindUnique(ctx context.Context, id any) (model.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	row, ok := s.tbl().get(id)
	if !ok {
		return nil, repository.ErrNotFound
	}
	return row.Clone(), nil
}

func (s *store) Create(ctx context.Context, data model.Record) (model.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	t := s.tbl()
	row := normalizeRecord(data)

	var id int64
	if raw, ok := row[t.spec.IDColumn]; ok && raw != nil {
		n, ok := raw.(int64)
		if !ok {
			return nil, fmt.Errorf("invalid value for %s.%s: %v", t.spec.Name, t.spec.IDColumn, raw)
		}
		if _, exists := t.rows[n]; exists {
			return nil, fmt.Errorf("%w: %s_pkey", repository.ErrAlreadyExists, t.spec.Name)
		}
		id = n
		if n > t.nextID {
			t.nextID = n
		}
	} else {
		t.nextID++
		id = t.nextID
	}
	row[t.spec.IDColumn] = id

	now := s.db.now()
	stamp(row, t.spec.CreatedAtColumn, now)
	stamp(row, t.spec.UpdatedAtColumn, now)

	if err := s.db.checkReferences(t, row); err != nil {
		return nil, err
	}
	if err := t.checkUnique(row, id); err != nil {
		return nil, err
	}
	t.rows[id] = row
	return row.Clone(), nil
}

func (s *store) Update(ctx context.Context, id any, data model.Record) (model.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	t := s.tbl()
	current, ok := t.get(id)
	if !ok {
		return nil, repository.ErrNotFound
	}
	key := current[t.spec.IDColumn].(int64)

	row := current.Clone()
	for k, v := range normalizeRecord(data.Without(t.spec.IDColumn)) {
		row[k] = v
	}
	if t.spec.UpdatedAtColumn != "" {
		if _, explicit := data[t.spec.UpdatedAtColumn]; !explicit {
			row[t.spec.UpdatedAtColumn] = s.db.now()
		}
	}

	if err := s.db.checkReferences(t, row); err != nil {
		return nil, err
	}
	if err := t.checkUnique(row, key); err != nil {
		return nil, err
	}
	t.rows[key] = row
	return row.Clone(), nil
}

func (s *store) Delete(ctx context.Context, id any) (model.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	t := s.tbl()
	row, ok := t.get(id)
	if !ok {
		return nil, repository.ErrNotFound
	}
	key := row[t.spec.IDColumn].(int64)
	if err := s.db.checkReferrers(t, key); err != nil {
		return nil, err
	}
	delete(t.rows, key)
	return row.Clone(), nil
}

func (s *store) GroupCount(ctx context.Context, column string, where repository.Where) ([]model.GroupCount, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	index := make(map[string]int)
	var out []model.GroupCount
	for _, row := range s.tbl().filter(where) {
		v := row[column]
		k := fmt.Sprintf("%T:%v", v, v)
		if i, ok := index[k]; ok {
			out[i].Count++
			continue
		}
		index[k] = len(out)
		out = append(out, model.GroupCount{Value: v, Count: 1})
	}
	sort.Slice(out, func(i, j int) bool { return compare(out[i].Value, out[j].Value) < 0 })
	return out, nil
}

func (t *table) get(id any) (model.Record, bool) {
	n, ok := normalize(id).(int64)
	if !ok {
		return nil, false
	}
	row, ok := t.rows[n]
	return row, ok
}

func (t *table) filter(where repository.Where) []model.Record {
	out := make([]model.Record, 0, len(t.rows))
	for _, row := range t.rows {
		if matches(row, where) {
			out = append(out, row)
		}
	}
	return out
}

func matches(row model.Record, where repository.Where) bool {
	for col, want := range where {
		if !equal(row[col], normalize(want)) {
			return false
		}
	}
	return true
}

// checkUnique rejects row when another row shares every column of a unique set.
// Sets containing a NULL never collide, matching SQL semantics.
func (t *table) checkUnique(row model.Record, self int64) error {
	for _, cols := range t.spec.Unique {
		if hasNull(row, cols) {
			continue
		}
		for id, other := range t.rows {
			if id == self || hasNull(other, cols) {
				continue
			}
			same := true
			for _, c := range cols {
				if !equal(row[c], other[c]) {
					same = false
					break
				}
			}
			if same {
				return fmt.Errorf("%w: %s_%s_key", repository.ErrAlreadyExists, t.spec.Name, strings.Join(cols, "_"))
			}
		}
	}
	return nil
}

func hasNull(row model.Record, cols []string) bool {
	for _, c := range cols {
		if row[c] == nil {
			return true
		}
	}
	return false
}

// checkReferences verifies every non-null foreign key on row points at an existing row.
func (db *DB) checkReferences(t *table, row model.Record) error {
	for col, target := range t.spec.References {
		v := row[col]
		if v == nil {
			continue
		}
		ref, ok := db.tables[target]
		if ok {
			if _, found := ref.get(v); found {
				continue
			}
		}
		return fmt.Errorf("%w: %s_%s_fkey", repository.ErrRelatedNotFound, t.spec.Name, col)
	}
	return nil
}

// checkReferrers refuses to delete a row other tables still point at.
func (db *DB) checkReferrers(t *table, id int64) error {
	for _, other := range db.tables {
		for col, target := range other.spec.References {
			if target != t.spec.Name {
				continue
			}
			for _, row := range other.rows {
				if equal(row[col], id) {
					return fmt.Errorf("%w: %s_%s_fkey", repository.ErrRelatedNotFound, other.spec.Name, col)
				}
			}
		}
	}
	return nil
}

func stamp(row model.Record, column string, now time.Time) {
	if column == "" {
		return
	}
	if v, ok := row[column]; !ok || v == nil {
		row[column] = now
	}
}
