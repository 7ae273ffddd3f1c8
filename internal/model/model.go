// Package model contains the data shapes shared across layers.
// I keep it lean: records are opaque column maps, the storage layer owns their meaning.
package model

// Record is one row of an entity keyed by column name.
// Only the identifier column is interpreted by the CRUD layer; everything else passes through.
type Record map[string]any

// Clone returns a shallow copy so callers can mutate without aliasing stored rows.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Without returns a copy of the record with the given columns removed.
func (r Record) Without(columns ...string) Record {
	out := r.Clone()
	for _, c := range columns {
		delete(out, c)
	}
	return out
}

// GroupCount is a single bucket of a grouped count query (e.g. applications per status).
type GroupCount struct {
	Value any   `json:"value"`
	Count int64 `json:"count"`
}
