package crud

import (
	"encoding/json"
	"errors"
	"io"

	"github.com/maxviazov/ats-service/internal/model"
)

var (
	errNotObject    = errors.New("request body must be a JSON object")
	errTrailingData = errors.New("unexpected data after JSON object")
)

// decodeRecord reads a JSON object. Numbers keep their integer-ness: whole values become
// int64, anything else float64, so id and foreign key columns compare cleanly in every backend.
func decodeRecord(r io.Reader) (model.Record, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	// only whitespace may follow the value; More() misses stray closing delimiters
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errTrailingData
	}
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, errNotObject
	}
	return model.Record(normalizeNumbers(obj).(map[string]any)), nil
}

func normalizeNumbers(v any) any {
	switch x := v.(type) {
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return n
		}
		if f, err := x.Float64(); err == nil {
			return f
		}
		return x.String()
	case map[string]any:
		for k, e := range x {
			x[k] = normalizeNumbers(e)
		}
		return x
	case []any:
		for i, e := range x {
			x[i] = normalizeNumbers(e)
		}
		return x
	}
	return v
}
