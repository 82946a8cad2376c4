package simplecms

import "time"

// Record is a single row of some entity, keyed by field name. The generic
// layer never compiles per-entity structs; the descriptor says what the
// map is allowed to contain.
type Record map[string]any

// ID returns the record's primary key, or 0 when unset.
func (r Record) ID() int64 {
	return r.Int64("id")
}

// Position returns the record's position field, or 0 when unset.
func (r Record) Position() int {
	return int(r.Int64("position"))
}

// Int64 reads a numeric field, tolerating the integer widths that JSON
// decoding and database scanning produce.
func (r Record) Int64(field string) int64 {
	switch v := r[field].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case int32:
		return int64(v)
	case float64:
		return int64(v)
	default:
		return 0
	}
}

// String reads a text field; a null or absent field reads as "".
func (r Record) String(field string) string {
	s, _ := r[field].(string)
	return s
}

// Time reads a timestamp field; a null or absent field reads as zero time.
func (r Record) Time(field string) time.Time {
	t, _ := r[field].(time.Time)
	return t
}

// Clone returns a shallow copy so callers cannot mutate repository state.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// RecordGraph is a record loaded together with its cascade-eligible child
// rows, keyed by child entity name.
type RecordGraph struct {
	Record   Record
	Children map[string][]Record
}

// PositionUpdate assigns a new 1-based position to one row.
type PositionUpdate struct {
	ID       int64
	Position int
}
