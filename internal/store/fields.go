package store

import (
	"bytes"
	"encoding/json/jsontext"
	"encoding/json/v2"
	"fmt"
	"maps"
	"slices"
	"time"
)

// Fields is a partial document update. Values are either plain JSON-able values
// that replace the field, or one of the transform sentinels below.
type Fields map[string]any

// transform is applied against the current value of a field during Update.
type transform interface {
	apply(current any, exists bool, now time.Time) (value any, remove bool, err error)
}

type increment struct{ delta float64 }

type serverTimestamp struct{}

type arrayUnion struct{ values []any }

type arrayRemove struct{ values []any }

type deleteField struct{}

// Increment adds delta to a numeric field. Missing or non-numeric fields start at zero.
func Increment(delta int64) any { return increment{delta: float64(delta)} }

// ServerTimestamp sets the field to the store's clock at write time.
var ServerTimestamp any = serverTimestamp{}

// DeleteField removes the field.
var DeleteField any = deleteField{}

// ArrayUnion appends each value not already present in the array field.
func ArrayUnion(values ...any) any { return arrayUnion{values: values} }

// ArrayRemove removes every occurrence of each value from the array field.
func ArrayRemove(values ...any) any { return arrayRemove{values: values} }

func (t increment) apply(current any, exists bool, _ time.Time) (any, bool, error) {
	base := 0.0
	if exists {
		if n, ok := current.(float64); ok {
			base = n
		}
	}
	return base + t.delta, false, nil
}

func (serverTimestamp) apply(_ any, _ bool, now time.Time) (any, bool, error) {
	return now.UTC().Format(time.RFC3339Nano), false, nil
}

func (deleteField) apply(any, bool, time.Time) (any, bool, error) {
	return nil, true, nil
}

func (t arrayUnion) apply(current any, exists bool, _ time.Time) (any, bool, error) {
	arr := asArray(current, exists)
	for _, v := range t.values {
		norm, err := normalizeValue(v)
		if err != nil {
			return nil, false, err
		}
		if indexOf(arr, norm) < 0 {
			arr = append(arr, norm)
		}
	}
	return arr, false, nil
}

func (t arrayRemove) apply(current any, exists bool, _ time.Time) (any, bool, error) {
	arr := asArray(current, exists)
	for _, v := range t.values {
		norm, err := normalizeValue(v)
		if err != nil {
			return nil, false, err
		}
		kept := arr[:0]
		for _, el := range arr {
			if !equalValues(el, norm) {
				kept = append(kept, el)
			}
		}
		arr = kept
	}
	return arr, false, nil
}

func asArray(current any, exists bool) []any {
	if !exists {
		return []any{}
	}
	arr, ok := current.([]any)
	if !ok {
		return []any{}
	}
	out := make([]any, len(arr))
	copy(out, arr)
	return out
}

func indexOf(arr []any, v any) int {
	for i, el := range arr {
		if equalValues(el, v) {
			return i
		}
	}
	return -1
}

// normalizeValue round-trips v through JSON so it compares against decoded fields.
func normalizeValue(v any) (any, error) {
	raw, err := json.Marshal(v, json.Deterministic(true))
	if err != nil {
		return nil, fmt.Errorf("marshal field value: %w", err)
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("normalize field value: %w", err)
	}
	return out, nil
}

func equalValues(a, b any) bool {
	ra, errA := json.Marshal(a, json.Deterministic(true))
	rb, errB := json.Marshal(b, json.Deterministic(true))
	if errA != nil || errB != nil {
		return false
	}
	return bytes.Equal(ra, rb)
}

// member is one top-level field of a document body in its stored order.
type member struct {
	name  string
	value jsontext.Value
}

// splitMembers reads the top-level members of an object body, keeping their
// order and leaving nested values untouched.
func splitMembers(data jsontext.Value) ([]member, error) {
	if len(data) == 0 {
		return nil, nil
	}
	dec := jsontext.NewDecoder(bytes.NewReader(data))
	tok, err := dec.ReadToken()
	if err != nil {
		return nil, fmt.Errorf("read document body: %w", err)
	}
	if tok.Kind() != '{' {
		return nil, ErrInvalidInput.WithMessage("document body must be a JSON object")
	}
	var out []member
	for dec.PeekKind() != '}' {
		name, err := dec.ReadToken()
		if err != nil {
			return nil, fmt.Errorf("read field name: %w", err)
		}
		val, err := dec.ReadValue()
		if err != nil {
			return nil, fmt.Errorf("read field %q: %w", name.String(), err)
		}
		out = append(out, member{name: name.String(), value: slices.Clone(val)})
	}
	return out, nil
}

func joinMembers(members []member) (jsontext.Value, error) {
	var buf bytes.Buffer
	enc := jsontext.NewEncoder(&buf)
	if err := enc.WriteToken(jsontext.BeginObject); err != nil {
		return nil, err
	}
	for _, m := range members {
		if err := enc.WriteToken(jsontext.String(m.name)); err != nil {
			return nil, err
		}
		if err := enc.WriteValue(m.value); err != nil {
			return nil, err
		}
	}
	if err := enc.WriteToken(jsontext.EndObject); err != nil {
		return nil, err
	}
	return jsontext.Value(bytes.TrimSpace(buf.Bytes())), nil
}

// ApplyFields merges fields into a document body and returns the new body.
// Untouched fields keep their position and exact encoding; new fields are
// appended in name order. Backends call this inside their write transaction.
func ApplyFields(data jsontext.Value, fields Fields, now time.Time) (jsontext.Value, error) {
	members, err := splitMembers(data)
	if err != nil {
		return nil, err
	}

	names := slices.Sorted(maps.Keys(fields))
	for _, name := range names {
		if name == "" {
			return nil, ErrInvalidInput.WithMessage("empty field name")
		}
		v := fields[name]
		idx := slices.IndexFunc(members, func(m member) bool { return m.name == name })

		var (
			next   any
			remove bool
		)
		if t, ok := v.(transform); ok {
			var old any
			exists := idx >= 0
			if exists {
				if err := json.Unmarshal(members[idx].value, &old); err != nil {
					return nil, fmt.Errorf("field %q: %w", name, err)
				}
			}
			next, remove, err = t.apply(old, exists, now)
			if err != nil {
				return nil, fmt.Errorf("field %q: %w", name, err)
			}
		} else {
			next = v
		}

		if remove {
			if idx >= 0 {
				members = slices.Delete(members, idx, idx+1)
			}
			continue
		}

		raw, err := json.Marshal(next, json.Deterministic(true))
		if err != nil {
			return nil, fmt.Errorf("field %q: marshal: %w", name, err)
		}
		if idx >= 0 {
			members[idx].value = raw
		} else {
			members = append(members, member{name: name, value: raw})
		}
	}

	return joinMembers(members)
}
