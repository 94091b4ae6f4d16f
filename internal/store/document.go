package store

import (
	"encoding/json/jsontext"
	"encoding/json/v2"
	"fmt"
	"time"
)

// Document is a stored JSON object and the path it lives at.
type Document struct {
	Path      Path
	Data      jsontext.Value
	UpdatedAt time.Time
}

// record is the persisted envelope around a document body.
type record struct {
	Data      jsontext.Value `json:"data"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

// ID returns the document id (last path segment).
func (d *Document) ID() string {
	return d.Path.ID()
}

// Decode unmarshals the document body into v.
func (d *Document) Decode(v any) error {
	if err := json.Unmarshal(d.Data, v); err != nil {
		return fmt.Errorf("decode %s: %w", d.Path, err)
	}
	return nil
}

// Fields returns the document body as a generic map.
func (d *Document) Fields() (map[string]any, error) {
	return decodeFields(d.Data)
}

// Field returns a single top-level field.
func (d *Document) Field(name string) (any, bool) {
	fields, err := d.Fields()
	if err != nil {
		return nil, false
	}
	v, ok := fields[name]
	return v, ok
}

// RawField returns the undecoded JSON of a top-level field, preserving its
// original shape (including object key order).
func (d *Document) RawField(name string) (jsontext.Value, bool) {
	var fields map[string]jsontext.Value
	if err := json.Unmarshal(d.Data, &fields); err != nil {
		return nil, false
	}
	v, ok := fields[name]
	return v, ok
}

func decodeFields(data jsontext.Value) (map[string]any, error) {
	fields := make(map[string]any)
	if len(data) == 0 {
		return fields, nil
	}
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("document body is not an object: %w", err)
	}
	return fields, nil
}

// EncodeBody marshals a document body and checks it is a JSON object.
// Map keys are sorted; raw jsontext.Value input keeps its own order.
func EncodeBody(data any) (jsontext.Value, error) {
	raw, err := json.Marshal(data, json.Deterministic(true))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal document: %w", err)
	}
	if jsontext.Value(raw).Kind() != '{' {
		return nil, ErrInvalidInput.WithMessage("document body must be a JSON object")
	}
	return jsontext.Value(raw), nil
}
