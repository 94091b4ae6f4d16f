package domain

import (
	"bytes"
	"encoding/json/jsontext"
	"encoding/json/v2"
	"fmt"
)

// MembershipShape is the stored shape of a showcase's itemIds field.
// Historical writers stored lists, single strings and id maps.
type MembershipShape int

const (
	ShapeAbsent MembershipShape = iota
	ShapeList
	ShapeScalar
	ShapeMap
	ShapeOther
)

func (s MembershipShape) String() string {
	switch s {
	case ShapeAbsent:
		return "absent"
	case ShapeList:
		return "list"
	case ShapeScalar:
		return "scalar"
	case ShapeMap:
		return "map"
	default:
		return "other"
	}
}

// ItemIDs is the normalized membership of a showcase: an ordered list of
// distinct, non-empty item ids. Decoding accepts every historical shape;
// encoding always writes a list.
type ItemIDs []string

// rawMembership is the tagged variant read off the wire before normalization.
type rawMembership struct {
	shape  MembershipShape
	values []string // candidate strings in document order
}

// ParseItemIDs normalizes a raw itemIds value and reports the shape it had.
// It never fails: unexpected shapes normalize to an empty list.
func ParseItemIDs(raw jsontext.Value) (ItemIDs, MembershipShape) {
	m := readMembership(raw)
	return normalize(m.values), m.shape
}

func readMembership(raw jsontext.Value) rawMembership {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return rawMembership{shape: ShapeAbsent}
	}

	switch raw.Kind() {
	case 'n':
		return rawMembership{shape: ShapeAbsent}
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return rawMembership{shape: ShapeOther}
		}
		return rawMembership{shape: ShapeScalar, values: []string{s}}
	case '[':
		var elems []jsontext.Value
		if err := json.Unmarshal(raw, &elems); err != nil {
			return rawMembership{shape: ShapeOther}
		}
		return rawMembership{shape: ShapeList, values: stringsOf(elems)}
	case '{':
		values, err := objectValues(raw)
		if err != nil {
			return rawMembership{shape: ShapeOther}
		}
		return rawMembership{shape: ShapeMap, values: stringsOf(values)}
	default:
		return rawMembership{shape: ShapeOther}
	}
}

// objectValues returns the member values of a JSON object in document order.
func objectValues(raw jsontext.Value) ([]jsontext.Value, error) {
	dec := jsontext.NewDecoder(bytes.NewReader(raw))
	if _, err := dec.ReadToken(); err != nil {
		return nil, err
	}
	var out []jsontext.Value
	for dec.PeekKind() != '}' {
		if _, err := dec.ReadToken(); err != nil {
			return nil, err
		}
		v, err := dec.ReadValue()
		if err != nil {
			return nil, err
		}
		out = append(out, v.Clone())
	}
	return out, nil
}

// stringsOf keeps the elements that are JSON strings.
func stringsOf(elems []jsontext.Value) []string {
	out := make([]string, 0, len(elems))
	for _, e := range elems {
		if e.Kind() != '"' {
			continue
		}
		var s string
		if err := json.Unmarshal(e, &s); err == nil {
			out = append(out, s)
		}
	}
	return out
}

func normalize(values []string) ItemIDs {
	out := make(ItemIDs, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// NewItemIDs normalizes an in-memory list.
func NewItemIDs(ids ...string) ItemIDs {
	return normalize(ids)
}

// UnmarshalJSON accepts any historical shape of the field.
func (ids *ItemIDs) UnmarshalJSON(data []byte) error {
	*ids, _ = ParseItemIDs(jsontext.Value(data))
	return nil
}

// MarshalJSON always writes a normalized list.
func (ids ItemIDs) MarshalJSON() ([]byte, error) {
	list := []string(normalize(ids))
	b, err := json.Marshal(list)
	if err != nil {
		return nil, fmt.Errorf("marshal item ids: %w", err)
	}
	return b, nil
}

// Strings returns the ids as a plain slice.
func (ids ItemIDs) Strings() []string {
	return []string(ids)
}
