package store

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"time"
)

// Op is a filter comparison operator.
type Op string

// Supported filter operators.
const (
	OpEqual         Op = "=="
	OpNotEqual      Op = "!="
	OpLess          Op = "<"
	OpLessEqual     Op = "<="
	OpGreater       Op = ">"
	OpGreaterEqual  Op = ">="
	OpArrayContains Op = "array-contains"
	OpIn            Op = "in"
)

// Filter restricts query results on one top-level field.
type Filter struct {
	Field string
	Op    Op
	Value any
}

// Query selects documents from one collection, or from every collection with a
// given id when Group is set.
type Query struct {
	Collection Path
	Group      string
	Filters    []Filter
	OrderBy    string
	Descending bool
	Limit      int
}

// From starts a query over a collection.
func From(collection Path) Query {
	return Query{Collection: collection}
}

// FromGroup starts a query over every collection named id, at any depth.
func FromGroup(id string) Query {
	return Query{Group: id}
}

// Where adds a filter.
func (q Query) Where(field string, op Op, value any) Query {
	q.Filters = append(slices.Clone(q.Filters), Filter{Field: field, Op: op, Value: value})
	return q
}

// Order sets the sort field.
func (q Query) Order(field string, descending bool) Query {
	q.OrderBy = field
	q.Descending = descending
	return q
}

// Take limits the number of results. Zero means unlimited.
func (q Query) Take(n int) Query {
	q.Limit = n
	return q
}

// Validate checks the query addresses something.
func (q Query) Validate() error {
	switch {
	case q.Group != "":
		if strings.Contains(q.Group, "/") {
			return ErrInvalidPath.WithMessage("collection group id must be a single segment")
		}
	case !q.Collection.IsCollection():
		return ErrInvalidPath.WithMessage(fmt.Sprintf("not a collection path: %q", q.Collection))
	}
	for _, f := range q.Filters {
		switch f.Op {
		case OpEqual, OpNotEqual, OpLess, OpLessEqual, OpGreater, OpGreaterEqual, OpArrayContains, OpIn:
		default:
			return ErrInvalidInput.WithMessage(fmt.Sprintf("unsupported operator %q", f.Op))
		}
	}
	return nil
}

// Covers reports whether a document path falls inside the query's scope.
func (q Query) Covers(p Path) bool {
	if !p.IsDocument() {
		return false
	}
	if q.Group != "" {
		return p.CollectionID() == q.Group
	}
	return q.Collection.HasDirectChild(p)
}

// ScanPrefix returns the key-space prefix a backend must scan for this query.
func (q Query) ScanPrefix() string {
	if q.Group != "" {
		return ""
	}
	return string(q.Collection) + "/"
}

// match reports whether a decoded document body passes every filter.
func (q Query) match(fields map[string]any) bool {
	for _, f := range q.Filters {
		v, ok := fields[f.Field]
		if !ok {
			if f.Op == OpNotEqual {
				continue
			}
			return false
		}
		if !evalFilter(v, f) {
			return false
		}
	}
	return true
}

func evalFilter(v any, f Filter) bool {
	switch f.Op {
	case OpArrayContains:
		arr, ok := v.([]any)
		if !ok {
			return false
		}
		for _, el := range arr {
			if c, ok := compareValues(el, f.Value); ok && c == 0 {
				return true
			}
		}
		return false
	case OpIn:
		for _, want := range toSlice(f.Value) {
			if c, ok := compareValues(v, want); ok && c == 0 {
				return true
			}
		}
		return false
	}

	c, ok := compareValues(v, f.Value)
	if !ok {
		return f.Op == OpNotEqual
	}
	switch f.Op {
	case OpEqual:
		return c == 0
	case OpNotEqual:
		return c != 0
	case OpLess:
		return c < 0
	case OpLessEqual:
		return c <= 0
	case OpGreater:
		return c > 0
	case OpGreaterEqual:
		return c >= 0
	}
	return false
}

func toSlice(v any) []any {
	switch vs := v.(type) {
	case []any:
		return vs
	case []string:
		out := make([]any, len(vs))
		for i, s := range vs {
			out[i] = s
		}
		return out
	default:
		return []any{v}
	}
}

// compareValues orders a stored value against a filter value. Timestamps are
// stored as RFC 3339 strings and compared as instants when either side is a time.
func compareValues(stored, want any) (int, bool) {
	if t, ok := want.(time.Time); ok {
		st, ok := asTime(stored)
		if !ok {
			return 0, false
		}
		return st.Compare(t), true
	}
	if wf, ok := asFloat(want); ok {
		sf, ok := asFloat(stored)
		if !ok {
			return 0, false
		}
		return cmp.Compare(sf, wf), true
	}
	switch w := want.(type) {
	case string:
		s, ok := stored.(string)
		if !ok {
			return 0, false
		}
		if st, okS := asTime(s); okS {
			if wt, okW := asTime(w); okW {
				return st.Compare(wt), true
			}
		}
		return strings.Compare(s, w), true
	case bool:
		b, ok := stored.(bool)
		if !ok {
			return 0, false
		}
		switch {
		case b == w:
			return 0, true
		case !b:
			return -1, true
		default:
			return 1, true
		}
	case nil:
		if stored == nil {
			return 0, true
		}
		return 1, true
	}
	return 0, false
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	}
	return 0, false
}

func asTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		if len(t) < len("2006-01-02T15:04:05Z") {
			return time.Time{}, false
		}
		parsed, err := time.Parse(time.RFC3339Nano, t)
		if err != nil {
			return time.Time{}, false
		}
		return parsed, true
	}
	return time.Time{}, false
}

// Run filters, orders and limits candidate documents. Backends load the
// candidates covered by the query and hand them here.
func (q Query) Run(candidates []*Document) ([]*Document, error) {
	type row struct {
		doc    *Document
		fields map[string]any
	}

	rows := make([]row, 0, len(candidates))
	for _, doc := range candidates {
		if !q.Covers(doc.Path) {
			continue
		}
		fields, err := doc.Fields()
		if err != nil {
			return nil, err
		}
		if q.match(fields) {
			rows = append(rows, row{doc: doc, fields: fields})
		}
	}

	slices.SortStableFunc(rows, func(a, b row) int {
		if q.OrderBy != "" {
			av, aok := a.fields[q.OrderBy]
			bv, bok := b.fields[q.OrderBy]
			var c int
			switch {
			case !aok && !bok:
				c = 0
			case !aok:
				c = -1
			case !bok:
				c = 1
			default:
				c, _ = compareValues(av, bv)
			}
			if q.Descending {
				c = -c
			}
			if c != 0 {
				return c
			}
		}
		return strings.Compare(string(a.doc.Path), string(b.doc.Path))
	})

	if q.Limit > 0 && len(rows) > q.Limit {
		rows = rows[:q.Limit]
	}

	out := make([]*Document, len(rows))
	for i, r := range rows {
		out[i] = r.doc
	}
	return out, nil
}
