package store

import (
	"strings"
)

// Path addresses a document or a collection as slash-separated segments.
// Documents have an even number of segments ("publicShowcases/sc-1"),
// collections an odd number ("users/u1/showcases").
type Path string

// Doc joins segments into a path. Empty segments make the path invalid.
func Doc(segments ...string) Path {
	return Path(strings.Join(segments, "/"))
}

// Collection is an alias of Doc that reads better at call sites naming a collection.
func Collection(segments ...string) Path {
	return Doc(segments...)
}

// String implements fmt.Stringer.
func (p Path) String() string { return string(p) }

// Segments splits the path into its components.
func (p Path) Segments() []string {
	if p == "" {
		return nil
	}
	return strings.Split(string(p), "/")
}

// Valid reports whether every segment is non-empty.
func (p Path) Valid() bool {
	if p == "" {
		return false
	}
	for _, seg := range p.Segments() {
		if seg == "" {
			return false
		}
	}
	return true
}

// IsDocument reports whether p names a document.
func (p Path) IsDocument() bool {
	return p.Valid() && len(p.Segments())%2 == 0
}

// IsCollection reports whether p names a collection.
func (p Path) IsCollection() bool {
	return p.Valid() && len(p.Segments())%2 == 1
}

// ID returns the last segment.
func (p Path) ID() string {
	s := string(p)
	if i := strings.LastIndexByte(s, '/'); i >= 0 {
		return s[i+1:]
	}
	return s
}

// Parent returns the path without its last segment.
// For a document this is its collection.
func (p Path) Parent() Path {
	s := string(p)
	if i := strings.LastIndexByte(s, '/'); i >= 0 {
		return Path(s[:i])
	}
	return ""
}

// CollectionID returns the id of the collection a document lives in.
func (p Path) CollectionID() string {
	return p.Parent().ID()
}

// Child appends a segment.
func (p Path) Child(id string) Path {
	if p == "" {
		return Path(id)
	}
	return Path(string(p) + "/" + id)
}

// Root returns the first segment.
func (p Path) Root() string {
	s := string(p)
	if i := strings.IndexByte(s, '/'); i >= 0 {
		return s[:i]
	}
	return s
}

// HasDirectChild reports whether doc sits directly inside collection p.
func (p Path) HasDirectChild(doc Path) bool {
	prefix := string(p) + "/"
	rest, ok := strings.CutPrefix(string(doc), prefix)
	return ok && rest != "" && !strings.Contains(rest, "/")
}
