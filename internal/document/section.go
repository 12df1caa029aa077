package document

import (
	"strings"
)

// Separator joins path segments.
const Separator = "."

// Section is a sub-table of a parsed document. It remembers its own path
// from the document root so callers can compose absolute paths. Sections are
// never modified after Parse returns.
type Section struct {
	path   string
	keys   []string
	values map[string]Value
}

func newSection(path string) *Section {
	return &Section{
		path:   path,
		values: make(map[string]Value),
	}
}

// Path returns the section's path from the document root. The root itself
// has an empty path.
func (s *Section) Path() string { return s.path }

// Join composes the absolute path of key inside this section.
func (s *Section) Join(key string) string {
	return JoinPath(s.path, key)
}

// Keys returns the direct child keys in document order.
func (s *Section) Keys() []string {
	out := make([]string, len(s.keys))
	copy(out, s.keys)
	return out
}

// Len returns the number of direct children.
func (s *Section) Len() int { return len(s.keys) }

// Get returns the value at a dotted path relative to this section. An empty
// path returns the section itself.
func (s *Section) Get(path string) (Value, bool) {
	parts := splitPath(path)
	if len(parts) == 0 {
		return sectionValue(s), true
	}

	cur := s
	for i, part := range parts {
		v, ok := cur.values[part]
		if !ok {
			return Value{}, false
		}
		if i == len(parts)-1 {
			return v, true
		}
		next, ok := v.AsSection()
		if !ok {
			return Value{}, false
		}
		cur = next
	}
	return Value{}, false
}

// Section returns the sub-table at a dotted path relative to this section.
func (s *Section) Section(path string) (*Section, bool) {
	v, ok := s.Get(path)
	if !ok {
		return nil, false
	}
	return v.AsSection()
}

// Walk calls fn for every leaf below the section in document order, with the
// leaf's path relative to the section.
func (s *Section) Walk(fn func(path string, v Value)) {
	s.walk("", fn)
}

func (s *Section) walk(prefix string, fn func(string, Value)) {
	for _, k := range s.keys {
		v := s.values[k]
		p := JoinPath(prefix, k)
		if sub, ok := v.AsSection(); ok {
			sub.walk(p, fn)
			continue
		}
		fn(p, v)
	}
}

func (s *Section) set(key string, v Value) {
	if _, exists := s.values[key]; !exists {
		s.keys = append(s.keys, key)
	}
	s.values[key] = v
}

// JoinPath joins two path fragments with Separator, dropping empty ones.
func JoinPath(base, key string) string {
	switch {
	case base == "":
		return key
	case key == "":
		return base
	default:
		return base + Separator + key
	}
}

// splitPath splits a dotted path into its non-empty segments.
func splitPath(path string) []string {
	if path == "" {
		return nil
	}
	raw := strings.Split(path, Separator)
	parts := raw[:0]
	for _, p := range raw {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}
