package document

import (
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

const (
	// maxDepth bounds nesting, including alias expansion.
	maxDepth = 64
	// maxAliasNodes bounds the nodes produced by expanding aliases, so a
	// small document cannot expand exponentially.
	maxAliasNodes = 10000
)

// ErrParse is matched by every *ParseError.
var ErrParse = errors.New("malformed document")

// ParseError represents an error while parsing a document.
type ParseError struct {
	// Name identifies the parsed input, usually a file path.
	Name string
	// Line is the line number where the error occurred (if available).
	Line int
	// Message describes the parse error.
	Message string
	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("parse error in %s at line %d: %s", e.Name, e.Line, e.Message)
	}
	return fmt.Sprintf("parse error in %s: %s", e.Name, e.Message)
}

// Unwrap returns the underlying error.
func (e *ParseError) Unwrap() error {
	return e.Err
}

// Is matches ErrParse.
func (e *ParseError) Is(target error) bool {
	return target == ErrParse
}

// Parse decodes YAML into a document tree. An empty input yields an empty
// root section. A top level that is not a mapping is a *ParseError, as is any
// YAML syntax error. Null values are dropped.
func Parse(name string, data []byte) (*Section, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &ParseError{Name: name, Message: err.Error(), Err: err}
	}

	root := newSection("")
	if doc.Kind == 0 || len(doc.Content) == 0 {
		return root, nil
	}

	top := doc.Content[0]
	if top.Kind == yaml.ScalarNode && top.ShortTag() == "!!null" {
		return root, nil
	}
	if top.Kind != yaml.MappingNode {
		return nil, &ParseError{Name: name, Line: top.Line, Message: "top level is not a mapping"}
	}

	p := parser{name: name}
	if err := p.mapping(top, root, 0); err != nil {
		return nil, err
	}
	return root, nil
}

type parser struct {
	name string

	expanding int // aliases currently being expanded
	expanded  int // nodes produced by alias expansion so far
}

// visit charges n against the alias budget while inside an alias.
func (p *parser) visit(n *yaml.Node) error {
	if p.expanding == 0 {
		return nil
	}
	p.expanded++
	if p.expanded > maxAliasNodes {
		return p.errorf(n, "excessive aliasing, more than %d expanded nodes", maxAliasNodes)
	}
	return nil
}

func (p *parser) alias(n *yaml.Node) (*yaml.Node, func()) {
	p.expanding++
	return n.Alias, func() { p.expanding-- }
}

func (p *parser) errorf(n *yaml.Node, format string, a ...any) error {
	return &ParseError{Name: p.name, Line: n.Line, Message: fmt.Sprintf(format, a...)}
}

// mapping fills dst from a mapping node. Merge keys ("<<") only supply keys
// the mapping does not set itself.
func (p *parser) mapping(n *yaml.Node, dst *Section, depth int) error {
	if depth > maxDepth {
		return p.errorf(n, "nesting deeper than %d levels", maxDepth)
	}
	if err := p.visit(n); err != nil {
		return err
	}

	var merges []*Section
	for i := 0; i+1 < len(n.Content); i += 2 {
		k, v := n.Content[i], n.Content[i+1]
		if k.Kind != yaml.ScalarNode {
			return p.errorf(k, "unsupported non-scalar key")
		}

		if k.ShortTag() == "!!merge" {
			src, err := p.merge(v, dst.path, depth+1)
			if err != nil {
				return err
			}
			merges = append(merges, src...)
			continue
		}

		val, ok, err := p.value(v, JoinPath(dst.path, k.Value), depth+1)
		if err != nil {
			return err
		}
		if ok {
			dst.set(k.Value, val)
		}
	}

	for _, src := range merges {
		for _, key := range src.keys {
			if _, exists := dst.values[key]; !exists {
				dst.set(key, rebase(src.values[key], dst.Join(key)))
			}
		}
	}
	return nil
}

func (p *parser) merge(n *yaml.Node, path string, depth int) ([]*Section, error) {
	if n.Kind == yaml.AliasNode {
		if n.Alias == nil {
			return nil, p.errorf(n, "unknown alias %q", n.Value)
		}
		var done func()
		n, done = p.alias(n)
		defer done()
	}
	switch n.Kind {
	case yaml.MappingNode:
		sec := newSection(path)
		if err := p.mapping(n, sec, depth); err != nil {
			return nil, err
		}
		return []*Section{sec}, nil
	case yaml.SequenceNode:
		var out []*Section
		for _, item := range n.Content {
			secs, err := p.merge(item, path, depth+1)
			if err != nil {
				return nil, err
			}
			out = append(out, secs...)
		}
		return out, nil
	default:
		return nil, p.errorf(n, "merge value is not a mapping")
	}
}

// value converts a node; ok is false for nulls.
func (p *parser) value(n *yaml.Node, path string, depth int) (Value, bool, error) {
	if depth > maxDepth {
		return Value{}, false, p.errorf(n, "nesting deeper than %d levels", maxDepth)
	}
	if err := p.visit(n); err != nil {
		return Value{}, false, err
	}

	switch n.Kind {
	case yaml.AliasNode:
		if n.Alias == nil {
			return Value{}, false, p.errorf(n, "unknown alias %q", n.Value)
		}
		target, done := p.alias(n)
		defer done()
		return p.value(target, path, depth+1)
	case yaml.ScalarNode:
		return p.scalar(n)
	case yaml.SequenceNode:
		items := make([]Value, 0, len(n.Content))
		for _, c := range n.Content {
			item, ok, err := p.value(c, path, depth+1)
			if err != nil {
				return Value{}, false, err
			}
			if ok {
				items = append(items, item)
			}
		}
		return List(items...), true, nil
	case yaml.MappingNode:
		sec := newSection(path)
		if err := p.mapping(n, sec, depth); err != nil {
			return Value{}, false, err
		}
		return sectionValue(sec), true, nil
	default:
		return Value{}, false, p.errorf(n, "unexpected node kind %d", n.Kind)
	}
}

func (p *parser) scalar(n *yaml.Node) (Value, bool, error) {
	switch n.ShortTag() {
	case "!!null":
		return Value{}, false, nil
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err != nil {
			return Value{}, false, p.errorf(n, "invalid bool %q", n.Value)
		}
		return Bool(b), true, nil
	case "!!int":
		var i int64
		if err := n.Decode(&i); err == nil {
			return Int(i), true, nil
		}
		// Out of int64 range: keep the magnitude as a float.
		var f float64
		if err := n.Decode(&f); err != nil {
			return Value{}, false, p.errorf(n, "invalid number %q", n.Value)
		}
		return Float(f), true, nil
	case "!!float":
		var f float64
		if err := n.Decode(&f); err != nil {
			return Value{}, false, p.errorf(n, "invalid number %q", n.Value)
		}
		return Float(f), true, nil
	default:
		return String(n.Value), true, nil
	}
}

// rebase copies a merged sub-table so its paths are relative to the new
// location instead of the anchor's.
func rebase(v Value, path string) Value {
	src, ok := v.AsSection()
	if !ok {
		return v
	}
	dst := newSection(path)
	for _, k := range src.keys {
		dst.set(k, rebase(src.values[k], dst.Join(k)))
	}
	return sectionValue(dst)
}
