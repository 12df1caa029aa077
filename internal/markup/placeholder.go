package markup

import (
	"strings"
)

// Placeholder is a named substitution slot. A template refers to it as
// <name>; resolution happens at parse time, once per occurrence.
type Placeholder struct {
	name    string
	resolve func() Component
}

// Placeholders is an ordered set of placeholders. When two share a name the
// first one wins.
type Placeholders []Placeholder

// Unparsed inserts value as literal text; markup inside it is not
// interpreted.
func Unparsed(name, value string) Placeholder {
	return Dynamic(name, func() Component { return Text(value) })
}

// Parsed inserts value after parsing it as markup on its own.
func Parsed(name, value string) Placeholder {
	return Dynamic(name, func() Component { return Parse(value, nil) })
}

// Insert inserts a prebuilt component.
func Insert(name string, c Component) Placeholder {
	return Dynamic(name, func() Component { return c })
}

// Dynamic inserts whatever fn returns each time the placeholder is used.
func Dynamic(name string, fn func() Component) Placeholder {
	return Placeholder{name: strings.ToLower(name), resolve: fn}
}

// Name returns the lower-cased placeholder name.
func (p Placeholder) Name() string { return p.name }

func (ps Placeholders) lookup(name string) (Placeholder, bool) {
	name = strings.ToLower(name)
	for _, p := range ps {
		if p.name == name && p.resolve != nil {
			return p, true
		}
	}
	return Placeholder{}, false
}
