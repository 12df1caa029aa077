package markup

import (
	"strings"
)

// Style is the formatting a Component contributes. Children inherit their
// parent's style and add to it.
type Style struct {
	Color         TextColor `json:"color,omitempty"`
	Bold          bool      `json:"bold,omitempty"`
	Italic        bool      `json:"italic,omitempty"`
	Underlined    bool      `json:"underlined,omitempty"`
	Strikethrough bool      `json:"strikethrough,omitempty"`
	Obfuscated    bool      `json:"obfuscated,omitempty"`
}

// IsZero reports whether the style adds nothing.
func (s Style) IsZero() bool { return s == Style{} }

// inherit layers child on top of s.
func (s Style) inherit(child Style) Style {
	out := s
	if child.Color != "" {
		out.Color = child.Color
	}
	out.Bold = s.Bold || child.Bold
	out.Italic = s.Italic || child.Italic
	out.Underlined = s.Underlined || child.Underlined
	out.Strikethrough = s.Strikethrough || child.Strikethrough
	out.Obfuscated = s.Obfuscated || child.Obfuscated
	return out
}

// Component is a rich-text value: a run of text with a style, followed by
// styled children. The zero Component is empty text.
type Component struct {
	Text     string      `json:"text,omitempty"`
	Style    Style       `json:"style,omitempty"`
	Children []Component `json:"children,omitempty"`
}

// Text returns an unstyled text component.
func Text(s string) Component { return Component{Text: s} }

// Styled returns a text component with the given style.
func Styled(s string, style Style) Component { return Component{Text: s, Style: style} }

// Newline returns a line break component.
func Newline() Component { return Text("\n") }

// TextOfChildren returns an unstyled component made of children in order,
// with nothing inserted between them.
func TextOfChildren(children ...Component) Component {
	out := make([]Component, len(children))
	copy(out, children)
	return Component{Children: out}
}

// Append returns a copy of c with children added after the existing ones.
func (c Component) Append(children ...Component) Component {
	out := make([]Component, 0, len(c.Children)+len(children))
	out = append(out, c.Children...)
	out = append(out, children...)
	c.Children = out
	return c
}

// IsEmpty reports whether the component renders no text.
func (c Component) IsEmpty() bool {
	if c.Text != "" {
		return false
	}
	for _, child := range c.Children {
		if !child.IsEmpty() {
			return false
		}
	}
	return true
}

// PlainText returns the text of the component tree without formatting.
func (c Component) PlainText() string {
	var b strings.Builder
	c.writePlain(&b)
	return b.String()
}

// String implements fmt.Stringer with the plain text.
func (c Component) String() string { return c.PlainText() }

func (c Component) writePlain(b *strings.Builder) {
	b.WriteString(c.Text)
	for _, child := range c.Children {
		child.writePlain(b)
	}
}

// walk calls fn for every non-empty text run with its effective style.
func (c Component) walk(parent Style, fn func(text string, style Style)) {
	style := parent.inherit(c.Style)
	if c.Text != "" {
		fn(c.Text, style)
	}
	for _, child := range c.Children {
		child.walk(style, fn)
	}
}
