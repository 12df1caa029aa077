package markup

import (
	"strings"
)

// Tag names after alias folding. Every colour tag closes as "color".
const (
	tagColor         = "color"
	tagBold          = "bold"
	tagItalic        = "italic"
	tagUnderlined    = "underlined"
	tagStrikethrough = "strikethrough"
	tagObfuscated    = "obfuscated"
	tagReset         = "reset"
	tagNewline       = "newline"
)

var decorationAliases = map[string]string{
	"bold":          tagBold,
	"b":             tagBold,
	"italic":        tagItalic,
	"i":             tagItalic,
	"em":            tagItalic,
	"underlined":    tagUnderlined,
	"u":             tagUnderlined,
	"strikethrough": tagStrikethrough,
	"st":            tagStrikethrough,
	"obfuscated":    tagObfuscated,
	"obf":           tagObfuscated,
}

// Parse turns a template into a component tree.
//
// Recognised tags are the sixteen colour names, <color:NAME|#rrggbb>,
// <#rrggbb>, the decorations (<bold>/<b>, <italic>/<i>/<em>,
// <underlined>/<u>, <strikethrough>/<st>, <obfuscated>/<obf>), <reset> and
// <newline>/<br>. A closing tag </name> ends the nearest open tag of that
// kind; unmatched closing tags are dropped. Any <name> matching a placeholder
// is replaced by the placeholder's component, which inherits the surrounding
// style. Anything else that looks like a tag is kept as literal text, and a
// backslash escapes a following '<' or '\'.
//
// Parse never fails and is deterministic for equal inputs.
func Parse(template string, placeholders Placeholders) Component {
	b := newBuilder()

	for i := 0; i < len(template); {
		ch := template[i]
		switch {
		case ch == '\\' && i+1 < len(template) && (template[i+1] == '<' || template[i+1] == '\\'):
			b.text.WriteByte(template[i+1])
			i += 2
		case ch == '<':
			end := strings.IndexByte(template[i+1:], '>')
			if end < 0 {
				b.text.WriteString(template[i:])
				i = len(template)
				continue
			}
			if !b.tag(template[i+1:i+1+end], placeholders) {
				b.text.WriteByte(ch)
				i++
				continue
			}
			i += end + 2
		default:
			b.text.WriteByte(ch)
			i++
		}
	}

	return b.finish()
}

type frame struct {
	tag  string
	node Component
}

type builder struct {
	stack []frame
	text  strings.Builder
}

func newBuilder() *builder {
	return &builder{stack: []frame{{}}}
}

// tag handles the inside of <...>; false means "not a tag, keep literally".
func (b *builder) tag(raw string, placeholders Placeholders) bool {
	if !validTag(raw) {
		return false
	}

	if strings.HasPrefix(raw, "/") {
		name, _, _ := strings.Cut(raw[1:], ":")
		kind, ok := closingKind(name)
		if !ok {
			if _, isPlaceholder := placeholders.lookup(name); isPlaceholder {
				return true
			}
			return false
		}
		b.flush()
		b.close(kind)
		return true
	}

	name, arg, hasArg := strings.Cut(raw, ":")
	lname := strings.ToLower(name)

	if p, ok := placeholders.lookup(lname); ok && !hasArg {
		b.flush()
		b.append(p.resolve())
		return true
	}

	switch {
	case lname == tagReset:
		b.flush()
		b.reset()
		return true
	case lname == tagNewline || lname == "br":
		b.flush()
		b.append(Newline())
		return true
	case lname == tagColor || lname == "colour" || lname == "c":
		if !hasArg {
			return false
		}
		c, ok := ParseColor(arg)
		if !ok {
			return false
		}
		b.flush()
		b.open(tagColor, Style{Color: c})
		return true
	case strings.HasPrefix(lname, "#"):
		c, ok := HexColor(lname)
		if !ok || hasArg {
			return false
		}
		b.flush()
		b.open(tagColor, Style{Color: c})
		return true
	}

	if c, ok := NamedColor(lname); ok && !hasArg {
		b.flush()
		b.open(tagColor, Style{Color: c})
		return true
	}

	if kind, ok := decorationAliases[lname]; ok && !hasArg {
		b.flush()
		b.open(kind, decorationStyle(kind))
		return true
	}

	return false
}

func closingKind(name string) (string, bool) {
	lname := strings.ToLower(name)
	if kind, ok := decorationAliases[lname]; ok {
		return kind, true
	}
	switch {
	case lname == tagColor || lname == "colour" || lname == "c":
		return tagColor, true
	case strings.HasPrefix(lname, "#"):
		_, ok := HexColor(lname)
		return tagColor, ok
	}
	if _, ok := NamedColor(lname); ok {
		return tagColor, true
	}
	return "", false
}

func decorationStyle(kind string) Style {
	switch kind {
	case tagBold:
		return Style{Bold: true}
	case tagItalic:
		return Style{Italic: true}
	case tagUnderlined:
		return Style{Underlined: true}
	case tagStrikethrough:
		return Style{Strikethrough: true}
	default:
		return Style{Obfuscated: true}
	}
}

// validTag rejects empty tags and ones containing whitespace or '<', so that
// text such as "a < b > c" stays literal.
func validTag(raw string) bool {
	if raw == "" || raw == "/" {
		return false
	}
	return !strings.ContainsAny(raw, " \t\r\n<")
}

func (b *builder) flush() {
	if b.text.Len() == 0 {
		return
	}
	b.append(Text(b.text.String()))
	b.text.Reset()
}

func (b *builder) append(c Component) {
	top := &b.stack[len(b.stack)-1]
	top.node.Children = append(top.node.Children, c)
}

func (b *builder) open(tag string, style Style) {
	b.stack = append(b.stack, frame{tag: tag, node: Component{Style: style}})
}

func (b *builder) close(tag string) {
	for i := len(b.stack) - 1; i > 0; i-- {
		if b.stack[i].tag == tag {
			for len(b.stack) > i {
				b.pop()
			}
			return
		}
	}
}

func (b *builder) reset() {
	for len(b.stack) > 1 {
		b.pop()
	}
}

func (b *builder) pop() {
	f := b.stack[len(b.stack)-1]
	b.stack = b.stack[:len(b.stack)-1]
	if len(f.node.Children) > 0 {
		b.append(f.node)
	}
}

func (b *builder) finish() Component {
	b.flush()
	b.reset()
	root := b.stack[0].node
	if len(root.Children) == 1 {
		return root.Children[0]
	}
	return root
}
