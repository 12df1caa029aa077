package markup

import (
	"strings"

	"github.com/fatih/color"
)

// ANSI renders the component for a terminal. Hex colours are approximated by
// the nearest legacy colour. The output honours color.NoColor, so it degrades
// to PlainText when stdout is not a terminal.
func (c Component) ANSI() string {
	var b strings.Builder
	c.walk(Style{}, func(text string, style Style) {
		attrs := styleAttributes(style)
		if len(attrs) == 0 {
			b.WriteString(text)
			return
		}
		b.WriteString(color.New(attrs...).Sprint(text))
	})
	return b.String()
}

func styleAttributes(s Style) []color.Attribute {
	var attrs []color.Attribute
	if s.Color != "" {
		attrs = append(attrs, s.Color.ansi())
	}
	if s.Bold {
		attrs = append(attrs, color.Bold)
	}
	if s.Italic {
		attrs = append(attrs, color.Italic)
	}
	if s.Underlined {
		attrs = append(attrs, color.Underline)
	}
	if s.Strikethrough {
		attrs = append(attrs, color.CrossedOut)
	}
	if s.Obfuscated {
		attrs = append(attrs, color.Concealed)
	}
	return attrs
}
