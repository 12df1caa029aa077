package markup

import (
	"strconv"
	"strings"

	"github.com/fatih/color"
)

// TextColor is an RGB colour in "#rrggbb" form. The empty TextColor means
// "inherit".
type TextColor string

type namedColor struct {
	name string
	hex  TextColor
	ansi color.Attribute
}

// The sixteen legacy colours, in legacy code order.
var namedColors = []namedColor{
	{"black", "#000000", color.FgBlack},
	{"dark_blue", "#0000aa", color.FgBlue},
	{"dark_green", "#00aa00", color.FgGreen},
	{"dark_aqua", "#00aaaa", color.FgCyan},
	{"dark_red", "#aa0000", color.FgRed},
	{"dark_purple", "#aa00aa", color.FgMagenta},
	{"gold", "#ffaa00", color.FgYellow},
	{"gray", "#aaaaaa", color.FgWhite},
	{"dark_gray", "#555555", color.FgHiBlack},
	{"blue", "#5555ff", color.FgHiBlue},
	{"green", "#55ff55", color.FgHiGreen},
	{"aqua", "#55ffff", color.FgHiCyan},
	{"red", "#ff5555", color.FgHiRed},
	{"light_purple", "#ff55ff", color.FgHiMagenta},
	{"yellow", "#ffff55", color.FgHiYellow},
	{"white", "#ffffff", color.FgHiWhite},
}

var colorAliases = map[string]string{
	"grey":      "gray",
	"dark_grey": "dark_gray",
}

// NamedColor looks up one of the sixteen legacy colour names.
func NamedColor(name string) (TextColor, bool) {
	name = strings.ToLower(name)
	if alias, ok := colorAliases[name]; ok {
		name = alias
	}
	for _, nc := range namedColors {
		if nc.name == name {
			return nc.hex, true
		}
	}
	return "", false
}

// HexColor parses "#rrggbb".
func HexColor(s string) (TextColor, bool) {
	if len(s) != 7 || s[0] != '#' {
		return "", false
	}
	if _, err := strconv.ParseUint(s[1:], 16, 32); err != nil {
		return "", false
	}
	return TextColor(strings.ToLower(s)), true
}

// ParseColor accepts a legacy colour name or "#rrggbb".
func ParseColor(s string) (TextColor, bool) {
	if strings.HasPrefix(s, "#") {
		return HexColor(s)
	}
	return NamedColor(s)
}

// Name returns the legacy name of an exact legacy colour, or the hex form.
func (c TextColor) Name() string {
	for _, nc := range namedColors {
		if nc.hex == c {
			return nc.name
		}
	}
	return string(c)
}

func (c TextColor) rgb() (r, g, b int) {
	v, err := strconv.ParseUint(strings.TrimPrefix(string(c), "#"), 16, 32)
	if err != nil {
		return 0, 0, 0
	}
	return int(v >> 16 & 0xff), int(v >> 8 & 0xff), int(v & 0xff)
}

// ansi returns the terminal attribute of the nearest legacy colour.
func (c TextColor) ansi() color.Attribute {
	r, g, b := c.rgb()
	best, bestDist := namedColors[0].ansi, -1
	for _, nc := range namedColors {
		nr, ng, nb := nc.hex.rgb()
		d := (r-nr)*(r-nr) + (g-ng)*(g-ng) + (b-nb)*(b-nb)
		if bestDist < 0 || d < bestDist {
			best, bestDist = nc.ansi, d
		}
	}
	return best
}
