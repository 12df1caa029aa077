// Package markup is a small MiniMessage-style markup engine.
//
// A template such as
//
//	<gray>[<gold>Server</gold>]</gray> <green>Welcome, <player>!
//
// parses into a tree of Components. Each Component carries a run of text, a
// Style (colour and decorations) and children that inherit the style. The
// tree renders to plain text with PlainText or to a terminal with ANSI.
//
// Placeholders are passed explicitly as an ordered Placeholders slice:
//
//	c := markup.Parse(tpl, markup.Placeholders{
//		markup.Unparsed("player", name),
//	})
//
// Parsing is pure: the same template and placeholders always produce an equal
// Component.
package markup
