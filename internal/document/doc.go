// Package document provides the in-memory model of a YAML configuration file.
//
// A parsed file is a tree of *Section values addressed by dotted paths
// ("messages.join.title"). Leaves are tagged Values: bool, int, float, string
// or list. Typed accessors on Value return a second boolean instead of
// coercing, so a caller asking for a string never receives a number by
// accident.
//
//	root, err := document.Parse("messages.yml", data)
//	if err != nil {
//		// errors.Is(err, document.ErrParse)
//	}
//	messages, ok := root.Section("messages")
//	v, ok := messages.Get("join")
//	s, ok := v.AsString()
//
// Sections remember their path from the root, so messages.Join("join")
// yields "messages.join". Sections are immutable once Parse returns and may be
// shared between goroutines.
package document
