// Package messenger loads a YAML message file and turns message keys into
// rich text.
//
// # Backing file
//
// A Store manages one file on disk. On every Reload it:
//
//  1. copies the bundled default (an fs.FS entry) to the file if the file is
//     missing;
//  2. parses the file; a malformed file is renamed to "<file>.<nanos>" and
//     step 1 runs again, at most once per reload;
//  3. resolves the prefix string and the messages sub-table;
//  4. publishes all of it as one immutable snapshot.
//
// Any failure leaves the previously published snapshot in place, so readers
// keep working with the last good configuration. Reads never block on a
// reload in progress.
//
// # Lookups
//
// Typed getters (GetBool, GetInt, GetString, GetStringList, GetMaterial...)
// return a *ValueError matching ErrMissingOrMistyped instead of coercing.
// Message lookups never fail: a missing key resolves to its own dotted path,
// e.g. "messages.join.title".
//
// # Example
//
//	m, err := messenger.New(resources.FS, messenger.Paths{
//		Resource: "messages.yml",
//		File:     filepath.Join(dataDir, "messages.yml"),
//		Prefix:   "prefix",
//		Messages: "messages",
//	}, messenger.WithServer(hub))
//	if err != nil {
//		return err
//	}
//	m.SendMessagePrefixed(player, "welcome", markup.Placeholders{
//		markup.Unparsed("player", name),
//	})
package messenger
