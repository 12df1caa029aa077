// Package resources bundles the default files the daemon copies to disk on
// first start.
package resources

import "embed"

// MessagesFile is the name of the bundled default message file.
const MessagesFile = "messages.yml"

// FS holds the bundled defaults.
//
//go:embed messages.yml
var FS embed.FS
