package messenger

import (
	"io/fs"

	"github.com/Krakenied/MiniMessenger/internal/audience"
	"github.com/Krakenied/MiniMessenger/internal/document"
	"github.com/Krakenied/MiniMessenger/internal/log"
	"github.com/Krakenied/MiniMessenger/internal/markup"
)

// Messenger resolves message keys from the messages sub-table into rich text
// and dispatches it. It reads the Store's snapshot and never changes it.
type Messenger struct {
	*Store
	server audience.Broadcaster
}

// New creates a Messenger over a new Store. See NewStore for the failure
// contract.
func New(resources fs.FS, paths Paths, opts ...Opt) (*Messenger, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	s, err := newStore(resources, paths, o)
	if err != nil {
		return nil, err
	}
	return &Messenger{Store: s, server: o.server}, nil
}

// Prefix returns the prefix of the served snapshot, empty before the first
// successful reload.
func (m *Messenger) Prefix() markup.Component {
	if snap := m.snap.Load(); snap != nil {
		return snap.prefix
	}
	return markup.Component{}
}

// MessagesTable returns the messages sub-table of the served snapshot, nil
// before the first successful reload.
func (m *Messenger) MessagesTable() *document.Section {
	if snap := m.snap.Load(); snap != nil {
		return snap.messages
	}
	return nil
}

// GetMessagePath joins the messages sub-table's path with key.
func (m *Messenger) GetMessagePath(key string) string {
	return messagePath(m.snap.Load(), m.paths.Messages, key)
}

// GetMessageString returns the template at key. A missing key, or one that
// holds a list or section, yields GetMessagePath(key) so the gap is visible
// to whoever reads the message.
func (m *Messenger) GetMessageString(key string) string {
	return m.messageString(m.snap.Load(), key)
}

// GetMessageStringList returns the templates of the list at key, empty when
// absent.
func (m *Messenger) GetMessageStringList(key string) []string {
	return messageStringList(m.snap.Load(), key)
}

// GetComponent parses the template at key with the given placeholders.
func (m *Messenger) GetComponent(key string, placeholders markup.Placeholders) markup.Component {
	return markup.Parse(m.GetMessageString(key), placeholders)
}

// GetComponentList parses every template of the list at key with the same
// placeholders, preserving order.
func (m *Messenger) GetComponentList(key string, placeholders markup.Placeholders) []markup.Component {
	templates := m.GetMessageStringList(key)
	out := make([]markup.Component, 0, len(templates))
	for _, tpl := range templates {
		out = append(out, markup.Parse(tpl, placeholders))
	}
	return out
}

// GetComponentPrefixed returns the prefix followed by GetComponent(key),
// with nothing in between. Both come from the same snapshot.
func (m *Messenger) GetComponentPrefixed(key string, placeholders markup.Placeholders) markup.Component {
	snap := m.snap.Load()
	var prefix markup.Component
	if snap != nil {
		prefix = snap.prefix
	}
	return markup.TextOfChildren(prefix, markup.Parse(m.messageString(snap, key), placeholders))
}

func (m *Messenger) messageString(snap *snapshot, key string) string {
	if snap != nil {
		if v, ok := snap.messages.Get(key); ok {
			if s, ok := v.Scalar(); ok {
				return s
			}
		}
	}
	path := messagePath(snap, m.paths.Messages, key)
	log.Debug("message not found", "path", path)
	return path
}

func messagePath(snap *snapshot, configured, key string) string {
	if snap != nil {
		return snap.messages.Join(key)
	}
	return document.JoinPath(configured, key)
}

func messageStringList(snap *snapshot, key string) []string {
	if snap != nil {
		if v, ok := snap.messages.Get(key); ok {
			if items, ok := v.Strings(); ok {
				return items
			}
		}
	}
	return []string{}
}

// MessageKeys returns the path of every template in the messages sub-table,
// relative to it, in document order.
func (m *Messenger) MessageKeys() []string {
	snap := m.snap.Load()
	if snap == nil {
		return nil
	}
	var keys []string
	snap.messages.Walk(func(path string, _ document.Value) {
		keys = append(keys, path)
	})
	return keys
}
