package messenger

import (
	"github.com/Krakenied/MiniMessenger/internal/audience"
	"github.com/Krakenied/MiniMessenger/internal/log"
	"github.com/Krakenied/MiniMessenger/internal/markup"
)

// SendMessage resolves key and shows it in a's message channel.
func (m *Messenger) SendMessage(a audience.Audience, key string, placeholders markup.Placeholders) {
	if a == nil {
		log.Warn("dropping message for nil audience", "key", key)
		return
	}
	a.SendMessage(m.GetComponent(key, placeholders))
}

// SendMessagePrefixed is SendMessage with the prefix in front.
func (m *Messenger) SendMessagePrefixed(a audience.Audience, key string, placeholders markup.Placeholders) {
	if a == nil {
		log.Warn("dropping message for nil audience", "key", key)
		return
	}
	a.SendMessage(m.GetComponentPrefixed(key, placeholders))
}

// SendActionBar resolves key and shows it in a's status bar.
func (m *Messenger) SendActionBar(a audience.Audience, key string, placeholders markup.Placeholders) {
	if a == nil {
		log.Warn("dropping action bar for nil audience", "key", key)
		return
	}
	a.SendActionBar(m.GetComponent(key, placeholders))
}

// SendActionBarPrefixed is SendActionBar with the prefix in front.
func (m *Messenger) SendActionBarPrefixed(a audience.Audience, key string, placeholders markup.Placeholders) {
	if a == nil {
		log.Warn("dropping action bar for nil audience", "key", key)
		return
	}
	a.SendActionBar(m.GetComponentPrefixed(key, placeholders))
}

// Broadcast resolves key once and delivers it to every recipient. It returns
// the number of recipients reached.
func (m *Messenger) Broadcast(key string, placeholders markup.Placeholders) int {
	return m.broadcast(key, m.GetComponent(key, placeholders), "", false)
}

// BroadcastPrefixed is Broadcast with the prefix in front.
func (m *Messenger) BroadcastPrefixed(key string, placeholders markup.Placeholders) int {
	return m.broadcast(key, m.GetComponentPrefixed(key, placeholders), "", false)
}

// BroadcastPermission is Broadcast restricted to recipients holding
// permission. Whether a recipient holds it is decided by the server.
func (m *Messenger) BroadcastPermission(key, permission string, placeholders markup.Placeholders) int {
	return m.broadcast(key, m.GetComponent(key, placeholders), permission, true)
}

// BroadcastPrefixedPermission is BroadcastPermission with the prefix in front.
func (m *Messenger) BroadcastPrefixedPermission(key, permission string, placeholders markup.Placeholders) int {
	return m.broadcast(key, m.GetComponentPrefixed(key, placeholders), permission, true)
}

func (m *Messenger) broadcast(key string, c markup.Component, permission string, filtered bool) int {
	if m.server == nil {
		log.Warn("dropping broadcast, no server configured", "key", key, "permission", permission)
		return 0
	}
	if filtered {
		return m.server.BroadcastPermission(c, permission)
	}
	return m.server.Broadcast(c)
}
