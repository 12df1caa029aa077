// Package audience defines where resolved messages go and provides Hub, an
// in-memory set of recipients that the daemon uses as its audience and
// broadcast primitive.
package audience

import (
	"time"

	"github.com/Krakenied/MiniMessenger/internal/markup"
)

// Audience receives rich text on its chat and action bar channels.
type Audience interface {
	// SendMessage shows c in the recipient's message channel.
	SendMessage(c markup.Component)
	// SendActionBar shows c transiently in the recipient's status bar.
	SendActionBar(c markup.Component)
}

// Broadcaster delivers rich text to every recipient of the host. It is the
// only place permissions are evaluated.
type Broadcaster interface {
	// Broadcast delivers c to every recipient and returns how many got it.
	Broadcast(c markup.Component) int
	// BroadcastPermission delivers c to recipients holding permission.
	BroadcastPermission(c markup.Component, permission string) int
}

// Channel names a display channel.
type Channel string

const (
	// ChannelChat is the primary message channel.
	ChannelChat Channel = "chat"
	// ChannelActionBar is the transient status bar.
	ChannelActionBar Channel = "action_bar"
)

// Delivery is one message as a recipient received it.
type Delivery struct {
	Channel   Channel          `json:"channel"`
	Text      string           `json:"text"`
	Component markup.Component `json:"component"`
	At        time.Time        `json:"at"`
}

// Recipient describes a connected recipient.
type Recipient struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Permissions []string  `json:"permissions,omitempty"`
	JoinedAt    time.Time `json:"joined_at"`
}
