package engine

import (
	"time"

	"github.com/Krakenied/MiniMessenger/internal/markup"
)

// SendRequest addresses one recipient.
type SendRequest struct {
	RecipientID  string
	Key          string
	Placeholders markup.Placeholders
	Prefixed     bool
	ActionBar    bool
}

// BroadcastRequest addresses every recipient, or those holding Permission
// when it is set.
type BroadcastRequest struct {
	Key          string
	Permission   string
	Placeholders markup.Placeholders
	Prefixed     bool
}

// RenderRequest resolves a message for inspection.
type RenderRequest struct {
	Key          string
	Placeholders markup.Placeholders
	Prefixed     bool
}

// Status is a point-in-time view of the daemon.
type Status struct {
	State      string    `json:"state"`
	File       string    `json:"file"`
	Reloads    int64     `json:"reloads"`
	Generation uint64    `json:"generation"`
	LoadedAt   time.Time `json:"loaded_at"`
	LastError  string    `json:"last_error,omitempty"`
	Recipients int64     `json:"recipients"`
	Delivered  int64     `json:"delivered"`
}

// command interface defines the structure of commands sent to the engine.
type command interface {
	isCommand()
}

type envelope struct {
	cmd   command
	reply chan<- result
}

type result struct {
	err       error
	delivered int
	component markup.Component
}

type reloadCmd struct {
	scheduled bool
}

func (reloadCmd) isCommand() {}

type sendCmd struct {
	req SendRequest
}

func (sendCmd) isCommand() {}

type broadcastCmd struct {
	req BroadcastRequest
}

func (broadcastCmd) isCommand() {}

type renderCmd struct {
	req RenderRequest
}

func (renderCmd) isCommand() {}
