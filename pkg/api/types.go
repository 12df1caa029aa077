package api

import (
	"time"

	"github.com/Krakenied/MiniMessenger/internal/markup"
)

// Placeholder is one named substitution. Values are literal text unless
// Parsed is set, in which case they are parsed as markup themselves.
type Placeholder struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Parsed bool   `json:"parsed,omitempty"`
}

// SendRequest represents a request to send a message to one recipient.
type SendRequest struct {
	RecipientID  string        `json:"recipient_id"`
	Key          string        `json:"key"`
	Placeholders []Placeholder `json:"placeholders,omitempty"`
	Prefixed     bool          `json:"prefixed,omitempty"`
	ActionBar    bool          `json:"action_bar,omitempty"`
}

// BroadcastRequest represents a request to send a message to every
// recipient, or to those holding Permission.
type BroadcastRequest struct {
	Key          string        `json:"key"`
	Permission   string        `json:"permission,omitempty"`
	Placeholders []Placeholder `json:"placeholders,omitempty"`
	Prefixed     bool          `json:"prefixed,omitempty"`
}

// BroadcastResponse reports how many recipients a broadcast reached.
type BroadcastResponse struct {
	Delivered int `json:"delivered"`
}

// RenderRequest represents a request to resolve a message without sending it.
type RenderRequest struct {
	Key          string        `json:"key"`
	Placeholders []Placeholder `json:"placeholders,omitempty"`
	Prefixed     bool          `json:"prefixed,omitempty"`
}

// RenderResponse carries a resolved message in every form the daemon has.
type RenderResponse struct {
	Path      string           `json:"path"`
	Text      string           `json:"text"`
	ANSI      string           `json:"ansi"`
	Component markup.Component `json:"component"`
}

// JoinRequest represents a request to register a recipient.
type JoinRequest struct {
	Name        string   `json:"name"`
	Permissions []string `json:"permissions,omitempty"`
}

// LeaveRequest represents a request to remove a recipient.
type LeaveRequest struct {
	ID string `json:"id"`
}

// MessageEntry is one template of the messages sub-table.
type MessageEntry struct {
	Key       string   `json:"key"`
	Path      string   `json:"path"`
	Template  string   `json:"template,omitempty"`
	Templates []string `json:"templates,omitempty"`
}

// ReloadResponse reports the outcome of a reload.
type ReloadResponse struct {
	Generation uint64 `json:"generation"`
	Reloads    int64  `json:"reloads"`
}

// StatusResponse represents the server status response.
type StatusResponse struct {
	State      string        `json:"state"`
	File       string        `json:"file"`
	Reloads    int64         `json:"reloads"`
	Generation uint64        `json:"generation"`
	LoadedAt   time.Time     `json:"loaded_at"`
	LastError  string        `json:"last_error,omitempty"`
	Recipients int64         `json:"recipients"`
	Delivered  int64         `json:"delivered"`
	Uptime     time.Duration `json:"uptime"`
	Version    string        `json:"version"`
	Commit     string        `json:"commit"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Placeholders converts wire placeholders into markup placeholders,
// preserving order.
func Placeholders(in []Placeholder) markup.Placeholders {
	if len(in) == 0 {
		return nil
	}
	out := make(markup.Placeholders, 0, len(in))
	for _, p := range in {
		if p.Parsed {
			out = append(out, markup.Parsed(p.Name, p.Value))
			continue
		}
		out = append(out, markup.Unparsed(p.Name, p.Value))
	}
	return out
}
