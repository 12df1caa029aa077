package audience

import (
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/atomic"

	"github.com/Krakenied/MiniMessenger/internal/log"
	"github.com/Krakenied/MiniMessenger/internal/markup"
)

var (
	// ErrEmptyName is returned when joining without a name.
	ErrEmptyName = errors.New("recipient name required")
	// ErrNameTaken is returned when a recipient with the same name is connected.
	ErrNameTaken = errors.New("recipient name already in use")
)

// DefaultInboxSize is how many deliveries a recipient keeps.
const DefaultInboxSize = 100

var (
	_ Broadcaster = (*Hub)(nil)
	_ Audience    = (*Member)(nil)
)

// Hub is a thread-safe in-memory set of recipients. Every recipient keeps a
// bounded inbox of what it received, oldest first.
type Hub struct {
	mu        sync.RWMutex       // protects fields below
	byID      map[string]*member // id -> member
	byName    map[string]*member // lower-cased name -> member
	count     atomic.Int64       // connected recipients
	delivered atomic.Int64       // total deliveries
	inboxSize int
	console   bool
	now       func() time.Time
}

type member struct {
	Recipient
	inbox []Delivery
}

// Opt configures a Hub.
type Opt func(h *Hub)

// WithInboxSize bounds each recipient's inbox. Values below 1 are ignored.
func WithInboxSize(n int) Opt {
	return func(h *Hub) {
		if n > 0 {
			h.inboxSize = n
		}
	}
}

// WithConsole echoes every broadcast to the log, the way a server console
// sees broadcasts.
func WithConsole(enabled bool) Opt {
	return func(h *Hub) {
		h.console = enabled
	}
}

// WithClock overrides the delivery timestamp source.
func WithClock(now func() time.Time) Opt {
	return func(h *Hub) {
		h.now = now
	}
}

// NewHub creates an empty hub.
func NewHub(opts ...Opt) *Hub {
	h := &Hub{
		byID:      make(map[string]*member),
		byName:    make(map[string]*member),
		inboxSize: DefaultInboxSize,
		now:       time.Now,
	}
	for _, o := range opts {
		o(h)
	}
	return h
}

// Join connects a recipient and returns it with a fresh ID.
func (h *Hub) Join(name string, permissions []string) (Recipient, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Recipient{}, ErrEmptyName
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	key := strings.ToLower(name)
	if _, ok := h.byName[key]; ok {
		return Recipient{}, ErrNameTaken
	}

	perms := make([]string, 0, len(permissions))
	for _, p := range permissions {
		if p = strings.TrimSpace(p); p != "" {
			perms = append(perms, strings.ToLower(p))
		}
	}

	m := &member{Recipient: Recipient{
		ID:          uuid.NewString(),
		Name:        name,
		Permissions: perms,
		JoinedAt:    h.now(),
	}}
	h.byID[m.ID] = m
	h.byName[key] = m
	h.count.Inc()
	return copyRecipient(m.Recipient), nil
}

// Leave disconnects a recipient; its inbox is discarded.
func (h *Hub) Leave(id string) (Recipient, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	m, ok := h.byID[id]
	if !ok {
		return Recipient{}, false
	}
	delete(h.byID, id)
	delete(h.byName, strings.ToLower(m.Name))
	h.count.Dec()
	return copyRecipient(m.Recipient), true
}

// Member returns the Audience for a connected recipient.
func (h *Hub) Member(id string) (*Member, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if _, ok := h.byID[id]; !ok {
		return nil, false
	}
	return &Member{hub: h, id: id}, true
}

// Recipients returns a copy of the connected recipients ordered by join time.
func (h *Hub) Recipients() []Recipient {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]Recipient, 0, len(h.byID))
	for _, m := range h.byID {
		out = append(out, copyRecipient(m.Recipient))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].JoinedAt.Equal(out[j].JoinedAt) {
			return out[i].Name < out[j].Name
		}
		return out[i].JoinedAt.Before(out[j].JoinedAt)
	})
	return out
}

// Inbox returns a copy of a recipient's deliveries. With drain set the inbox
// is emptied.
func (h *Hub) Inbox(id string, drain bool) ([]Delivery, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	m, ok := h.byID[id]
	if !ok {
		return nil, false
	}
	out := make([]Delivery, len(m.inbox))
	copy(out, m.inbox)
	if drain {
		m.inbox = nil
	}
	return out, true
}

// Count returns the number of connected recipients.
func (h *Hub) Count() int64 { return h.count.Load() }

// Delivered returns the number of deliveries made since the hub was created.
func (h *Hub) Delivered() int64 { return h.delivered.Load() }

// Broadcast delivers c to every connected recipient.
func (h *Hub) Broadcast(c markup.Component) int {
	return h.broadcast(c, "")
}

// BroadcastPermission delivers c to recipients holding permission. A holder
// of "*" or of a "node.*" ancestor wildcard also qualifies. An empty
// permission reaches everyone.
func (h *Hub) BroadcastPermission(c markup.Component, permission string) int {
	return h.broadcast(c, strings.ToLower(strings.TrimSpace(permission)))
}

func (h *Hub) broadcast(c markup.Component, permission string) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.console {
		log.Info("broadcast", "message", c.PlainText(), "permission", permission)
	}

	n := 0
	for _, m := range h.byID {
		if permission != "" && !hasPermission(m.Permissions, permission) {
			continue
		}
		h.deliverLocked(m, ChannelChat, c)
		n++
	}
	return n
}

func (h *Hub) deliver(id string, ch Channel, c markup.Component) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	m, ok := h.byID[id]
	if !ok {
		log.Debug("audience: dropping delivery to departed recipient", "id", id, "channel", ch)
		return false
	}
	h.deliverLocked(m, ch, c)
	return true
}

// deliverLocked appends to an inbox, dropping the oldest entries beyond the
// bound. Callers hold h.mu.
func (h *Hub) deliverLocked(m *member, ch Channel, c markup.Component) {
	m.inbox = append(m.inbox, Delivery{
		Channel:   ch,
		Text:      c.PlainText(),
		Component: c,
		At:        h.now(),
	})
	if over := len(m.inbox) - h.inboxSize; over > 0 {
		m.inbox = append(m.inbox[:0:0], m.inbox[over:]...)
	}
	h.delivered.Inc()
}

// hasPermission reports whether granted covers want.
func hasPermission(granted []string, want string) bool {
	for _, g := range granted {
		switch {
		case g == "*" || g == want:
			return true
		case strings.HasSuffix(g, ".*") && strings.HasPrefix(want, strings.TrimSuffix(g, "*")):
			return true
		}
	}
	return false
}

func copyRecipient(r Recipient) Recipient {
	out := r
	out.Permissions = append([]string(nil), r.Permissions...)
	return out
}

// Member is the Audience of one connected recipient. Deliveries to a member
// that has left are dropped.
type Member struct {
	hub *Hub
	id  string
}

// ID returns the recipient ID.
func (m *Member) ID() string { return m.id }

// SendMessage delivers c on the chat channel.
func (m *Member) SendMessage(c markup.Component) {
	m.hub.deliver(m.id, ChannelChat, c)
}

// SendActionBar delivers c on the action bar channel.
func (m *Member) SendActionBar(c markup.Component) {
	m.hub.deliver(m.id, ChannelActionBar, c)
}
