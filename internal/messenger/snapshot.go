package messenger

import (
	"time"

	"github.com/Krakenied/MiniMessenger/internal/document"
	"github.com/Krakenied/MiniMessenger/internal/markup"
)

// State is where a Store is in its load cycle.
type State int32

const (
	// StateUninitialized means no reload has started yet.
	StateUninitialized State = iota
	// StateLoading means a reload is in progress.
	StateLoading
	// StateReady means the last reload succeeded.
	StateReady
	// StateFailed means the last reload failed. The previous snapshot, if
	// any, is still served.
	StateFailed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// snapshot is everything a reload derives. It is built completely before it
// is published and never modified afterwards.
type snapshot struct {
	doc        *document.Section
	root       *document.Section
	prefix     markup.Component
	messages   *document.Section
	loadedAt   time.Time
	generation uint64
}
