// Package engine is the daemon's main loop. Reloads and dispatches are
// serialized through a single goroutine so that a reload never interleaves
// with a send, and callers get each command's outcome back.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Krakenied/MiniMessenger/internal/audience"
	"github.com/Krakenied/MiniMessenger/internal/log"
	"github.com/Krakenied/MiniMessenger/internal/markup"
	"github.com/Krakenied/MiniMessenger/internal/messenger"
)

const (
	// Small buffer for commands to avoid blocking senders momentarily.
	_commandBufferSize = 10
)

var (
	// ErrNotRunning is returned when a command is submitted before Run or
	// after Close.
	ErrNotRunning = errors.New("engine is not running")
	// ErrUnknownRecipient is returned by Send for an ID the hub does not know.
	ErrUnknownRecipient = errors.New("unknown recipient")
)

// Engine serializes message operations for the daemon.
type Engine struct {
	messenger      *messenger.Messenger
	hub            *audience.Hub
	reloadInterval time.Duration

	cmdChan  chan envelope // Commands are processed serially by runLoop
	wg       sync.WaitGroup
	mu       sync.Mutex
	running  bool
	done     chan struct{}
	cancelFn context.CancelFunc // Cancels the context passed to Run
}

// Opt configures an Engine.
type Opt func(e *Engine)

// WithReloadInterval makes the engine reload on a fixed interval in addition
// to explicit reloads. Zero disables it.
func WithReloadInterval(d time.Duration) Opt {
	return func(e *Engine) {
		e.reloadInterval = d
	}
}

// New creates a new Engine over a messenger and the hub it broadcasts to.
func New(m *messenger.Messenger, hub *audience.Hub, opts ...Opt) *Engine {
	e := &Engine{
		messenger: m,
		hub:       hub,
		cmdChan:   make(chan envelope, _commandBufferSize),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run starts the engine's background goroutines. The provided context
// controls their lifetime. An engine runs at most once.
func (e *Engine) Run(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cancelFn != nil {
		return
	}

	runCtx, cancel := context.WithCancel(ctx)
	e.cancelFn = cancel
	e.running = true

	e.wg.Add(1)
	go e.runLoop(runCtx)
	if e.reloadInterval > 0 {
		e.wg.Add(1)
		go e.runTicker(runCtx)
	}

	log.Info("engine: started", "reload_interval", e.reloadInterval.String())
}

// Close gracefully shuts down the engine's background goroutines.
func (e *Engine) Close() {
	e.mu.Lock()
	if e.cancelFn != nil {
		e.cancelFn()
	}
	e.mu.Unlock()
	e.wg.Wait()
	log.Info("engine: stopped")
}

// Done is closed once the run loop has exited.
func (e *Engine) Done() <-chan struct{} { return e.done }

// Reload reloads the message file on the run loop.
func (e *Engine) Reload(ctx context.Context) error {
	res, err := e.submit(ctx, reloadCmd{})
	if err != nil {
		return err
	}
	return res.err
}

// Send resolves req.Key and delivers it to one recipient.
func (e *Engine) Send(ctx context.Context, req SendRequest) error {
	res, err := e.submit(ctx, sendCmd{req: req})
	if err != nil {
		return err
	}
	return res.err
}

// Broadcast resolves req.Key once and delivers it to every recipient that
// qualifies, returning how many did.
func (e *Engine) Broadcast(ctx context.Context, req BroadcastRequest) (int, error) {
	res, err := e.submit(ctx, broadcastCmd{req: req})
	if err != nil {
		return 0, err
	}
	return res.delivered, res.err
}

// Render resolves a message without delivering it.
func (e *Engine) Render(ctx context.Context, req RenderRequest) (markup.Component, error) {
	res, err := e.submit(ctx, renderCmd{req: req})
	if err != nil {
		return markup.Component{}, err
	}
	return res.component, res.err
}

// Status reports the messenger's load state. It does not go through the run
// loop.
func (e *Engine) Status() Status {
	st := Status{
		State:      e.messenger.State().String(),
		File:       e.messenger.Paths().File,
		Reloads:    e.messenger.Reloads(),
		Generation: e.messenger.Generation(),
		LoadedAt:   e.messenger.LoadedAt(),
		Recipients: e.hub.Count(),
		Delivered:  e.hub.Delivered(),
	}
	if err := e.messenger.LastError(); err != nil {
		st.LastError = err.Error()
	}
	return st
}

func (e *Engine) submit(ctx context.Context, cmd command) (result, error) {
	e.mu.Lock()
	running := e.running
	e.mu.Unlock()
	if !running {
		return result{}, ErrNotRunning
	}

	reply := make(chan result, 1)
	select {
	case e.cmdChan <- envelope{cmd: cmd, reply: reply}:
	case <-e.done:
		return result{}, ErrNotRunning
	case <-ctx.Done():
		return result{}, ctx.Err()
	}

	select {
	case res := <-reply:
		return res, nil
	case <-e.done:
		return result{}, ErrNotRunning
	case <-ctx.Done():
		return result{}, ctx.Err()
	}
}

// runLoop is the central processing loop. It serializes all commands.
func (e *Engine) runLoop(ctx context.Context) {
	defer e.wg.Done()
	defer func() {
		e.mu.Lock()
		e.running = false
		e.mu.Unlock()
		close(e.done)
		log.Warnf("engine: runLoop stopping")
	}()

	log.Info("engine: runLoop starting")

	for {
		select {
		case env := <-e.cmdChan:
			res := e.handle(env.cmd)
			if env.reply != nil {
				env.reply <- res
			}
		case <-ctx.Done():
			return
		}
	}
}

// runTicker queues a reload on every tick.
func (e *Engine) runTicker(ctx context.Context) {
	defer e.wg.Done()

	ticker := time.NewTicker(e.reloadInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			select {
			case e.cmdChan <- envelope{cmd: reloadCmd{scheduled: true}}:
			case <-ctx.Done():
				return
			default:
				log.Debug("engine: command queue full, skipping scheduled reload")
			}
		case <-ctx.Done():
			return
		}
	}
}

func (e *Engine) handle(cmd command) result {
	switch c := cmd.(type) {
	case reloadCmd:
		return e.handleReload(c)
	case sendCmd:
		return e.handleSend(c)
	case broadcastCmd:
		return e.handleBroadcast(c)
	case renderCmd:
		return e.handleRender(c)
	default:
		log.Warnf("engine: received unknown command type: %T", cmd)
		return result{err: fmt.Errorf("unknown command %T", cmd)}
	}
}

func (e *Engine) handleReload(cmd reloadCmd) result {
	if !cmd.scheduled {
		log.Info("engine: handling reload request")
	}
	if err := e.messenger.Reload(); err != nil {
		log.Warnf("engine: reload failed: %v", err)
		return result{err: err}
	}
	return result{}
}

func (e *Engine) handleSend(cmd sendCmd) result {
	req := cmd.req
	member, ok := e.hub.Member(req.RecipientID)
	if !ok {
		return result{err: fmt.Errorf("%w: %q", ErrUnknownRecipient, req.RecipientID)}
	}

	switch {
	case req.ActionBar && req.Prefixed:
		e.messenger.SendActionBarPrefixed(member, req.Key, req.Placeholders)
	case req.ActionBar:
		e.messenger.SendActionBar(member, req.Key, req.Placeholders)
	case req.Prefixed:
		e.messenger.SendMessagePrefixed(member, req.Key, req.Placeholders)
	default:
		e.messenger.SendMessage(member, req.Key, req.Placeholders)
	}
	log.Debugf("engine: sent %q to %s", req.Key, req.RecipientID)
	return result{}
}

func (e *Engine) handleBroadcast(cmd broadcastCmd) result {
	req := cmd.req
	var n int
	switch {
	case req.Permission != "" && req.Prefixed:
		n = e.messenger.BroadcastPrefixedPermission(req.Key, req.Permission, req.Placeholders)
	case req.Permission != "":
		n = e.messenger.BroadcastPermission(req.Key, req.Permission, req.Placeholders)
	case req.Prefixed:
		n = e.messenger.BroadcastPrefixed(req.Key, req.Placeholders)
	default:
		n = e.messenger.Broadcast(req.Key, req.Placeholders)
	}
	log.Infof("engine: broadcast %q reached %d recipients", req.Key, n)
	return result{delivered: n}
}

func (e *Engine) handleRender(cmd renderCmd) result {
	req := cmd.req
	if req.Prefixed {
		return result{component: e.messenger.GetComponentPrefixed(req.Key, req.Placeholders)}
	}
	return result{component: e.messenger.GetComponent(req.Key, req.Placeholders)}
}
