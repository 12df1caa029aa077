// Package api exposes a small JSON-over-HTTP API for the MiniMessenger
// daemon. It listens on a Unix domain socket (path comes from config) and
// delegates message work to internal/engine.Engine and recipient bookkeeping
// to internal/audience.Hub. Only net/http and encoding/json are used.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/Krakenied/MiniMessenger/internal/audience"
	"github.com/Krakenied/MiniMessenger/internal/buildinfo"
	"github.com/Krakenied/MiniMessenger/internal/engine"
	"github.com/Krakenied/MiniMessenger/internal/log"
	"github.com/Krakenied/MiniMessenger/internal/messenger"
	"github.com/Krakenied/MiniMessenger/internal/socket"
)

// -------- server -----------------------------------------------------

// Server handles HTTP API requests over a Unix domain socket.
type Server struct {
	eng   *engine.Engine
	hub   *audience.Hub
	msgr  *messenger.Messenger
	start time.Time
	mux   *http.ServeMux
	srv   *http.Server
}

// New creates a new API server.
// It sets up the HTTP routes and returns a server ready to listen.
func New(eng *engine.Engine, hub *audience.Hub, msgr *messenger.Messenger) *Server {
	s := &Server{
		eng:   eng,
		hub:   hub,
		msgr:  msgr,
		start: time.Now(),
		mux:   http.NewServeMux(),
	}

	s.mux.HandleFunc("/v1/reload", s.handleReload)
	s.mux.HandleFunc("/v1/send", s.handleSend)
	s.mux.HandleFunc("/v1/broadcast", s.handleBroadcast)
	s.mux.HandleFunc("/v1/render", s.handleRender)
	s.mux.HandleFunc("/v1/join", s.handleJoin)
	s.mux.HandleFunc("/v1/leave", s.handleLeave)
	s.mux.HandleFunc("/v1/recipients", s.handleRecipients)
	s.mux.HandleFunc("/v1/inbox", s.handleInbox)
	s.mux.HandleFunc("/v1/messages", s.handleMessages)
	s.mux.HandleFunc("/v1/status", s.handleStatus)

	s.srv = &http.Server{
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the route multiplexer.
func (s *Server) Handler() http.Handler { return s.mux }

// ListenAndServe starts the Unix-socket HTTP server.
func (s *Server) ListenAndServe(path string, opts ...socket.Option) error {
	ln, err := socket.Listen(path, opts...)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve serves the API on ln.
func (s *Server) Serve(ln net.Listener) error {
	log.Info("api: serving", "addr", ln.Addr().String())
	return s.srv.Serve(ln)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error { return s.srv.Shutdown(ctx) }

// handleReload reloads the message file.
func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}
	if err := s.eng.Reload(r.Context()); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, ReloadResponse{
		Generation: s.msgr.Generation(),
		Reloads:    s.msgr.Reloads(),
	})
}

// handleSend sends a message to one recipient.
func (s *Server) handleSend(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}
	var req SendRequest
	if !decode(w, r, &req) {
		return
	}
	if req.RecipientID == "" || req.Key == "" {
		writeError(w, http.StatusBadRequest, errors.New("recipient_id and key required"))
		return
	}
	err := s.eng.Send(r.Context(), engine.SendRequest{
		RecipientID:  req.RecipientID,
		Key:          req.Key,
		Placeholders: Placeholders(req.Placeholders),
		Prefixed:     req.Prefixed,
		ActionBar:    req.ActionBar,
	})
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleBroadcast sends a message to every qualifying recipient.
func (s *Server) handleBroadcast(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}
	var req BroadcastRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Key == "" {
		writeError(w, http.StatusBadRequest, errors.New("key required"))
		return
	}
	n, err := s.eng.Broadcast(r.Context(), engine.BroadcastRequest{
		Key:          req.Key,
		Permission:   req.Permission,
		Placeholders: Placeholders(req.Placeholders),
		Prefixed:     req.Prefixed,
	})
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, BroadcastResponse{Delivered: n})
}

// handleRender resolves a message without sending it.
func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}
	var req RenderRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Key == "" {
		writeError(w, http.StatusBadRequest, errors.New("key required"))
		return
	}
	c, err := s.eng.Render(r.Context(), engine.RenderRequest{
		Key:          req.Key,
		Placeholders: Placeholders(req.Placeholders),
		Prefixed:     req.Prefixed,
	})
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, RenderResponse{
		Path:      s.msgr.GetMessagePath(req.Key),
		Text:      c.PlainText(),
		ANSI:      c.ANSI(),
		Component: c,
	})
}

// handleJoin registers a recipient.
func (s *Server) handleJoin(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}
	var req JoinRequest
	if !decode(w, r, &req) {
		return
	}
	rec, err := s.hub.Join(req.Name, req.Permissions)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

// handleLeave removes a recipient.
func (s *Server) handleLeave(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}
	var req LeaveRequest
	if !decode(w, r, &req) {
		return
	}
	if req.ID == "" {
		writeError(w, http.StatusBadRequest, errors.New("id required"))
		return
	}
	if _, ok := s.hub.Leave(req.ID); !ok {
		writeError(w, http.StatusNotFound, fmt.Errorf("%w: %q", engine.ErrUnknownRecipient, req.ID))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleRecipients lists connected recipients.
func (s *Server) handleRecipients(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	writeJSON(w, http.StatusOK, s.hub.Recipients())
}

// handleInbox returns what a recipient has received. drain=true empties it.
func (s *Server) handleInbox(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	id := r.URL.Query().Get("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, errors.New("id required"))
		return
	}
	inbox, ok := s.hub.Inbox(id, r.URL.Query().Get("drain") == "true")
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Errorf("%w: %q", engine.ErrUnknownRecipient, id))
		return
	}
	writeJSON(w, http.StatusOK, inbox)
}

// handleMessages lists every template of the messages sub-table.
func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	keys := s.msgr.MessageKeys()
	out := make([]MessageEntry, 0, len(keys))
	for _, key := range keys {
		e := MessageEntry{Key: key, Path: s.msgr.GetMessagePath(key)}
		if list := s.msgr.GetMessageStringList(key); len(list) > 0 {
			e.Templates = list
		} else {
			e.Template = s.msgr.GetMessageString(key)
		}
		out = append(out, e)
	}
	writeJSON(w, http.StatusOK, out)
}

// handleStatus returns the server status.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	st := s.eng.Status()
	writeJSON(w, http.StatusOK, StatusResponse{
		State:      st.State,
		File:       st.File,
		Reloads:    st.Reloads,
		Generation: st.Generation,
		LoadedAt:   st.LoadedAt,
		LastError:  st.LastError,
		Recipients: st.Recipients,
		Delivered:  st.Delivered,
		Uptime:     time.Since(s.start),
		Version:    buildinfo.Version,
		Commit:     buildinfo.Commit,
	})
}

// --------------------------- helpers -------------------------------

func allow(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
		return false
	}
	return true
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return false
	}
	return true
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, engine.ErrUnknownRecipient):
		return http.StatusNotFound
	case errors.Is(err, audience.ErrEmptyName):
		return http.StatusBadRequest
	case errors.Is(err, audience.ErrNameTaken):
		return http.StatusConflict
	case errors.Is(err, engine.ErrNotRunning):
		return http.StatusServiceUnavailable
	case errors.Is(err, messenger.ErrParse), errors.Is(err, messenger.ErrInvalidConfig):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warnf("api: error encoding response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, ErrorResponse{Error: err.Error()})
}
