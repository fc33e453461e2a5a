package gateway

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"sync"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/helsbotje/helsbotje-gpt/internal/identity"
)

// WebSocketHandler serves the chat gateway over a WebSocket. Every request
// frame is answered by exactly one reply frame.
type WebSocketHandler struct {
	gw            *Gateway
	sm            *SessionManager
	allowedOrigin string
	isDev         bool
	readLimit     int64

	loops sync.WaitGroup
}

// NewWebSocketHandler creates a new WebSocket chat handler.
func NewWebSocketHandler(gw *Gateway, sm *SessionManager, allowedOrigin string, isDev bool, readLimit int64) *WebSocketHandler {
	if readLimit <= 0 {
		readLimit = DefaultMaxRequestBodySize
	}
	return &WebSocketHandler{
		gw:            gw,
		sm:            sm,
		allowedOrigin: allowedOrigin,
		isDev:         isDev,
		readLimit:     readLimit,
	}
}

// ServeHTTP implements http.Handler for WebSocket upgrade.
func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.loops.Add(1)
	defer h.loops.Done()

	sessionID := identity.SessionIDFromContext(r.Context())
	slog.Info("Chat socket connection request", "session_id", sessionID, "ip", identity.IPFromRequest(r))

	if !h.checkOrigin(r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("Failed to accept WebSocket", "error", err, "session_id", sessionID)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "session ended"); closeErr != nil {
			slog.Debug("Failed to close websocket", "error", closeErr, "session_id", sessionID)
		}
	}()
	ws.SetReadLimit(h.readLimit)

	h.sm.Register(sessionID, ws)
	defer h.sm.Unregister(sessionID, ws)

	h.readLoop(r.Context(), ws, sessionID)
}

// Wait blocks until every connection served by h has finished, or ctx is done.
// http.Server.Shutdown does not track hijacked connections.
func (h *WebSocketHandler) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		h.loops.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *WebSocketHandler) readLoop(ctx context.Context, ws *websocket.Conn, sessionID string) {
	for {
		_, data, err := ws.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != -1 {
				slog.Debug("Chat socket closed by client", "session_id", sessionID)
			} else {
				slog.Warn("Chat socket read error", "error", err, "session_id", sessionID)
			}
			return
		}

		var req ChatRequest
		if err := json.Unmarshal(data, &req); err != nil {
			slog.Warn("Invalid chat frame", "error", err, "session_id", sessionID)
			if err := wsjson.Write(ctx, ws, SocketReply{Response: h.gw.Persona().Fallbacks.ProviderFailure}); err != nil {
				slog.Debug("Failed to write chat frame", "error", err, "session_id", sessionID)
				return
			}
			continue
		}

		res := h.gw.Reply(ctx, req.Message)
		if err := wsjson.Write(ctx, ws, SocketReply{Response: res.Text, OK: !res.Outcome.Failed()}); err != nil {
			slog.Debug("Failed to write chat frame", "error", err, "session_id", sessionID)
			return
		}
	}
}

func (h *WebSocketHandler) checkOrigin(r *http.Request) bool {
	if h.isDev {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" || h.allowedOrigin == "" || h.allowedOrigin == "*" {
		return true
	}
	if origin == h.allowedOrigin {
		return true
	}
	if u, err := url.Parse(origin); err == nil && u.Host == r.Host {
		return true
	}
	slog.Warn("WebSocket origin rejected", "origin", origin, "allowed", h.allowedOrigin)
	return false
}
