package gateway

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/helsbotje/helsbotje-gpt/internal/api"
	"github.com/helsbotje/helsbotje-gpt/internal/domain"
	"github.com/helsbotje/helsbotje-gpt/internal/identity"
)

// DefaultMaxRequestBodySize is the default maximum allowed request body size (1MB).
const DefaultMaxRequestBodySize = 1 << 20

// Handler serves the chat gateway over HTTP.
type Handler struct {
	gw          *Gateway
	maxBodySize int64
}

// NewHandler creates a chat handler. A non-positive maxBodySize selects the default.
func NewHandler(gw *Gateway, maxBodySize int64) *Handler {
	if maxBodySize <= 0 {
		maxBodySize = DefaultMaxRequestBodySize
	}
	return &Handler{gw: gw, maxBodySize: maxBodySize}
}

// RegisterRoutes registers the chat routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/chat", h.HandleChat)
	r.Route("/api", func(r chi.Router) {
		r.Post("/chat", h.HandleChat)
		r.Get("/status", h.HandleStatus)
	})
}

// HandleChat handles POST /chat. Every outcome carries a display-ready
// "response" field; failures use status 500.
func (h *Handler) HandleChat(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodySize)

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Invalid chat request body",
			"error", err,
			"request_id", chiMiddleware.GetReqID(r.Context()),
		)
		api.JSON(w, http.StatusInternalServerError, ChatResponse{Response: h.gw.Persona().Fallbacks.ProviderFailure})
		return
	}

	slog.Info("Chat request",
		"session_id", identity.SessionIDFromContext(r.Context()),
		"request_id", chiMiddleware.GetReqID(r.Context()),
		"message_length", len(req.Message),
	)

	res := h.gw.Reply(r.Context(), req.Message)
	api.JSON(w, statusFor(res.Outcome), ChatResponse{Response: res.Text})
}

// HandleStatus handles GET /api/status.
func (h *Handler) HandleStatus(w http.ResponseWriter, _ *http.Request) {
	name, model := h.gw.Describe()
	api.JSON(w, http.StatusOK, StatusResponse{
		Persona:    h.gw.Persona().Name,
		Provider:   name,
		Model:      model,
		Configured: h.gw.Configured(),
	})
}

func statusFor(o domain.Outcome) int {
	if o.Failed() {
		return http.StatusInternalServerError
	}
	return http.StatusOK
}
