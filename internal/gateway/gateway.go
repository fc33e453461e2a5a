// Package gateway implements the completion gateway: it wraps one user
// utterance in the persona prompt, calls the completion provider and always
// returns display-ready text.
package gateway

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/helsbotje/helsbotje-gpt/internal/domain"
	"github.com/helsbotje/helsbotje-gpt/internal/identity"
	"github.com/helsbotje/helsbotje-gpt/internal/persona"
	"github.com/helsbotje/helsbotje-gpt/internal/provider"
)

const recordTimeout = 5 * time.Second

// Recorder persists diagnostic exchange records.
type Recorder interface {
	RecordExchange(ctx context.Context, ex *domain.Exchange) error
}

// Gateway answers single-turn chat requests. It never returns an error:
// failures are replaced by the persona's fallback messages.
type Gateway struct {
	provider provider.Provider
	persona  persona.Persona
	recorder Recorder
	logger   *slog.Logger
	now      func() time.Time

	pending sync.WaitGroup
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithRecorder records every exchange through r.
func WithRecorder(r Recorder) Option {
	return func(g *Gateway) { g.recorder = r }
}

// WithLogger sets the logger used for swallowed failures.
func WithLogger(l *slog.Logger) Option {
	return func(g *Gateway) {
		if l != nil {
			g.logger = l
		}
	}
}

// New creates a gateway. A nil provider means no credential is configured and
// every request is answered with the not-configured fallback.
func New(p provider.Provider, pers persona.Persona, opts ...Option) *Gateway {
	g := &Gateway{
		provider: p,
		persona:  pers,
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Configured reports whether a provider credential is available.
func (g *Gateway) Configured() bool {
	return g.provider != nil
}

// Describe returns the provider and model names, or empty strings when unknown.
func (g *Gateway) Describe() (name, model string) {
	if d, ok := g.provider.(provider.Describer); ok {
		return d.Name(), d.Model()
	}
	return "", ""
}

// Persona returns the persona used for every request.
func (g *Gateway) Persona() persona.Persona {
	return g.persona
}

// Reply answers one user utterance.
func (g *Gateway) Reply(ctx context.Context, userText string) domain.Result {
	start := g.now()

	if !g.Configured() {
		g.logger.Warn("Chat request without provider credential", "session_id", identity.SessionIDFromContext(ctx))
		res := domain.Result{Text: g.persona.Fallbacks.NotConfigured, Outcome: domain.OutcomeNotConfigured}
		g.record(ctx, userText, res, nil, start)
		return res
	}

	req := domain.CompletionRequest{SystemPrompt: g.persona.Instruction, UserText: userText}
	text, err := g.provider.Complete(ctx, req.SystemPrompt, req.UserText)
	if err == nil && text == "" {
		err = provider.ErrNoContent
	}
	if err != nil {
		g.logger.Error("Completion failed",
			"error", err,
			"no_content", errors.Is(err, provider.ErrNoContent),
			"canceled", errors.Is(err, context.Canceled),
			"session_id", identity.SessionIDFromContext(ctx),
		)
		res := domain.Result{Text: g.persona.Fallbacks.ProviderFailure, Outcome: domain.OutcomeProviderError}
		g.record(ctx, userText, res, err, start)
		return res
	}

	res := domain.Result{Text: text, Outcome: domain.OutcomeOK}
	g.record(ctx, userText, res, nil, start)
	return res
}

// record writes the exchange asynchronously so storage never delays or
// alters the reply.
func (g *Gateway) record(ctx context.Context, userText string, res domain.Result, cause error, start time.Time) {
	if g.recorder == nil {
		return
	}

	name, model := g.Describe()
	ex := &domain.Exchange{
		ID:        uuid.NewString(),
		SessionID: identity.SessionIDFromContext(ctx),
		RequestID: chiMiddleware.GetReqID(ctx),
		Provider:  name,
		Model:     model,
		UserText:  userText,
		ReplyText: res.Text,
		Outcome:   res.Outcome,
		Latency:   g.now().Sub(start),
		CreatedAt: start,
	}
	if cause != nil {
		ex.ErrorDetail = cause.Error()
	}

	g.pending.Add(1)
	go func() {
		defer g.pending.Done()
		recordCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
		defer cancel()
		if err := g.recorder.RecordExchange(recordCtx, ex); err != nil {
			g.logger.Warn("Failed to record exchange", "error", err, "exchange_id", ex.ID)
		}
	}()
}

// Close waits for in-flight exchange records to be written.
func (g *Gateway) Close() {
	g.pending.Wait()
}
