package domain

import (
	"time"
)

// Outcome classifies how the gateway answered a single utterance.
type Outcome string

const (
	// OutcomeOK means the provider text was returned verbatim.
	OutcomeOK Outcome = "ok"
	// OutcomeNotConfigured means no provider credential was configured.
	OutcomeNotConfigured Outcome = "not_configured"
	// OutcomeProviderError means the provider failed or returned nothing usable.
	OutcomeProviderError Outcome = "provider_error"
)

// Failed returns true for every outcome that substituted a fallback message.
func (o Outcome) Failed() bool {
	return o != OutcomeOK
}

// CompletionRequest is the two-turn prompt sent to a completion provider.
type CompletionRequest struct {
	SystemPrompt string
	UserText     string
}

// Result is what the gateway hands back for one utterance. Only Text is
// exposed to chat clients.
type Result struct {
	Text    string
	Outcome Outcome
}

// Exchange is a diagnostic record of one gateway call.
type Exchange struct {
	ID          string
	SessionID   string
	RequestID   string
	Provider    string
	Model       string
	UserText    string
	ReplyText   string
	Outcome     Outcome
	ErrorDetail string
	Latency     time.Duration
	CreatedAt   time.Time
}
