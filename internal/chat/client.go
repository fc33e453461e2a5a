package chat

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/helsbotje/helsbotje-gpt/internal/domain"
)

// DefaultApology is shown when the gateway cannot be reached at all.
const DefaultApology = "Oeps! HelsBotje heeft even een black-out. Probeer het nog eens!"

// Status is the request state of the client.
type Status int

const (
	// StatusIdle means the input is enabled and no request is outstanding.
	StatusIdle Status = iota
	// StatusWaiting means one request is outstanding.
	StatusWaiting
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusWaiting:
		return "waiting"
	default:
		return "unknown"
	}
}

// Transport delivers one user utterance to the gateway and returns its
// display-ready reply.
type Transport interface {
	Send(ctx context.Context, text string) (string, error)
}

// Snapshot is a consistent view of the client for rendering.
type Snapshot struct {
	Status    Status
	Input     string
	Messages  []domain.Message
	Talking   bool
	MouthOpen bool
}

// Client holds the visible conversation and issues one request per submission.
type Client struct {
	transport Transport
	conv      Conversation
	talker    *Talker
	apology   string
	onUpdate  func(Snapshot)
	logger    *slog.Logger

	mu     sync.Mutex
	status Status
	input  string
	closed bool
}

// Option configures a Client.
type Option func(*Client)

// WithApology overrides the message shown when the gateway is unreachable.
func WithApology(text string) Option {
	return func(c *Client) {
		if text != "" {
			c.apology = text
		}
	}
}

// WithOnUpdate registers a callback invoked with a snapshot after every change.
func WithOnUpdate(fn func(Snapshot)) Option {
	return func(c *Client) { c.onUpdate = fn }
}

// WithTalkTiming sets the talking duration per rune and the mouth toggle interval.
func WithTalkTiming(perRune, interval time.Duration) Option {
	return func(c *Client) {
		c.talker = NewTalker(perRune, interval, c.notify)
	}
}

// WithLogger sets the logger used for transport failures.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewClient creates a chat client sending through t.
func NewClient(t Transport, opts ...Option) *Client {
	c := &Client{
		transport: t,
		apology:   DefaultApology,
		logger:    slog.Default(),
	}
	c.talker = NewTalker(DefaultTalkPerRune, DefaultTalkInterval, c.notify)
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetInput updates the input field draft.
func (c *Client) SetInput(text string) {
	c.mu.Lock()
	c.input = text
	c.mu.Unlock()
	c.notify()
}

// Input returns the input field draft.
func (c *Client) Input() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.input
}

// SubmitInput submits the current input field draft.
func (c *Client) SubmitInput(ctx context.Context) bool {
	return c.Submit(ctx, c.Input())
}

// Submit sends text to the gateway and blocks until the bot message has been
// appended. It returns false without any state change when text is blank,
// a request is already outstanding, or the client is closed.
func (c *Client) Submit(ctx context.Context, text string) bool {
	if strings.TrimSpace(text) == "" {
		return false
	}

	c.mu.Lock()
	if c.closed || c.status == StatusWaiting {
		c.mu.Unlock()
		return false
	}
	c.conv.Append(domain.NewMessage(domain.SenderUser, text))
	c.input = ""
	c.status = StatusWaiting
	c.mu.Unlock()
	c.notify()

	reply, err := c.transport.Send(ctx, text)
	if err != nil {
		c.onError(err)
	} else {
		c.onResponse(reply)
	}
	return true
}

func (c *Client) onResponse(text string) {
	if !c.finish(text) {
		return
	}
	c.talker.Start(text)
}

func (c *Client) onError(err error) {
	c.logger.Warn("Chat request failed", "error", err)
	c.finish(c.apology)
}

// finish appends the bot message and returns to idle. Results arriving after
// Close are discarded.
func (c *Client) finish(text string) bool {
	c.mu.Lock()
	c.status = StatusIdle
	if c.closed {
		c.mu.Unlock()
		return false
	}
	c.conv.Append(domain.NewMessage(domain.SenderBot, text))
	c.mu.Unlock()
	c.notify()
	return true
}

// Status returns the current request state.
func (c *Client) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Messages returns the conversation in display order.
func (c *Client) Messages() []domain.Message {
	return c.conv.Messages()
}

// IsTalking reports whether the talking indicator is active.
func (c *Client) IsTalking() bool {
	talking, _ := c.talker.State()
	return talking
}

// Snapshot returns a consistent view of the client.
func (c *Client) Snapshot() Snapshot {
	c.mu.Lock()
	s := Snapshot{
		Status:   c.status,
		Input:    c.input,
		Messages: c.conv.Messages(),
	}
	c.mu.Unlock()
	s.Talking, s.MouthOpen = c.talker.State()
	return s
}

// Close stops the talking indicator and discards any in-flight result.
func (c *Client) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	c.talker.Close()
}

func (c *Client) notify() {
	if c.onUpdate == nil {
		return
	}
	c.onUpdate(c.Snapshot())
}
