package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
	"github.com/helsbotje/helsbotje-gpt/internal/gateway"
	"github.com/helsbotje/helsbotje-gpt/internal/identity"
)

// ErrEmptyResponse is returned when the gateway body carries no response text.
var ErrEmptyResponse = errors.New("gateway returned an empty response")

// HTTPTransport sends utterances to POST /chat.
type HTTPTransport struct {
	endpoint  string
	client    *http.Client
	sessionID string
}

// NewHTTPTransport creates a transport for the gateway at baseURL. A nil
// client selects http.DefaultClient; an empty sessionID generates one.
func NewHTTPTransport(baseURL string, client *http.Client, sessionID string) *HTTPTransport {
	if client == nil {
		client = http.DefaultClient
	}
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	return &HTTPTransport{
		endpoint:  strings.TrimRight(baseURL, "/") + "/chat",
		client:    client,
		sessionID: sessionID,
	}
}

// SessionID returns the browser session ID sent with every request.
func (t *HTTPTransport) SessionID() string {
	return t.sessionID
}

// Send posts text and returns the "response" field. Failure statuses still
// carry a display-ready response, so the body is read regardless of status.
func (t *HTTPTransport) Send(ctx context.Context, text string) (string, error) {
	body, err := json.Marshal(gateway.ChatRequest{Message: text})
	if err != nil {
		return "", fmt.Errorf("marshal chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(identity.SessionHeaderName, t.sessionID)

	resp, err := t.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("send chat request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	var out gateway.ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode gateway response (status %d): %w", resp.StatusCode, err)
	}
	if out.Response == "" {
		return "", fmt.Errorf("%w (status %d)", ErrEmptyResponse, resp.StatusCode)
	}
	return out.Response, nil
}

// WSTransport sends utterances over the /ws/chat WebSocket. The connection is
// dialed lazily and redialed after a failure.
type WSTransport struct {
	url       string
	sessionID string

	mu   sync.Mutex
	conn *websocket.Conn
}

// NewWSTransport creates a WebSocket transport for the gateway at baseURL
// (http:// or https://).
func NewWSTransport(baseURL, sessionID string) *WSTransport {
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	u := strings.TrimRight(baseURL, "/") + "/ws/chat"
	switch {
	case strings.HasPrefix(u, "https://"):
		u = "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		u = "ws://" + strings.TrimPrefix(u, "http://")
	}
	return &WSTransport{url: u, sessionID: sessionID}
}

// Send writes one request frame and waits for its reply frame.
func (t *WSTransport) Send(ctx context.Context, text string) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.conn == nil {
		header := http.Header{}
		header.Set(identity.SessionHeaderName, t.sessionID)
		// Dial with a background context: the connection outlives this call.
		conn, _, err := websocket.Dial(context.Background(), t.url, &websocket.DialOptions{HTTPHeader: header})
		if err != nil {
			return "", fmt.Errorf("dial chat socket: %w", err)
		}
		t.conn = conn
	}

	if err := wsjson.Write(ctx, t.conn, gateway.ChatRequest{Message: text}); err != nil {
		t.dropLocked()
		return "", fmt.Errorf("write chat frame: %w", err)
	}
	var reply gateway.SocketReply
	if err := wsjson.Read(ctx, t.conn, &reply); err != nil {
		t.dropLocked()
		return "", fmt.Errorf("read chat frame: %w", err)
	}
	if reply.Response == "" {
		return "", ErrEmptyResponse
	}
	return reply.Response, nil
}

// Close closes the underlying connection, if any.
func (t *WSTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conn == nil {
		return nil
	}
	err := t.conn.Close(websocket.StatusNormalClosure, "bye")
	t.conn = nil
	return err
}

func (t *WSTransport) dropLocked() {
	if t.conn != nil {
		_ = t.conn.CloseNow()
		t.conn = nil
	}
}

var (
	_ Transport = (*HTTPTransport)(nil)
	_ Transport = (*WSTransport)(nil)
)
