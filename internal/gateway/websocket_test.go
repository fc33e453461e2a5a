package gateway

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/helsbotje/helsbotje-gpt/internal/identity"
	"github.com/helsbotje/helsbotje-gpt/internal/persona"
)

func newWSServer(t *testing.T, gw *Gateway, sm *SessionManager) *httptest.Server {
	t.Helper()
	h := NewWebSocketHandler(gw, sm, "", true, 0)
	srv := httptest.NewServer(identity.Middleware(h))
	t.Cleanup(srv.Close)
	return srv
}

func dialChat(t *testing.T, ctx context.Context, srv *httptest.Server, sessionID string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/chat"
	header := http.Header{}
	header.Set(identity.SessionHeaderName, sessionID)
	conn, _, err := websocket.Dial(ctx, url, &websocket.DialOptions{HTTPHeader: header})
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	return conn
}

func TestWebSocketOneReplyPerFrame(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	srv := newWSServer(t, New(&fakeProvider{text: "Vier! 🧮"}, persona.Default()), NewSessionManager())
	conn := dialChat(t, ctx, srv, "tab-1")
	defer func() { _ = conn.Close(websocket.StatusNormalClosure, "") }()

	for i := 0; i < 2; i++ {
		if err := wsjson.Write(ctx, conn, ChatRequest{Message: "Wat is 2+2?"}); err != nil {
			t.Fatalf("write failed: %v", err)
		}
		var reply SocketReply
		if err := wsjson.Read(ctx, conn, &reply); err != nil {
			t.Fatalf("read failed: %v", err)
		}
		if reply.Response != "Vier! 🧮" || !reply.OK {
			t.Errorf("unexpected reply %+v", reply)
		}
	}
}

func TestWebSocketMalformedFrameGetsFallback(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	fp := &fakeProvider{text: "unused"}
	srv := newWSServer(t, New(fp, persona.Default()), NewSessionManager())
	conn := dialChat(t, ctx, srv, "tab-2")
	defer func() { _ = conn.Close(websocket.StatusNormalClosure, "") }()

	if err := conn.Write(ctx, websocket.MessageText, []byte("not json")); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	var reply SocketReply
	if err := wsjson.Read(ctx, conn, &reply); err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if reply.OK || reply.Response != persona.DefaultProviderFailure {
		t.Errorf("unexpected reply %+v", reply)
	}
	if fp.callCount() != 0 {
		t.Error("provider must not be called for malformed frames")
	}
}

func TestWebSocketSessionTracking(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sm := NewSessionManager()
	srv := newWSServer(t, New(&fakeProvider{text: "Hoi!"}, persona.Default()), sm)

	first := dialChat(t, ctx, srv, "tab-3")
	waitFor(t, func() bool { return sm.GetActive("tab-3") != nil })

	second := dialChat(t, ctx, srv, "tab-3")
	defer func() { _ = second.Close(websocket.StatusNormalClosure, "") }()

	// The replaced connection is closed by the server.
	if _, _, err := first.Read(ctx); err == nil {
		t.Error("expected replaced connection to be closed")
	}

	if err := wsjson.Write(ctx, second, ChatRequest{Message: "hoi"}); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	var reply SocketReply
	if err := wsjson.Read(ctx, second, &reply); err != nil {
		t.Fatalf("read on replacement failed: %v", err)
	}
	if sm.Count() != 1 {
		t.Errorf("expected 1 active session, got %d", sm.Count())
	}

	done := make(chan struct{})
	go func() {
		sm.CloseAll()
		close(done)
	}()
	if _, _, err := second.Read(ctx); err == nil {
		t.Error("expected connection to be closed on shutdown")
	}
	<-done
	if sm.Count() != 0 {
		t.Errorf("expected no active sessions, got %d", sm.Count())
	}
}

func TestWebSocketWaitCoversInFlightReplies(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	fp := &fakeProvider{text: "Tjeetje!", release: make(chan struct{})}
	rec := &fakeRecorder{}
	gw := New(fp, persona.Default(), WithRecorder(rec))
	sm := NewSessionManager()
	h := NewWebSocketHandler(gw, sm, "", true, 0)
	srv := httptest.NewServer(identity.Middleware(h))
	defer srv.Close()

	conn := dialChat(t, ctx, srv, "tab-4")
	if err := wsjson.Write(ctx, conn, ChatRequest{Message: "hoi"}); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	waitFor(t, func() bool { return fp.callCount() == 1 })

	// The client keeps reading so the close handshake can complete.
	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		for {
			if _, _, err := conn.Read(ctx); err != nil {
				return
			}
		}
	}()

	sm.CloseAll()
	<-readDone

	shortCtx, shortCancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer shortCancel()
	if err := h.Wait(shortCtx); err == nil {
		t.Fatal("expected Wait to block while a reply is in flight")
	}

	close(fp.release)
	if err := h.Wait(ctx); err != nil {
		t.Fatalf("Wait failed: %v", err)
	}
	gw.Close()

	if got := len(rec.recorded()); got != 1 {
		t.Errorf("expected the in-flight exchange to be recorded, got %d", got)
	}
}

func TestSessionManagerRejectsAfterCloseAll(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sm := NewSessionManager()
	sm.CloseAll()
	srv := newWSServer(t, New(&fakeProvider{text: "Hoi!"}, persona.Default()), sm)

	conn := dialChat(t, ctx, srv, "tab-5")
	defer func() { _ = conn.CloseNow() }()

	if _, _, err := conn.Read(ctx); err == nil {
		t.Error("expected connection to be closed after shutdown")
	}
	if sm.Count() != 0 {
		t.Errorf("expected no active sessions, got %d", sm.Count())
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}
