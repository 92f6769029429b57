package gateway

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/murmurlabs/murmur/internal/memory"
	"github.com/murmurlabs/murmur/internal/observe"
	"github.com/murmurlabs/murmur/internal/upstream"
)

type sentText struct {
	text      string
	endOfTurn bool
}

// fakeSession stands in for a live upstream conversation. Turns pushed into
// the turns channel come out of Receive; Close ends the session.
type fakeSession struct {
	mu    sync.Mutex
	texts []sentText

	turns chan *upstream.Turn
	done  chan struct{}
	once  sync.Once
}

func newFakeSession() *fakeSession {
	return &fakeSession{
		turns: make(chan *upstream.Turn, 8),
		done:  make(chan struct{}),
	}
}

func (s *fakeSession) SendText(ctx context.Context, text string, endOfTurn bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.texts = append(s.texts, sentText{text, endOfTurn})
	return nil
}

func (s *fakeSession) SendMedia(ctx context.Context, mimeType, data string) error {
	return nil
}

func (s *fakeSession) Receive() (*upstream.Turn, error) {
	select {
	case turn := <-s.turns:
		return turn, nil
	case <-s.done:
		return nil, errors.New("session closed")
	}
}

func (s *fakeSession) Close() error {
	s.once.Do(func() { close(s.done) })
	return nil
}

func (s *fakeSession) sentTexts() []sentText {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]sentText(nil), s.texts...)
}

type fakeDialer struct {
	mu      sync.Mutex
	cfg     upstream.Config
	session *fakeSession
	err     error
}

func (d *fakeDialer) Dial(ctx context.Context, cfg upstream.Config) (upstream.Session, error) {
	d.mu.Lock()
	d.cfg = cfg
	d.mu.Unlock()
	if d.err != nil {
		return nil, d.err
	}
	return d.session, nil
}

func (d *fakeDialer) dialedConfig() upstream.Config {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cfg
}

type fakeStore struct {
	mu      sync.Mutex
	records []memory.Record
	saves   int
}

func (s *fakeStore) Save(ctx context.Context, sessionID, text, utterance string) memory.SaveResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saves++
	return memory.SaveResult{Success: true, Message: memory.ConfirmMessage(text), RecordID: int64(s.saves)}
}

func (s *fakeStore) Load(ctx context.Context, sessionID string, limit int) []memory.Record {
	return s.records
}

// dial spins up a test server around the gateway and connects a client.
func dial(t *testing.T, g *Gateway) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(g.Handle))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Failed to dial gateway: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func newTestGateway(store memory.Store, dialer upstream.Dialer) *Gateway {
	obs := observe.New(io.Discard, false)
	return New(obs, store, dialer, Options{Model: "models/test"})
}

func waitForTexts(t *testing.T, sess *fakeSession, n int) []sentText {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if texts := sess.sentTexts(); len(texts) >= n {
			return texts
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d upstream texts, have %+v", n, sess.sentTexts())
	return nil
}

func TestGateway_SessionLifecycle(t *testing.T) {
	sess := newFakeSession()
	dialer := &fakeDialer{session: sess}
	store := &fakeStore{records: []memory.Record{
		{Text: "likes coffee"},
		{Text: "lives in Berlin"},
	}}
	g := newTestGateway(store, dialer)

	conn := dial(t, g)

	// The greeting is sent before any client traffic and names the
	// memory count.
	texts := waitForTexts(t, sess, 1)
	if !texts[0].endOfTurn || !strings.Contains(texts[0].text, "2 saved memories") {
		t.Errorf("greeting = %+v", texts[0])
	}

	// The session was opened with the loaded memories folded into the
	// system instruction, base first.
	cfg := dialer.dialedConfig()
	if !strings.HasPrefix(cfg.SystemInstruction, "You are a helpful and friendly AI assistant.") {
		t.Errorf("instruction does not start with the base: %q", cfg.SystemInstruction)
	}
	for _, want := range []string{"likes coffee", "lives in Berlin"} {
		if !strings.Contains(cfg.SystemInstruction, want) {
			t.Errorf("instruction missing %q: %q", want, cfg.SystemInstruction)
		}
	}
	if cfg.Model != "models/test" {
		t.Errorf("model = %q", cfg.Model)
	}

	// Client text reaches the upstream session.
	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"text": "hello"}`)); err != nil {
		t.Fatalf("Failed to write client frame: %v", err)
	}
	texts = waitForTexts(t, sess, 2)
	if texts[1].text != "hello" || !texts[1].endOfTurn {
		t.Errorf("forwarded %+v", texts[1])
	}

	// An upstream turn comes back as a client frame.
	sess.turns <- &upstream.Turn{Parts: []upstream.Part{{Text: "hi there"}}}
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var frame map[string]any
	if err := conn.ReadJSON(&frame); err != nil {
		t.Fatalf("Failed to read outbound frame: %v", err)
	}
	if frame["text"] != "hi there" {
		t.Errorf("outbound frame = %v", frame)
	}

	// A clean client close tears the whole session down.
	conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	conn.Close()

	select {
	case <-sess.done:
	case <-time.After(2 * time.Second):
		t.Fatal("upstream session was not closed after client disconnect")
	}
}

func TestGateway_FreshSessionGreeting(t *testing.T) {
	sess := newFakeSession()
	dialer := &fakeDialer{session: sess}
	g := newTestGateway(&fakeStore{}, dialer)

	dial(t, g)

	texts := waitForTexts(t, sess, 1)
	if !strings.Contains(texts[0].text, "first conversation") {
		t.Errorf("greeting = %q", texts[0].text)
	}
	if cfg := dialer.dialedConfig(); cfg.SystemInstruction != "You are a helpful and friendly AI assistant." {
		t.Errorf("instruction changed with no memories: %q", cfg.SystemInstruction)
	}
}

func TestGateway_DialFailureClosesConnection(t *testing.T) {
	dialer := &fakeDialer{err: errors.New("upstream unavailable")}
	g := newTestGateway(&fakeStore{}, dialer)

	conn := dial(t, g)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Fatal("expected the connection to close after a failed upstream dial")
	}
}
