package httpserver

import (
	"fmt"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/coryb-xyz/sklonger/internal/config"
	"github.com/coryb-xyz/sklonger/internal/thread"
)

func newWSServer(t *testing.T, f thread.Fetcher, initialInterval time.Duration) *httptest.Server {
	t.Helper()
	cfg := &config.Config{
		BlueskyAPIURL:       "http://unused",
		RequestTimeout:      time.Second,
		PollEnabled:         true,
		PollInitialInterval: initialInterval,
		PollMaxInterval:     120 * time.Second,
		PollDisableAfter:    30 * time.Minute,
		PublicURL:           "https://sklonger.test",
	}
	logger := slog.New(slog.DiscardHandler)
	s := NewServer(cfg, thread.NewAssembler(f, logger), logger)

	srv := httptest.NewServer(s.httpServer.Handler)
	t.Cleanup(srv.Close)
	return srv
}

func dialWS(t *testing.T, srv *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?" + query
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial %s failed: %v", wsURL, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn, timeout time.Duration) wsMessage {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(timeout))
	var msg wsMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read frame: %v", err)
	}
	return msg
}

func TestWSStreamsThread(t *testing.T) {
	srv := newWSServer(t, chainFetcher(3, time.Minute), time.Minute)
	conn := dialWS(t, srv, "handle="+testHandle+"&post=p2")

	msg := readFrame(t, conn, time.Second)
	if msg.Type != "header" {
		t.Fatalf("expected header frame first, got %q", msg.Type)
	}
	if msg.Author == nil || msg.Author.Handle != testHandle || msg.Author.DID != testDID {
		t.Errorf("unexpected header author: %+v", msg.Author)
	}

	for i := 1; i <= 3; i++ {
		msg = readFrame(t, conn, time.Second)
		if msg.Type != "post" {
			t.Fatalf("expected post frame %d, got %q", i, msg.Type)
		}
		if !strings.Contains(msg.HTML, fmt.Sprintf("post number %d", i)) {
			t.Errorf("post frame %d carries wrong fragment:\n%s", i, msg.HTML)
		}
		if msg.Cursor != fmt.Sprintf("cid%d", i) {
			t.Errorf("post frame %d: expected cursor cid%d, got %q", i, i, msg.Cursor)
		}
	}

	msg = readFrame(t, conn, time.Second)
	if msg.Type != "done" {
		t.Errorf("expected done frame after the chain, got %q", msg.Type)
	}
}

func TestWSErrorFrame(t *testing.T) {
	f := chainFetcher(1, time.Minute)
	f.errs[thread.PostURI(testDID, "p1")] = thread.Errorf(thread.KindBlocked, "no access")
	srv := newWSServer(t, f, time.Minute)
	conn := dialWS(t, srv, "handle="+testHandle+"&post=p1")

	msg := readFrame(t, conn, time.Second)
	if msg.Type != "error" {
		t.Fatalf("expected error frame, got %q", msg.Type)
	}
	if msg.Kind != "blocked" {
		t.Errorf("expected blocked kind, got %q", msg.Kind)
	}
}

func TestWSStaleStopsAutomaticPolling(t *testing.T) {
	// Tail post is an hour old; the first scheduled poll finds nothing new
	// and the staleness window has long passed.
	srv := newWSServer(t, chainFetcher(2, time.Hour), 10*time.Millisecond)
	conn := dialWS(t, srv, "handle="+testHandle+"&post=p1")

	for {
		msg := readFrame(t, conn, time.Second)
		if msg.Type == "done" {
			break
		}
	}

	msg := readFrame(t, conn, time.Second)
	if msg.Type != "stale" {
		t.Fatalf("expected stale frame after the first quiet poll, got %q", msg.Type)
	}

	// A manual refresh is the only thing that polls again; the quiet
	// result re-enters the stopped state.
	if err := conn.WriteJSON(map[string]string{"type": "refresh"}); err != nil {
		t.Fatalf("write refresh: %v", err)
	}
	msg = readFrame(t, conn, time.Second)
	if msg.Type != "stale" {
		t.Fatalf("expected stale frame after manual refresh, got %q", msg.Type)
	}

	// No further frames arrive on their own.
	conn.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	var extra wsMessage
	if err := conn.ReadJSON(&extra); err == nil {
		t.Fatalf("unexpected automatic frame %q after stale stop", extra.Type)
	}
}
