package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/coryb-xyz/sklonger/internal/html"
	"github.com/coryb-xyz/sklonger/internal/poll"
	"github.com/coryb-xyz/sklonger/internal/thread"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// Thread pages are public and carry no credentials.
	CheckOrigin: func(*http.Request) bool { return true },
}

// wsMessage is one frame on the live thread channel.
type wsMessage struct {
	Type string `json:"type"`

	// Author accompanies "header".
	Author *wsAuthor `json:"author,omitempty"`

	// HTML carries rendered post fragments for "post" and "posts".
	HTML string `json:"html,omitempty"`

	// Cursor is the advanced watermark for "post" and "posts".
	Cursor string `json:"cursor,omitempty"`

	// Kind and Message accompany "error".
	Kind    string `json:"kind,omitempty"`
	Message string `json:"message,omitempty"`
}

type wsAuthor struct {
	DID         string `json:"did"`
	Handle      string `json:"handle"`
	DisplayName string `json:"displayName,omitempty"`
	Avatar      string `json:"avatar,omitempty"`
}

// clientMessage is what the browser may send: currently only a manual
// refresh request.
type clientMessage struct {
	Type string `json:"type"`
}

// handleWS serves the live thread channel: it replays the assembly event
// stream as JSON frames, then keeps polling upstream on the scheduler's
// cadence and pushes new posts as they appear. The connection closing
// cancels the context and with it any in-flight walk.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	handle := r.URL.Query().Get("handle")
	postID := r.URL.Query().Get("post")
	if handle == "" || postID == "" {
		writeError(w, http.StatusBadRequest, "InvalidRequest", "handle and post parameters are required")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// Read pump: surfaces manual refresh requests and detects the peer
	// going away.
	refreshCh := make(chan struct{}, 1)
	go func() {
		defer cancel()
		for {
			var msg clientMessage
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			if msg.Type == "refresh" {
				select {
				case refreshCh <- struct{}{}:
				default:
				}
			}
		}
	}()

	author, cursor, lastActivity, ok := s.streamInitial(ctx, conn, handle, postID)
	if !ok {
		return
	}

	if !s.cfg.PollEnabled {
		return
	}
	s.pollLoop(ctx, conn, refreshCh, author, handle, postID, cursor, lastActivity)
}

// streamInitial replays the assembly as websocket frames. Returns ok only
// when the stream completed with Done.
func (s *Server) streamInitial(ctx context.Context, conn *websocket.Conn, handle, postID string) (author thread.Author, cursor string, lastActivity time.Time, ok bool) {
	for ev := range s.assembler.StreamThread(ctx, handle, postID) {
		switch ev.Kind {
		case thread.EventHeader:
			author = *ev.Author
			err := conn.WriteJSON(wsMessage{Type: "header", Author: &wsAuthor{
				DID:         author.DID,
				Handle:      author.Handle,
				DisplayName: author.DisplayName,
				Avatar:      author.AvatarURL,
			}})
			if err != nil {
				return author, "", time.Time{}, false
			}

		case thread.EventPost:
			cursor = ev.Post.CID
			lastActivity = ev.Post.CreatedAt
			err := conn.WriteJSON(wsMessage{
				Type:   "post",
				HTML:   html.Post(*ev.Post, author.Handle),
				Cursor: cursor,
			})
			if err != nil {
				return author, "", time.Time{}, false
			}

		case thread.EventDone:
			if err := conn.WriteJSON(wsMessage{Type: "done"}); err != nil {
				return author, "", time.Time{}, false
			}
			return author, cursor, lastActivity, true

		case thread.EventError:
			kind := thread.KindOf(ev.Err)
			_ = conn.WriteJSON(wsMessage{
				Type:    "error",
				Kind:    kind.String(),
				Message: errorMessage(kind, ev.Err),
			})
			return author, "", time.Time{}, false
		}
	}
	return author, "", time.Time{}, false
}

// pollLoop runs the update protocol against the scheduler state machine,
// pushing new posts over the connection until the thread goes stale or
// the peer disconnects.
func (s *Server) pollLoop(ctx context.Context, conn *websocket.Conn, refreshCh <-chan struct{}, author thread.Author, handle, postID, cursor string, lastActivity time.Time) {
	cfg := poll.Config{
		InitialInterval: s.cfg.PollInitialInterval,
		MaxInterval:     s.cfg.PollMaxInterval,
		DisableAfter:    s.cfg.PollDisableAfter,
	}
	state := poll.NewState(cfg, cursor, lastActivity, time.Now())

	timer := time.NewTimer(state.Interval)
	defer timer.Stop()
	// timerCh is nilled once staleness stops the schedule, so only a
	// manual refresh or disconnect can wake the loop afterwards.
	timerCh := timer.C

	for {
		select {
		case <-ctx.Done():
			return

		case <-refreshCh:
			var action poll.Action
			state, action = poll.Step(cfg, state, poll.Event{Kind: poll.ManualRefresh, Now: time.Now()})
			if action.Kind != poll.PollNow {
				continue
			}

		case <-timerCh:
		}

		ev := s.pollOnce(ctx, conn, author, handle, postID, state.Cursor)
		if ev == nil {
			return
		}

		var action poll.Action
		state, action = poll.Step(cfg, state, *ev)

		switch action.Kind {
		case poll.Schedule:
			resetTimer(timer, action.Delay)
			timerCh = timer.C
		case poll.PollNow:
			resetTimer(timer, 0)
			timerCh = timer.C
		case poll.Stop:
			if err := conn.WriteJSON(wsMessage{Type: "stale"}); err != nil {
				return
			}
			drainTimer(timer)
			timerCh = nil
		}
	}
}

// pollOnce performs one poll cycle and reports the resulting scheduler
// event. A nil return means the connection is unusable and the loop
// should end.
func (s *Server) pollOnce(ctx context.Context, conn *websocket.Conn, author thread.Author, handle, postID, cursor string) *poll.Event {
	now := time.Now()

	t, err := s.assembler.AssembleThread(ctx, handle, postID)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		s.logger.Warn("live poll failed", "handle", handle, "post", postID, "error", err)
		return &poll.Event{Kind: poll.TransportError, Now: now}
	}

	newPosts, ok := t.PostsAfter(cursor)
	if !ok || len(newPosts) == 0 {
		return &poll.Event{Kind: poll.NoChange, Now: now}
	}

	err = conn.WriteJSON(wsMessage{
		Type:   "posts",
		HTML:   html.Posts(newPosts, author.Handle),
		Cursor: t.LastDigest(),
	})
	if err != nil {
		return nil
	}

	return &poll.Event{
		Kind:         poll.NewPosts,
		Now:          now,
		Cursor:       t.LastDigest(),
		LastActivity: t.LastActivity(),
	}
}

func resetTimer(t *time.Timer, d time.Duration) {
	drainTimer(t)
	t.Reset(d)
}

func drainTimer(t *time.Timer) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
}
