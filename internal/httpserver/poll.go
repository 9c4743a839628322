package httpserver

import (
	"io"
	"net/http"
	"time"

	"github.com/coryb-xyz/sklonger/internal/html"
	"github.com/coryb-xyz/sklonger/internal/thread"
)

// Poll response headers. The watermark and staleness flag travel as
// metadata so the body can stay a ready-to-insert HTML fragment.
const (
	headerPollCursor = "X-Sklonger-Cursor"
	headerPollStale  = "X-Sklonger-Stale"
)

// handlePoll serves one cycle of the update protocol: re-assemble the
// chain, diff against the client's watermark, and answer with either no
// content (204, optionally flagged stale) or the new posts rendered as
// fragments plus the advanced watermark.
func (s *Server) handlePoll(w http.ResponseWriter, r *http.Request) {
	handle := r.URL.Query().Get("handle")
	postID := r.URL.Query().Get("post")
	since := r.URL.Query().Get("since")
	if handle == "" || postID == "" || since == "" {
		writeError(w, http.StatusBadRequest, "InvalidRequest", "handle, post, and since parameters are required")
		return
	}

	t, err := s.assembler.AssembleThread(r.Context(), handle, postID)
	if err != nil {
		kind := thread.KindOf(err)
		status, title := errorStatus(kind)
		s.logger.Warn("poll assembly failed", "handle", handle, "post", postID, "kind", kind.String(), "error", err)
		writeError(w, status, title, errorMessage(kind, err))
		return
	}

	stale := time.Since(t.LastActivity()) >= s.cfg.PollDisableAfter

	newPosts, ok := t.PostsAfter(since)
	if !ok || len(newPosts) == 0 {
		if stale {
			w.Header().Set(headerPollStale, "1")
		}
		w.WriteHeader(http.StatusNoContent)
		return
	}

	s.logger.Info("poll found new posts", "handle", handle, "post", postID, "new_posts", len(newPosts))

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set(headerPollCursor, t.LastDigest())
	io.WriteString(w, html.Posts(newPosts, t.Author.Handle))
}
