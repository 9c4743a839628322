package httpserver

import (
	"fmt"
	"io"
	"net/http"

	"github.com/coryb-xyz/sklonger/internal/bluesky"
	"github.com/coryb-xyz/sklonger/internal/html"
	"github.com/coryb-xyz/sklonger/internal/thread"
)

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("url") != "" {
		s.handleThread(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	io.WriteString(w, html.Landing())
}

func (s *Server) handleThread(w http.ResponseWriter, r *http.Request) {
	rawURL := r.URL.Query().Get("url")
	if rawURL == "" {
		s.renderErrorPage(w, thread.Errorf(thread.KindInvalidInput, "url parameter is required"))
		return
	}

	ref, err := bluesky.ParsePostURL(rawURL)
	if err != nil {
		s.logger.Warn("rejected thread URL", "url", rawURL, "error", err)
		s.renderErrorPage(w, err)
		return
	}

	s.renderThread(w, r, ref.Handle, ref.PostID)
}

func (s *Server) handleThreadByPath(w http.ResponseWriter, r *http.Request) {
	handle := r.PathValue("handle")
	postID := r.PathValue("postID")
	if handle == "" || postID == "" {
		s.renderErrorPage(w, thread.Errorf(thread.KindInvalidInput, "handle and post id are required"))
		return
	}
	s.renderThread(w, r, handle, postID)
}

// renderThread streams the assembled chain as chunked HTML: page top and
// author header as soon as the Header event arrives, one article per Post
// event, footer on Done. The request context cancels the assembly when
// the client disconnects, which stops further upstream fetches.
func (s *Server) renderThread(w http.ResponseWriter, r *http.Request, handle, postID string) {
	ctx := r.Context()
	events := s.assembler.StreamThread(ctx, handle, postID)

	flusher, _ := w.(http.Flusher)
	flush := func() {
		if flusher != nil {
			flusher.Flush()
		}
	}

	var author thread.Author
	var firstPost, lastPost *thread.Post
	wrote := false
	posts := 0

	for ev := range events {
		switch ev.Kind {
		case thread.EventHeader:
			author = *ev.Author
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			io.WriteString(w, html.PageTop(html.PageOptions{
				Title:        fmt.Sprintf("Thread by @%s - sklonger", author.Handle),
				FaviconURL:   author.AvatarURL,
				CanonicalURL: fmt.Sprintf("%s/profile/%s/post/%s", s.cfg.PublicURL, handle, postID),
			}))
			io.WriteString(w, html.Header(author))
			wrote = true
			flush()

		case thread.EventPost:
			if firstPost == nil {
				firstPost = ev.Post
			}
			lastPost = ev.Post
			posts++
			io.WriteString(w, html.Post(*ev.Post, author.Handle))
			flush()

		case thread.EventDone:
			io.WriteString(w, html.Footer(originalURL(author, firstPost), s.pollParams(author, firstPost, lastPost)))
			s.logger.Info("thread rendered", "handle", handle, "post", postID, "posts", posts)

		case thread.EventError:
			kind := thread.KindOf(ev.Err)
			s.logger.Error("thread assembly failed",
				"handle", handle,
				"post", postID,
				"posts_before_error", posts,
				"kind", kind.String(),
				"error", ev.Err,
			)
			if !wrote {
				s.renderErrorPage(w, ev.Err)
				return
			}
			// Bytes are already on the wire; close the page with an
			// inline failure notice instead of the footer.
			io.WriteString(w, html.StreamError(errorMessage(kind, ev.Err)))
		}
	}
}

// originalURL links the footer back to the root post on bsky.app.
func originalURL(author thread.Author, firstPost *thread.Post) string {
	if firstPost == nil {
		return "https://bsky.app"
	}
	return firstPost.WebURL(author.Handle)
}

// pollParams builds the browser poller bootstrap, or nil when polling is
// disabled. The poll address uses the root post's record key; the root
// never moves, while the tail does.
func (s *Server) pollParams(author thread.Author, firstPost, lastPost *thread.Post) *html.PollParams {
	if !s.cfg.PollEnabled || firstPost == nil || lastPost == nil {
		return nil
	}
	return &html.PollParams{
		Handle:    author.Handle,
		PostID:    firstPost.RKey(),
		Cursor:    lastPost.CID,
		InitialMS: s.cfg.PollInitialInterval.Milliseconds(),
		MaxMS:     s.cfg.PollMaxInterval.Milliseconds(),
	}
}

func (s *Server) renderErrorPage(w http.ResponseWriter, err error) {
	kind := thread.KindOf(err)
	status, title := errorStatus(kind)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	io.WriteString(w, html.ErrorPage(status, title, errorMessage(kind, err)))
}
