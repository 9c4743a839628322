package thread

import (
	"context"
	"log/slog"
	"strings"
)

// maxParentHops bounds the upward walk. Real chains are a handful of
// posts; only a corrupt or adversarial parent graph gets anywhere near
// the cap.
const maxParentHops = 128

// Assembler reconstructs self-reply chains through a Fetcher. Each
// assembly owns its walk state; a single Assembler is safe for concurrent
// use.
type Assembler struct {
	fetcher Fetcher
	logger  *slog.Logger
}

// NewAssembler creates an Assembler over the given fetcher.
func NewAssembler(fetcher Fetcher, logger *slog.Logger) *Assembler {
	return &Assembler{
		fetcher: fetcher,
		logger:  logger,
	}
}

// AssembleThread resolves the handle, locates the chain root, and walks
// forward to completion. Any fetch error anywhere in the walk fails the
// whole assembly; no partial thread is ever returned.
func (a *Assembler) AssembleThread(ctx context.Context, handle, postID string) (*Thread, error) {
	t := &Thread{}
	err := a.walk(ctx, handle, postID,
		func(author Author) error {
			t.Author = author
			return nil
		},
		func(post Post) error {
			t.Posts = append(t.Posts, post)
			return nil
		},
	)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// StreamThread runs the same walk as AssembleThread but yields each
// result as soon as it is known: one Header, posts in chain order, then
// Done, or an Error event instead of Done if a fetch fails mid-walk.
//
// The channel is unbuffered: the producer blocks on a consumer that has
// stopped pulling and issues no further fetches once ctx is cancelled.
// The channel is closed after the terminal event.
func (a *Assembler) StreamThread(ctx context.Context, handle, postID string) <-chan Event {
	events := make(chan Event)

	go func() {
		defer close(events)

		send := func(ev Event) error {
			select {
			case events <- ev:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		err := a.walk(ctx, handle, postID,
			func(author Author) error {
				au := author
				return send(Event{Kind: EventHeader, Author: &au})
			},
			func(post Post) error {
				p := post
				return send(Event{Kind: EventPost, Post: &p})
			},
		)
		if err != nil {
			if ctx.Err() != nil {
				// Consumer is gone; nobody is listening for the error.
				return
			}
			_ = send(Event{Kind: EventError, Err: err})
			return
		}
		_ = send(Event{Kind: EventDone})
	}()

	return events
}

// walk drives one assembly: resolve, locate root, walk forward. The
// author callback fires once before the first post callback; the walk
// stops at the first callback or fetch error.
func (a *Assembler) walk(ctx context.Context, handle, postID string, onAuthor func(Author) error, onPost func(Post) error) error {
	did, err := a.resolve(ctx, handle)
	if err != nil {
		return err
	}

	rootURI, err := a.locateRoot(ctx, PostURI(did, postID))
	if err != nil {
		return err
	}

	current := rootURI
	authorDID := ""
	for current != "" {
		pc, err := a.fetcher.FetchContext(ctx, current)
		if err != nil {
			return err
		}

		if authorDID == "" {
			authorDID = pc.Author.DID
			if err := onAuthor(pc.Author); err != nil {
				return err
			}
		}
		if err := onPost(pc.Post); err != nil {
			return err
		}

		// Follow the first same-author reply in API order. Branching
		// self-replies are not explored; a thread is a single chain.
		next := ""
		for _, r := range pc.Replies {
			if r.AuthorDID == authorDID {
				next = r.URI
				break
			}
		}
		current = next
	}

	return nil
}

// locateRoot walks upward one hop at a time until it reaches a post with
// no parent or a parent by another author. Strictly iterative: chain
// depth costs network calls, never stack depth. A parent graph that
// cycles or exceeds maxParentHops fails as malformed rather than looping.
func (a *Assembler) locateRoot(ctx context.Context, start string) (string, error) {
	current := start
	visited := make(map[string]struct{})

	for hops := 0; ; hops++ {
		if hops >= maxParentHops {
			return "", Errorf(KindMalformed, "parent chain exceeds %d hops from %s", maxParentHops, start)
		}
		if _, seen := visited[current]; seen {
			return "", Errorf(KindMalformed, "parent chain cycles at %s", current)
		}
		visited[current] = struct{}{}

		pc, err := a.fetcher.FetchContext(ctx, current)
		if err != nil {
			return "", err
		}

		// Author identity is compared by DID; handles can be reassigned.
		if pc.Parent == nil || pc.Parent.AuthorDID != pc.Author.DID {
			if hops > 0 {
				a.logger.Debug("located chain root", "root", current, "hops", hops)
			}
			return current, nil
		}
		current = pc.Parent.URI
	}
}

// resolve turns a handle into a DID, passing already-resolved DIDs
// through untouched.
func (a *Assembler) resolve(ctx context.Context, handle string) (string, error) {
	if strings.HasPrefix(handle, "did:") {
		return handle, nil
	}
	did, err := a.fetcher.ResolveHandle(ctx, handle)
	if err != nil {
		return "", err
	}
	return did, nil
}
