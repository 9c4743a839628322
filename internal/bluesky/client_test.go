package bluesky

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/coryb-xyz/sklonger/internal/thread"
)

func newTestClient(handler http.Handler) (*Client, *httptest.Server) {
	srv := httptest.NewServer(handler)
	return NewClient(srv.URL, 5*time.Second), srv
}

func TestFetchContextAlwaysRequestsShallowContext(t *testing.T) {
	var gotDepth, gotParentHeight string
	client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotDepth = r.URL.Query().Get("depth")
		gotParentHeight = r.URL.Query().Get("parentHeight")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(threadViewJSON))
	}))
	defer srv.Close()

	if _, err := client.FetchContext(context.Background(), "at://did:plc:abc/app.bsky.feed.post/p1"); err != nil {
		t.Fatalf("FetchContext failed: %v", err)
	}
	if gotDepth != "1" || gotParentHeight != "1" {
		t.Errorf("expected depth=1 parentHeight=1, got depth=%s parentHeight=%s", gotDepth, gotParentHeight)
	}
}

const threadViewJSON = `{
  "thread": {
    "$type": "app.bsky.feed.defs#threadViewPost",
    "post": {
      "uri": "at://did:plc:abc/app.bsky.feed.post/p2",
      "cid": "bafycid2",
      "author": {"did": "did:plc:abc", "handle": "user.bsky.social", "displayName": "User", "avatar": "https://cdn/avatar.jpg"},
      "record": {"$type": "app.bsky.feed.post", "text": "hello https://example.com", "createdAt": "2026-03-01T12:00:00Z", "langs": ["en"]},
      "replyCount": 2,
      "repostCount": 1,
      "likeCount": 7,
      "embed": {
        "$type": "app.bsky.embed.images#view",
        "images": [{"thumb": "https://cdn/t.jpg", "fullsize": "https://cdn/f.jpg", "alt": "a pic", "aspectRatio": {"width": 4, "height": 3}}]
      }
    },
    "parent": {
      "$type": "app.bsky.feed.defs#threadViewPost",
      "post": {"uri": "at://did:plc:abc/app.bsky.feed.post/p1", "author": {"did": "did:plc:abc", "handle": "user.bsky.social"}}
    },
    "replies": [
      {"$type": "app.bsky.feed.defs#threadViewPost", "post": {"uri": "at://did:plc:other/app.bsky.feed.post/r1", "author": {"did": "did:plc:other", "handle": "other.bsky.social"}}},
      {"$type": "app.bsky.feed.defs#threadViewPost", "post": {"uri": "at://did:plc:abc/app.bsky.feed.post/p3", "author": {"did": "did:plc:abc", "handle": "user.bsky.social"}}},
      {"$type": "app.bsky.feed.defs#blockedPost", "uri": "at://did:plc:x/app.bsky.feed.post/b1", "blocked": true}
    ]
  }
}`

func TestFetchContextDecodesThreadView(t *testing.T) {
	client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(threadViewJSON))
	}))
	defer srv.Close()

	pc, err := client.FetchContext(context.Background(), "at://did:plc:abc/app.bsky.feed.post/p2")
	if err != nil {
		t.Fatalf("FetchContext failed: %v", err)
	}

	if pc.Post.URI != "at://did:plc:abc/app.bsky.feed.post/p2" || pc.Post.CID != "bafycid2" {
		t.Errorf("unexpected post identity: %+v", pc.Post)
	}
	if pc.Post.Text != "hello https://example.com" {
		t.Errorf("unexpected text %q", pc.Post.Text)
	}
	if !pc.Post.CreatedAt.Equal(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected createdAt %v", pc.Post.CreatedAt)
	}
	if pc.Post.LikeCount != 7 || pc.Post.RepostCount != 1 || pc.Post.ReplyCount != 2 {
		t.Errorf("unexpected counters: %+v", pc.Post)
	}
	if len(pc.Post.Langs) != 1 || pc.Post.Langs[0] != "en" {
		t.Errorf("unexpected langs %v", pc.Post.Langs)
	}

	if pc.Author.DID != "did:plc:abc" || pc.Author.Handle != "user.bsky.social" {
		t.Errorf("unexpected author: %+v", pc.Author)
	}

	if pc.Parent == nil || pc.Parent.URI != "at://did:plc:abc/app.bsky.feed.post/p1" || pc.Parent.AuthorDID != "did:plc:abc" {
		t.Errorf("unexpected parent: %+v", pc.Parent)
	}

	// The blocked reply is dropped; the two post replies survive in API
	// order.
	if len(pc.Replies) != 2 {
		t.Fatalf("expected 2 replies, got %d", len(pc.Replies))
	}
	if pc.Replies[0].AuthorDID != "did:plc:other" || pc.Replies[1].AuthorDID != "did:plc:abc" {
		t.Errorf("replies out of order: %+v", pc.Replies)
	}

	if pc.Post.Embed == nil || pc.Post.Embed.Kind != thread.EmbedImages {
		t.Fatalf("expected images embed, got %+v", pc.Post.Embed)
	}
	img := pc.Post.Embed.Images[0]
	if img.Alt != "a pic" || img.AspectRatio == nil || img.AspectRatio.Width != 4 {
		t.Errorf("unexpected image embed: %+v", img)
	}
}

func TestFetchContextUnionErrors(t *testing.T) {
	cases := []struct {
		name string
		body string
		kind thread.ErrorKind
	}{
		{"not found post", `{"thread": {"$type": "app.bsky.feed.defs#notFoundPost", "uri": "at://x", "notFound": true}}`, thread.KindNotFound},
		{"blocked post", `{"thread": {"$type": "app.bsky.feed.defs#blockedPost", "uri": "at://x", "blocked": true}}`, thread.KindBlocked},
		{"unknown union member", `{"thread": {"$type": "app.bsky.feed.defs#somethingNew"}}`, thread.KindMalformed},
		{"missing thread", `{}`, thread.KindMalformed},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			_, err := client.FetchContext(context.Background(), "at://did:plc:abc/app.bsky.feed.post/p1")
			if err == nil {
				t.Fatal("expected error")
			}
			if kind := thread.KindOf(err); kind != tc.kind {
				t.Errorf("expected %s, got %s", tc.kind, kind)
			}
		})
	}
}

func TestFetchContextStatusMapping(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		kind   thread.ErrorKind
	}{
		{"rate limited", http.StatusTooManyRequests, `{"error":"RateLimitExceeded"}`, thread.KindRateLimited},
		{"upstream failure", http.StatusInternalServerError, `{"error":"InternalServerError"}`, thread.KindTransient},
		{"xrpc not found", http.StatusBadRequest, `{"error":"NotFound","message":"Post not found"}`, thread.KindNotFound},
		{"bad request", http.StatusBadRequest, `{"error":"InvalidRequest","message":"Error: uri must be a valid at-uri"}`, thread.KindInvalidInput},
		{"plain 404", http.StatusNotFound, ``, thread.KindNotFound},
		{"forbidden", http.StatusForbidden, `{"error":"Blocked"}`, thread.KindBlocked},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			_, err := client.FetchContext(context.Background(), "at://did:plc:abc/app.bsky.feed.post/p1")
			if err == nil {
				t.Fatal("expected error")
			}
			if kind := thread.KindOf(err); kind != tc.kind {
				t.Errorf("expected %s, got %s", tc.kind, kind)
			}
		})
	}
}

func TestFetchContextMalformedBody(t *testing.T) {
	client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"thread": `))
	}))
	defer srv.Close()

	_, err := client.FetchContext(context.Background(), "at://did:plc:abc/app.bsky.feed.post/p1")
	if kind := thread.KindOf(err); kind != thread.KindMalformed {
		t.Errorf("expected malformed, got %v (%v)", kind, err)
	}
}

func TestFetchContextNetworkErrorIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close() // immediately, so the dial fails

	client := NewClient(srv.URL, time.Second)
	_, err := client.FetchContext(context.Background(), "at://did:plc:abc/app.bsky.feed.post/p1")
	if kind := thread.KindOf(err); kind != thread.KindTransient {
		t.Errorf("expected transient, got %v (%v)", kind, err)
	}
}

func TestResolveHandle(t *testing.T) {
	client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/xrpc/com.atproto.identity.resolveHandle" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("handle"); got != "user.bsky.social" {
			t.Errorf("unexpected handle %s", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"did": "did:plc:abc"}`))
	}))
	defer srv.Close()

	did, err := client.ResolveHandle(context.Background(), "user.bsky.social")
	if err != nil {
		t.Fatalf("ResolveHandle failed: %v", err)
	}
	if did != "did:plc:abc" {
		t.Errorf("expected did:plc:abc, got %s", did)
	}
}

func TestResolveHandleUnknownHandle(t *testing.T) {
	client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"InvalidRequest","message":"Unable to resolve handle"}`))
	}))
	defer srv.Close()

	_, err := client.ResolveHandle(context.Background(), "nobody.bsky.social")
	if kind := thread.KindOf(err); kind != thread.KindNotFound {
		t.Errorf("expected not_found, got %v (%v)", kind, err)
	}
}

func TestResolveHandleRejectsEmptyHandle(t *testing.T) {
	client := NewClient("", time.Second)
	_, err := client.ResolveHandle(context.Background(), "")
	if kind := thread.KindOf(err); kind != thread.KindInvalidInput {
		t.Errorf("expected invalid_input, got %v", kind)
	}
}

func TestDecodeEmbedVariants(t *testing.T) {
	external := []byte(`{
		"$type": "app.bsky.embed.external#view",
		"external": {"uri": "https://example.com", "title": "Example", "description": "desc", "thumb": "https://cdn/t.jpg"}
	}`)
	e := decodeEmbed(external)
	if e == nil || e.Kind != thread.EmbedExternal || e.External.Title != "Example" {
		t.Errorf("unexpected external embed: %+v", e)
	}

	record := []byte(`{
		"$type": "app.bsky.embed.record#view",
		"record": {
			"$type": "app.bsky.embed.record#viewRecord",
			"uri": "at://did:plc:q/app.bsky.feed.post/q1",
			"author": {"did": "did:plc:q", "handle": "quoted.bsky.social"},
			"value": {"text": "quoted text", "createdAt": "2026-02-01T00:00:00Z"}
		}
	}`)
	e = decodeEmbed(record)
	if e == nil || e.Kind != thread.EmbedRecord || e.Record.Text != "quoted text" {
		t.Errorf("unexpected record embed: %+v", e)
	}

	blockedQuote := []byte(`{
		"$type": "app.bsky.embed.record#view",
		"record": {"$type": "app.bsky.embed.record#viewBlocked", "uri": "at://x", "blocked": true}
	}`)
	if e = decodeEmbed(blockedQuote); e != nil {
		t.Errorf("blocked quote should yield no embed, got %+v", e)
	}

	if e = decodeEmbed([]byte(`{"$type": "app.bsky.embed.brandNew#view"}`)); e != nil {
		t.Errorf("unknown embed type should yield nil, got %+v", e)
	}
}
