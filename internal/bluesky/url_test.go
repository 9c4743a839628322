package bluesky

import (
	"testing"

	"github.com/coryb-xyz/sklonger/internal/thread"
)

func TestParsePostURL(t *testing.T) {
	ref, err := ParsePostURL("https://bsky.app/profile/jay.bsky.team/post/3jwdwj2ctlk26")
	if err != nil {
		t.Fatalf("ParsePostURL failed: %v", err)
	}
	if ref.Handle != "jay.bsky.team" {
		t.Errorf("expected handle jay.bsky.team, got %s", ref.Handle)
	}
	if ref.PostID != "3jwdwj2ctlk26" {
		t.Errorf("expected post id 3jwdwj2ctlk26, got %s", ref.PostID)
	}
}

func TestParsePostURLAcceptsHTTP(t *testing.T) {
	if _, err := ParsePostURL("http://bsky.app/profile/user.bsky.social/post/abc123"); err != nil {
		t.Errorf("http scheme should be accepted: %v", err)
	}
}

func TestParsePostURLRejections(t *testing.T) {
	cases := []struct {
		name string
		url  string
	}{
		{"non-bluesky host", "https://twitter.com/user/status/123"},
		{"profile only", "https://bsky.app/profile/user.bsky.social"},
		{"not a url", "not a url"},
		{"wrong path shape", "https://bsky.app/feed/whats-hot"},
		{"empty handle", "https://bsky.app/profile//post/abc"},
		{"at uri", "at://did:plc:abc/app.bsky.feed.post/xyz"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParsePostURL(tc.url)
			if err == nil {
				t.Fatalf("expected %q to be rejected", tc.url)
			}
			if kind := thread.KindOf(err); kind != thread.KindInvalidInput {
				t.Errorf("expected invalid_input, got %s", kind)
			}
		})
	}
}
