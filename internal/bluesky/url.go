package bluesky

import (
	"net/url"
	"strings"

	"github.com/coryb-xyz/sklonger/internal/thread"
)

// PostRef addresses a post by the handle and record key found in a
// bsky.app post URL.
type PostRef struct {
	Handle string
	PostID string
}

// ParsePostURL extracts the handle and post id from a bsky.app post link
// (https://bsky.app/profile/{handle}/post/{rkey}). Anything else fails
// with an invalid-input error before any fetch happens.
func ParsePostURL(raw string) (PostRef, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return PostRef{}, thread.WrapError(thread.KindInvalidInput, err, "invalid URL")
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return PostRef{}, thread.Errorf(thread.KindInvalidInput, "URL must be a bsky.app link")
	}
	if u.Hostname() != "bsky.app" {
		return PostRef{}, thread.Errorf(thread.KindInvalidInput, "URL must be a bsky.app link")
	}

	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(segments) < 4 || segments[0] != "profile" || segments[2] != "post" {
		return PostRef{}, thread.Errorf(thread.KindInvalidInput, "URL must be a post link (e.g. bsky.app/profile/user/post/id)")
	}

	ref := PostRef{Handle: segments[1], PostID: segments[3]}
	if ref.Handle == "" || ref.PostID == "" {
		return PostRef{}, thread.Errorf(thread.KindInvalidInput, "URL must be a post link (e.g. bsky.app/profile/user/post/id)")
	}
	return ref, nil
}
