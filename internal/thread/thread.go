package thread

import "time"

// Thread is an assembled self-reply chain: the root post first, each
// subsequent post a direct reply to the one before it, all by Author.
// Non-empty whenever assembly succeeds.
type Thread struct {
	Posts  []Post
	Author Author
}

// OriginalPostURL returns the bsky.app URL of the root post.
func (t *Thread) OriginalPostURL() string {
	if len(t.Posts) == 0 {
		return "https://bsky.app"
	}
	return t.Posts[0].WebURL(t.Author.Handle)
}

// PrimaryLanguage returns the first language tag of the root post, or the
// empty string when the author's client set none.
func (t *Thread) PrimaryLanguage() string {
	if len(t.Posts) == 0 || len(t.Posts[0].Langs) == 0 {
		return ""
	}
	return t.Posts[0].Langs[0]
}

// LastDigest returns the CID of the final post, the watermark a poller
// holds between cycles.
func (t *Thread) LastDigest() string {
	if len(t.Posts) == 0 {
		return ""
	}
	return t.Posts[len(t.Posts)-1].CID
}

// LastActivity returns the creation time of the final post.
func (t *Thread) LastActivity() time.Time {
	if len(t.Posts) == 0 {
		return time.Time{}
	}
	return t.Posts[len(t.Posts)-1].CreatedAt
}

// PostsAfter returns the posts appended after the post whose CID equals
// digest. The second result is false when the digest no longer appears in
// the chain (the tail was edited or deleted), in which case no meaningful
// diff exists and callers should report no change.
func (t *Thread) PostsAfter(digest string) ([]Post, bool) {
	for i := len(t.Posts) - 1; i >= 0; i-- {
		if t.Posts[i].CID == digest {
			return t.Posts[i+1:], true
		}
	}
	return nil, false
}
