package thread

import (
	"fmt"
	"strings"
	"time"
)

// Author identifies the account that wrote a chain. Equality is by DID;
// handles can be reassigned and are display-only.
type Author struct {
	// DID is the stable decentralized identifier (e.g. did:plc:abc123).
	DID string

	// Handle is the current handle (e.g. user.bsky.social).
	Handle string

	// DisplayName is the optional profile display name.
	DisplayName string

	// AvatarURL is the optional profile avatar image URL.
	AvatarURL string
}

// Name returns the display name, falling back to the handle.
func (a Author) Name() string {
	if a.DisplayName != "" {
		return a.DisplayName
	}
	return a.Handle
}

// ProfileURL returns the bsky.app profile page for the author.
func (a Author) ProfileURL() string {
	return "https://bsky.app/profile/" + a.Handle
}

// Post is one post's projection inside an assembled thread. Immutable
// after creation.
type Post struct {
	// URI is the AT-URI of the post (at://did:plc:abc/app.bsky.feed.post/rkey).
	URI string

	// CID is the content identifier of the record. It changes when the
	// post is edited, which is why it serves as the poll watermark.
	CID string

	// Text is the post body.
	Text string

	// CreatedAt is the author-supplied creation timestamp.
	CreatedAt time.Time

	ReplyCount  int
	RepostCount int
	LikeCount   int

	// Embed is the optional media or quote attachment.
	Embed *Embed

	// Langs is the list of language tags set by the author's client.
	Langs []string
}

// RKey returns the record key, the final segment of the AT-URI.
func (p Post) RKey() string {
	if i := strings.LastIndexByte(p.URI, '/'); i >= 0 {
		return p.URI[i+1:]
	}
	return p.URI
}

// WebURL returns the bsky.app page for the post under the given handle.
func (p Post) WebURL(handle string) string {
	return fmt.Sprintf("https://bsky.app/profile/%s/post/%s", handle, p.RKey())
}

// EmbedKind tags the variant carried by an Embed.
type EmbedKind int

const (
	EmbedImages EmbedKind = iota
	EmbedVideo
	EmbedExternal
	EmbedRecord
	EmbedRecordWithMedia
)

// Embed is a tagged variant over the attachment types a post can carry.
// Exactly the field matching Kind is set; RecordWithMedia sets Record and
// Media.
type Embed struct {
	Kind     EmbedKind
	Images   []ImageEmbed
	Video    *VideoEmbed
	External *ExternalEmbed
	Record   *RecordEmbed
	Media    *Embed
}

// ImageEmbed is a single attached image.
type ImageEmbed struct {
	ThumbURL    string
	FullsizeURL string
	Alt         string
	AspectRatio *AspectRatio
}

// VideoEmbed is an attached HLS video.
type VideoEmbed struct {
	ThumbnailURL string
	PlaylistURL  string
	Alt          string
	AspectRatio  *AspectRatio
}

// ExternalEmbed is an attached link card.
type ExternalEmbed struct {
	URI         string
	Title       string
	Description string
	ThumbURL    string
}

// RecordEmbed is a quoted post.
type RecordEmbed struct {
	URI       string
	Author    Author
	Text      string
	CreatedAt time.Time
	Embed     *Embed
}

// AspectRatio is the width/height hint for image and video embeds.
type AspectRatio struct {
	Width  int
	Height int
}

// PostContext is the result of one shallow fetch: a post, its author, at
// most one parent hop, and at most one page of reply references. Deeper
// context always requires a new fetch.
type PostContext struct {
	Post   Post
	Author Author

	// Parent references the direct parent post, if any. One hop only.
	Parent *PostRef

	// Replies references the direct replies in API order. One hop only.
	Replies []PostRef
}

// PostRef is the minimal reference to a neighboring post needed to decide
// whether and where to walk next.
type PostRef struct {
	URI       string
	AuthorDID string
}

// PostURI builds the AT-URI for a post record in the given repo.
func PostURI(did, rkey string) string {
	return fmt.Sprintf("at://%s/app.bsky.feed.post/%s", did, rkey)
}
