package bluesky

import (
	"encoding/json"
	"time"

	"github.com/coryb-xyz/sklonger/internal/thread"
)

// $type discriminators for the getPostThread union and embed views.
const (
	typeThreadViewPost = "app.bsky.feed.defs#threadViewPost"
	typeNotFoundPost   = "app.bsky.feed.defs#notFoundPost"
	typeBlockedPost    = "app.bsky.feed.defs#blockedPost"

	typeEmbedImages          = "app.bsky.embed.images#view"
	typeEmbedVideo           = "app.bsky.embed.video#view"
	typeEmbedExternal        = "app.bsky.embed.external#view"
	typeEmbedRecord          = "app.bsky.embed.record#view"
	typeEmbedRecordWithMedia = "app.bsky.embed.recordWithMedia#view"
	typeViewRecord           = "app.bsky.embed.record#viewRecord"
)

type resolveHandleResponse struct {
	DID string `json:"did"`
}

type xrpcError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// postThreadResponse keeps the union raw; decoding dispatches on $type.
type postThreadResponse struct {
	Thread json.RawMessage `json:"thread"`
}

type typedView struct {
	Type string `json:"$type"`
}

type threadView struct {
	Post    postView          `json:"post"`
	Parent  json.RawMessage   `json:"parent,omitempty"`
	Replies []json.RawMessage `json:"replies,omitempty"`
}

type postView struct {
	URI         string          `json:"uri"`
	CID         string          `json:"cid"`
	Author      profileView     `json:"author"`
	Record      json.RawMessage `json:"record"`
	Embed       json.RawMessage `json:"embed,omitempty"`
	ReplyCount  int             `json:"replyCount"`
	RepostCount int             `json:"repostCount"`
	LikeCount   int             `json:"likeCount"`
}

type profileView struct {
	DID         string `json:"did"`
	Handle      string `json:"handle"`
	DisplayName string `json:"displayName,omitempty"`
	Avatar      string `json:"avatar,omitempty"`
}

// postRecord is the app.bsky.feed.post record body.
type postRecord struct {
	Text      string   `json:"text"`
	CreatedAt string   `json:"createdAt"`
	Langs     []string `json:"langs,omitempty"`
}

// neighborView is the minimal slice of a parent or reply union entry the
// walk needs: where it is and who wrote it.
type neighborView struct {
	Type string `json:"$type"`
	Post struct {
		URI    string `json:"uri"`
		Author struct {
			DID string `json:"did"`
		} `json:"author"`
	} `json:"post"`
}

// decodeThreadView turns the raw getPostThread union into a PostContext,
// mapping the not-found and blocked variants onto the error taxonomy.
func decodeThreadView(raw json.RawMessage) (*thread.PostContext, error) {
	if len(raw) == 0 {
		return nil, thread.Errorf(thread.KindMalformed, "response has no thread")
	}

	var tv typedView
	if err := json.Unmarshal(raw, &tv); err != nil {
		return nil, thread.WrapError(thread.KindMalformed, err, "unmarshal thread union")
	}

	switch tv.Type {
	case typeThreadViewPost:
		// fall through to full decode below
	case typeNotFoundPost:
		return nil, thread.Errorf(thread.KindNotFound, "post not found")
	case typeBlockedPost:
		return nil, thread.Errorf(thread.KindBlocked, "post is blocked")
	default:
		return nil, thread.Errorf(thread.KindMalformed, "unexpected thread type %q", tv.Type)
	}

	var view threadView
	if err := json.Unmarshal(raw, &view); err != nil {
		return nil, thread.WrapError(thread.KindMalformed, err, "unmarshal thread view")
	}
	if view.Post.URI == "" || view.Post.Author.DID == "" {
		return nil, thread.Errorf(thread.KindMalformed, "thread view missing post or author")
	}

	pc := &thread.PostContext{
		Post:   projectPost(view.Post),
		Author: projectAuthor(view.Post.Author),
	}

	if ref := decodeNeighbor(view.Parent); ref != nil {
		pc.Parent = ref
	}
	for _, rawReply := range view.Replies {
		if ref := decodeNeighbor(rawReply); ref != nil {
			pc.Replies = append(pc.Replies, *ref)
		}
	}

	return pc, nil
}

// decodeNeighbor extracts a PostRef from a parent or reply union entry.
// Non-post variants (not found, blocked) and undecodable entries yield
// nil; the walk simply cannot continue through them.
func decodeNeighbor(raw json.RawMessage) *thread.PostRef {
	if len(raw) == 0 {
		return nil
	}
	var nv neighborView
	if err := json.Unmarshal(raw, &nv); err != nil {
		return nil
	}
	if nv.Type != typeThreadViewPost || nv.Post.URI == "" || nv.Post.Author.DID == "" {
		return nil
	}
	return &thread.PostRef{URI: nv.Post.URI, AuthorDID: nv.Post.Author.DID}
}

func projectAuthor(pv profileView) thread.Author {
	return thread.Author{
		DID:         pv.DID,
		Handle:      pv.Handle,
		DisplayName: pv.DisplayName,
		AvatarURL:   pv.Avatar,
	}
}

func projectPost(pv postView) thread.Post {
	var rec postRecord
	_ = json.Unmarshal(pv.Record, &rec)

	createdAt, err := time.Parse(time.RFC3339, rec.CreatedAt)
	if err != nil {
		createdAt = time.Now().UTC()
	}

	return thread.Post{
		URI:         pv.URI,
		CID:         pv.CID,
		Text:        rec.Text,
		CreatedAt:   createdAt.UTC(),
		ReplyCount:  pv.ReplyCount,
		RepostCount: pv.RepostCount,
		LikeCount:   pv.LikeCount,
		Embed:       decodeEmbed(pv.Embed),
		Langs:       rec.Langs,
	}
}

// decodeEmbed converts an embed view. Embeds are decorative: anything
// unknown or undecodable is dropped rather than failing the fetch.
func decodeEmbed(raw json.RawMessage) *thread.Embed {
	if len(raw) == 0 {
		return nil
	}

	var tv typedView
	if err := json.Unmarshal(raw, &tv); err != nil {
		return nil
	}

	switch tv.Type {
	case typeEmbedImages:
		return decodeImagesEmbed(raw)
	case typeEmbedVideo:
		return decodeVideoEmbed(raw)
	case typeEmbedExternal:
		return decodeExternalEmbed(raw)
	case typeEmbedRecord:
		return decodeRecordEmbed(raw)
	case typeEmbedRecordWithMedia:
		return decodeRecordWithMediaEmbed(raw)
	default:
		return nil
	}
}

type aspectRatioView struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

func (ar *aspectRatioView) project() *thread.AspectRatio {
	if ar == nil || ar.Width <= 0 || ar.Height <= 0 {
		return nil
	}
	return &thread.AspectRatio{Width: ar.Width, Height: ar.Height}
}

func decodeImagesEmbed(raw json.RawMessage) *thread.Embed {
	var view struct {
		Images []struct {
			Thumb       string           `json:"thumb"`
			Fullsize    string           `json:"fullsize"`
			Alt         string           `json:"alt"`
			AspectRatio *aspectRatioView `json:"aspectRatio,omitempty"`
		} `json:"images"`
	}
	if err := json.Unmarshal(raw, &view); err != nil || len(view.Images) == 0 {
		return nil
	}

	embed := &thread.Embed{Kind: thread.EmbedImages}
	for _, img := range view.Images {
		embed.Images = append(embed.Images, thread.ImageEmbed{
			ThumbURL:    img.Thumb,
			FullsizeURL: img.Fullsize,
			Alt:         img.Alt,
			AspectRatio: img.AspectRatio.project(),
		})
	}
	return embed
}

func decodeVideoEmbed(raw json.RawMessage) *thread.Embed {
	var view struct {
		Playlist    string           `json:"playlist"`
		Thumbnail   string           `json:"thumbnail,omitempty"`
		Alt         string           `json:"alt,omitempty"`
		AspectRatio *aspectRatioView `json:"aspectRatio,omitempty"`
	}
	if err := json.Unmarshal(raw, &view); err != nil || view.Playlist == "" {
		return nil
	}
	return &thread.Embed{
		Kind: thread.EmbedVideo,
		Video: &thread.VideoEmbed{
			ThumbnailURL: view.Thumbnail,
			PlaylistURL:  view.Playlist,
			Alt:          view.Alt,
			AspectRatio:  view.AspectRatio.project(),
		},
	}
}

func decodeExternalEmbed(raw json.RawMessage) *thread.Embed {
	var view struct {
		External struct {
			URI         string `json:"uri"`
			Title       string `json:"title"`
			Description string `json:"description"`
			Thumb       string `json:"thumb,omitempty"`
		} `json:"external"`
	}
	if err := json.Unmarshal(raw, &view); err != nil || view.External.URI == "" {
		return nil
	}
	return &thread.Embed{
		Kind: thread.EmbedExternal,
		External: &thread.ExternalEmbed{
			URI:         view.External.URI,
			Title:       view.External.Title,
			Description: view.External.Description,
			ThumbURL:    view.External.Thumb,
		},
	}
}

func decodeRecordEmbed(raw json.RawMessage) *thread.Embed {
	var view struct {
		Record json.RawMessage `json:"record"`
	}
	if err := json.Unmarshal(raw, &view); err != nil {
		return nil
	}
	rec := decodeViewRecord(view.Record)
	if rec == nil {
		return nil
	}
	return &thread.Embed{Kind: thread.EmbedRecord, Record: rec}
}

func decodeRecordWithMediaEmbed(raw json.RawMessage) *thread.Embed {
	var view struct {
		Record struct {
			Record json.RawMessage `json:"record"`
		} `json:"record"`
		Media json.RawMessage `json:"media"`
	}
	if err := json.Unmarshal(raw, &view); err != nil {
		return nil
	}

	rec := decodeViewRecord(view.Record.Record)
	media := decodeEmbed(view.Media)
	switch {
	case rec == nil && media == nil:
		return nil
	case rec == nil:
		return media
	case media == nil:
		return &thread.Embed{Kind: thread.EmbedRecord, Record: rec}
	}
	return &thread.Embed{Kind: thread.EmbedRecordWithMedia, Record: rec, Media: media}
}

// decodeViewRecord handles the quoted-post variant inside record embeds.
// Quoted posts that are missing, blocked, or detached yield nil.
func decodeViewRecord(raw json.RawMessage) *thread.RecordEmbed {
	if len(raw) == 0 {
		return nil
	}
	var view struct {
		Type   string            `json:"$type"`
		URI    string            `json:"uri"`
		Author profileView       `json:"author"`
		Value  json.RawMessage   `json:"value"`
		Embeds []json.RawMessage `json:"embeds,omitempty"`
	}
	if err := json.Unmarshal(raw, &view); err != nil {
		return nil
	}
	if view.Type != typeViewRecord || view.URI == "" || view.Author.DID == "" {
		return nil
	}

	var rec postRecord
	_ = json.Unmarshal(view.Value, &rec)

	createdAt, err := time.Parse(time.RFC3339, rec.CreatedAt)
	if err != nil {
		createdAt = time.Now().UTC()
	}

	embedRec := &thread.RecordEmbed{
		URI:       view.URI,
		Author:    projectAuthor(view.Author),
		Text:      rec.Text,
		CreatedAt: createdAt.UTC(),
	}
	if len(view.Embeds) > 0 {
		embedRec.Embed = decodeEmbed(view.Embeds[0])
	}
	return embedRec
}
