// Package html renders assembled threads as HTML. Fragments are exposed
// individually so the server can flush the page progressively: page top
// and header as soon as the author is known, one article per post, footer
// when the chain ends.
package html

import (
	"fmt"
	"html/template"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/coryb-xyz/sklonger/internal/thread"
)

// PollParams parameterizes the browser poller script. Field names are the
// keys the script reads after JSON serialization into the page.
type PollParams struct {
	Handle string `json:"handle"`
	PostID string `json:"post"`
	Cursor string `json:"cursor"`

	// Intervals in milliseconds, ready for setTimeout.
	InitialMS int64 `json:"initial"`
	MaxMS     int64 `json:"max"`
}

// PageOptions controls the document head.
type PageOptions struct {
	Title        string
	Lang         string
	FaviconURL   string
	CanonicalURL string
}

// PageTop renders the document head and opens the body.
func PageTop(opts PageOptions) string {
	var b strings.Builder
	_ = pageTopTmpl.Execute(&b, opts)
	return b.String()
}

// Header renders the author header and opens the thread container.
func Header(author thread.Author) string {
	var b strings.Builder
	_ = headerTmpl.Execute(&b, author)
	return b.String()
}

// Post renders one post as an article fragment.
func Post(post thread.Post, authorHandle string) string {
	data := struct {
		Text         template.HTML
		EmbedHTML    template.HTML
		PostURL      string
		CreatedAtISO string
		Timestamp    string
		Likes        int
		Reposts      int
	}{
		Text:         linkify(post.Text),
		EmbedHTML:    renderEmbed(post.Embed),
		PostURL:      post.WebURL(authorHandle),
		CreatedAtISO: post.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		Timestamp:    post.CreatedAt.Format("Jan 2, 2006 at 15:04 UTC"),
		Likes:        post.LikeCount,
		Reposts:      post.RepostCount,
	}

	var b strings.Builder
	_ = postTmpl.Execute(&b, data)
	return b.String()
}

// Posts renders a run of posts, the body of a poll response.
func Posts(posts []thread.Post, authorHandle string) string {
	var b strings.Builder
	for _, p := range posts {
		b.WriteString(Post(p, authorHandle))
	}
	return b.String()
}

// Footer closes the thread container and renders the footer. A nil poll
// omits the poller entirely.
func Footer(originalURL string, poll *PollParams) string {
	data := struct {
		OriginalURL string
		Poll        *PollParams
	}{OriginalURL: originalURL, Poll: poll}

	var b strings.Builder
	_ = footerTmpl.Execute(&b, data)
	return b.String()
}

// StreamError closes a partially written page after a mid-stream failure.
// The absence of the normal footer is the renderer-level signal that the
// thread is incomplete.
func StreamError(message string) string {
	var b strings.Builder
	_ = fragmentTmpl.Execute(&b, struct{ Message string }{Message: message})
	return b.String()
}

// ErrorPage renders a standalone error page.
func ErrorPage(status int, title, message string) string {
	data := struct {
		Status  int
		Title   string
		Message string
	}{Status: status, Title: title, Message: message}

	var b strings.Builder
	_ = errorTmpl.Execute(&b, data)
	return b.String()
}

// Landing renders the home page with the URL form.
func Landing() string {
	var b strings.Builder
	_ = landingTmpl.Execute(&b, nil)
	return b.String()
}

var urlPattern = regexp.MustCompile(`https?://[^\s<>]+`)

// truncateRunes shortens s to at most max runes, ellipsis included,
// cutting on a rune boundary so multibyte text never splits mid-sequence.
func truncateRunes(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max-3]) + "..."
}

// linkify escapes post text and turns bare URLs into anchors with a
// truncated display form.
func linkify(text string) template.HTML {
	var b strings.Builder
	last := 0
	for _, loc := range urlPattern.FindAllStringIndex(text, -1) {
		b.WriteString(template.HTMLEscapeString(text[last:loc[0]]))
		rawURL := text[loc[0]:loc[1]]
		display := truncateRunes(rawURL, 40)
		fmt.Fprintf(&b, `<a href="%s" target="_blank" rel="noopener">%s</a>`,
			template.HTMLEscapeString(rawURL), template.HTMLEscapeString(display))
		last = loc[1]
	}
	b.WriteString(template.HTMLEscapeString(text[last:]))
	return template.HTML(b.String())
}

func renderEmbed(e *thread.Embed) template.HTML {
	if e == nil {
		return ""
	}
	switch e.Kind {
	case thread.EmbedImages:
		return renderImages(e.Images)
	case thread.EmbedVideo:
		return renderVideo(e.Video)
	case thread.EmbedExternal:
		return renderExternal(e.External)
	case thread.EmbedRecord:
		return renderRecord(e.Record)
	case thread.EmbedRecordWithMedia:
		return renderRecord(e.Record) + renderEmbed(e.Media)
	default:
		return ""
	}
}

func renderImages(images []thread.ImageEmbed) template.HTML {
	if len(images) == 0 {
		return ""
	}
	layout := "single"
	switch {
	case len(images) == 2:
		layout = "double"
	case len(images) > 2:
		layout = "grid"
	}

	var b strings.Builder
	fmt.Fprintf(&b, `<div class="embed-images %s">`, layout)
	for _, img := range images {
		fmt.Fprintf(&b,
			`<a href="%s" target="_blank" rel="noopener" class="embed-image-link"><img src="%s" alt="%s" class="embed-image"%s loading="lazy"></a>`,
			template.HTMLEscapeString(img.FullsizeURL),
			template.HTMLEscapeString(img.ThumbURL),
			template.HTMLEscapeString(img.Alt),
			aspectStyle(img.AspectRatio, ""),
		)
	}
	b.WriteString(`</div>`)
	return template.HTML(b.String())
}

func renderVideo(v *thread.VideoEmbed) template.HTML {
	if v == nil {
		return ""
	}
	alt := v.Alt
	if alt == "" {
		alt = "Video"
	}
	return template.HTML(fmt.Sprintf(
		`<div class="embed-video"%s><video controls playsinline preload="metadata" aria-label="%s"%s><source src="%s" type="application/x-mpegURL">Your browser does not support HLS video.</video></div>`,
		aspectStyle(v.AspectRatio, "aspect-ratio: 16 / 9;"),
		template.HTMLEscapeString(alt),
		posterAttr(v.ThumbnailURL),
		template.HTMLEscapeString(v.PlaylistURL),
	))
}

func renderExternal(ext *thread.ExternalEmbed) template.HTML {
	if ext == nil {
		return ""
	}
	thumb := ""
	if ext.ThumbURL != "" {
		thumb = fmt.Sprintf(`<img src="%s" alt="" class="external-thumb" loading="lazy">`,
			template.HTMLEscapeString(ext.ThumbURL))
	}
	return template.HTML(fmt.Sprintf(
		`<a href="%s" target="_blank" rel="noopener" class="embed-external">%s<div class="external-info"><div class="external-title">%s</div><div class="external-description">%s</div></div></a>`,
		template.HTMLEscapeString(ext.URI),
		thumb,
		template.HTMLEscapeString(ext.Title),
		template.HTMLEscapeString(ext.Description),
	))
}

func renderRecord(rec *thread.RecordEmbed) template.HTML {
	if rec == nil {
		return ""
	}

	avatar := `<span class="avatar avatar-placeholder"></span>`
	if rec.Author.AvatarURL != "" {
		avatar = fmt.Sprintf(`<img src="%s" alt="" class="avatar">`,
			template.HTMLEscapeString(rec.Author.AvatarURL))
	}

	text := truncateRunes(rec.Text, 300)

	rkey := rec.URI
	if i := strings.LastIndexByte(rkey, '/'); i >= 0 {
		rkey = rkey[i+1:]
	}
	postURL := fmt.Sprintf("https://bsky.app/profile/%s/post/%s", rec.Author.Handle, rkey)

	return template.HTML(fmt.Sprintf(
		`<a href="%s" target="_blank" rel="noopener" class="embed-record"><div class="record-header">%s<span class="record-author-name">%s</span> <span class="record-author-handle">@%s</span></div><div class="record-text">%s</div>%s<div class="record-meta">%s</div></a>`,
		template.HTMLEscapeString(postURL),
		avatar,
		template.HTMLEscapeString(rec.Author.Name()),
		template.HTMLEscapeString(rec.Author.Handle),
		template.HTMLEscapeString(text),
		renderEmbed(rec.Embed),
		rec.CreatedAt.Format("Jan 2, 2006"),
	))
}

func aspectStyle(ar *thread.AspectRatio, fallback string) string {
	style := fallback
	if ar != nil {
		style = fmt.Sprintf("aspect-ratio: %d / %d;", ar.Width, ar.Height)
	}
	if style == "" {
		return ""
	}
	return fmt.Sprintf(` style="%s"`, style)
}

func posterAttr(thumbnail string) string {
	if thumbnail == "" {
		return ""
	}
	return fmt.Sprintf(` poster="%s"`, template.HTMLEscapeString(thumbnail))
}
