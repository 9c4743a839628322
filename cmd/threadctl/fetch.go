package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/coryb-xyz/sklonger/internal/bluesky"
	"github.com/coryb-xyz/sklonger/internal/thread"
)

var (
	fetchHandle string
	fetchPost   string
	fetchJSON   bool
)

var fetchCmd = &cobra.Command{
	Use:   "fetch [bsky.app post URL]",
	Short: "Fetch a thread and print it",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runFetch,
}

func init() {
	fetchCmd.Flags().StringVar(&fetchHandle, "handle", "", "author handle (alternative to a URL)")
	fetchCmd.Flags().StringVar(&fetchPost, "post", "", "post record key (alternative to a URL)")
	fetchCmd.Flags().BoolVar(&fetchJSON, "json", false, "print the thread as JSON")
	rootCmd.AddCommand(fetchCmd)
}

func runFetch(cmd *cobra.Command, args []string) error {
	handle, postID := fetchHandle, fetchPost
	if len(args) == 1 {
		ref, err := bluesky.ParsePostURL(args[0])
		if err != nil {
			return err
		}
		handle, postID = ref.Handle, ref.PostID
	}
	if handle == "" || postID == "" {
		return fmt.Errorf("provide a bsky.app post URL or both --handle and --post")
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	client := bluesky.NewClient(apiURL, time.Duration(timeoutSec)*time.Second)
	assembler := thread.NewAssembler(client, logger)

	t, err := assembler.AssembleThread(cmd.Context(), handle, postID)
	if err != nil {
		return describeError(err)
	}

	if fetchJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(threadJSON(t))
	}

	printThread(t)
	return nil
}

func printThread(t *thread.Thread) {
	bold := color.New(color.Bold)
	faint := color.New(color.Faint)
	cyan := color.New(color.FgCyan)

	bold.Printf("%s", t.Author.Name())
	faint.Printf(" @%s", t.Author.Handle)
	fmt.Printf("  (%d posts)\n\n", len(t.Posts))

	for i, p := range t.Posts {
		cyan.Printf("[%d/%d] ", i+1, len(t.Posts))
		faint.Println(p.CreatedAt.Format("Jan 2, 2006 15:04 UTC"))
		fmt.Println(p.Text)
		if p.Embed != nil {
			faint.Println(describeEmbed(p.Embed))
		}
		fmt.Println()
	}

	faint.Printf("Original: %s\n", t.OriginalPostURL())
}

func describeEmbed(e *thread.Embed) string {
	switch e.Kind {
	case thread.EmbedImages:
		return fmt.Sprintf("[%d image(s)]", len(e.Images))
	case thread.EmbedVideo:
		return "[video]"
	case thread.EmbedExternal:
		return fmt.Sprintf("[link: %s]", e.External.URI)
	case thread.EmbedRecord:
		return fmt.Sprintf("[quoting @%s]", e.Record.Author.Handle)
	case thread.EmbedRecordWithMedia:
		return fmt.Sprintf("[quoting @%s, with media]", e.Record.Author.Handle)
	default:
		return "[embed]"
	}
}

// describeError turns taxonomy kinds into distinct exit messages.
func describeError(err error) error {
	switch thread.KindOf(err) {
	case thread.KindNotFound:
		return fmt.Errorf("post not found (deleted or wrong id)")
	case thread.KindBlocked:
		return fmt.Errorf("thread is blocked")
	case thread.KindRateLimited:
		return fmt.Errorf("rate limited by Bluesky, try again shortly")
	case thread.KindInvalidInput:
		return err
	default:
		return fmt.Errorf("could not reach Bluesky: %w", err)
	}
}

type postJSON struct {
	URI       string    `json:"uri"`
	CID       string    `json:"cid"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
	Likes     int       `json:"likes,omitempty"`
	Reposts   int       `json:"reposts,omitempty"`
}

func threadJSON(t *thread.Thread) any {
	posts := make([]postJSON, len(t.Posts))
	for i, p := range t.Posts {
		posts[i] = postJSON{
			URI:       p.URI,
			CID:       p.CID,
			Text:      p.Text,
			CreatedAt: p.CreatedAt,
			Likes:     p.LikeCount,
			Reposts:   p.RepostCount,
		}
	}
	return map[string]any{
		"author": map[string]string{
			"did":         t.Author.DID,
			"handle":      t.Author.Handle,
			"displayName": t.Author.DisplayName,
		},
		"posts": posts,
	}
}
