package thread

import "context"

// Fetcher is the only I/O boundary of thread assembly. Implementations
// wrap the remote API and normalize its failures into FetchError; they
// must not retry internally, retry policy belongs to callers.
type Fetcher interface {
	// ResolveHandle resolves a handle to the account's DID.
	ResolveHandle(ctx context.Context, handle string) (string, error)

	// FetchContext fetches shallow context for a post: the post itself,
	// its author, at most one parent hop, and at most one page of replies.
	FetchContext(ctx context.Context, uri string) (*PostContext, error)
}
