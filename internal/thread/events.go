package thread

// EventKind tags a streamed assembly event.
type EventKind int

const (
	// EventHeader carries the chain author. Emitted exactly once, before
	// any post.
	EventHeader EventKind = iota

	// EventPost carries one post, in chain order (root first).
	EventPost

	// EventDone marks a complete stream. A stream that ends without Done
	// failed, not finished.
	EventDone

	// EventError carries the failure that terminated the stream. No
	// further events follow.
	EventError
)

// Event is one element of a streamed assembly. The field matching Kind is
// set; the rest are nil.
type Event struct {
	Kind   EventKind
	Author *Author
	Post   *Post
	Err    error
}
