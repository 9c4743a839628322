// Package poll implements the update poller's scheduling protocol as a
// pure state machine: (Config, State, Event) -> (State, Action). It holds
// no timers and reads no clocks; callers feed in timestamps and execute
// the returned actions, which keeps the protocol testable without real
// time.
package poll

import "time"

// Multipliers applied to the current interval. A quiet poll grows the
// interval gently; a transport error backs off harder.
const (
	quietBackoff = 1.5
	errorBackoff = 2.0
)

// Config holds the protocol's tunables.
type Config struct {
	// InitialInterval is the delay between polls while the thread is
	// active. NewPosts resets to this.
	InitialInterval time.Duration

	// MaxInterval caps backoff growth.
	MaxInterval time.Duration

	// DisableAfter is the staleness window: once the chain's last
	// activity is older than this and a poll finds nothing, automatic
	// polling stops until a manual refresh.
	DisableAfter time.Duration
}

// State is the poller's complete state between events. Values are plain
// data; copy freely.
type State struct {
	// Interval is the current delay between polls.
	Interval time.Duration

	// Cursor is the digest of the last observed post.
	Cursor string

	// LastActivity is the creation time of the last observed post.
	LastActivity time.Time

	// LastPollAt is when the previous poll completed.
	LastPollAt time.Time

	// Visible reports whether the consuming surface is foregrounded.
	// Polls are never scheduled while hidden.
	Visible bool

	// Stopped is set once staleness disables automatic polling. Only
	// ManualRefresh clears it.
	Stopped bool
}

// NewState builds the poller state created when a thread finishes its
// initial load.
func NewState(cfg Config, cursor string, lastActivity, now time.Time) State {
	return State{
		Interval:     cfg.InitialInterval,
		Cursor:       cursor,
		LastActivity: lastActivity,
		LastPollAt:   now,
		Visible:      true,
	}
}

// EventKind tags an input to the state machine.
type EventKind int

const (
	// NoChange: a poll completed and found nothing new.
	NoChange EventKind = iota

	// NewPosts: a poll found new posts; Cursor and LastActivity carry
	// the new watermark.
	NewPosts

	// TransportError: the poll itself failed. Never fatal; the schedule
	// just stretches.
	TransportError

	// Hidden: the consuming surface left the foreground.
	Hidden

	// Visible: the consuming surface returned to the foreground.
	Visible

	// ManualRefresh: the user asked for an immediate poll, bypassing the
	// schedule and any stale stop.
	ManualRefresh
)

// Event is one input to Step. Now is required for every kind; Cursor and
// LastActivity only accompany NewPosts.
type Event struct {
	Kind         EventKind
	Now          time.Time
	Cursor       string
	LastActivity time.Time
}

// ActionKind tags what the caller should do next.
type ActionKind int

const (
	// None: do nothing; a later event will restart scheduling.
	None ActionKind = iota

	// Schedule: poll again after Action.Delay.
	Schedule

	// PollNow: poll immediately.
	PollNow

	// Stop: cease automatic polling.
	Stop
)

// Action is the caller's instruction. Delay is set only for Schedule.
type Action struct {
	Kind  ActionKind
	Delay time.Duration
}

// Step advances the poller. It is a pure function of its inputs.
func Step(cfg Config, s State, ev Event) (State, Action) {
	switch ev.Kind {
	case NoChange:
		s.LastPollAt = ev.Now
		if ev.Now.Sub(s.LastActivity) >= cfg.DisableAfter {
			s.Stopped = true
			return s, Action{Kind: Stop}
		}
		s.Interval = grow(s.Interval, quietBackoff, cfg.MaxInterval)
		return s, scheduleIfVisible(s)

	case NewPosts:
		s.LastPollAt = ev.Now
		s.Cursor = ev.Cursor
		s.LastActivity = ev.LastActivity
		s.Interval = cfg.InitialInterval
		s.Stopped = false
		return s, scheduleIfVisible(s)

	case TransportError:
		s.LastPollAt = ev.Now
		s.Interval = grow(s.Interval, errorBackoff, cfg.MaxInterval)
		return s, scheduleIfVisible(s)

	case Hidden:
		s.Visible = false
		return s, Action{Kind: None}

	case Visible:
		s.Visible = true
		if s.Stopped {
			return s, Action{Kind: None}
		}
		// Poll immediately if the schedule lapsed while hidden,
		// otherwise resume the remainder of the existing schedule.
		elapsed := ev.Now.Sub(s.LastPollAt)
		if elapsed >= s.Interval {
			return s, Action{Kind: PollNow}
		}
		return s, Action{Kind: Schedule, Delay: s.Interval - elapsed}

	case ManualRefresh:
		s.Stopped = false
		return s, Action{Kind: PollNow}

	default:
		return s, Action{Kind: None}
	}
}

func grow(d time.Duration, factor float64, max time.Duration) time.Duration {
	grown := time.Duration(float64(d) * factor)
	if grown > max {
		return max
	}
	return grown
}

func scheduleIfVisible(s State) Action {
	if !s.Visible {
		return Action{Kind: None}
	}
	return Action{Kind: Schedule, Delay: s.Interval}
}
