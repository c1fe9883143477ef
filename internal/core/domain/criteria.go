package domain

import "time"

// DefaultFetchLimit caps a fetch when the caller supplies no limit.
const DefaultFetchLimit = 25

// FetchCriteria selects which messages a fetch returns.
//
// Precedence: RawFilter wins when set; otherwise Since narrows the
// default unread-only filter; otherwise unread-only alone applies.
type FetchCriteria struct {
	// RawFilter is a provider filter expression used verbatim.
	RawFilter string
	// Since restricts results to messages received at or after this
	// instant. Rendered in UTC.
	Since time.Time
	// Limit is the maximum number of messages to return.
	// Zero means DefaultFetchLimit.
	Limit int
}

// MarkResult reports the outcome of marking one message as read.
// A batch continues past individual failures.
type MarkResult struct {
	ID  string
	Err error
}
