package types

import "time"

// PostRef identifies a single post on the platform. Both fields are
// required for engagement actions (the record subject is a strong ref).
type PostRef struct {
	URI string
	CID string
}

// StreamEvent is one inbound update from the live firehose subscription.
// Raw carries the undecoded record bytes for diagnostics: when an action
// fails the whole payload is logged so the event can be replayed by hand.
type StreamEvent struct {
	AuthorID  string
	Ref       PostRef
	Text      string
	CreatedAt time.Time
	Raw       []byte
}

// SearchResult is one candidate post returned by a keyword search.
// RepostOfAuthorID is set when the post re-shares someone else's record,
// in which case the original author is a follow candidate too.
type SearchResult struct {
	Ref              PostRef
	AuthorID         string
	AuthorHandle     string
	Text             string
	RepostOfAuthorID string
}

// ScrapedItem is a single entry pulled from the external content feed.
// Consumed at most once: either posted or dropped, never retried.
type ScrapedItem struct {
	Title    string
	Text     string
	Link     string
	MediaURL string
}

// Post is a fully composed outbound update. Media is nil when the source
// item carried no usable image.
type Post struct {
	Text     string
	Media    []byte
	MediaAlt string
}

// EngagementDecision is computed per search result from the run
// configuration and the safety filter outcome. Never persisted.
type EngagementDecision struct {
	Favorite bool
	Repost   bool
	Follow   bool
}

// None reports whether the decision amounts to skipping the result.
func (d EngagementDecision) None() bool {
	return !d.Favorite && !d.Repost && !d.Follow
}
