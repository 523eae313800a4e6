// Package platform defines the narrow boundary to the social platform.
// The core never talks to the network directly; everything goes through
// Client, which must be safe for concurrent use by both workers.
package platform

import (
	"context"

	"warbler/internal/types"
)

// StreamFunc receives each decoded event from a live subscription.
// Errors other than *types.FeedConnectionError are logged by the caller
// and do not stop the stream.
type StreamFunc func(ctx context.Context, evt types.StreamEvent) error

type Client interface {
	// Stream opens a live filtered subscription for the given account IDs
	// and invokes fn for every matching event, in arrival order. It blocks
	// until the connection is lost (returned as *types.FeedConnectionError)
	// or ctx is cancelled. The subscription is not restartable.
	Stream(ctx context.Context, accountIDs []string, fn StreamFunc) error

	// SearchPosts runs a bounded, language-filtered keyword search.
	SearchPosts(ctx context.Context, query string, limit int, lang string) ([]types.SearchResult, error)

	Favorite(ctx context.Context, ref types.PostRef) error
	Repost(ctx context.Context, ref types.PostRef) error
	Follow(ctx context.Context, accountID string) error
	Unfollow(ctx context.Context, accountID string) error

	// FollowingCount and FollowingIDs describe the bot's own follow graph.
	// FollowingIDs returns accounts newest follow first, so the end of the
	// slice holds the longest-standing follows.
	FollowingCount(ctx context.Context) (int, error)
	FollowingIDs(ctx context.Context) ([]string, error)

	// CreatePost publishes a composed update, uploading media first when
	// present, and returns the new post's URI.
	CreatePost(ctx context.Context, post types.Post) (string, error)
}
