// Package feed supplies scraped content items for post synthesis. A feed
// is a forward-only cursor over an external source; when it reports
// types.ErrFeedExhausted the caller builds a fresh instance through the
// Factory and continues from the top.
package feed

import (
	"context"

	"warbler/internal/types"
)

type Feed interface {
	// Next returns the next item, or types.ErrFeedExhausted when the
	// underlying source is fully consumed.
	Next(ctx context.Context) (types.ScrapedItem, error)
}

// Factory builds a fresh feed instance. Called once at worker start and
// again whenever the current instance is exhausted.
type Factory func(ctx context.Context) (Feed, error)
