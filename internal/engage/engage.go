// Package engage holds the per-result engagement decision logic and the
// follow-count budget enforcement.
package engage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"warbler/internal/types"
)

// Engager is the subset of the platform client used to act on one result.
type Engager interface {
	Favorite(ctx context.Context, ref types.PostRef) error
	Repost(ctx context.Context, ref types.PostRef) error
	Follow(ctx context.Context, accountID string) error
}

// Policy computes and applies engagement decisions from the per-run
// toggles. Fav, Repost and Follow are independent; RepostOnlyWithoutFav
// additionally suppresses the repost when the favorite for the same item
// just went through.
type Policy struct {
	Fav                  bool
	Repost               bool
	Follow               bool
	RepostOnlyWithoutFav bool
}

// Decide computes the decision for one result. An offensive result gets
// no engagement at all.
func (p Policy) Decide(offensive bool) types.EngagementDecision {
	if offensive {
		return types.EngagementDecision{}
	}
	return types.EngagementDecision{
		Favorite: p.Fav,
		Repost:   p.Repost,
		Follow:   p.Follow,
	}
}

// Apply issues the decided actions in favorite, repost, follow(author),
// follow(origin author) order. Actions already taken are not rolled back
// when a later one fails; all failures are joined into the returned error
// for the caller to log.
func (p Policy) Apply(ctx context.Context, client Engager, logger *slog.Logger, result types.SearchResult, decision types.EngagementDecision) error {
	var errs []error

	favorited := false
	if decision.Favorite {
		if err := client.Favorite(ctx, result.Ref); err != nil {
			errs = append(errs, fmt.Errorf("favorite %s: %w", result.Ref.URI, err))
		} else {
			favorited = true
			logger.Debug("favorited", "uri", result.Ref.URI)
		}
	}

	if decision.Repost && !(p.RepostOnlyWithoutFav && favorited) {
		if err := client.Repost(ctx, result.Ref); err != nil {
			errs = append(errs, fmt.Errorf("repost %s: %w", result.Ref.URI, err))
		} else {
			logger.Debug("reposted", "uri", result.Ref.URI)
		}
	}

	if decision.Follow {
		if err := client.Follow(ctx, result.AuthorID); err != nil {
			errs = append(errs, fmt.Errorf("follow %s: %w", result.AuthorID, err))
		} else {
			logger.Debug("followed author", "account", result.AuthorID)
		}

		if result.RepostOfAuthorID != "" {
			if err := client.Follow(ctx, result.RepostOfAuthorID); err != nil {
				errs = append(errs, fmt.Errorf("follow origin %s: %w", result.RepostOfAuthorID, err))
			} else {
				logger.Debug("followed origin author", "account", result.RepostOfAuthorID)
			}
		}
	}

	return errors.Join(errs...)
}
