package engage

import (
	"context"
	"fmt"
	"log/slog"
)

// FollowGraph is the subset of the platform client the budget reads and
// trims through.
type FollowGraph interface {
	FollowingCount(ctx context.Context) (int, error)
	FollowingIDs(ctx context.Context) ([]string, error)
	Unfollow(ctx context.Context, accountID string) error
}

// FollowBudget caps how many accounts the bot follows. The platform
// penalizes a large following/followers ratio, so when the count crosses
// the ceiling a whole batch is trimmed at once rather than rechecking the
// count per unfollow.
type FollowBudget struct {
	Ceiling   int
	BatchSize int
}

// Enforce trims up to BatchSize accounts from the end of the follow list
// when the current count exceeds the ceiling, and reports how many were
// unfollowed. A no-op while the count is at or under the ceiling. The
// first unfollow failure aborts the batch; the caller treats that as
// non-fatal for its cycle.
func (b FollowBudget) Enforce(ctx context.Context, client FollowGraph, logger *slog.Logger) (int, error) {
	count, err := client.FollowingCount(ctx)
	if err != nil {
		return 0, fmt.Errorf("reading following count: %w", err)
	}
	if count <= b.Ceiling {
		return 0, nil
	}

	ids, err := client.FollowingIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("listing follows: %w", err)
	}

	logger.Info("follow ceiling exceeded, trimming", "count", count, "ceiling", b.Ceiling, "batch", b.BatchSize)

	unfollowed := 0
	for i := len(ids) - 1; i >= 0 && unfollowed < b.BatchSize; i-- {
		if err := client.Unfollow(ctx, ids[i]); err != nil {
			return unfollowed, fmt.Errorf("unfollow %s: %w", ids[i], err)
		}
		unfollowed++
	}

	logger.Info("trimmed follows", "unfollowed", unfollowed)
	return unfollowed, nil
}
