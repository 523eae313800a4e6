package worker

import (
	"context"
	"fmt"
	"log/slog"

	"warbler/internal/platform"
	"warbler/internal/types"
)

// AccountSource resolves the tracked account set for a relation.
type AccountSource interface {
	Accounts(ctx context.Context, relation string) ([]string, error)
}

// Action handles one live event from a tracked account. Action errors
// are logged by the stream transport and never stop the subscription.
type Action func(ctx context.Context, evt types.StreamEvent) error

// StreamWorker listens to the live feed of one account set and hands
// every matching post to its action. The tracked set is resolved once
// at startup; changing it requires a restart.
type StreamWorker struct {
	name     string
	relation string
	accounts AccountSource
	client   platform.Client
	action   Action
	logger   *slog.Logger
}

func NewStreamWorker(name, relation string, accounts AccountSource, client platform.Client, action Action, logger *slog.Logger) *StreamWorker {
	return &StreamWorker{
		name:     name,
		relation: relation,
		accounts: accounts,
		client:   client,
		action:   action,
		logger:   logger,
	}
}

func (w *StreamWorker) Name() string { return w.name }

// Run blocks on the subscription until ctx is cancelled or the
// connection is lost. Connection loss is fatal to the worker; the
// process supervisor decides whether to come back up.
func (w *StreamWorker) Run(ctx context.Context) error {
	ids, err := w.accounts.Accounts(ctx, w.relation)
	if err != nil {
		return fmt.Errorf("resolving %s accounts: %w", w.relation, err)
	}
	if len(ids) == 0 {
		return fmt.Errorf("no %s accounts to track", w.relation)
	}

	tracked := make(map[string]bool, len(ids))
	for _, id := range ids {
		tracked[id] = true
	}

	w.logger.Info("stream worker listening", "worker", w.name, "relation", w.relation, "accounts", len(ids))

	return w.client.Stream(ctx, ids, func(ctx context.Context, evt types.StreamEvent) error {
		// The transport filters by author already; the membership check
		// here keeps a misrouted event from reaching the action.
		if !tracked[evt.AuthorID] {
			return nil
		}
		return w.action(ctx, evt)
	})
}
