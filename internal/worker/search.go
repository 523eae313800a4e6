package worker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"warbler/internal/compose"
	"warbler/internal/engage"
	"warbler/internal/feed"
	"warbler/internal/platform"
	"warbler/internal/safety"
	"warbler/internal/seen"
	"warbler/internal/types"
)

// KeywordSource rotates through the configured search keywords.
type KeywordSource interface {
	NextKeyword(ctx context.Context) (string, error)
}

// SearchOptions carries the per-cycle knobs for a SearchWorker.
type SearchOptions struct {
	// SelfHandle is excluded from search results with a -from: clause.
	SelfHandle string
	Count      int
	Lang       string
	// Sleep throttles the cycle between items.
	Sleep  time.Duration
	Scrape bool
}

// SearchWorker runs the periodic search cycle: pick the next keyword,
// search, enforce the follow budget, engage each result, and optionally
// scrape and post one item of fresh content. Every step of a cycle is
// tolerant: an item that fails is logged and skipped, never fatal.
type SearchWorker struct {
	name     string
	client   platform.Client
	keywords KeywordSource
	filter   *safety.Filter
	reject   *safety.Filter

	policy engage.Policy
	budget engage.FollowBudget

	transformer *compose.Transformer
	factory     feed.Factory
	feed        feed.Feed

	seen     seen.Store
	recorder Recorder
	opts     SearchOptions
	logger   *slog.Logger
}

func NewSearchWorker(
	name string,
	client platform.Client,
	keywords KeywordSource,
	filter, reject *safety.Filter,
	policy engage.Policy,
	budget engage.FollowBudget,
	transformer *compose.Transformer,
	factory feed.Factory,
	seenStore seen.Store,
	recorder Recorder,
	opts SearchOptions,
	logger *slog.Logger,
) *SearchWorker {
	return &SearchWorker{
		name:        name,
		client:      client,
		keywords:    keywords,
		filter:      filter,
		reject:      reject,
		policy:      policy,
		budget:      budget,
		transformer: transformer,
		factory:     factory,
		seen:        seenStore,
		recorder:    recorder,
		opts:        opts,
		logger:      logger,
	}
}

func (w *SearchWorker) Name() string { return w.name }

func (w *SearchWorker) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		w.cycle(ctx)
		if !w.sleep(ctx) {
			return ctx.Err()
		}
	}
}

func (w *SearchWorker) cycle(ctx context.Context) {
	word, err := w.keywords.NextKeyword(ctx)
	if err != nil {
		w.logger.Error("no keyword for this cycle", "worker", w.name, "error", err)
		return
	}

	query := word
	if w.opts.SelfHandle != "" {
		query += " -from:" + w.opts.SelfHandle
	}

	results, err := w.client.SearchPosts(ctx, query, w.opts.Count, w.opts.Lang)
	if err != nil {
		w.logger.Error("search failed", "worker", w.name, "keyword", word, "error", err)
	} else {
		w.logger.Info("search cycle", "worker", w.name, "keyword", word, "results", len(results))
	}

	if w.policy.Follow {
		if _, err := w.budget.Enforce(ctx, w.client, w.logger); err != nil {
			w.logger.Error("follow budget enforcement failed", "worker", w.name, "error", err)
		}
	}

	for _, result := range results {
		if ctx.Err() != nil {
			return
		}
		w.engageOne(ctx, result)
		if !w.sleep(ctx) {
			return
		}
	}

	if w.opts.Scrape {
		w.scrapeAndPost(ctx)
	}
}

func (w *SearchWorker) engageOne(ctx context.Context, result types.SearchResult) {
	if w.filter.Offensive(result.Text) {
		w.logger.Info("skipping flagged result", "worker", w.name, "uri", result.Ref.URI)
		return
	}
	if w.seen.Seen(ctx, result.Ref.URI) {
		w.logger.Debug("already engaged", "uri", result.Ref.URI)
		return
	}

	decision := w.policy.Decide(false)
	if decision.None() {
		return
	}

	if err := w.policy.Apply(ctx, w.client, w.logger, result, decision); err != nil {
		w.logger.Warn("engagement incomplete", "worker", w.name, "uri", result.Ref.URI, "error", err)
	}
	w.seen.Mark(ctx, result.Ref.URI)

	if w.recorder != nil {
		w.recorder.Record("engage", "engaged with post by "+result.AuthorHandle, result.Ref.URI)
	}
}

func (w *SearchWorker) scrapeAndPost(ctx context.Context) {
	item, err := w.nextItem(ctx)
	if err != nil {
		w.logger.Error("no scrapable content this cycle", "worker", w.name, "error", err)
		return
	}

	if w.reject.Offensive(item.Title) || w.reject.Offensive(item.Text) {
		w.logger.Info("discarding boilerplate item", "worker", w.name, "title", item.Title)
		return
	}

	post, err := w.transformer.Transform(ctx, item)
	if err != nil {
		w.logger.Error("failed to compose post", "worker", w.name, "link", item.Link, "error", err)
		return
	}

	uri, err := w.client.CreatePost(ctx, post)
	if err != nil {
		w.logger.Error("failed to publish post", "worker", w.name, "link", item.Link, "error", err)
		return
	}

	w.logger.Info("posted", "worker", w.name, "uri", uri, "source", item.Link)
	if w.recorder != nil {
		w.recorder.Record("post", item.Title, uri)
	}
}

// nextItem pulls the next feed item, rebuilding the feed from the
// factory once when the current one is exhausted.
func (w *SearchWorker) nextItem(ctx context.Context) (types.ScrapedItem, error) {
	if w.feed == nil {
		f, err := w.factory(ctx)
		if err != nil {
			return types.ScrapedItem{}, err
		}
		w.feed = f
	}

	item, err := w.feed.Next(ctx)
	if errors.Is(err, types.ErrFeedExhausted) {
		w.logger.Info("content feed exhausted, reloading", "worker", w.name)
		f, ferr := w.factory(ctx)
		if ferr != nil {
			return types.ScrapedItem{}, ferr
		}
		w.feed = f
		item, err = w.feed.Next(ctx)
	}
	return item, err
}

// sleep waits out the per-item interval, reporting false when ctx was
// cancelled during the wait.
func (w *SearchWorker) sleep(ctx context.Context) bool {
	if w.opts.Sleep <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(w.opts.Sleep)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
