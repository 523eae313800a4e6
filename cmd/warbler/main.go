package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"warbler/internal/compose"
	"warbler/internal/config"
	"warbler/internal/engage"
	"warbler/internal/feed"
	"warbler/internal/keywords"
	"warbler/internal/notify"
	"warbler/internal/platform/bluesky"
	"warbler/internal/safety"
	"warbler/internal/seen"
	"warbler/internal/server"
	"warbler/internal/store"
	"warbler/internal/types"
	"warbler/internal/worker"
)

var (
	configPath = flag.String("config", "config.toml", "Path to configuration file")
	addAccount = flag.String("add-account", "", "Seed a tracked account as did:relation and exit")
	addKeyword = flag.String("add-keyword", "", "Seed a search keyword and exit")
)

func main() {
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		logger.Info("received signal, shutting down", "signal", sig.String())
		cancel()
	}()

	if err := run(ctx, logger); err != nil {
		logger.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger) error {
	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	logger.Info("configuration loaded", "path", *configPath, "bot", cfg.Bot.Name)

	db, err := store.Open(cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer db.Close()

	if *addAccount != "" || *addKeyword != "" {
		return seed(ctx, db, logger)
	}

	client, err := bluesky.New(bluesky.Config{
		Host:       cfg.Bluesky.Host,
		RelayHost:  cfg.Bluesky.RelayHost,
		Identifier: cfg.Bluesky.Identifier,
		Password:   cfg.Bluesky.AppPassword,
	}, logger)
	if err != nil {
		return err
	}
	if err := client.Connect(ctx); err != nil {
		return fmt.Errorf("failed to authenticate: %w", err)
	}
	logger.Info("authenticated", "did", client.SelfDID())

	seenStore, err := seen.New(ctx, cfg.Seen.RedisAddr, cfg.SeenTTL())
	if err != nil {
		return fmt.Errorf("failed to open seen store: %w", err)
	}
	defer seenStore.Close()

	var recorder worker.Recorder
	if cfg.Server.Enabled {
		srv := server.New(cfg.Bot.Name, server.Config{
			Port:     cfg.Server.Port,
			FeedSize: cfg.Server.FeedSize,
		}, logger)
		if err := srv.Start(ctx); err != nil {
			return fmt.Errorf("failed to start activity server: %w", err)
		}
		defer func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer shutdownCancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("activity server shutdown failed", "error", err)
			}
		}()
		recorder = srv
	}

	manager := worker.NewManager(logger)

	if cfg.Stream.Enabled {
		action, cleanup, err := buildStreamAction(cfg, recorder, logger)
		if err != nil {
			return err
		}
		defer cleanup()
		manager.Register(worker.NewStreamWorker("stream", cfg.Stream.Relation, db, client, action, logger))
	}

	if cfg.Search.Enabled {
		searchWorker, err := buildSearchWorker(cfg, client, db, seenStore, recorder, logger)
		if err != nil {
			return err
		}
		manager.Register(searchWorker)
	}

	return manager.Run(ctx)
}

// seed handles the one-shot admin flags and exits without starting workers.
func seed(ctx context.Context, db *store.Store, logger *slog.Logger) error {
	if *addAccount != "" {
		// DIDs contain colons; the relation sits after the last one
		idx := strings.LastIndex(*addAccount, ":")
		if idx <= 0 || idx == len(*addAccount)-1 {
			return fmt.Errorf("add-account expects did:relation, got %q", *addAccount)
		}
		did, relation := (*addAccount)[:idx], (*addAccount)[idx+1:]
		if err := db.AddAccount(ctx, did, relation); err != nil {
			return err
		}
		logger.Info("account added", "did", did, "relation", relation)
	}
	if *addKeyword != "" {
		if err := db.AddKeyword(ctx, *addKeyword); err != nil {
			return err
		}
		logger.Info("keyword added", "word", *addKeyword)
	}
	return nil
}

// buildStreamAction assembles what happens to each live event: log it,
// push it to Discord when configured, and record it on the activity feed.
func buildStreamAction(cfg *config.Config, recorder worker.Recorder, logger *slog.Logger) (worker.Action, func(), error) {
	var discord *notify.Discord
	cleanup := func() {}

	if cfg.Stream.Notify.Enabled {
		d, err := notify.NewDiscord(cfg.Stream.Notify.BotToken, cfg.Stream.Notify.ChannelID)
		if err != nil {
			return nil, nil, err
		}
		if err := d.Open(); err != nil {
			return nil, nil, err
		}
		discord = d
		cleanup = func() {
			if err := d.Close(); err != nil {
				logger.Error("discord session close failed", "error", err)
			}
		}
	}

	action := func(ctx context.Context, evt types.StreamEvent) error {
		logger.Info("tracked account posted", "author", evt.AuthorID, "uri", evt.Ref.URI)
		if recorder != nil {
			recorder.Record("stream", "post by "+evt.AuthorID, evt.Ref.URI)
		}
		if discord != nil {
			return discord.Notify(evt)
		}
		return nil
	}
	return action, cleanup, nil
}

func buildSearchWorker(
	cfg *config.Config,
	client *bluesky.Client,
	db *store.Store,
	seenStore seen.Store,
	recorder worker.Recorder,
	logger *slog.Logger,
) (*worker.SearchWorker, error) {
	filter, err := safety.NewFilter(cfg.Safety.Patterns)
	if err != nil {
		return nil, fmt.Errorf("invalid safety patterns: %w", err)
	}
	reject, err := safety.NewFilter(cfg.Feed.RejectPatterns)
	if err != nil {
		return nil, fmt.Errorf("invalid reject patterns: %w", err)
	}

	extractor, err := keywords.NewExtractor()
	if err != nil {
		return nil, err
	}

	var condenser compose.Condenser
	if cfg.Compose.Condense.Enabled {
		condenser, err = compose.NewOllamaCondenser(cfg.Compose.Condense.Host, cfg.Compose.Condense.Model)
		if err != nil {
			return nil, err
		}
	}
	transformer := compose.NewTransformer(extractor, cfg.Compose.MaxPostLen, condenser, logger)

	var factory feed.Factory
	if cfg.Search.Scrape {
		factory = feed.NewRSSFactory(cfg.Feed.URLs, cfg.Feed.MaxItems, logger)
	}

	policy := engage.Policy{
		Fav:                  cfg.Search.Fav,
		Repost:               cfg.Search.Repost,
		Follow:               cfg.Search.Follow,
		RepostOnlyWithoutFav: cfg.Search.RepostOnlyWithoutFav,
	}
	budget := engage.FollowBudget{
		Ceiling:   cfg.Search.FollowCeiling,
		BatchSize: cfg.Search.UnfollowBatch,
	}

	return worker.NewSearchWorker(
		"search",
		client,
		db,
		filter,
		reject,
		policy,
		budget,
		transformer,
		factory,
		seenStore,
		recorder,
		worker.SearchOptions{
			SelfHandle: cfg.Bot.SelfHandle,
			Count:      cfg.Search.Count,
			Lang:       cfg.Search.Lang,
			Sleep:      cfg.SearchSleep(),
			Scrape:     cfg.Search.Scrape,
		},
		logger,
	), nil
}
