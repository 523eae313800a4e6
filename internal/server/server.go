// Package server exposes the bot's recent activity as RSS, Atom and JSON
// feeds so operators can follow what the bot did without tailing logs.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/feeds"
)

type Config struct {
	Port     string
	FeedSize int
}

type activity struct {
	kind    string
	title   string
	link    string
	created time.Time
}

type Server struct {
	name   string
	config Config
	server *http.Server
	logger *slog.Logger

	mu      sync.RWMutex
	entries []activity
}

func New(name string, config Config, logger *slog.Logger) *Server {
	if config.Port == "" {
		config.Port = "8080"
	}
	if config.FeedSize == 0 {
		config.FeedSize = 100
	}

	return &Server{
		name:   name,
		config: config,
		logger: logger,
	}
}

// Record adds an activity entry to the front of the feed. Old entries
// past the configured feed size fall off the end.
func (s *Server) Record(kind, title, link string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = append([]activity{{
		kind:    kind,
		title:   title,
		link:    link,
		created: time.Now().UTC(),
	}}, s.entries...)

	if len(s.entries) > s.config.FeedSize {
		s.entries = s.entries[:s.config.FeedSize]
	}
}

func (s *Server) Start(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/feed.rss", s.handleRSSFeed)
	mux.HandleFunc("/feed.atom", s.handleAtomFeed)
	mux.HandleFunc("/feed.json", s.handleJSONFeed)
	mux.HandleFunc("/health", s.handleHealth)

	s.server = &http.Server{
		Addr:    ":" + s.config.Port,
		Handler: mux,
	}

	go func() {
		s.logger.Info("activity server starting", "name", s.name, "port", s.config.Port)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("activity server error", "name", s.name, "error", err)
		}
	}()

	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.server.Shutdown(shutdownCtx)
}

func (s *Server) handleRSSFeed(w http.ResponseWriter, r *http.Request) {
	rss, err := s.buildFeed().ToRss()
	if err != nil {
		s.logger.Error("failed to generate rss feed", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/rss+xml; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=60")
	fmt.Fprint(w, rss)
}

func (s *Server) handleAtomFeed(w http.ResponseWriter, r *http.Request) {
	atom, err := s.buildFeed().ToAtom()
	if err != nil {
		s.logger.Error("failed to generate atom feed", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/atom+xml; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=60")
	fmt.Fprint(w, atom)
}

func (s *Server) handleJSONFeed(w http.ResponseWriter, r *http.Request) {
	jsonStr, err := s.buildFeed().ToJSON()
	if err != nil {
		s.logger.Error("failed to generate json feed", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/feed+json; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=60")
	fmt.Fprint(w, jsonStr)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"status":"ok","name":"%s","time":"%s"}`, s.name, time.Now().UTC().Format(time.RFC3339))
}

func (s *Server) buildFeed() *feeds.Feed {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]*feeds.Item, 0, len(s.entries))
	for _, e := range s.entries {
		items = append(items, &feeds.Item{
			Id:          e.link,
			Title:       fmt.Sprintf("[%s] %s", e.kind, e.title),
			Link:        &feeds.Link{Href: e.link},
			Description: e.title,
			Created:     e.created,
		})
	}

	return &feeds.Feed{
		Title:       fmt.Sprintf("Warbler Activity (%s)", s.name),
		Link:        &feeds.Link{Href: "http://localhost/"},
		Description: "Recent posts and engagements by the bot",
		Author:      &feeds.Author{Name: "Warbler"},
		Created:     time.Now().UTC(),
		Items:       items,
	}
}
