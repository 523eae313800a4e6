package server

import (
	"log/slog"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer() *Server {
	return New("test", Config{FeedSize: 3}, slog.Default())
}

func TestRecordKeepsNewestFirst(t *testing.T) {
	s := newTestServer()
	s.Record("post", "first", "at://1")
	s.Record("post", "second", "at://2")

	feed := s.buildFeed()
	require.Len(t, feed.Items, 2)
	assert.Equal(t, "at://2", feed.Items[0].Id)
	assert.Equal(t, "at://1", feed.Items[1].Id)
}

func TestRecordTrimsToFeedSize(t *testing.T) {
	s := newTestServer()
	for i := 0; i < 5; i++ {
		s.Record("engage", "entry", "at://x")
	}

	feed := s.buildFeed()
	assert.Len(t, feed.Items, 3)
}

func TestHandleRSSFeed(t *testing.T) {
	s := newTestServer()
	s.Record("post", "hello world", "at://did:plc:abc/app.bsky.feed.post/1")

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/feed.rss", nil)
	s.handleRSSFeed(rec, req)

	require.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/rss+xml")
	assert.Contains(t, rec.Body.String(), "hello world")
}

func TestHandleHealth(t *testing.T) {
	s := newTestServer()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/health", nil)
	s.handleHealth(rec, req)

	require.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}
