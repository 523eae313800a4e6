package bluesky

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	comatproto "github.com/bluesky-social/indigo/api/atproto"
	appbsky "github.com/bluesky-social/indigo/api/bsky"
	"github.com/bluesky-social/indigo/atproto/syntax"
	"github.com/bluesky-social/indigo/events"
	"github.com/bluesky-social/indigo/events/schedulers/sequential"
	lexutil "github.com/bluesky-social/indigo/lex/util"
	"github.com/bluesky-social/indigo/repo"
	"github.com/bluesky-social/indigo/repomgr"
	"github.com/gorilla/websocket"

	"warbler/internal/platform"
	"warbler/internal/types"
)

// Stream subscribes to the relay firehose and invokes fn for every new
// post authored by one of the tracked accounts, in arrival order. The
// relay cannot filter by author server-side, so filtering happens here
// before events reach the callback.
//
// The subscription is not restartable: when the connection drops the
// method returns a *types.FeedConnectionError and the caller decides
// whether to supervise a restart.
func (c *Client) Stream(ctx context.Context, accountIDs []string, fn platform.StreamFunc) error {
	tracked := make(map[string]bool, len(accountIDs))
	for _, id := range accountIDs {
		tracked[id] = true
	}

	u, err := url.Parse(c.relayHost)
	if err != nil {
		return fmt.Errorf("invalid relay host %q: %w", c.relayHost, err)
	}
	u.Path = "/xrpc/com.atproto.sync.subscribeRepos"

	c.logger.Info("subscribing to repo event stream", "upstream", c.relayHost, "tracked", len(accountIDs))
	con, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), http.Header{
		"User-Agent": []string{userAgent},
	})
	if err != nil {
		return &types.FeedConnectionError{Host: c.relayHost, Err: err}
	}

	rsc := &events.RepoStreamCallbacks{
		RepoCommit: func(evt *comatproto.SyncSubscribeRepos_Commit) error {
			return c.handleCommit(ctx, evt, tracked, fn)
		},
	}

	// sequential scheduler: per-event ordering matters to the caller
	sched := sequential.NewScheduler("warbler", rsc.EventHandler)

	err = events.HandleRepoStream(ctx, con, sched, c.logger)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return &types.FeedConnectionError{Host: c.relayHost, Err: err}
}

// handleCommit decodes one commit event and dispatches any new posts by
// tracked authors. Decode failures are logged with the raw payload and
// never abort the stream; only the callback's own verdict propagates.
func (c *Client) handleCommit(ctx context.Context, evt *comatproto.SyncSubscribeRepos_Commit, tracked map[string]bool, fn platform.StreamFunc) error {
	if !tracked[evt.Repo] {
		return nil
	}
	if evt.TooBig {
		c.logger.Warn("skipping tooBig event", "did", evt.Repo, "seq", evt.Seq)
		return nil
	}

	rr, err := repo.ReadRepoFromCar(ctx, bytes.NewReader(evt.Blocks))
	if err != nil {
		c.logger.Error("failed to read repo from car", "did", evt.Repo, "seq", evt.Seq, "err", err)
		return nil
	}

	for _, op := range evt.Ops {
		if repomgr.EventKind(op.Action) != repomgr.EvtKindCreateRecord {
			continue
		}

		collection, _, err := syntax.ParseRepoPath(op.Path)
		if err != nil {
			c.logger.Error("invalid path in repo op", "did", evt.Repo, "path", op.Path)
			continue
		}
		if collection != collectionPost {
			continue
		}

		rc, recordCBOR, err := rr.GetRecordBytes(ctx, op.Path)
		if err != nil {
			c.logger.Error("reading record from event blocks", "did", evt.Repo, "path", op.Path, "err", err)
			continue
		}
		if op.Cid == nil || lexutil.LexLink(rc) != *op.Cid {
			c.logger.Error("commit op CID does not match record block", "did", evt.Repo, "path", op.Path)
			continue
		}

		var post appbsky.FeedPost
		if err := post.UnmarshalCBOR(bytes.NewReader(*recordCBOR)); err != nil {
			c.logger.Error("failed to parse feed post record", "did", evt.Repo, "path", op.Path,
				"raw", string(*recordCBOR), "err", err)
			continue
		}

		event := types.StreamEvent{
			AuthorID: evt.Repo,
			Ref: types.PostRef{
				URI: fmt.Sprintf("at://%s/%s", evt.Repo, op.Path),
				CID: op.Cid.String(),
			},
			Text:      post.Text,
			CreatedAt: parseCreatedAt(post.CreatedAt),
			Raw:       *recordCBOR,
		}

		if err := fn(ctx, event); err != nil {
			if types.IsFeedConnection(err) {
				return err
			}
			c.logger.Error("stream action failed", "did", evt.Repo, "uri", event.Ref.URI,
				"raw", string(event.Raw), "err", err)
		}
	}

	return nil
}

func parseCreatedAt(s string) time.Time {
	dt, err := syntax.ParseDatetimeLenient(s)
	if err != nil {
		return time.Time{}
	}
	return dt.Time()
}
