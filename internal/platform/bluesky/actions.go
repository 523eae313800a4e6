package bluesky

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bluesky-social/indigo/api/atproto"
	"github.com/bluesky-social/indigo/api/bsky"
	lexutil "github.com/bluesky-social/indigo/lex/util"

	"warbler/internal/types"
)

const (
	collectionPost   = "app.bsky.feed.post"
	collectionLike   = "app.bsky.feed.like"
	collectionRepost = "app.bsky.feed.repost"
	collectionFollow = "app.bsky.graph.follow"
)

func (c *Client) SearchPosts(ctx context.Context, query string, limit int, lang string) ([]types.SearchResult, error) {
	out, err := bsky.FeedSearchPosts(ctx, c.client, "", "", "", lang, int64(limit), "", query, "", "latest", nil, "", "")
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", query, err)
	}

	results := make([]types.SearchResult, 0, len(out.Posts))
	for _, pv := range out.Posts {
		if pv == nil || pv.Author == nil {
			continue
		}

		result := types.SearchResult{
			Ref:          types.PostRef{URI: pv.Uri, CID: pv.Cid},
			AuthorID:     pv.Author.Did,
			AuthorHandle: pv.Author.Handle,
		}
		if pv.Record != nil {
			if post, ok := pv.Record.Val.(*bsky.FeedPost); ok {
				result.Text = post.Text
			}
		}
		// a quote post carries the original author in its embed; that
		// account is a follow candidate alongside the quoting author
		if pv.Embed != nil && pv.Embed.EmbedRecord_View != nil && pv.Embed.EmbedRecord_View.Record != nil {
			if rec := pv.Embed.EmbedRecord_View.Record.EmbedRecord_ViewRecord; rec != nil && rec.Author != nil {
				result.RepostOfAuthorID = rec.Author.Did
			}
		}

		results = append(results, result)
	}
	return results, nil
}

func (c *Client) Favorite(ctx context.Context, ref types.PostRef) error {
	record := &bsky.FeedLike{
		CreatedAt: time.Now().Format(time.RFC3339),
		Subject:   &atproto.RepoStrongRef{Uri: ref.URI, Cid: ref.CID},
	}
	return c.createRecord(ctx, collectionLike, record)
}

func (c *Client) Repost(ctx context.Context, ref types.PostRef) error {
	record := &bsky.FeedRepost{
		CreatedAt: time.Now().Format(time.RFC3339),
		Subject:   &atproto.RepoStrongRef{Uri: ref.URI, Cid: ref.CID},
	}
	return c.createRecord(ctx, collectionRepost, record)
}

func (c *Client) Follow(ctx context.Context, accountID string) error {
	record := &bsky.GraphFollow{
		CreatedAt: time.Now().Format(time.RFC3339),
		Subject:   accountID,
	}
	return c.createRecord(ctx, collectionFollow, record)
}

func (c *Client) createRecord(ctx context.Context, collection string, record lexutil.CBOR) error {
	_, err := atproto.RepoCreateRecord(ctx, c.client, &atproto.RepoCreateRecord_Input{
		Collection: collection,
		Repo:       c.selfDID,
		Record:     &lexutil.LexiconTypeDecoder{Val: record},
	})
	if err != nil {
		return fmt.Errorf("create %s record: %w", collection, err)
	}
	return nil
}

func (c *Client) Unfollow(ctx context.Context, accountID string) error {
	rkey, err := c.followRkey(ctx, accountID)
	if err != nil {
		return err
	}

	_, err = atproto.RepoDeleteRecord(ctx, c.client, &atproto.RepoDeleteRecord_Input{
		Collection: collectionFollow,
		Repo:       c.selfDID,
		Rkey:       rkey,
	})
	if err != nil {
		return fmt.Errorf("delete follow record for %s: %w", accountID, err)
	}

	c.mu.Lock()
	delete(c.followRkeys, accountID)
	c.mu.Unlock()
	return nil
}

func (c *Client) followRkey(ctx context.Context, accountID string) (string, error) {
	c.mu.Lock()
	rkey, ok := c.followRkeys[accountID]
	c.mu.Unlock()
	if ok {
		return rkey, nil
	}

	// cache miss: re-list the collection to find the record
	if _, err := c.FollowingIDs(ctx); err != nil {
		return "", err
	}

	c.mu.Lock()
	rkey, ok = c.followRkeys[accountID]
	c.mu.Unlock()
	if !ok {
		return "", fmt.Errorf("no follow record for %s", accountID)
	}
	return rkey, nil
}

func (c *Client) FollowingCount(ctx context.Context) (int, error) {
	profile, err := bsky.ActorGetProfile(ctx, c.client, c.selfDID)
	if err != nil {
		return 0, fmt.Errorf("get own profile: %w", err)
	}
	if profile.FollowsCount == nil {
		return 0, nil
	}
	return int(*profile.FollowsCount), nil
}

// FollowingIDs lists the accounts the bot follows, newest follow first,
// so trimming from the end of the slice removes the oldest follows.
func (c *Client) FollowingIDs(ctx context.Context) ([]string, error) {
	var ids []string
	rkeys := make(map[string]string)

	cursor := ""
	for {
		// listRecords returns rkey-descending by default; follow rkeys
		// are time-ordered TIDs, so that is newest follow first
		out, err := atproto.RepoListRecords(ctx, c.client, collectionFollow, cursor, 100, c.selfDID, false)
		if err != nil {
			return nil, fmt.Errorf("list follow records: %w", err)
		}

		for _, rec := range out.Records {
			follow, ok := rec.Value.Val.(*bsky.GraphFollow)
			if !ok {
				continue
			}
			ids = append(ids, follow.Subject)
			if idx := strings.LastIndex(rec.Uri, "/"); idx >= 0 {
				rkeys[follow.Subject] = rec.Uri[idx+1:]
			}
		}

		if out.Cursor == nil || *out.Cursor == "" {
			break
		}
		cursor = *out.Cursor
	}

	c.mu.Lock()
	c.followRkeys = rkeys
	c.mu.Unlock()
	return ids, nil
}

func (c *Client) CreatePost(ctx context.Context, post types.Post) (string, error) {
	record := &bsky.FeedPost{
		CreatedAt: time.Now().Format(time.RFC3339),
		Text:      post.Text,
	}

	if post.Media != nil {
		blobResp, err := atproto.RepoUploadBlob(ctx, c.client, bytes.NewReader(post.Media))
		if err != nil {
			return "", fmt.Errorf("upload media blob: %w", err)
		}
		record.Embed = &bsky.FeedPost_Embed{
			EmbedImages: &bsky.EmbedImages{
				Images: []*bsky.EmbedImages_Image{{
					Alt:   post.MediaAlt,
					Image: blobResp.Blob,
				}},
			},
		}
	}

	resp, err := atproto.RepoCreateRecord(ctx, c.client, &atproto.RepoCreateRecord_Input{
		Collection: collectionPost,
		Repo:       c.selfDID,
		Record:     &lexutil.LexiconTypeDecoder{Val: record},
	})
	if err != nil {
		return "", fmt.Errorf("create post: %w", err)
	}
	return resp.Uri, nil
}
