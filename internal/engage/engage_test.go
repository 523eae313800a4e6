package engage

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"warbler/internal/types"
)

type fakeEngager struct {
	favorites []types.PostRef
	reposts   []types.PostRef
	follows   []string

	favoriteErr error
	repostErr   error
	followErr   error
}

func (f *fakeEngager) Favorite(_ context.Context, ref types.PostRef) error {
	if f.favoriteErr != nil {
		return f.favoriteErr
	}
	f.favorites = append(f.favorites, ref)
	return nil
}

func (f *fakeEngager) Repost(_ context.Context, ref types.PostRef) error {
	if f.repostErr != nil {
		return f.repostErr
	}
	f.reposts = append(f.reposts, ref)
	return nil
}

func (f *fakeEngager) Follow(_ context.Context, accountID string) error {
	if f.followErr != nil {
		return f.followErr
	}
	f.follows = append(f.follows, accountID)
	return nil
}

var testResult = types.SearchResult{
	Ref:      types.PostRef{URI: "at://did:plc:aaa/app.bsky.feed.post/1", CID: "cid1"},
	AuthorID: "did:plc:aaa",
	Text:     "a clean post about rust",
}

func TestDecideOffensiveBlocksEverything(t *testing.T) {
	p := Policy{Fav: true, Repost: true, Follow: true}
	assert.True(t, p.Decide(true).None())
}

func TestDecideFollowsToggles(t *testing.T) {
	cases := []struct {
		name   string
		policy Policy
		want   types.EngagementDecision
	}{
		{"all on", Policy{Fav: true, Repost: true, Follow: true}, types.EngagementDecision{Favorite: true, Repost: true, Follow: true}},
		{"fav only", Policy{Fav: true}, types.EngagementDecision{Favorite: true}},
		{"all off", Policy{}, types.EngagementDecision{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.policy.Decide(false))
		})
	}
}

func TestApplyAllActions(t *testing.T) {
	client := &fakeEngager{}
	p := Policy{Fav: true, Repost: true, Follow: true}

	result := testResult
	result.RepostOfAuthorID = "did:plc:origin99"

	err := p.Apply(context.Background(), client, slog.Default(), result, p.Decide(false))
	require.NoError(t, err)

	assert.Equal(t, []types.PostRef{result.Ref}, client.favorites)
	assert.Equal(t, []types.PostRef{result.Ref}, client.reposts)
	assert.Equal(t, []string{"did:plc:aaa", "did:plc:origin99"}, client.follows)
}

func TestApplyExclusiveModeSuppressesRepost(t *testing.T) {
	client := &fakeEngager{}
	p := Policy{Fav: true, Repost: true, RepostOnlyWithoutFav: true}

	err := p.Apply(context.Background(), client, slog.Default(), testResult, p.Decide(false))
	require.NoError(t, err)

	assert.Len(t, client.favorites, 1)
	assert.Empty(t, client.reposts)
}

func TestApplyExclusiveModeRepostsWhenFavFails(t *testing.T) {
	client := &fakeEngager{favoriteErr: errors.New("rate limited")}
	p := Policy{Fav: true, Repost: true, RepostOnlyWithoutFav: true}

	err := p.Apply(context.Background(), client, slog.Default(), testResult, p.Decide(false))
	assert.Error(t, err)
	assert.Len(t, client.reposts, 1)
}

func TestApplyPartialFailureKeepsGoing(t *testing.T) {
	client := &fakeEngager{followErr: errors.New("boom")}
	p := Policy{Fav: true, Repost: true, Follow: true}

	err := p.Apply(context.Background(), client, slog.Default(), testResult, p.Decide(false))
	assert.Error(t, err)

	// Favorite and repost still went through; nothing is rolled back.
	assert.Len(t, client.favorites, 1)
	assert.Len(t, client.reposts, 1)
	assert.Empty(t, client.follows)
}
