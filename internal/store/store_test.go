package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestAccountsByRelation(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.AddAccount(ctx, "did:plc:one", RelationPrimary))
	require.NoError(t, s.AddAccount(ctx, "did:plc:two", RelationPrimary))
	require.NoError(t, s.AddAccount(ctx, "did:plc:boss", RelationAdmin))

	primary, err := s.Accounts(ctx, RelationPrimary)
	require.NoError(t, err)
	assert.Equal(t, []string{"did:plc:one", "did:plc:two"}, primary)

	admin, err := s.Accounts(ctx, RelationAdmin)
	require.NoError(t, err)
	assert.Equal(t, []string{"did:plc:boss"}, admin)
}

func TestAccountsEmptyRelation(t *testing.T) {
	s := openTestStore(t)
	accounts, err := s.Accounts(context.Background(), RelationAdmin)
	require.NoError(t, err)
	assert.Empty(t, accounts)
}

func TestNextKeywordRotates(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for _, w := range []string{"golang", "rust", "zig"} {
		require.NoError(t, s.AddKeyword(ctx, w))
	}

	// Never-used keywords come first, in insertion order.
	got := make([]string, 3)
	for i := range got {
		w, err := s.NextKeyword(ctx)
		require.NoError(t, err)
		got[i] = w
	}
	assert.Equal(t, []string{"golang", "rust", "zig"}, got)

	// A fourth pick wraps around to the least recently used.
	w, err := s.NextKeyword(ctx)
	require.NoError(t, err)
	assert.Equal(t, "golang", w)
}

func TestNextKeywordEmptyStore(t *testing.T) {
	s := openTestStore(t)
	_, err := s.NextKeyword(context.Background())
	assert.Error(t, err)
}

func TestAddKeywordIdempotent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.AddKeyword(ctx, "golang"))
	require.NoError(t, s.AddKeyword(ctx, "golang"))

	w, err := s.NextKeyword(ctx)
	require.NoError(t, err)
	assert.Equal(t, "golang", w)
}
