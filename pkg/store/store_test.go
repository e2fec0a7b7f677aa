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
	s, err := Open(filepath.Join(t.TempDir(), "bot.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func strPtr(s string) *string { return &s }

func TestGetOrCreate(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	u, err := s.GetOrCreate(ctx, 100, "alice", strPtr("promo1"))
	require.NoError(t, err)
	assert.Equal(t, int64(100), u.ChatID)
	assert.Equal(t, "alice", u.Username)
	require.NotNil(t, u.DeepLink)
	assert.Equal(t, "promo1", *u.DeepLink)

	// Second contact: same row, username refreshed, deep link untouched.
	again, err := s.GetOrCreate(ctx, 100, "alice_new", strPtr("promo2"))
	require.NoError(t, err)
	assert.Equal(t, u.ID, again.ID)
	assert.Equal(t, "alice_new", again.Username)
	require.NotNil(t, again.DeepLink)
	assert.Equal(t, "promo1", *again.DeepLink, "origin deep link is immutable")

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestGetOrCreateEmptyUsernameDoesNotOverwrite(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.GetOrCreate(ctx, 100, "alice", nil)
	require.NoError(t, err)

	u, err := s.GetOrCreate(ctx, 100, "", nil)
	require.NoError(t, err)
	assert.Equal(t, "alice", u.Username)
}

func TestListAllOrderedByID(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for _, chatID := range []int64{300, 100, 200} {
		_, err := s.GetOrCreate(ctx, chatID, "", nil)
		require.NoError(t, err)
	}

	users, err := s.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, users, 3)
	assert.Less(t, users[0].ID, users[1].ID)
	assert.Less(t, users[1].ID, users[2].ID)

	ids, err := s.AllChatIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{300, 100, 200}, ids, "chat ids follow insertion order")
}

func TestCountByDeepLink(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.GetOrCreate(ctx, 1, "", strPtr("promo1"))
	require.NoError(t, err)
	_, err = s.GetOrCreate(ctx, 2, "", strPtr("promo1"))
	require.NoError(t, err)
	_, err = s.GetOrCreate(ctx, 3, "", nil)
	require.NoError(t, err)

	groups, err := s.CountByDeepLink(ctx)
	require.NoError(t, err)
	require.Len(t, groups, 2)

	total := 0
	for _, g := range groups {
		total += g.Count
		if g.DeepLink == nil {
			assert.Equal(t, 1, g.Count)
		} else {
			assert.Equal(t, "promo1", *g.DeepLink)
			assert.Equal(t, 2, g.Count)
		}
	}

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, n, total, "group counts must sum to the total")
}

func TestMigrateIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bot.db")

	s, err := Open(path)
	require.NoError(t, err)
	_, err = s.GetOrCreate(context.Background(), 1, "alice", nil)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	// Reopening must keep existing rows.
	s2, err := Open(path)
	require.NoError(t, err)
	defer s2.Close()

	n, err := s2.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
