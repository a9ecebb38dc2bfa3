package redis

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/babo/internal/domain"
)

func setupTestRedis(t *testing.T) (*BreakdownStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewBreakdownStore(client), mr
}

// ---------------------------------------------------------------------------
// Get
// ---------------------------------------------------------------------------

func TestBreakdownStore_Get_Missing(t *testing.T) {
	store, _ := setupTestRedis(t)

	b, err := store.Get(context.Background(), "9780134685991")
	require.NoError(t, err)
	assert.Zero(t, b)
}

func TestBreakdownStore_Get_CorruptField(t *testing.T) {
	store, mr := setupTestRedis(t)
	mr.HSet("breakdown:1", "stars:3", "three")

	_, err := store.Get(context.Background(), "1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stars:3")
}

// ---------------------------------------------------------------------------
// Add
// ---------------------------------------------------------------------------

func TestBreakdownStore_Add_IncrementsFields(t *testing.T) {
	store, mr := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, store.Add(ctx, "1", domain.Contribution(allScores(5, 5, 5, 5, 4))))
	require.NoError(t, store.Add(ctx, "1", domain.Contribution(allScores(3, 3, 3, 3, 3))))

	assert.Equal(t, "1", mr.HGet("breakdown:1", "stars:5"))
	assert.Equal(t, "1", mr.HGet("breakdown:1", "stars:3"))
	assert.Equal(t, "8", mr.HGet("breakdown:1", "sum:style"))
	assert.Equal(t, "2", mr.HGet("breakdown:1", "count:edition"))
	assert.Equal(t, "780", mr.HGet("breakdown:1", "average_sum"))

	b, err := store.Get(ctx, "1")
	require.NoError(t, err)
	want := domain.BuildBreakdown([]domain.BookRating{
		{Scores: allScores(5, 5, 5, 5, 4)},
		{Scores: allScores(3, 3, 3, 3, 3)},
	})
	assert.Equal(t, want, b)
}

func TestBreakdownStore_Add_ZeroDeltaWritesNothing(t *testing.T) {
	store, mr := setupTestRedis(t)

	require.NoError(t, store.Add(context.Background(), "1", domain.Breakdown{}))
	assert.False(t, mr.Exists("breakdown:1"))
}

// ---------------------------------------------------------------------------
// Replace
// ---------------------------------------------------------------------------

func TestBreakdownStore_Replace(t *testing.T) {
	store, mr := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, store.Add(ctx, "1", domain.Contribution(allScores(1, 1, 1, 1, 1))))

	rebuilt := domain.BuildBreakdown([]domain.BookRating{{Scores: allScores(4, 4, 4, 4, 4)}})
	require.NoError(t, store.Replace(ctx, "1", rebuilt))

	assert.Equal(t, "", mr.HGet("breakdown:1", "stars:1"))
	b, err := store.Get(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, rebuilt, b)
}

func TestBreakdownStore_Replace_EmptyClears(t *testing.T) {
	store, mr := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, store.Add(ctx, "1", domain.Contribution(allScores(2, 2, 2, 2, 2))))
	require.NoError(t, store.Replace(ctx, "1", domain.Breakdown{}))

	assert.False(t, mr.Exists("breakdown:1"))
}

func TestBreakdownStore_ConnectionError(t *testing.T) {
	store, mr := setupTestRedis(t)
	mr.Close()

	_, err := store.Get(context.Background(), "1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis hgetall breakdown")
}

// allScores rates every category.
func allScores(style, content, pleasantness, originality, edition int) domain.Scores {
	return domain.Scores{
		Style:        domain.IntPtr(style),
		Content:      domain.IntPtr(content),
		Pleasantness: domain.IntPtr(pleasantness),
		Originality:  domain.IntPtr(originality),
		Edition:      domain.IntPtr(edition),
	}
}
