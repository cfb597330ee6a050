package cache

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hnpulse/biz/model"
)

func makeItems(start, n int) []*model.Item {
	items := make([]*model.Item, n)
	for i := range items {
		title := fmt.Sprintf("story %d", start+i)
		items[i] = &model.Item{ID: int64(start + i), Title: &title}
	}
	return items
}

func itemIDs(items []*model.Item) []int64 {
	ids := make([]int64, len(items))
	for i, it := range items {
		ids[i] = it.ID
	}
	return ids
}

func TestMemoryCache_PutThenGet(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()
	items := makeItems(100, 10)

	require.NoError(t, c.Put(ctx, model.FeedTop, items, 1))

	got, err := c.Get(ctx, model.FeedTop, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, itemIDs(items), itemIDs(got))

	got, err = c.Get(ctx, model.FeedTop, 1, 4)
	require.NoError(t, err)
	assert.Equal(t, itemIDs(items[:4]), itemIDs(got), "entry should be truncated to the requested size")

	got, err = c.Get(ctx, model.FeedTop, 1, 50)
	require.NoError(t, err)
	assert.Len(t, got, 10, "size larger than the entry returns the full entry")

	assert.Equal(t, FeedStats{Hits: 3}, c.Stats().Feed(model.FeedTop))
}

func TestMemoryCache_GetMissRecordsExactlyOneMiss(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	got, err := c.Get(ctx, model.FeedNew, 1, 10)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Nil(t, got)
	assert.Equal(t, FeedStats{Misses: 1}, c.Stats().Feed(model.FeedNew))

	// feed exists but the page does not
	require.NoError(t, c.Put(ctx, model.FeedNew, makeItems(0, 3), 1))
	_, err = c.Get(ctx, model.FeedNew, 2, 10)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, FeedStats{Misses: 2}, c.Stats().Feed(model.FeedNew))
}

func TestMemoryCache_PutRejectsInvalidPage(t *testing.T) {
	c := NewMemoryCache()
	err := c.Put(context.Background(), model.FeedTop, makeItems(0, 1), 0)
	assert.ErrorIs(t, err, ErrInvalidPage)
	assert.False(t, c.HasData(context.Background(), model.FeedTop))
}

func TestMemoryCache_PutReplacesEntry(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	require.NoError(t, c.Put(ctx, model.FeedTop, makeItems(0, 10), 1))
	require.NoError(t, c.Put(ctx, model.FeedTop, makeItems(50, 3), 1))

	got, err := c.Get(ctx, model.FeedTop, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, []int64{50, 51, 52}, itemIDs(got), "writes replace, they do not merge")
}

func TestMemoryCache_PutIsIdempotent(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()
	items := makeItems(0, 5)

	require.NoError(t, c.Put(ctx, model.FeedBest, items, 2))
	first, err := c.Get(ctx, model.FeedBest, 2, 3)
	require.NoError(t, err)

	require.NoError(t, c.Put(ctx, model.FeedBest, items, 2))
	second, err := c.Get(ctx, model.FeedBest, 2, 3)
	require.NoError(t, err)

	assert.Equal(t, itemIDs(first), itemIDs(second))
}

func TestMemoryCache_CallerMutationDoesNotLeak(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()
	items := makeItems(0, 3)

	require.NoError(t, c.Put(ctx, model.FeedTop, items, 1))
	items[0] = &model.Item{ID: 999}

	got, err := c.Get(ctx, model.FeedTop, 1, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(0), got[0].ID)

	got = append(got[:1], &model.Item{ID: 777})
	again, err := c.Get(ctx, model.FeedTop, 1, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(1), again[1].ID, "append on a returned slice must not clobber the cache")
}

func TestMemoryCache_InvalidateIsScopedToFeed(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	for page := 1; page <= 3; page++ {
		require.NoError(t, c.Put(ctx, model.FeedTop, makeItems(page*10, 10), page))
		require.NoError(t, c.Put(ctx, model.FeedNew, makeItems(page*100, 10), page))
	}
	_, _ = c.Get(ctx, model.FeedTop, 1, 10)

	require.NoError(t, c.Invalidate(ctx, model.FeedTop))

	for page := 1; page <= 3; page++ {
		_, err := c.Get(ctx, model.FeedTop, page, 10)
		assert.ErrorIs(t, err, ErrNotFound)

		got, err := c.Get(ctx, model.FeedNew, page, 10)
		require.NoError(t, err)
		assert.Len(t, got, 10)
	}
	assert.False(t, c.HasData(ctx, model.FeedTop))
	assert.True(t, c.HasData(ctx, model.FeedNew))

	// statistics survive invalidation
	assert.Equal(t, FeedStats{Hits: 1, Misses: 3}, c.Stats().Feed(model.FeedTop))
}

func TestMemoryCache_InvalidateUnknownFeed(t *testing.T) {
	c := NewMemoryCache()
	assert.NoError(t, c.Invalidate(context.Background(), model.FeedBest))
	assert.False(t, c.HasData(context.Background(), model.FeedBest))
}

func TestMemoryCache_ConcurrentPutsDistinctPages(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()
	const n = 64

	var wg sync.WaitGroup
	for page := 1; page <= n; page++ {
		wg.Add(1)
		go func(page int) {
			defer wg.Done()
			assert.NoError(t, c.Put(ctx, model.FeedTop, makeItems(page*1000, 5), page))
		}(page)
	}
	wg.Wait()

	for page := 1; page <= n; page++ {
		got, err := c.Get(ctx, model.FeedTop, page, 5)
		require.NoError(t, err)
		assert.Equal(t, int64(page*1000), got[0].ID)
	}
	assert.Len(t, c.Entries(ctx, model.FeedTop), n)
}

func TestMemoryCache_ConcurrentPutsSamePageLastWriterWins(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()
	const n = 32

	written := make(map[int64]bool, n)
	batches := make([][]*model.Item, n)
	for i := range batches {
		batches[i] = makeItems(i*100, 10)
		written[batches[i][0].ID] = true
	}

	var wg sync.WaitGroup
	for i := range batches {
		wg.Add(1)
		go func(items []*model.Item) {
			defer wg.Done()
			assert.NoError(t, c.Put(ctx, model.FeedNew, items, 1))
		}(batches[i])
	}
	wg.Wait()

	got, err := c.Get(ctx, model.FeedNew, 1, 10)
	require.NoError(t, err)
	require.Len(t, got, 10)

	first := got[0].ID
	assert.True(t, written[first])
	for i, it := range got {
		assert.Equal(t, first+int64(i), it.ID, "final value must be exactly one of the written batches")
	}
}

func TestMemoryCache_ConcurrentInvalidateNeverTorn(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()
	const pages = 8

	fill := func() {
		for page := 1; page <= pages; page++ {
			_ = c.Put(ctx, model.FeedTop, makeItems(page, 1), page)
		}
	}
	fill()

	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
				_ = c.Invalidate(ctx, model.FeedTop)
				fill()
			}
		}
	}()

	for i := 0; i < 200; i++ {
		n := len(c.Entries(ctx, model.FeedTop))
		assert.True(t, n >= 0 && n <= pages)
		_, _ = c.Get(ctx, model.FeedTop, 1, 1)
	}
	close(stop)
	wg.Wait()
}

func TestStats_HitRatio(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	assert.Equal(t, 0.0, c.Stats().HitRatio(), "no observations yet")

	require.NoError(t, c.Put(ctx, model.FeedNew, makeItems(0, 10), 1))
	for i := 0; i < 3; i++ {
		_, err := c.Get(ctx, model.FeedNew, 1, 10)
		require.NoError(t, err)
	}
	for i := 0; i < 2; i++ {
		_, err := c.Get(ctx, model.FeedNew, 9, 10)
		require.ErrorIs(t, err, ErrNotFound)
	}

	s := c.Stats()
	assert.Equal(t, int64(3), s.TotalHits())
	assert.Equal(t, int64(2), s.TotalMisses())
	assert.InDelta(t, 0.6, s.HitRatio(), 1e-9)
}

func TestStats_MarkPreloaded(t *testing.T) {
	c := NewMemoryCache()
	assert.False(t, c.Stats().HasPreloaded())

	at := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	c.MarkPreloaded(at)
	assert.True(t, c.Stats().LastPreloadTime.Equal(at))

	later := at.Add(time.Minute)
	c.MarkPreloaded(later)
	assert.True(t, c.Stats().LastPreloadTime.Equal(later), "timestamp is overwritten")
}

func TestStats_ConcurrentCountersAreExact(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()
	require.NoError(t, c.Put(ctx, model.FeedTop, makeItems(0, 1), 1))

	const workers, perWorker = 16, 100
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				_, _ = c.Get(ctx, model.FeedTop, 1, 1)
				_, _ = c.Get(ctx, model.FeedTop, 2, 1)
			}
		}()
	}
	wg.Wait()

	fs := c.Stats().Feed(model.FeedTop)
	assert.Equal(t, int64(workers*perWorker), fs.Hits)
	assert.Equal(t, int64(workers*perWorker), fs.Misses)
}

func TestMemoryCache_Entries(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()
	assert.Empty(t, c.Entries(ctx, model.FeedTop))

	require.NoError(t, c.Put(ctx, model.FeedTop, makeItems(0, 10), 2))
	require.NoError(t, c.Put(ctx, model.FeedTop, makeItems(0, 4), 1))

	entries := c.Entries(ctx, model.FeedTop)
	require.Len(t, entries, 2)
	assert.Equal(t, 1, entries[0].Page)
	assert.Equal(t, 4, entries[0].Size)
	assert.Equal(t, 2, entries[1].Page)
	assert.False(t, entries[1].StoredAt.IsZero())
}

func TestCollector(t *testing.T) {
	c := NewMemoryCache()
	_, _ = c.Get(context.Background(), model.FeedTop, 1, 10)

	// hits + misses per known feed, plus hit ratio and preload timestamp
	want := len(model.AllFeeds())*2 + 2
	assert.Equal(t, want, testutil.CollectAndCount(NewCollector(c, "hnpulse")))
}

func TestMemoryCache_GenerationGuardsWrites(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	assert.Equal(t, uint64(0), c.Generation(ctx, model.FeedTop))
	require.NoError(t, c.PutIfGeneration(ctx, model.FeedTop, makeItems(0, 3), 1, 0))

	require.NoError(t, c.Invalidate(ctx, model.FeedTop))
	assert.Equal(t, uint64(1), c.Generation(ctx, model.FeedTop))

	err := c.PutIfGeneration(ctx, model.FeedTop, makeItems(0, 3), 2, 0)
	assert.ErrorIs(t, err, ErrStaleGeneration)
	assert.False(t, c.HasData(ctx, model.FeedTop))

	require.NoError(t, c.PutIfGeneration(ctx, model.FeedTop, makeItems(10, 3), 2, 1))
	got, err := c.Get(ctx, model.FeedTop, 2, 3)
	require.NoError(t, err)
	assert.Equal(t, []int64{10, 11, 12}, itemIDs(got))

	assert.ErrorIs(t, c.PutIfGeneration(ctx, model.FeedTop, makeItems(0, 1), 0, 1), ErrInvalidPage)
	assert.Equal(t, uint64(0), c.Generation(ctx, model.FeedNew), "generations are per feed")
}

func TestMemoryCache_InvalidateNeverPopulatedFeedAdvancesGeneration(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	gen := c.Generation(ctx, model.FeedBest)
	require.NoError(t, c.Invalidate(ctx, model.FeedBest))
	assert.ErrorIs(t, c.PutIfGeneration(ctx, model.FeedBest, makeItems(0, 1), 1, gen), ErrStaleGeneration)
}
