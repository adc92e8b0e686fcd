package submission

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muhtarbag/fenomen-pet/internal/store"
)

func countingLoader(data []store.Submission, calls *int) Loader {
	return func(context.Context, string) ([]store.Submission, error) {
		*calls++
		return data, nil
	}
}

func TestCacheGetLoadsOnce(t *testing.T) {
	calls := 0
	c := NewCache(countingLoader([]store.Submission{makeSubmission(1, store.StatusPending)}, &calls))

	for i := 0; i < 3; i++ {
		got, err := c.Get(context.Background(), SubmissionsKey)
		require.NoError(t, err)
		assert.Len(t, got, 1)
	}
	assert.Equal(t, 1, calls)
}

func TestCacheInvalidateForcesRefetch(t *testing.T) {
	calls := 0
	c := NewCache(countingLoader([]store.Submission{makeSubmission(1, store.StatusPending)}, &calls))
	_, err := c.Get(context.Background(), SubmissionsKey)
	require.NoError(t, err)

	c.Invalidate(SubmissionsKey)
	_, err = c.Get(context.Background(), SubmissionsKey)

	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestCacheInvalidateUnknownKey(t *testing.T) {
	calls := 0
	c := NewCache(countingLoader(nil, &calls))

	c.Invalidate("missing")

	assert.Equal(t, 0, calls)
}

func TestCacheChangeDuringFirstLoadIsNotLost(t *testing.T) {
	tests := []struct {
		name   string
		change func(c *Cache)
	}{
		{
			name:   "Delete lands while the slot is filling",
			change: func(c *Cache) { c.RemovePredicate(SubmissionsKey, byID(7)) },
		},
		{
			name:   "Invalidate lands while the slot is filling",
			change: func(c *Cache) { c.Invalidate(SubmissionsKey) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows := []store.Submission{makeSubmission(7, store.StatusPending), makeSubmission(8, store.StatusPending)}
			calls := 0
			var c *Cache
			c = NewCache(func(context.Context, string) ([]store.Submission, error) {
				calls++
				if calls == 1 {
					stale := clone(rows)
					tt.change(c)
					rows = rows[1:]
					return stale, nil
				}
				return rows, nil
			})

			first, err := c.Get(context.Background(), SubmissionsKey)
			require.NoError(t, err)
			assert.Len(t, first, 2)

			got, err := c.Get(context.Background(), SubmissionsKey)
			require.NoError(t, err)
			require.Len(t, got, 1)
			assert.Equal(t, int64(8), got[0].ID)
			assert.Equal(t, 2, calls)
		})
	}
}

func TestCacheRemovePredicateIsIdempotent(t *testing.T) {
	c := NewCache(nil)
	c.SetAll(SubmissionsKey, []store.Submission{
		makeSubmission(7, store.StatusPending),
		makeSubmission(8, store.StatusApproved),
	})

	assert.Equal(t, 1, c.RemovePredicate(SubmissionsKey, byID(7)))
	assert.Equal(t, 0, c.RemovePredicate(SubmissionsKey, byID(7)))
	assert.Equal(t, 0, c.RemovePredicate("missing", byID(7)))

	got, err := c.Get(context.Background(), SubmissionsKey)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(8), got[0].ID)
}

func TestCacheGetReturnsCopy(t *testing.T) {
	c := NewCache(nil)
	c.SetAll(SubmissionsKey, []store.Submission{makeSubmission(1, store.StatusPending)})

	got, err := c.Get(context.Background(), SubmissionsKey)
	require.NoError(t, err)
	got[0].Username = "changed"

	again, err := c.Get(context.Background(), SubmissionsKey)
	require.NoError(t, err)
	assert.Equal(t, "pati", again[0].Username)
}

func TestCacheLoaderError(t *testing.T) {
	c := NewCache(func(context.Context, string) ([]store.Submission, error) {
		return nil, errors.New("db down")
	})

	_, err := c.Get(context.Background(), SubmissionsKey)

	assert.Error(t, err)
}

func TestCacheWriteDuringLoadWins(t *testing.T) {
	var c *Cache
	c = NewCache(func(context.Context, string) ([]store.Submission, error) {
		c.SetAll(SubmissionsKey, []store.Submission{makeSubmission(2, store.StatusApproved)})
		return []store.Submission{makeSubmission(1, store.StatusPending)}, nil
	})

	_, err := c.Get(context.Background(), SubmissionsKey)
	require.NoError(t, err)

	c.load = func(context.Context, string) ([]store.Submission, error) {
		t.Fatal("fresh slot should not reload")
		return nil, nil
	}
	got, err := c.Get(context.Background(), SubmissionsKey)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(2), got[0].ID)
}
