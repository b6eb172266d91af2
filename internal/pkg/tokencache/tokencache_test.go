package tokencache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"librarium/internal/domain"
)

func newTestCaches(t *testing.T) *Caches {
	t.Helper()
	c, err := New(Options{MaxEntries: 100, EntryTTL: time.Minute})
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c
}

func TestBlacklistIsImmediate(t *testing.T) {
	c := newTestCaches(t)

	assert.False(t, c.IsBlacklisted("tok"))
	c.Blacklist("tok")
	assert.True(t, c.IsBlacklisted("tok"))
}

func TestBlacklistIsIdempotent(t *testing.T) {
	c := newTestCaches(t)

	c.Blacklist("tok")
	c.Blacklist("tok")
	assert.True(t, c.IsBlacklisted("tok"))
}

func TestRefreshUserRoundTrip(t *testing.T) {
	c := newTestCaches(t)

	c.PutRefreshUser("refresh-value", "marta")
	got, ok := c.RefreshUser("refresh-value")
	require.True(t, ok)
	assert.Equal(t, "marta", got)

	c.DropRefreshUser("refresh-value")
	_, ok = c.RefreshUser("refresh-value")
	assert.False(t, ok)
}

func TestRecordLoadsOnMiss(t *testing.T) {
	c := newTestCaches(t)

	loads := 0
	load := func(context.Context) (*domain.Token, error) {
		loads++
		return &domain.Token{ID: 7, Value: "v"}, nil
	}

	got, err := c.Record(context.Background(), "v", load)
	require.NoError(t, err)
	assert.Equal(t, int64(7), got.ID)
	assert.Equal(t, 1, loads)

	// Second call is served from the cache.
	got, err = c.Record(context.Background(), "v", load)
	require.NoError(t, err)
	assert.Equal(t, int64(7), got.ID)
	assert.Equal(t, 1, loads)
}

func TestRecordDoesNotCacheMissesOrErrors(t *testing.T) {
	c := newTestCaches(t)

	loadErr := errors.New("store down")
	_, err := c.Record(context.Background(), "v", func(context.Context) (*domain.Token, error) {
		return nil, loadErr
	})
	assert.ErrorIs(t, err, loadErr)

	// A nil record is returned but not cached; the next call loads again.
	calls := 0
	for i := 0; i < 2; i++ {
		got, err := c.Record(context.Background(), "v", func(context.Context) (*domain.Token, error) {
			calls++
			return nil, nil
		})
		require.NoError(t, err)
		assert.Nil(t, got)
	}
	assert.Equal(t, 2, calls)
}

func TestDropRecordEvicts(t *testing.T) {
	c := newTestCaches(t)

	c.PutRecord(&domain.Token{ID: 1, Value: "v"})
	c.DropRecord("v")

	loads := 0
	_, err := c.Record(context.Background(), "v", func(context.Context) (*domain.Token, error) {
		loads++
		return nil, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, loads)
}

func TestUserCacheReadThrough(t *testing.T) {
	c := newTestCaches(t)

	loads := 0
	load := func(context.Context) (*domain.User, error) {
		loads++
		return &domain.User{ID: 42, Username: "marta"}, nil
	}

	u, err := c.User(context.Background(), "marta", load)
	require.NoError(t, err)
	assert.Equal(t, int64(42), u.ID)
	c.WaitForUsers()

	u, err = c.User(context.Background(), "marta", load)
	require.NoError(t, err)
	assert.Equal(t, int64(42), u.ID)
	assert.Equal(t, 1, loads)
}

func TestDropUserEvicts(t *testing.T) {
	c := newTestCaches(t)

	_, err := c.User(context.Background(), "marta", func(context.Context) (*domain.User, error) {
		return &domain.User{ID: 42, Username: "marta"}, nil
	})
	require.NoError(t, err)
	c.WaitForUsers()

	c.DropUser("marta")
	c.WaitForUsers()

	loads := 0
	_, err = c.User(context.Background(), "marta", func(context.Context) (*domain.User, error) {
		loads++
		return &domain.User{ID: 42, Username: "marta"}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, loads)
}
