// Package tokencache holds the in-memory fast paths in front of the token
// store and the user repository. Every cache here is a disposable projection:
// a miss falls through to the durable store and the result is written back,
// so dropping an entry is never a correctness problem.
package tokencache

import (
	"context"
	"time"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"librarium/internal/domain"
)

const (
	defaultMaxEntries = 10_000

	userCacheCounters = 100_000
	userCacheMaxCost  = 1 << 24
	userEntryCost     = 1 << 10
)

// Caches bundles the four independent caches the token service works with:
//
//	refresh-token value -> username
//	blacklisted value set
//	token value -> record snapshot
//	username -> user snapshot
//
// The first three need synchronous visibility (a revocation must be
// observable by the very next validation call), so they use expirable LRUs.
// The user snapshot cache is read-through only and tolerates asymmetric
// admission, so it uses ristretto's cost-based cache.
type Caches struct {
	refreshUser *expirable.LRU[string, string]
	blacklist   *expirable.LRU[string, time.Time]
	records     *expirable.LRU[string, *domain.Token]
	users       *ristretto.Cache[string, *domain.User]
}

type Options struct {
	MaxEntries int
	EntryTTL   time.Duration
}

func New(opts Options) (*Caches, error) {
	size := opts.MaxEntries
	if size <= 0 {
		size = defaultMaxEntries
	}
	ttl := opts.EntryTTL
	if ttl <= 0 {
		ttl = time.Hour
	}

	users, err := ristretto.NewCache(&ristretto.Config[string, *domain.User]{
		NumCounters: userCacheCounters,
		MaxCost:     userCacheMaxCost,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}

	return &Caches{
		refreshUser: expirable.NewLRU[string, string](size, nil, ttl),
		blacklist:   expirable.NewLRU[string, time.Time](size, nil, ttl),
		records:     expirable.NewLRU[string, *domain.Token](size, nil, ttl),
		users:       users,
	}, nil
}

func (c *Caches) Close() {
	c.users.Close()
}

// --- refresh value -> username ---

func (c *Caches) PutRefreshUser(value, username string) {
	c.refreshUser.Add(value, username)
}

func (c *Caches) RefreshUser(value string) (string, bool) {
	return c.refreshUser.Get(value)
}

func (c *Caches) DropRefreshUser(value string) {
	c.refreshUser.Remove(value)
}

// --- blacklist ---

// Blacklist marks a token value as revoked. Adding an already-blacklisted
// value is a no-op, which makes concurrent revocation paths safe without
// extra coordination.
func (c *Caches) Blacklist(value string) {
	if _, ok := c.blacklist.Get(value); ok {
		return
	}
	c.blacklist.Add(value, time.Now())
}

func (c *Caches) IsBlacklisted(value string) bool {
	_, ok := c.blacklist.Get(value)
	return ok
}

// --- token value -> record snapshot ---

func (c *Caches) PutRecord(t *domain.Token) {
	c.records.Add(t.Value, t)
}

func (c *Caches) DropRecord(value string) {
	c.records.Remove(value)
}

// Record returns the cached record for value, or invokes load on a miss and
// writes the result back. A nil record from load is returned without caching.
func (c *Caches) Record(ctx context.Context, value string, load func(context.Context) (*domain.Token, error)) (*domain.Token, error) {
	if t, ok := c.records.Get(value); ok {
		return t, nil
	}
	t, err := load(ctx)
	if err != nil || t == nil {
		return nil, err
	}
	c.records.Add(value, t)
	return t, nil
}

// --- username -> user snapshot ---

func (c *Caches) DropUser(username string) {
	c.users.Del(username)
}

func (c *Caches) User(ctx context.Context, username string, load func(context.Context) (*domain.User, error)) (*domain.User, error) {
	if u, ok := c.users.Get(username); ok {
		return u, nil
	}
	u, err := load(ctx)
	if err != nil || u == nil {
		return nil, err
	}
	c.users.SetWithTTL(username, u, userEntryCost, time.Hour)
	return u, nil
}

// WaitForUsers blocks until pending user-cache writes are applied. Test-only
// hook; ristretto admission is asynchronous.
func (c *Caches) WaitForUsers() {
	c.users.Wait()
}
