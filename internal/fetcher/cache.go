package fetcher

import (
	"context"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"tradedash/internal/model"
)

const DefaultCacheSize = 16

// Cache memoizes fetched tables for the lifetime of the process. Entries are
// evicted least-recently-used once the size bound is reached; there is no TTL.
type Cache struct {
	entries *lru.Cache[string, model.Table]
	group   singleflight.Group
}

func NewCache(size int) (*Cache, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	entries, err := lru.New[string, model.Table](size)
	if err != nil {
		return nil, err
	}
	return &Cache{entries: entries}, nil
}

// Key identifies one fetch: the indicator plus the exact ordered country list.
func Key(indicator model.Indicator, countries []string) string {
	return indicator.Code() + "|" + strings.Join(countries, ",")
}

func (c *Cache) Get(key string) (model.Table, bool) {
	return c.entries.Get(key)
}

func (c *Cache) Len() int {
	return c.entries.Len()
}

// GetOrLoad returns the cached table for key, or runs load once for all
// concurrent callers asking for the same key. The load is detached from the
// caller's cancellation: a caller that gives up returns ctx.Err() while the
// others keep waiting on the shared result. Failed loads are not stored.
func (c *Cache) GetOrLoad(ctx context.Context, key string, load func(context.Context) (model.Table, error)) (model.Table, bool, error) {
	if table, ok := c.entries.Get(key); ok {
		return table, true, nil
	}

	result := c.group.DoChan(key, func() (any, error) {
		if table, ok := c.entries.Get(key); ok {
			return table, nil
		}
		table, err := load(context.WithoutCancel(ctx))
		if err != nil {
			return model.Table{}, err
		}
		c.entries.Add(key, table)
		return table, nil
	})

	select {
	case <-ctx.Done():
		return model.Table{}, false, ctx.Err()
	case res := <-result:
		if res.Err != nil {
			return model.Table{}, false, res.Err
		}
		return res.Val.(model.Table), false, nil
	}
}
