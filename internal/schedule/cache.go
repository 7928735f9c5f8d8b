package schedule

import (
	"encoding/json"
	"hash/fnv"

	lru "github.com/hashicorp/golang-lru/v2"

	"coffeebreak/internal/grouping"
)

// resultCache memoizes grouping passes by input hash. A nil *resultCache
// (size 0) caches nothing. The underlying LRU is safe for concurrent use.
type resultCache struct {
	lru *lru.Cache[uint64, grouping.Result]
}

func newResultCache(size int) (*resultCache, error) {
	if size <= 0 {
		return nil, nil
	}
	c, err := lru.New[uint64, grouping.Result](size)
	if err != nil {
		return nil, err
	}
	return &resultCache{lru: c}, nil
}

func (c *resultCache) Get(key uint64) (grouping.Result, bool) {
	if c == nil || key == 0 {
		return grouping.Result{}, false
	}
	return c.lru.Get(key)
}

func (c *resultCache) Add(key uint64, res grouping.Result) {
	if c == nil || key == 0 {
		return
	}
	c.lru.Add(key, res)
}

func (c *resultCache) Purge() {
	if c == nil {
		return
	}
	c.lru.Purge()
}

func (c *resultCache) Len() int {
	if c == nil {
		return 0
	}
	return c.lru.Len()
}

// passKey hashes the canonical JSON of a pass's inputs. Struct field order
// is fixed, so equal inputs always produce equal keys. Returns 0 when the
// inputs cannot be encoded.
func passKey(activities []grouping.Activity, cfg grouping.Config) uint64 {
	b, err := json.Marshal(struct {
		Config     grouping.Config     `json:"config"`
		Activities []grouping.Activity `json:"activities"`
	}{cfg, activities})
	if err != nil {
		return 0
	}
	h := fnv.New64a()
	_, _ = h.Write(b)
	return h.Sum64()
}
