package cache

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gwakdaeyun7-hub/ailon/internal/content"
)

// ReadThrough memoizes item and like queries in memory. Any write through it
// drops the memo it affects.
//
// Every write bumps a generation. A read that started before a write does not
// memoize its result, so a concurrent refresh never leaves stale items behind.
type ReadThrough struct {
	*Cache

	mu       sync.Mutex
	items    map[string][]content.Item
	itemsGen uint64
	liked    []content.Item
	likedOK  bool
	likedGen uint64
	reads    int

	afterRead func() // runs between a database read and its memoization
}

func NewReadThrough(c *Cache) *ReadThrough {
	return &ReadThrough{Cache: c, items: make(map[string][]content.Item)}
}

func (r *ReadThrough) GetItems(opts QueryOpts) ([]content.Item, error) {
	key := queryKey(opts)
	r.mu.Lock()
	if cached, ok := r.items[key]; ok {
		r.mu.Unlock()
		return content.Clone(cached), nil
	}
	gen := r.itemsGen
	r.reads++
	r.mu.Unlock()

	items, err := r.Cache.GetItems(opts)
	if err != nil {
		return nil, err
	}
	r.read()

	r.mu.Lock()
	if r.itemsGen == gen {
		r.items[key] = items
	}
	r.mu.Unlock()
	return content.Clone(items), nil
}

func (r *ReadThrough) LikedItems() ([]content.Item, error) {
	r.mu.Lock()
	if r.likedOK {
		out := content.Clone(r.liked)
		r.mu.Unlock()
		return out, nil
	}
	gen := r.likedGen
	r.reads++
	r.mu.Unlock()

	items, err := r.Cache.LikedItems()
	if err != nil {
		return nil, err
	}
	r.read()

	r.mu.Lock()
	if r.likedGen == gen {
		r.liked, r.likedOK = items, true
	}
	r.mu.Unlock()
	return content.Clone(items), nil
}

// Reads reports how many queries missed the memo and reached the database.
func (r *ReadThrough) Reads() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.reads
}

func (r *ReadThrough) UpsertItems(items []content.Item) error {
	defer r.Invalidate()
	return r.Cache.UpsertItems(items)
}

// Like and Unlike leave the item memo alone: liking never changes the items
// table.
func (r *ReadThrough) Like(link string) error {
	defer r.invalidateLiked()
	return r.Cache.Like(link)
}

func (r *ReadThrough) Unlike(link string) error {
	defer r.invalidateLiked()
	return r.Cache.Unlike(link)
}

func (r *ReadThrough) Prune(retention time.Duration) (int64, error) {
	defer r.Invalidate()
	return r.Cache.Prune(retention)
}

// Invalidate drops every memoized result.
func (r *ReadThrough) Invalidate() {
	r.mu.Lock()
	clear(r.items)
	r.itemsGen++
	r.mu.Unlock()
	r.invalidateLiked()
}

func (r *ReadThrough) invalidateLiked() {
	r.mu.Lock()
	r.liked, r.likedOK = nil, false
	r.likedGen++
	r.mu.Unlock()
}

func (r *ReadThrough) read() {
	if r.afterRead != nil {
		r.afterRead()
	}
}

func queryKey(o QueryOpts) string {
	return fmt.Sprintf("%d|%s|%s|%s|%d",
		o.Since.UnixMilli(), strings.Join(o.Sources, ","), o.Category, o.Search, o.Limit)
}
