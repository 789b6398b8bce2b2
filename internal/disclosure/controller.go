// Package disclosure tracks how much of one bucket a reader has asked to see.
//
// A bucket starts collapsed to its first few items. Each explicit expand
// reveals the rest of the bucket, then the filtered overflow attached to it.
// Switching buckets starts over.
package disclosure

import (
	"errors"
	"fmt"

	"github.com/gwakdaeyun7-hub/ailon/internal/content"
)

// DefaultInitialSize is how many items a collapsed bucket shows.
const DefaultInitialSize = 5

var ErrInvalidLevel = errors.New("invalid disclosure level")

// Level is the disclosure depth of the selected bucket.
type Level int

const (
	Collapsed Level = iota
	BucketFull
	BucketPlusOverflow
)

func (l Level) String() string {
	switch l {
	case Collapsed:
		return "collapsed"
	case BucketFull:
		return "full"
	case BucketPlusOverflow:
		return "full+overflow"
	default:
		return fmt.Sprintf("Level(%d)", int(l))
	}
}

// ParseLevel reads a level by its String form. "overflow" is accepted for
// full+overflow.
func ParseLevel(s string) (Level, error) {
	switch s {
	case "collapsed", "":
		return Collapsed, nil
	case "full":
		return BucketFull, nil
	case "full+overflow", "overflow":
		return BucketPlusOverflow, nil
	}
	return Collapsed, fmt.Errorf("%w: %q", ErrInvalidLevel, s)
}

// Source supplies buckets and their overflow. bucket.Groups satisfies it.
type Source interface {
	Bucket(key string) ([]content.Item, error)
	OverflowFor(key string) []content.Item
}

// Controller holds the disclosure state of a single selected bucket. It is
// not safe for concurrent use; the UI owns one per view.
type Controller struct {
	src         Source
	initialSize int

	key      string
	items    []content.Item
	overflow []content.Item
	level    Level
}

// New returns a controller over src. A non-positive initialSize falls back to
// DefaultInitialSize.
func New(src Source, initialSize int) *Controller {
	if initialSize <= 0 {
		initialSize = DefaultInitialSize
	}
	return &Controller{src: src, initialSize: initialSize}
}

// Select switches to key and collapses it. On error the previous selection
// is kept.
func (c *Controller) Select(key string) error {
	items, err := c.src.Bucket(key)
	if err != nil {
		return fmt.Errorf("select %q: %w", key, err)
	}
	c.key = key
	c.items = items
	c.overflow = c.src.OverflowFor(key)
	c.level = Collapsed
	return nil
}

// Rebind points the controller at a new source, such as a regrouped digest,
// and reselects the current key from it. The level is kept when the key still
// exists.
func (c *Controller) Rebind(src Source) error {
	c.src = src
	if c.key == "" {
		return nil
	}
	lvl := c.level
	if err := c.Select(c.key); err != nil {
		c.key, c.items, c.overflow, c.level = "", nil, nil, Collapsed
		return err
	}
	return c.SetLevel(min(lvl, c.maxLevel()))
}

// Key returns the selected bucket key, or "" before the first Select.
func (c *Controller) Key() string { return c.key }

// Level returns the current disclosure level.
func (c *Controller) Level() Level { return c.level }

// InitialSize returns the collapsed window size.
func (c *Controller) InitialSize() int { return c.initialSize }

func (c *Controller) maxLevel() Level {
	if len(c.overflow) > 0 {
		return BucketPlusOverflow
	}
	return BucketFull
}

// CanExpand reports whether Expand would change the level.
func (c *Controller) CanExpand() bool {
	return c.key != "" && c.level < c.maxLevel()
}

// Expand advances one level. A bucket without overflow stops at BucketFull.
func (c *Controller) Expand() Level {
	if c.CanExpand() {
		c.level++
	}
	return c.level
}

// SetLevel jumps to lvl. Levels outside [Collapsed, BucketPlusOverflow] are
// rejected; asking for overflow that does not exist settles on BucketFull.
func (c *Controller) SetLevel(lvl Level) error {
	if lvl < Collapsed || lvl > BucketPlusOverflow {
		return fmt.Errorf("%w: %d", ErrInvalidLevel, int(lvl))
	}
	c.level = min(lvl, c.maxLevel())
	return nil
}

// Visible returns the items to render at the current level.
func (c *Controller) Visible() []content.Item {
	switch c.level {
	case Collapsed:
		n := min(c.initialSize, len(c.items))
		return content.Clone(c.items[:n])
	case BucketFull:
		return content.Clone(c.items)
	default:
		out := make([]content.Item, 0, len(c.items)+len(c.overflow))
		out = append(out, c.items...)
		return append(out, c.overflow...)
	}
}

// Remaining counts the items the next Expand would reveal.
func (c *Controller) Remaining() int {
	switch {
	case !c.CanExpand():
		return 0
	case c.level == Collapsed:
		return len(c.items) - min(c.initialSize, len(c.items))
	default:
		return len(c.overflow)
	}
}
