// Package ordering sorts content items for highlight and per-category feeds.
//
// The primary key is the calendar day an item was published on, as seen by a
// DayClock. Within a day, higher scores come first and exact publish time
// breaks the remaining ties. All sorts are stable and return new slices.
package ordering

import (
	"cmp"
	"slices"
	"time"

	"github.com/gwakdaeyun7-hub/ailon/internal/content"
)

const msPerDay = int64(24 * time.Hour / time.Millisecond)

// DayClock maps timestamps onto consumer-local calendar days by shifting
// them by a fixed offset before flooring to whole days.
type DayClock struct {
	Offset time.Duration
}

// UTC is a DayClock with no shift.
var UTC = DayClock{}

// FixedOffset returns a DayClock shifted by the given number of minutes.
func FixedOffset(minutes int) DayClock {
	return DayClock{Offset: time.Duration(minutes) * time.Minute}
}

// InLocation returns a DayClock using loc's UTC offset at the instant at.
func InLocation(loc *time.Location, at time.Time) DayClock {
	_, secs := at.In(loc).Zone()
	return DayClock{Offset: time.Duration(secs) * time.Second}
}

// Day returns floor((millis(t) + offset) / 86_400_000). Undated items land on
// day 0 (or the day the offset pushes the epoch into).
func (c DayClock) Day(t time.Time) int64 {
	return floorDiv(content.Millis(t)+c.Offset.Milliseconds(), msPerDay)
}

// IsRecent reports whether t falls on now's day or the day before it. Undated
// items are never recent.
func (c DayClock) IsRecent(t, now time.Time) bool {
	if t.IsZero() {
		return false
	}
	return c.Day(t) >= c.Day(now)-1
}

// Local returns t in a fixed zone at the clock's offset, for display.
func (c DayClock) Local(t time.Time) time.Time {
	return t.In(time.FixedZone("", int(c.Offset/time.Second)))
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// SortByRecencyThenScore orders items by day desc, score desc, then exact
// timestamp desc. Items tied on all three keep their input order.
func SortByRecencyThenScore(items []content.Item, clock DayClock) []content.Item {
	out := content.Clone(items)
	slices.SortStableFunc(out, func(a, b content.Item) int {
		return CompareRecencyThenScore(a, b, clock)
	})
	return out
}

// CompareRecencyThenScore is the comparator behind SortByRecencyThenScore.
// It returns a negative number when a sorts before b.
func CompareRecencyThenScore(a, b content.Item, clock DayClock) int {
	if c := cmp.Compare(clock.Day(b.Published), clock.Day(a.Published)); c != 0 {
		return c
	}
	if c := cmp.Compare(b.Score, a.Score); c != 0 {
		return c
	}
	return cmp.Compare(b.Millis(), a.Millis())
}

// SortByScore orders items by score desc, stable.
func SortByScore(items []content.Item) []content.Item {
	out := content.Clone(items)
	slices.SortStableFunc(out, func(a, b content.Item) int {
		return cmp.Compare(b.Score, a.Score)
	})
	return out
}

// SortByScoreThenTime orders items by score desc, then publish time desc.
func SortByScoreThenTime(items []content.Item) []content.Item {
	out := content.Clone(items)
	slices.SortStableFunc(out, func(a, b content.Item) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return cmp.Compare(b.Millis(), a.Millis())
	})
	return out
}

// SortByPublished orders items newest first, stable.
func SortByPublished(items []content.Item) []content.Item {
	out := content.Clone(items)
	slices.SortStableFunc(out, func(a, b content.Item) int {
		return cmp.Compare(b.Millis(), a.Millis())
	})
	return out
}

// SortOldestFirst orders items oldest first, stable. Undated items come first.
func SortOldestFirst(items []content.Item) []content.Item {
	out := content.Clone(items)
	slices.SortStableFunc(out, func(a, b content.Item) int {
		return cmp.Compare(a.Millis(), b.Millis())
	})
	return out
}
