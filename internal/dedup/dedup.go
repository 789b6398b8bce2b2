// Package dedup drops repeated stories: the same URL posted twice, or the same
// headline syndicated by several outlets.
package dedup

import (
	"math/bits"
	"net/url"
	"strings"
	"unicode"

	"github.com/pmezard/go-difflib/difflib"
	"golang.org/x/text/unicode/norm"

	"github.com/gwakdaeyun7-hub/ailon/internal/content"
	"github.com/gwakdaeyun7-hub/ailon/internal/ordering"
)

const (
	// DefaultThreshold is the title similarity at which two items are the same
	// story. Lower is more aggressive.
	DefaultThreshold = 0.55
	// DenseThreshold is used inside a single source's section, where titles of
	// distinct stories share far more wording (Korean outlets especially).
	DenseThreshold = 0.75
)

// Result splits the input into kept items and dropped duplicates.
type Result struct {
	Kept       []content.Item
	Duplicates []content.Item
}

// Deduplicate walks items oldest first and keeps the first of every URL and
// of every group of similar titles. Kept items are returned in input order.
// A non-positive threshold means DefaultThreshold.
func Deduplicate(items []content.Item, threshold float64) Result {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	if len(items) <= 1 {
		return Result{Kept: content.Clone(items)}
	}

	var (
		seenURLs = make(map[string]bool)
		titles   []*keptTitle
		keep     = make(map[string]bool, len(items))
		scratch  []uint64
		res      Result
	)

	for _, it := range ordering.SortOldestFirst(items) {
		key := URLKey(it.Link)
		if key != "" && seenURLs[key] {
			res.Duplicates = append(res.Duplicates, it)
			continue
		}

		normalized := NormalizeTitle(it.Title)
		title, rs := runes(normalized), []rune(normalized)
		dup := false
		if len(title) > 0 {
			for _, k := range titles {
				if k.similar(title, rs, threshold, &scratch) {
					dup = true
					break
				}
			}
		}
		if dup {
			res.Duplicates = append(res.Duplicates, it)
			continue
		}

		keep[it.Link] = true
		if len(title) > 0 {
			titles = append(titles, newKeptTitle(title, rs))
		}
		if key != "" {
			seenURLs[key] = true
		}
	}

	for _, it := range items {
		if keep[it.Link] {
			res.Kept = append(res.Kept, it)
			// Same link twice in the input keeps only the first.
			delete(keep, it.Link)
		}
	}
	return res
}

// URLKey reduces a link to lower-cased host and path with no trailing slash,
// query or fragment. Unparseable links yield "".
func URLKey(link string) string {
	if link == "" {
		return ""
	}
	u, err := url.Parse(link)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Host) + strings.ToLower(strings.TrimRight(u.Path, "/"))
}

// NormalizeTitle lower-cases and NFKC-normalizes a title, strips punctuation
// and symbols, and collapses whitespace.
func NormalizeTitle(title string) string {
	t := norm.NFKC.String(strings.ToLower(title))
	var b strings.Builder
	b.Grow(len(t))
	for _, r := range t {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), unicode.IsMark(r), r == '_':
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// Similarity returns the matching-blocks ratio of two normalized titles,
// 2*M/T over their characters.
func Similarity(a, b string) float64 {
	ra, rb := runes(a), runes(b)
	if len(ra) == 0 && len(rb) == 0 {
		return 1
	}
	return ratio(ra, rb)
}

func ratio(a, b []string) float64 {
	return difflib.NewMatcher(a, b).Ratio()
}

// keptTitle holds what comparing against one kept title needs: a matcher whose
// second sequence is indexed once, and per-rune bit masks of its positions.
type keptTitle struct {
	m     *difflib.SequenceMatcher
	n     int
	masks map[rune][]uint64
}

func newKeptTitle(title []string, rs []rune) *keptTitle {
	k := &keptTitle{
		m:     difflib.NewMatcher(nil, title),
		n:     len(rs),
		masks: make(map[rune][]uint64),
	}
	words := (len(rs) + 63) / 64
	for i, r := range rs {
		mask := k.masks[r]
		if mask == nil {
			mask = make([]uint64, words)
			k.masks[r] = mask
		}
		mask[i/64] |= 1 << (i % 64)
	}
	return k
}

// similar reports whether ratio(title, k) >= threshold. The matching blocks
// Ratio counts form a common subsequence, so 2*LCS/total bounds it from above
// and rejects most pairs before the full match.
func (k *keptTitle) similar(title []string, rs []rune, threshold float64, scratch *[]uint64) bool {
	k.m.SetSeq1(title)
	if k.m.RealQuickRatio() < threshold {
		return false
	}
	total := float64(len(rs) + k.n)
	if 2*float64(k.lcs(rs, scratch))/total < threshold {
		return false
	}
	return k.m.Ratio() >= threshold
}

// lcs is the bit-parallel longest common subsequence length of a and the
// kept title (Hyyro 2004).
func (k *keptTitle) lcs(a []rune, scratch *[]uint64) int {
	words := (k.n + 63) / 64
	if cap(*scratch) < words {
		*scratch = make([]uint64, words)
	}
	v := (*scratch)[:words]
	for i := range v {
		v[i] = ^uint64(0)
	}
	for _, r := range a {
		mask, ok := k.masks[r]
		if !ok {
			continue
		}
		var carry uint64
		for w := range v {
			u := v[w] & mask[w]
			sum, c := bits.Add64(v[w], u, carry)
			carry = c
			v[w] = sum | (v[w] &^ u)
		}
	}
	zeros := 0
	for w, x := range v {
		valid := min(k.n-w*64, 64)
		zeros += valid - bits.OnesCount64(x&lowBits(valid))
	}
	return zeros
}

func lowBits(n int) uint64 {
	if n >= 64 {
		return ^uint64(0)
	}
	return 1<<n - 1
}

func runes(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}
