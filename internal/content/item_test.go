package content

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePublished(t *testing.T) {
	tests := []struct {
		input string
		want  time.Time
	}{
		{"Mon, 02 Jan 2006 15:04:05 +0000", time.Date(2006, 1, 2, 15, 4, 5, 0, time.UTC)},
		{"2024-03-10T08:00:00Z", time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC)},
		{"2024-03-10 08:00:00", time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC)},
		{"2024-03-10", time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		got := ParsePublished(tt.input)
		assert.Truef(t, tt.want.Equal(got), "ParsePublished(%q) = %v, want %v", tt.input, got, tt.want)
	}
}

func TestParsePublishedInvalid(t *testing.T) {
	for _, raw := range []string{"", "   ", "not a date", "yesterday-ish"} {
		assert.True(t, ParsePublished(raw).IsZero(), "input %q", raw)
	}
}

func TestMillisZeroIsEpoch(t *testing.T) {
	assert.Equal(t, int64(0), Millis(time.Time{}))
	assert.Equal(t, int64(0), Item{}.Millis())

	ts := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, ts.UnixMilli(), Item{Published: ts}.Millis())
}

func TestNormalizeTags(t *testing.T) {
	got := NormalizeTags([]string{" LLM", "llm", "", "Robotics ", "agents"})
	assert.Equal(t, []string{"llm", "robotics", "agents"}, got)
	assert.Nil(t, NormalizeTags(nil))
}

func TestTagSetCaseInsensitive(t *testing.T) {
	set := Item{Tags: []string{"LLM", "llm", " Agents "}}.TagSet()
	assert.Len(t, set, 2)
	assert.Contains(t, set, "llm")
	assert.Contains(t, set, "agents")
}

func TestValidate(t *testing.T) {
	require.NoError(t, Validate([]Item{{Link: "a"}, {Link: "b"}}))
	require.NoError(t, Validate(nil))

	err := Validate([]Item{{Link: "a"}, {Link: ""}})
	assert.True(t, errors.Is(err, ErrEmptyLink))

	err = Validate([]Item{{Link: "a"}, {Link: "b"}, {Link: "a"}})
	assert.True(t, errors.Is(err, ErrDuplicateLink))
}

func TestCloneDoesNotAlias(t *testing.T) {
	in := []Item{{Link: "a"}, {Link: "b"}}
	out := Clone(in)
	out[0].Link = "z"
	assert.Equal(t, "a", in[0].Link)
	assert.Nil(t, Clone(nil))
}
