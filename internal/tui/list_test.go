package tui

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/gwakdaeyun7-hub/ailon/internal/bucket"
	"github.com/gwakdaeyun7-hub/ailon/internal/content"
	"github.com/gwakdaeyun7-hub/ailon/internal/digest"
	"github.com/gwakdaeyun7-hub/ailon/internal/personalize"
)

func TestTruncateStr(t *testing.T) {
	tests := []struct {
		input string
		n     int
		want  string
	}{
		{"hello", 10, "hello"},
		{"hello world", 8, "hello..."},
		{"abc", 3, "abc"},
		{"abcd", 3, "abc"},
		{"", 5, ""},
		{"test", 0, ""},
	}
	for _, tt := range tests {
		got := truncateStr(tt.input, tt.n)
		if got != tt.want {
			t.Errorf("truncateStr(%q, %d) = %q, want %q", tt.input, tt.n, got, tt.want)
		}
	}
}

func TestTruncateStrUTF8(t *testing.T) {
	got := truncateStr("인공지능뉴스", 5)
	want := "인공..."
	if got != want {
		t.Errorf("truncateStr(Hangul, 5) = %q, want %q", got, want)
	}
}

func TestRelativeTime(t *testing.T) {
	now := time.Date(2025, 6, 20, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		t    time.Time
		want string
	}{
		{now.Add(-30 * time.Second), "just now"},
		{now.Add(-5 * time.Minute), "5m"},
		{now.Add(-3 * time.Hour), "3h"},
		{now.Add(-2 * 24 * time.Hour), "2d"},
		{time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), "Jun 1"},
		{time.Time{}, "undated"},
	}
	for _, tt := range tests {
		got := relativeTime(tt.t, now)
		if got != tt.want {
			t.Errorf("relativeTime(%v) = %q, want %q", tt.t, got, tt.want)
		}
	}
}

func TestRenderListFooter(t *testing.T) {
	items := []content.Item{{Link: "https://a", Title: "First", Source: "A"}}
	out := renderList(items, personalize.NewLinkSet("https://a"), 0, 4, 20, 40, time.Now())
	if !strings.Contains(out, "+ 4 more (m)") {
		t.Errorf("expected more footer, got %q", out)
	}
	if !strings.Contains(out, "♥") {
		t.Errorf("expected liked marker, got %q", out)
	}

	if out := renderList(nil, nil, 0, 0, 20, 40, time.Now()); !strings.Contains(out, "No items yet") {
		t.Errorf("expected empty message, got %q", out)
	}
}

func TestWrapTextWide(t *testing.T) {
	// Each Hangul rune is two cells wide.
	got := wrapText("가나 다라 마바", 5)
	if got != "가나\n다라\n마바" {
		t.Errorf("wrapText = %q", got)
	}
}

func TestTabSourceUnknown(t *testing.T) {
	src := newTabSource(&digest.Digest{}, nil)
	if _, err := src.Bucket("nope"); !errors.Is(err, bucket.ErrUnknownBucket) {
		t.Errorf("expected unknown bucket error, got %v", err)
	}
	if _, err := src.Bucket(categoryPrefix + "missing"); err == nil {
		t.Error("expected error for unknown category")
	}
	if items, err := src.Bucket(forYouID); err != nil || items != nil {
		t.Errorf("expected empty for you tab, got %v, %v", items, err)
	}
}
