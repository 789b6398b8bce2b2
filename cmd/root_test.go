package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gwakdaeyun7-hub/ailon/internal/browser"
	"github.com/gwakdaeyun7-hub/ailon/internal/cache"
	"github.com/gwakdaeyun7-hub/ailon/internal/config"
	"github.com/gwakdaeyun7-hub/ailon/internal/content"
	"github.com/gwakdaeyun7-hub/ailon/internal/digest"
	"github.com/gwakdaeyun7-hub/ailon/internal/update"
)

var fixedNow = time.Date(2025, 6, 10, 3, 0, 0, 0, time.UTC)

func TestParseSince(t *testing.T) {
	tests := []struct {
		input string
		want  time.Duration
		err   bool
	}{
		{"7d", 7 * 24 * time.Hour, false},
		{"1d", 24 * time.Hour, false},
		{"24h", 24 * time.Hour, false},
		{"30m", 30 * time.Minute, false},
		{"2h30m", 2*time.Hour + 30*time.Minute, false},
		{"invalid", 0, true},
		{"", 0, true},
		{"d", 0, true},
	}

	for _, tt := range tests {
		got, err := parseSince(tt.input)
		if tt.err {
			if err == nil {
				t.Errorf("parseSince(%q): expected error, got %v", tt.input, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("parseSince(%q): unexpected error: %v", tt.input, err)
			continue
		}
		if got != tt.want {
			t.Errorf("parseSince(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestSinceTime(t *testing.T) {
	got, err := sinceTime("", fixedNow)
	if err != nil || !got.IsZero() {
		t.Errorf("sinceTime(\"\") = %v, %v; want zero", got, err)
	}
	got, err = sinceTime("2d", fixedNow)
	if err != nil || !got.Equal(fixedNow.Add(-48*time.Hour)) {
		t.Errorf("sinceTime(2d) = %v, %v", got, err)
	}
	if _, err := sinceTime("soon", fixedNow); err == nil {
		t.Error("expected error for invalid duration")
	}
}

func TestResolveCategory(t *testing.T) {
	order := []string{"model_research", "product_tools", "industry_business"}
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"", "", false},
		{"product_tools", "product_tools", false},
		{"research", "model_research", false},
		{"Business", "industry_business", false},
		{"sports", "", true},
	}
	for _, tt := range tests {
		got, err := resolveCategory(order, tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("resolveCategory(%q) = %q, %v", tt.in, got, err)
		}
	}
	if _, err := resolveCategory([]string{"model_research"}, "industry"); err == nil {
		t.Error("expected error for an alias outside the order")
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{30 * 24 * time.Hour, "30d"},
		{36 * time.Hour, "1d"},
		{5 * time.Hour, "5h"},
		{10 * time.Minute, "0h"},
	}
	for _, tt := range tests {
		if got := formatDuration(tt.in); got != tt.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{512, "512 B"},
		{2048, "2.0 KB"},
		{3 << 20, "3.0 MB"},
	}
	for _, tt := range tests {
		if got := formatBytes(tt.in); got != tt.want {
			t.Errorf("formatBytes(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

type testEnv struct {
	dbPath string
	args   []string
}

// newTestEnv points the commands at a temp config and database seeded with
// items, and pins the clock.
func newTestEnv(t *testing.T, items []content.Item) testEnv {
	t.Helper()
	t.Setenv(config.DayOffsetEnv, "")

	dir := t.TempDir()
	env := testEnv{dbPath: filepath.Join(dir, "ailon.db")}
	env.args = []string{"--config", filepath.Join(dir, "config.yaml"), "--db", env.dbPath, "--log-level", "error"}

	db, err := cache.Open(env.dbPath)
	if err != nil {
		t.Fatal(err)
	}
	if err := db.UpsertItems(items); err != nil {
		t.Fatal(err)
	}
	db.Close()

	now = func() time.Time { return fixedNow }
	t.Cleanup(func() { now = time.Now })
	return env
}

// execute runs the root command with fresh flag values.
func (e testEnv) execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	flagConfig, flagDB, flagLogLevel = "", "", "info"
	flagSince, flagRefresh, flagCategory = "", false, ""
	flagDigestJSON, flagDigestLevel, flagDigestCategory, flagDigestSince = false, "collapsed", "", ""
	flagForYouLimit, flagForYouExplain, flagForYouJSON = 10, false, false
	flagPruneOlderThan = ""
	flagVersionCheck = false

	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(append(args, e.args...))
	err := rootCmd.Execute()
	return buf.String(), err
}

func (e testEnv) likedLinks(t *testing.T) []string {
	t.Helper()
	db, err := cache.Open(e.dbPath)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	links, err := db.LikedLinks()
	if err != nil {
		t.Fatal(err)
	}
	return links
}

func seedItems() []content.Item {
	return []content.Item{
		{Link: "https://a.example/1", Title: "Sparse attention cuts memory use", Source: "Lab", SourceKey: "lab", Category: "model_research", Published: fixedNow.Add(-time.Hour), Score: 80},
		{Link: "https://a.example/2", Title: "Robot hands grasp unseen objects", Source: "Lab", SourceKey: "lab", Category: "model_research", Published: fixedNow.Add(-2 * time.Hour), Score: 70},
		{Link: "https://p.example/1", Title: "Open weights chat assistant released", Source: "Tools", SourceKey: "tools", Category: "product_tools", Published: fixedNow.Add(-time.Hour), Score: 60},
		{Link: "https://i.example/1", Title: "Startup raises seed round", Source: "Biz", SourceKey: "biz", Category: "industry_business", Published: fixedNow.Add(-3 * time.Hour), Score: 50},
	}
}

func TestDigestJSON(t *testing.T) {
	env := newTestEnv(t, seedItems())

	out, err := env.execute(t, "digest", "--json")
	if err != nil {
		t.Fatalf("digest: %v", err)
	}
	var doc digest.Document
	if err := json.Unmarshal([]byte(out), &doc); err != nil {
		t.Fatalf("decoding %q: %v", out, err)
	}
	if len(doc.Highlights) != 1 || doc.Highlights[0].Link != "https://p.example/1" {
		t.Errorf("highlights = %+v", doc.Highlights)
	}
	if got := len(doc.Categorized["model_research"]); got != 2 {
		t.Errorf("expected 2 research items, got %d", got)
	}
	if doc.Categorized["model_research"][0].Link != "https://a.example/1" {
		t.Errorf("expected the higher score first, got %s", doc.Categorized["model_research"][0].Link)
	}
	if doc.TotalCount != 4 {
		t.Errorf("total = %d, want 4", doc.TotalCount)
	}
}

func TestDigestText(t *testing.T) {
	env := newTestEnv(t, seedItems())

	out, err := env.execute(t, "digest")
	if err != nil {
		t.Fatalf("digest: %v", err)
	}
	for _, want := range []string{"Highlights", "Research (2)", "Industry (1)", "Sparse attention"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	// Product tools lost its only item to highlights.
	if strings.Contains(out, "Models & Tools") {
		t.Errorf("empty category should be skipped:\n%s", out)
	}
}

func TestDigestCategory(t *testing.T) {
	env := newTestEnv(t, seedItems())

	out, err := env.execute(t, "digest", "--category", "industry", "--json")
	if err != nil {
		t.Fatalf("digest: %v", err)
	}
	var items []digest.ItemJSON
	if err := json.Unmarshal([]byte(out), &items); err != nil {
		t.Fatal(err)
	}
	if len(items) != 1 || items[0].Link != "https://i.example/1" {
		t.Errorf("items = %+v", items)
	}

	if _, err := env.execute(t, "digest", "--category", "nope"); err == nil {
		t.Error("expected error for unknown category")
	}
	if _, err := env.execute(t, "digest", "--level", "everything"); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestLikeUnlike(t *testing.T) {
	env := newTestEnv(t, seedItems())

	out, err := env.execute(t, "like", "https://i.example/1")
	if err != nil {
		t.Fatalf("like: %v", err)
	}
	if !strings.Contains(out, "Liked") {
		t.Errorf("unexpected output %q", out)
	}
	if links := env.likedLinks(t); len(links) != 1 || links[0] != "https://i.example/1" {
		t.Errorf("liked = %v", links)
	}

	if _, err := env.execute(t, "unlike", "https://i.example/1"); err != nil {
		t.Fatalf("unlike: %v", err)
	}
	if links := env.likedLinks(t); len(links) != 0 {
		t.Errorf("expected no likes, got %v", links)
	}
	if _, err := env.execute(t, "unlike", "https://i.example/1"); err == nil {
		t.Error("expected error unliking twice")
	}
}

func TestLikeRejectsBadLink(t *testing.T) {
	env := newTestEnv(t, nil)
	_, err := env.execute(t, "like", "javascript:alert(1)")
	if !errors.Is(err, browser.ErrUnsupportedScheme) {
		t.Errorf("expected ErrUnsupportedScheme, got %v", err)
	}
}

func TestForYouFollowsLikes(t *testing.T) {
	env := newTestEnv(t, seedItems())

	if _, err := env.execute(t, "like", "https://i.example/1"); err != nil {
		t.Fatal(err)
	}
	out, err := env.execute(t, "foryou", "--json")
	if err != nil {
		t.Fatalf("foryou: %v", err)
	}
	var ranked []rankedJSON
	if err := json.Unmarshal([]byte(out), &ranked); err != nil {
		t.Fatal(err)
	}
	if len(ranked) != 4 {
		t.Fatalf("expected 4 ranked items, got %d", len(ranked))
	}
	if ranked[0].Category != "industry_business" {
		t.Errorf("expected the liked category first, got %s", ranked[0].Link)
	}
	if ranked[0].Affinity.Category != 3 {
		t.Errorf("expected category bonus 3, got %v", ranked[0].Affinity.Category)
	}
}

func TestStatsAndPrune(t *testing.T) {
	items := append(seedItems(), content.Item{
		Link:      "https://old.example/1",
		Title:     "Last year's news",
		SourceKey: "lab",
		Published: time.Now().Add(-400 * 24 * time.Hour),
	})
	env := newTestEnv(t, items)

	out, err := env.execute(t, "stats")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if !strings.Contains(out, "Items: 5") || !strings.Contains(out, "Likes: 0") {
		t.Errorf("unexpected stats:\n%s", out)
	}

	out, err = env.execute(t, "prune", "--older-than", "365d")
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if !strings.Contains(out, "Pruned 1 item(s) older than 365d.") {
		t.Errorf("unexpected prune output %q", out)
	}

	out, err = env.execute(t, "prune", "--older-than", "365d")
	if err != nil || !strings.Contains(out, "Nothing to prune.") {
		t.Errorf("second prune = %q, %v", out, err)
	}
}

func TestVersion(t *testing.T) {
	env := newTestEnv(t, nil)
	SetVersionInfo("1.2.3", "abc", "today")
	t.Cleanup(func() { SetVersionInfo("dev", "none", "unknown") })

	out, err := env.execute(t, "version")
	if err != nil || !strings.Contains(out, "ailon 1.2.3") {
		t.Errorf("version = %q, %v", out, err)
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"tag_name":"v1.4.0"}`))
	}))
	t.Cleanup(srv.Close)
	releaseURL = srv.URL
	t.Cleanup(func() { releaseURL = update.DefaultURL })

	out, err = env.execute(t, "version", "--check")
	if err != nil || !strings.Contains(out, "newer version is available: 1.4.0") {
		t.Errorf("version --check = %q, %v", out, err)
	}
}
