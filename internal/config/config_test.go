package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gwakdaeyun7-hub/ailon/internal/bucket"
	"github.com/gwakdaeyun7-hub/ailon/internal/personalize"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := loadDefaults()
	if err != nil {
		t.Fatalf("loadDefaults: %v", err)
	}
	if len(cfg.Sources) == 0 {
		t.Error("expected at least one default source")
	}
	if cfg.RefreshInterval == "" {
		t.Error("expected refresh_interval to be set")
	}
	if err := validate(cfg); err != nil {
		t.Errorf("embedded defaults do not validate: %v", err)
	}
}

func TestDefaultsMatchProductBehaviour(t *testing.T) {
	cfg, err := loadDefaults()
	if err != nil {
		t.Fatalf("loadDefaults: %v", err)
	}
	want := []string{"model_research", "product_tools", "industry_business"}
	if len(cfg.Categories.Order) != len(want) {
		t.Fatalf("category order = %v, want %v", cfg.Categories.Order, want)
	}
	for i := range want {
		if cfg.Categories.Order[i] != want[i] {
			t.Errorf("category order[%d] = %q, want %q", i, cfg.Categories.Order[i], want[i])
		}
	}
	if cfg.DisclosureSize() != 5 {
		t.Errorf("expected disclosure size 5, got %d", cfg.DisclosureSize())
	}
	if w := cfg.Personalization.Weights(); w.Category != 3 || w.Tag != 2 || w.ScoreDivisor != 100 {
		t.Errorf("unexpected personalization weights %+v", w)
	}
	if len(cfg.SectionSources()) == 0 {
		t.Error("expected at least one section source")
	}
}

func TestRefreshDuration(t *testing.T) {
	cfg := &Config{RefreshInterval: "30m"}
	d := cfg.RefreshDuration()
	if d.Minutes() != 30 {
		t.Errorf("expected 30m, got %v", d)
	}

	cfg.RefreshInterval = "invalid"
	d = cfg.RefreshDuration()
	if d.Hours() != 6 {
		t.Errorf("expected 6h default for invalid interval, got %v", d)
	}
}

func TestRetentionDuration(t *testing.T) {
	tests := []struct {
		input    string
		wantDays int
	}{
		{"90d", 90},
		{"7d", 7},
		{"720h", 30},
		{"", 30},        // default
		{"invalid", 30}, // fallback to default
	}
	for _, tt := range tests {
		cfg := &Config{Retention: tt.input}
		got := cfg.RetentionDuration()
		wantHours := float64(tt.wantDays * 24)
		if got.Hours() != wantHours {
			t.Errorf("RetentionDuration(%q) = %v, want %dd", tt.input, got, tt.wantDays)
		}
	}
}

func TestClock(t *testing.T) {
	t.Setenv(DayOffsetEnv, "")
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		cfg  Config
		want time.Duration
	}{
		{"none", Config{}, 0},
		{"offset", Config{DayOffset: "-5h"}, -5 * time.Hour},
		{"timezone", Config{Timezone: "Asia/Seoul"}, 9 * time.Hour},
		{"offset wins", Config{DayOffset: "1h", Timezone: "Asia/Seoul"}, time.Hour},
	}
	for _, tt := range tests {
		clock, err := tt.cfg.Clock(now)
		if err != nil {
			t.Fatalf("%s: %v", tt.name, err)
		}
		if clock.Offset != tt.want {
			t.Errorf("%s: offset = %v, want %v", tt.name, clock.Offset, tt.want)
		}
	}

	if _, err := (&Config{Timezone: "Mars/Olympus"}).Clock(now); err == nil {
		t.Error("expected error for unknown timezone")
	}
}

func TestClockEnvOverride(t *testing.T) {
	t.Setenv(DayOffsetEnv, "2h")
	clock, err := (&Config{Timezone: "Asia/Seoul"}).Clock(time.Now())
	if err != nil {
		t.Fatalf("Clock: %v", err)
	}
	if clock.Offset != 2*time.Hour {
		t.Errorf("expected env offset 2h, got %v", clock.Offset)
	}

	t.Setenv(DayOffsetEnv, "soon")
	if _, err := (&Config{}).Clock(time.Now()); err == nil {
		t.Error("expected error for invalid env offset")
	}
}

func TestEnabledSources(t *testing.T) {
	cfg := &Config{
		Sources: []Source{
			{Name: "A", Enabled: true},
			{Name: "B", Enabled: false},
			{Name: "C", Enabled: true},
		},
	}
	enabled := cfg.EnabledSources()
	if len(enabled) != 2 {
		t.Fatalf("expected 2 enabled sources, got %d", len(enabled))
	}
	if enabled[0].Name != "A" || enabled[1].Name != "C" {
		t.Errorf("unexpected enabled sources: %v", enabled)
	}
}

func TestSourceNames(t *testing.T) {
	cfg := &Config{
		Sources: []Source{
			{Name: "Alpha", Enabled: true},
			{Name: "Beta", Enabled: false},
			{Name: "Gamma", Enabled: true},
		},
	}
	names := cfg.SourceNames()
	if len(names) != 2 {
		t.Fatalf("expected 2 names, got %d", len(names))
	}
	if names[0] != "Alpha" || names[1] != "Gamma" {
		t.Errorf("unexpected names: %v", names)
	}
}

func TestSectionSourcesAndWeights(t *testing.T) {
	cfg := &Config{
		Sources: []Source{
			{Key: "geeknews", Name: "GeekNews", Enabled: true, Section: true},
			{Key: "wired_ai", Name: "Wired AI", Enabled: true, Weight: 1.5},
			{Key: "yozm_ai", Name: "Yozm", Enabled: false, Section: true},
		},
	}
	keys := cfg.SectionSources()
	if len(keys) != 1 || keys[0] != "geeknews" {
		t.Errorf("unexpected section sources %v", keys)
	}
	if w := cfg.SourceWeights(); w["wired_ai"] != 1.5 || len(w) != 1 {
		t.Errorf("unexpected weights %v", w)
	}
	if got := cfg.SourceName("wired_ai"); got != "Wired AI" {
		t.Errorf("SourceName = %q", got)
	}
	if got := cfg.SourceName("unknown"); got != "unknown" {
		t.Errorf("SourceName fallback = %q", got)
	}
}

func TestLabel(t *testing.T) {
	cfg := &Config{Categories: Categories{
		Labels:        map[string]string{"model_research": "Research"},
		FallbackLabel: "Other",
	}}
	if got := cfg.Label("model_research"); got != "Research" {
		t.Errorf("Label = %q", got)
	}
	if got := cfg.Label("mystery"); got != "Other" {
		t.Errorf("fallback Label = %q", got)
	}
	cfg.Categories.FallbackLabel = ""
	if got := cfg.Label("mystery"); got != "mystery" {
		t.Errorf("bare Label = %q", got)
	}
}

func TestDigestOptions(t *testing.T) {
	t.Setenv(DayOffsetEnv, "")
	cfg, err := loadDefaults()
	if err != nil {
		t.Fatalf("loadDefaults: %v", err)
	}
	cfg.Categories.Uncategorized = "collect"
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	opts, err := cfg.DigestOptions(now)
	if err != nil {
		t.Fatalf("DigestOptions: %v", err)
	}
	if opts.Clock.Offset != 9*time.Hour {
		t.Errorf("expected +9h clock, got %v", opts.Clock.Offset)
	}
	if opts.Uncategorized != bucket.CollectUncategorized {
		t.Errorf("expected collect policy, got %v", opts.Uncategorized)
	}
	if opts.Highlight.Count != 3 || opts.TopN.TodayMin != 3 {
		t.Errorf("unexpected selection options %+v %+v", opts.Highlight, opts.TopN)
	}
	if len(opts.SectionSources) != len(cfg.SectionSources()) {
		t.Errorf("section sources not carried over")
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")

	content := `refresh_interval: 2h
highlights:
  count: 5
sources:
  - key: test
    name: Test
    type: rss
    url: https://example.com/feed
    enabled: true
`
	if err := os.WriteFile(cfgPath, []byte(content), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.RefreshInterval != "2h" {
		t.Errorf("expected 2h, got %s", cfg.RefreshInterval)
	}
	if cfg.Highlights.Count != 5 {
		t.Errorf("expected highlight count 5, got %d", cfg.Highlights.Count)
	}
	// Untouched sections keep their defaults.
	if cfg.Dedup.Threshold != 0.55 {
		t.Errorf("expected default dedup threshold, got %v", cfg.Dedup.Threshold)
	}
	// First source should be the user-defined one
	if cfg.Sources[0].Name != "Test" {
		t.Errorf("expected first source name Test, got %s", cfg.Sources[0].Name)
	}
	// Default sources should be merged in
	if len(cfg.Sources) <= 1 {
		t.Errorf("expected default sources to be merged, got %d total", len(cfg.Sources))
	}
}

func TestPersonalizationZeroWeights(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	data := "personalization:\n  tag: 0\n  score_divisor: 0\n"
	if err := os.WriteFile(cfgPath, []byte(data), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	w := cfg.Scorer().Weights
	if w.Tag != 0 || w.ScoreDivisor != 0 {
		t.Errorf("expected explicit zeros to be kept, got %+v", w)
	}
	if w.Category != 3 {
		t.Errorf("expected unset category weight to default to 3, got %v", w.Category)
	}
}

func TestPersonalizationUnsetUsesDefaults(t *testing.T) {
	cfg := &Config{}
	if got := cfg.Scorer().Weights; got != personalize.DefaultWeights {
		t.Errorf("expected default weights, got %+v", got)
	}

	one := 1.0
	cfg.Personalization.Category = &one
	got := cfg.Scorer().Weights
	if got.Category != 1 || got.Tag != personalize.DefaultWeights.Tag {
		t.Errorf("unexpected weights %+v", got)
	}
}

func TestLoadRejectsBadPolicy(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(cfgPath, []byte("categories:\n  uncategorized: hide\n"), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	if _, err := Load(cfgPath); err == nil {
		t.Error("expected error for unknown uncategorized policy")
	}
}

func TestLoadNonexistentFallsBackToDefaults(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "sub", "config.yaml")

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.Sources) == 0 {
		t.Error("expected default sources when config doesn't exist")
	}
	if _, err := os.Stat(cfgPath); err != nil {
		t.Errorf("expected defaults written to %s: %v", cfgPath, err)
	}
}

func TestMergeDefaultSources(t *testing.T) {
	cfg := &Config{
		Sources: []Source{
			{Key: "existing", Name: "Existing", Type: "rss", URL: "https://example.com/feed", Enabled: true},
			{Key: "shared", Name: "Shared", Type: "rss", URL: "https://old.com/feed", Enabled: false},
		},
	}
	defaults := &Config{
		Sources: []Source{
			{Key: "shared", Name: "Shared", Type: "atom", URL: "https://new.com/feed", Enabled: true},
			{Key: "new_source", Name: "NewSource", Type: "rss", URL: "https://new-source.com/feed", Enabled: true},
		},
	}
	mergeDefaultSources(cfg, defaults)

	if len(cfg.Sources) != 3 {
		t.Fatalf("expected 3 sources after merge, got %d", len(cfg.Sources))
	}
	// User-only source preserved
	if cfg.Sources[0].Name != "Existing" {
		t.Errorf("expected first source Existing, got %s", cfg.Sources[0].Name)
	}
	// Shared source URL updated to default
	if cfg.Sources[1].URL != "https://new.com/feed" {
		t.Errorf("expected Shared URL updated, got %s", cfg.Sources[1].URL)
	}
	if cfg.Sources[1].Type != "atom" {
		t.Errorf("expected Shared type updated to atom, got %s", cfg.Sources[1].Type)
	}
	if cfg.Sources[1].Enabled {
		t.Error("expected user's enabled flag to survive the merge")
	}
	// New default source appended
	if cfg.Sources[2].Name != "NewSource" {
		t.Errorf("expected NewSource appended, got %s", cfg.Sources[2].Name)
	}
}

func validConfig(sources ...Source) *Config {
	return &Config{
		Categories: Categories{Order: []string{"model_research"}},
		Sources:    sources,
	}
}

func TestValidateMissingName(t *testing.T) {
	cfg := validConfig(Source{Key: "x", Type: "rss", URL: "https://example.com"})
	if err := validate(cfg); err == nil {
		t.Error("expected error for missing name")
	}
}

func TestValidateBadKey(t *testing.T) {
	for _, key := range []string{"", "Has Space", "UPPER"} {
		cfg := validConfig(Source{Key: key, Name: "Test", Type: "rss", URL: "https://example.com"})
		if err := validate(cfg); err == nil {
			t.Errorf("expected error for key %q", key)
		}
	}
}

func TestValidateDuplicateKey(t *testing.T) {
	cfg := validConfig(
		Source{Key: "dup", Name: "A", Type: "rss", URL: "https://a.com"},
		Source{Key: "dup", Name: "B", Type: "rss", URL: "https://b.com"},
	)
	if err := validate(cfg); err == nil {
		t.Error("expected error for duplicate key")
	}
}

func TestValidateMissingURL(t *testing.T) {
	cfg := validConfig(Source{Key: "test", Name: "Test", Type: "rss"})
	if err := validate(cfg); err == nil {
		t.Error("expected error for missing URL")
	}
}

func TestValidateInvalidType(t *testing.T) {
	cfg := validConfig(Source{Key: "test", Name: "Test", Type: "json", URL: "https://example.com"})
	if err := validate(cfg); err == nil {
		t.Error("expected error for invalid type")
	}
}

func TestValidateInvalidURLScheme(t *testing.T) {
	cfg := validConfig(Source{Key: "test", Name: "Test", Type: "rss", URL: "file:///etc/passwd"})
	if err := validate(cfg); err == nil {
		t.Error("expected error for file:// URL scheme")
	}
}

func TestValidateAcceptsHTTPS(t *testing.T) {
	cfg := validConfig(Source{Key: "test", Name: "Test", Type: "rss", URL: "https://example.com/feed"})
	if err := validate(cfg); err != nil {
		t.Errorf("unexpected error for https URL: %v", err)
	}
}

func TestValidateAcceptsHTTP(t *testing.T) {
	cfg := validConfig(Source{Key: "test", Name: "Test", Type: "rss", URL: "http://example.com/feed"})
	if err := validate(cfg); err != nil {
		t.Errorf("unexpected error for http URL: %v", err)
	}
}

func TestValidateCategories(t *testing.T) {
	cfg := validConfig()
	cfg.Categories.Order = nil
	if err := validate(cfg); err == nil {
		t.Error("expected error for empty category order")
	}

	cfg = validConfig()
	cfg.Categories.Fallback = "elsewhere"
	if err := validate(cfg); err == nil {
		t.Error("expected error for fallback outside the order")
	}

	cfg = validConfig()
	cfg.Dedup.Threshold = 1.5
	if err := validate(cfg); err == nil {
		t.Error("expected error for dedup threshold above 1")
	}
}
