package config

import (
	"embed"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"

	"github.com/gwakdaeyun7-hub/ailon/internal/bucket"
	"github.com/gwakdaeyun7-hub/ailon/internal/digest"
	"github.com/gwakdaeyun7-hub/ailon/internal/disclosure"
	"github.com/gwakdaeyun7-hub/ailon/internal/ordering"
	"github.com/gwakdaeyun7-hub/ailon/internal/personalize"
	"github.com/gwakdaeyun7-hub/ailon/internal/selection"
)

//go:embed default_config.yaml
var defaultConfigFS embed.FS

// DayOffsetEnv overrides the configured day offset, e.g. "9h" or "-5h".
const DayOffsetEnv = "AILON_DAY_OFFSET"

type Source struct {
	Key      string  `yaml:"key"`
	Name     string  `yaml:"name"`
	Type     string  `yaml:"type"`
	URL      string  `yaml:"url"`
	Lang     string  `yaml:"lang,omitempty"`
	Enabled  bool    `yaml:"enabled"`
	MaxItems int     `yaml:"max_items,omitempty"`
	Weight   float64 `yaml:"weight,omitempty"`
	// Section sources get their own per-source list instead of competing
	// for highlights and category slots.
	Section bool `yaml:"section,omitempty"`
	// AIFilter marks items that do not look AI related as filtered.
	AIFilter bool `yaml:"ai_filter,omitempty"`
}

type Categories struct {
	Order  []string          `yaml:"order"`
	Labels map[string]string `yaml:"labels,omitempty"`
	// FallbackLabel is shown for a key with no label.
	FallbackLabel string `yaml:"fallback_label,omitempty"`
	// Fallback reassigns items whose category is not in Order.
	Fallback string `yaml:"fallback,omitempty"`
	// Uncategorized is "drop" or "collect".
	Uncategorized string `yaml:"uncategorized,omitempty"`
}

type Highlights struct {
	Count      int      `yaml:"count"`
	Categories []string `yaml:"categories"`
}

type CategoryTopN struct {
	TodayMin int `yaml:"today_min"`
	Limit    int `yaml:"limit"`
}

type Sections struct {
	Limit          int     `yaml:"limit"`
	DedupThreshold float64 `yaml:"dedup_threshold"`
}

type Disclosure struct {
	Initial int `yaml:"initial"`
}

type Dedup struct {
	Threshold float64 `yaml:"threshold"`
}

type Fetch struct {
	Concurrency      int     `yaml:"concurrency"`
	RatePerSecond    float64 `yaml:"rate_per_second"`
	Timeout          string  `yaml:"timeout"`
	MaxAge           string  `yaml:"max_age"`
	DescriptionLimit int     `yaml:"description_limit"`
}

type Config struct {
	RefreshInterval string `yaml:"refresh_interval"`
	Retention       string `yaml:"retention"`
	// DayOffset shifts timestamps before they are bucketed into days. It
	// wins over Timezone when both are set.
	DayOffset string `yaml:"day_offset,omitempty"`
	Timezone  string `yaml:"timezone,omitempty"`

	Categories      Categories      `yaml:"categories"`
	Highlights      Highlights      `yaml:"highlights"`
	CategoryTopN    CategoryTopN    `yaml:"category_top_n"`
	Sections        Sections        `yaml:"sections"`
	Disclosure      Disclosure      `yaml:"disclosure"`
	Personalization Personalization `yaml:"personalization"`
	Dedup           Dedup           `yaml:"dedup"`
	Fetch           Fetch           `yaml:"fetch"`
	Sources         []Source        `yaml:"sources"`
}

func (c *Config) RefreshDuration() time.Duration {
	d, err := time.ParseDuration(c.RefreshInterval)
	if err != nil {
		return 6 * time.Hour
	}
	return d
}

func (c *Config) RetentionDuration() time.Duration {
	return parseDays(c.Retention, 30*24*time.Hour)
}

// parseDays parses a Go duration or an "Nd" day count, returning def for
// empty or invalid input.
func parseDays(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	if len(s) > 1 && s[len(s)-1] == 'd' {
		var days int
		if _, err := fmt.Sscanf(s, "%dd", &days); err == nil {
			return time.Duration(days) * 24 * time.Hour
		}
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return def
	}
	return d
}

// Clock returns the day clock for bucketing at now. The env override comes
// first, then day_offset, then timezone; with none of them days are UTC.
func (c *Config) Clock(now time.Time) (ordering.DayClock, error) {
	if v := os.Getenv(DayOffsetEnv); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return ordering.UTC, fmt.Errorf("%s: %w", DayOffsetEnv, err)
		}
		return ordering.DayClock{Offset: d}, nil
	}
	if c.DayOffset != "" {
		d, err := time.ParseDuration(c.DayOffset)
		if err != nil {
			return ordering.UTC, fmt.Errorf("day_offset: %w", err)
		}
		return ordering.DayClock{Offset: d}, nil
	}
	if c.Timezone != "" {
		loc, err := time.LoadLocation(c.Timezone)
		if err != nil {
			return ordering.UTC, fmt.Errorf("timezone: %w", err)
		}
		return ordering.InLocation(loc, now), nil
	}
	return ordering.UTC, nil
}

func (c *Config) EnabledSources() []Source {
	var out []Source
	for _, s := range c.Sources {
		if s.Enabled {
			out = append(out, s)
		}
	}
	return out
}

func (c *Config) SourceNames() []string {
	var names []string
	for _, s := range c.EnabledSources() {
		names = append(names, s.Name)
	}
	return names
}

// SectionSources returns the keys of enabled section sources in config order.
func (c *Config) SectionSources() []string {
	var keys []string
	for _, s := range c.EnabledSources() {
		if s.Section {
			keys = append(keys, s.Key)
		}
	}
	return keys
}

// SourceWeights maps source keys to their signal weight.
func (c *Config) SourceWeights() map[string]float64 {
	w := make(map[string]float64)
	for _, s := range c.Sources {
		if s.Weight > 0 {
			w[s.Key] = s.Weight
		}
	}
	return w
}

// SourceName returns the display name of a source key, or the key itself.
func (c *Config) SourceName(key string) string {
	for _, s := range c.Sources {
		if s.Key == key {
			return s.Name
		}
	}
	return key
}

// Label returns the display label of a category key.
func (c *Config) Label(key string) string {
	if l, ok := c.Categories.Labels[key]; ok && l != "" {
		return l
	}
	if c.Categories.FallbackLabel != "" {
		return c.Categories.FallbackLabel
	}
	return key
}

// UncategorizedPolicy parses categories.uncategorized.
func (c *Config) UncategorizedPolicy() (bucket.Policy, error) {
	return bucket.ParsePolicy(c.Categories.Uncategorized)
}

// DisclosureSize is the collapsed bucket size.
func (c *Config) DisclosureSize() int {
	if c.Disclosure.Initial <= 0 {
		return disclosure.DefaultInitialSize
	}
	return c.Disclosure.Initial
}

// Personalization holds the affinity weights. An unset field takes the
// default; an explicit zero turns that term off.
type Personalization struct {
	Category     *float64 `yaml:"category"`
	Tag          *float64 `yaml:"tag"`
	ScoreDivisor *float64 `yaml:"score_divisor"`
}

// Weights resolves p against personalize.DefaultWeights.
func (p Personalization) Weights() personalize.Weights {
	w := personalize.DefaultWeights
	if p.Category != nil {
		w.Category = *p.Category
	}
	if p.Tag != nil {
		w.Tag = *p.Tag
	}
	if p.ScoreDivisor != nil {
		w.ScoreDivisor = *p.ScoreDivisor
	}
	return w
}

// Scorer returns the personalization scorer with configured weights.
func (c *Config) Scorer() personalize.Scorer {
	return personalize.Scorer{Weights: c.Personalization.Weights()}
}

// DigestOptions turns the config into digest build options at now.
func (c *Config) DigestOptions(now time.Time) (digest.Options, error) {
	clock, err := c.Clock(now)
	if err != nil {
		return digest.Options{}, err
	}
	policy, err := c.UncategorizedPolicy()
	if err != nil {
		return digest.Options{}, err
	}
	return digest.Options{
		Clock:            clock,
		Now:              now,
		CategoryOrder:    c.Categories.Order,
		FallbackCategory: c.Categories.Fallback,
		Uncategorized:    policy,
		Highlight: selection.HighlightOptions{
			Count:      c.Highlights.Count,
			Categories: c.Highlights.Categories,
		},
		TopN: selection.TopNOptions{
			TodayMin: c.CategoryTopN.TodayMin,
			Limit:    c.CategoryTopN.Limit,
		},
		SectionSources:        c.SectionSources(),
		SectionLimit:          c.Sections.Limit,
		DedupThreshold:        c.Dedup.Threshold,
		SectionDedupThreshold: c.Sections.DedupThreshold,
	}, nil
}

// FetchTimeout bounds one source fetch.
func (c *Config) FetchTimeout() time.Duration {
	d, err := time.ParseDuration(c.Fetch.Timeout)
	if err != nil || d <= 0 {
		return 20 * time.Second
	}
	return d
}

// MaxAge is how old an item may be and still be collected.
func (c *Config) MaxAge() time.Duration {
	return parseDays(c.Fetch.MaxAge, 7*24*time.Hour)
}

func DefaultConfigPath() string {
	return filepath.Join(xdg.ConfigHome, "ailon", "config.yaml")
}

func CachePath() string {
	return filepath.Join(xdg.CacheHome, "ailon", "ailon.db")
}

func loadDefaults() (*Config, error) {
	data, err := defaultConfigFS.ReadFile("default_config.yaml")
	if err != nil {
		return nil, fmt.Errorf("reading embedded config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded config: %w", err)
	}
	return &cfg, nil
}

// Load reads the config at path (DefaultConfigPath when empty). Missing keys
// keep their embedded default. A missing file is created from the defaults.
func Load(path string) (*Config, error) {
	cfg, err := loadDefaults()
	if err != nil {
		return nil, err
	}

	if path == "" {
		path = DefaultConfigPath()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Non-fatal: the embedded defaults still apply.
			_ = writeDefaults(path)
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg.Sources = nil
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	defaults, _ := loadDefaults()
	mergeDefaultSources(cfg, defaults)

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// mergeDefaultSources keeps the user's sources, refreshes the URL and type of
// those that share a key with a default, and appends defaults the user has
// never seen. Enabled flags stay as the user set them.
func mergeDefaultSources(cfg, defaults *Config) {
	idx := make(map[string]int, len(cfg.Sources))
	for i, s := range cfg.Sources {
		idx[s.Key] = i
	}
	for _, d := range defaults.Sources {
		if i, ok := idx[d.Key]; ok {
			cfg.Sources[i].URL = d.URL
			cfg.Sources[i].Type = d.Type
			continue
		}
		cfg.Sources = append(cfg.Sources, d)
	}
}

func writeDefaults(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, _ := defaultConfigFS.ReadFile("default_config.yaml")
	return os.WriteFile(path, data, 0o644)
}

var keyPattern = regexp.MustCompile(`^[a-z0-9_]+$`)

func validate(cfg *Config) error {
	validTypes := map[string]bool{"rss": true, "atom": true}
	keys := map[string]bool{}
	for i, s := range cfg.Sources {
		if s.Name == "" {
			return fmt.Errorf("source %d: name is required", i)
		}
		if !keyPattern.MatchString(s.Key) {
			return fmt.Errorf("source %q: key %q must be lower-case letters, digits or _", s.Name, s.Key)
		}
		if keys[s.Key] {
			return fmt.Errorf("source %q: duplicate key %q", s.Name, s.Key)
		}
		keys[s.Key] = true
		if s.URL == "" {
			return fmt.Errorf("source %q: url is required", s.Name)
		}
		u, err := url.Parse(s.URL)
		if err != nil {
			return fmt.Errorf("source %q: invalid url: %w", s.Name, err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("source %q: url scheme must be http or https, got %q", s.Name, u.Scheme)
		}
		if !validTypes[s.Type] {
			return fmt.Errorf("source %q: unknown type %q (valid: rss, atom)", s.Name, s.Type)
		}
	}
	if len(cfg.Categories.Order) == 0 {
		return fmt.Errorf("categories.order must list at least one category")
	}
	if _, err := cfg.UncategorizedPolicy(); err != nil {
		return fmt.Errorf("categories.uncategorized: %w", err)
	}
	if t := cfg.Dedup.Threshold; t < 0 || t > 1 {
		return fmt.Errorf("dedup.threshold must be within [0, 1], got %v", t)
	}
	if _, err := cfg.Clock(time.Now()); err != nil {
		return err
	}
	if s := strings.TrimSpace(cfg.Categories.Fallback); s != "" && !slices.Contains(cfg.Categories.Order, s) {
		return fmt.Errorf("categories.fallback %q is not in categories.order", s)
	}
	return nil
}
