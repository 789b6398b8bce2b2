package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gwakdaeyun7-hub/ailon/internal/cache"
	"github.com/gwakdaeyun7-hub/ailon/internal/config"
	"github.com/gwakdaeyun7-hub/ailon/internal/content"
	"github.com/gwakdaeyun7-hub/ailon/internal/digest"
	"github.com/gwakdaeyun7-hub/ailon/internal/feed"
	"github.com/gwakdaeyun7-hub/ailon/internal/logging"
)

// digestLoadLimit caps how many stored items feed one digest.
const digestLoadLimit = 2000

// session is the config, cache and logger a command works with.
type session struct {
	cfg    *config.Config
	db     *cache.Cache
	dbPath string
	logger *log.Logger
}

func openSession(logger *log.Logger) (*session, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	path := flagDB
	if path == "" {
		path = config.CachePath()
	}
	db, err := cache.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening cache: %w", err)
	}
	db.SetLogger(logger)

	return &session{cfg: cfg, db: db, dbPath: path, logger: logger}, nil
}

// openCLISession opens a session logging to stderr.
func openCLISession() (*session, error) {
	logger, err := logging.Stderr(flagLogLevel)
	if err != nil {
		return nil, err
	}
	return openSession(logger)
}

func (s *session) Close() error {
	return s.db.Close()
}

// refreshStore is the part of the cache a refresh writes to.
type refreshStore interface {
	UpsertItems(items []content.Item) error
	SetLastRefresh() error
	Prune(retention time.Duration) (int64, error)
}

// refreshFeeds fetches every enabled source into store and prunes past the
// retention. Source failures are logged and reported in the result.
func (s *session) refreshFeeds(ctx context.Context, store refreshStore) (feed.FetchResult, error) {
	opts := feed.OptionsFrom(s.cfg)
	opts.Logger = s.logger
	opts.Now = now

	result := feed.FetchAll(ctx, s.cfg.EnabledSources(), opts)
	for _, e := range result.Errors {
		s.logger.Warn("source failed", "err", e)
	}

	if err := store.UpsertItems(result.Items); err != nil {
		return result, fmt.Errorf("caching items: %w", err)
	}
	if err := store.SetLastRefresh(); err != nil {
		return result, fmt.Errorf("recording refresh: %w", err)
	}

	n, err := store.Prune(s.cfg.RetentionDuration())
	if err != nil {
		s.logger.Warn("prune after refresh failed", "err", err)
	} else if n > 0 {
		s.logger.Info("pruned old items", "count", n)
	}
	return result, nil
}

// buildDigest assembles the digest from cached items published after since,
// or within the configured max age when since is zero.
func (s *session) buildDigest(since, at time.Time) (*digest.Digest, error) {
	if since.IsZero() {
		since = at.Add(-s.cfg.MaxAge())
	}
	items, err := s.db.GetItems(cache.QueryOpts{Since: since, Limit: digestLoadLimit})
	if err != nil {
		return nil, fmt.Errorf("loading items: %w", err)
	}
	opts, err := s.cfg.DigestOptions(at)
	if err != nil {
		return nil, err
	}
	d, err := digest.Build(items, opts)
	if err != nil {
		return nil, err
	}
	for _, w := range d.Validate() {
		s.logger.Debug("digest warning", "warning", w)
	}
	return d, nil
}
