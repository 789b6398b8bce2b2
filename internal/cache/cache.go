// Package cache persists fetched items and the reader's likes in a local
// SQLite database.
package cache

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gwakdaeyun7-hub/ailon/internal/content"
	_ "modernc.org/sqlite"
)

// ErrNotLiked is returned by Unlike when the link was never liked.
var ErrNotLiked = errors.New("item is not liked")

const defaultLimit = 500

const itemColumns = `link, source, source_key, lang, title, description, published, fetched_at,
	score, sub_scores, category, tags, ai_filtered`

type Cache struct {
	readDB  *sql.DB
	writeDB *sql.DB
	logger  *log.Logger
	now     func() time.Time
}

// Open opens or creates the database at dbPath.
func Open(dbPath string) (*Cache, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("creating cache dir: %w", err)
	}

	writeDB, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening write db: %w", err)
	}
	writeDB.SetMaxOpenConns(1)

	c := &Cache{writeDB: writeDB, logger: log.Default(), now: time.Now}
	if err := c.init(); err != nil {
		c.Close()
		return nil, err
	}

	// The read handle is opened after the schema exists so mode=ro never
	// sees an empty file.
	readDB, err := sql.Open("sqlite", dbPath+"?mode=ro&_pragma=busy_timeout(5000)")
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("opening read db: %w", err)
	}
	c.readDB = readDB
	return c, nil
}

// SetLogger replaces the logger used for write diagnostics.
func (c *Cache) SetLogger(l *log.Logger) {
	if l != nil {
		c.logger = l
	}
}

func (c *Cache) init() error {
	_, err := c.writeDB.Exec(`
		CREATE TABLE IF NOT EXISTS items (
			link        TEXT PRIMARY KEY,
			source      TEXT NOT NULL,
			source_key  TEXT NOT NULL,
			lang        TEXT NOT NULL DEFAULT '',
			title       TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			published   INTEGER NOT NULL DEFAULT 0,
			fetched_at  INTEGER NOT NULL DEFAULT 0,
			score       REAL NOT NULL DEFAULT 0,
			sub_scores  TEXT NOT NULL DEFAULT '',
			category    TEXT NOT NULL DEFAULT '',
			tags        TEXT NOT NULL DEFAULT '',
			ai_filtered INTEGER NOT NULL DEFAULT 0
		);
		CREATE INDEX IF NOT EXISTS idx_items_published ON items(published DESC);
		CREATE INDEX IF NOT EXISTS idx_items_source_key ON items(source_key);
		CREATE INDEX IF NOT EXISTS idx_items_category ON items(category);

		CREATE TABLE IF NOT EXISTS likes (
			link     TEXT PRIMARY KEY,
			liked_at INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS meta (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("initializing schema: %w", err)
	}
	return nil
}

func (c *Cache) Close() error {
	var errs []error
	if c.readDB != nil {
		errs = append(errs, c.readDB.Close())
	}
	if c.writeDB != nil {
		errs = append(errs, c.writeDB.Close())
	}
	return errors.Join(errs...)
}

// UpsertItems inserts items or refreshes the stored copy. Items without a
// link are rejected before anything is written.
func (c *Cache) UpsertItems(items []content.Item) error {
	rows := make([]row, 0, len(items))
	for i, it := range items {
		if it.Link == "" {
			return fmt.Errorf("item %d (%q): %w", i, it.Title, content.ErrEmptyLink)
		}
		r, err := toRow(it)
		if err != nil {
			return fmt.Errorf("encoding item %s: %w", it.Link, err)
		}
		rows = append(rows, r)
	}

	tx, err := c.writeDB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO items (` + itemColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(link) DO UPDATE SET
			title = excluded.title,
			description = excluded.description,
			published = CASE WHEN excluded.published > 0 THEN excluded.published ELSE items.published END,
			fetched_at = excluded.fetched_at,
			score = excluded.score,
			sub_scores = excluded.sub_scores,
			category = excluded.category,
			tags = excluded.tags,
			ai_filtered = excluded.ai_filtered
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range rows {
		_, err := stmt.Exec(r.Link, r.Source, r.SourceKey, r.Lang, r.Title, r.Description,
			r.Published, r.FetchedAt, r.Score, r.SubScores, r.Category, r.Tags, r.AIFiltered)
		if err != nil {
			return fmt.Errorf("upserting item %s: %w", r.Link, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	c.logger.Debug("upserted items", "count", len(rows))
	return nil
}

// GetItems returns stored items, newest first. Undated items sort last.
func (c *Cache) GetItems(opts QueryOpts) ([]content.Item, error) {
	var (
		where []string
		args  []any
	)

	if !opts.Since.IsZero() {
		// Undated items fall back to their fetch time, as in Prune.
		since := content.Millis(opts.Since)
		where = append(where, "(published >= ? OR (published = 0 AND fetched_at >= ?))")
		args = append(args, since, since)
	}

	if len(opts.Sources) > 0 {
		where = append(where, "source_key IN ("+placeholders(len(opts.Sources))+")") //nolint:gosec
		for _, s := range opts.Sources {
			args = append(args, s)
		}
	}

	if opts.Category != "" {
		where = append(where, "category = ?")
		args = append(args, opts.Category)
	}

	if opts.Search != "" {
		where = append(where, "(title LIKE ? OR description LIKE ?)")
		term := "%" + opts.Search + "%"
		args = append(args, term, term)
	}

	query := "SELECT " + itemColumns + " FROM items"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY published DESC, link"

	limit := opts.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	query += fmt.Sprintf(" LIMIT %d", limit)

	return c.query(query, args...)
}

// GetItemsByLinks returns the stored items among links, newest first. Unknown
// links are skipped.
func (c *Cache) GetItemsByLinks(links []string) ([]content.Item, error) {
	if len(links) == 0 {
		return nil, nil
	}
	args := make([]any, len(links))
	for i, l := range links {
		args[i] = l
	}
	query := "SELECT " + itemColumns + " FROM items WHERE link IN (" + placeholders(len(links)) + ") ORDER BY published DESC, link" //nolint:gosec
	return c.query(query, args...)
}

func (c *Cache) query(query string, args ...any) ([]content.Item, error) {
	rows, err := c.readDB.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying items: %w", err)
	}
	defer rows.Close()

	var items []content.Item
	for rows.Next() {
		var r row
		if err := rows.Scan(&r.Link, &r.Source, &r.SourceKey, &r.Lang, &r.Title, &r.Description,
			&r.Published, &r.FetchedAt, &r.Score, &r.SubScores, &r.Category, &r.Tags, &r.AIFiltered); err != nil {
			return nil, fmt.Errorf("scanning item: %w", err)
		}
		items = append(items, r.item())
	}
	return items, rows.Err()
}

// Like records link as liked. Liking twice keeps the first timestamp.
func (c *Cache) Like(link string) error {
	if link == "" {
		return content.ErrEmptyLink
	}
	_, err := c.writeDB.Exec(`
		INSERT INTO likes (link, liked_at) VALUES (?, ?)
		ON CONFLICT(link) DO NOTHING
	`, link, c.now().UnixMilli())
	if err != nil {
		return fmt.Errorf("liking %s: %w", link, err)
	}
	return nil
}

// Unlike removes a like.
func (c *Cache) Unlike(link string) error {
	res, err := c.writeDB.Exec("DELETE FROM likes WHERE link = ?", link)
	if err != nil {
		return fmt.Errorf("unliking %s: %w", link, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%s: %w", link, ErrNotLiked)
	}
	return nil
}

// LikedLinks returns liked links, most recently liked first.
func (c *Cache) LikedLinks() ([]string, error) {
	rows, err := c.readDB.Query("SELECT link FROM likes ORDER BY liked_at DESC, link")
	if err != nil {
		return nil, fmt.Errorf("querying likes: %w", err)
	}
	defer rows.Close()

	var links []string
	for rows.Next() {
		var l string
		if err := rows.Scan(&l); err != nil {
			return nil, fmt.Errorf("scanning like: %w", err)
		}
		links = append(links, l)
	}
	return links, rows.Err()
}

// LikedItems returns the stored items the reader liked, most recent like
// first.
func (c *Cache) LikedItems() ([]content.Item, error) {
	return c.query(`
		SELECT ` + itemColumnsQualified() + ` FROM items i
		JOIN likes l ON l.link = i.link
		ORDER BY l.liked_at DESC, i.link
	`)
}

func itemColumnsQualified() string {
	cols := strings.Split(itemColumns, ",")
	for i, col := range cols {
		cols[i] = "i." + strings.TrimSpace(col)
	}
	return strings.Join(cols, ", ")
}

func (c *Cache) NeedsRefresh(interval time.Duration) bool {
	value, err := c.getMeta("last_refresh")
	if err != nil {
		return true
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return true
	}
	return c.now().Sub(t) >= interval
}

func (c *Cache) SetLastRefresh() error {
	return c.setMeta("last_refresh", c.now().Format(time.RFC3339))
}

// LastRefresh returns when items were last fetched, zero if never.
func (c *Cache) LastRefresh() time.Time {
	value, err := c.getMeta("last_refresh")
	if err != nil {
		return time.Time{}
	}
	t, _ := time.Parse(time.RFC3339, value)
	return t
}

// Prune deletes items older than retention. Undated items age by fetch time
// and liked items are kept.
func (c *Cache) Prune(retention time.Duration) (int64, error) {
	cutoff := c.now().Add(-retention).UnixMilli()
	res, err := c.writeDB.Exec(`
		DELETE FROM items
		WHERE (CASE WHEN published > 0 THEN published ELSE fetched_at END) < ?
		AND link NOT IN (SELECT link FROM likes)
	`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("pruning items: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if n > 0 {
		if _, err := c.writeDB.Exec("VACUUM"); err != nil {
			c.logger.Warn("vacuum failed", "err", err)
		}
	}
	return n, nil
}

// Stats reports the number of stored items and likes and the on-disk size
// of the database at dbPath, write-ahead log included.
func (c *Cache) Stats(dbPath string) (items, likes int, size int64, err error) {
	if err = c.readDB.QueryRow("SELECT COUNT(*) FROM items").Scan(&items); err != nil {
		return 0, 0, 0, fmt.Errorf("counting items: %w", err)
	}
	if err = c.readDB.QueryRow("SELECT COUNT(*) FROM likes").Scan(&likes); err != nil {
		return 0, 0, 0, fmt.Errorf("counting likes: %w", err)
	}
	info, err := os.Stat(dbPath)
	if err != nil {
		return 0, 0, 0, err
	}
	size = info.Size()
	if wal, err := os.Stat(dbPath + "-wal"); err == nil {
		size += wal.Size()
	}
	return items, likes, size, nil
}

func (c *Cache) getMeta(key string) (string, error) {
	var value string
	err := c.readDB.QueryRow("SELECT value FROM meta WHERE key = ?", key).Scan(&value)
	return value, err
}

func (c *Cache) setMeta(key, value string) error {
	_, err := c.writeDB.Exec(`
		INSERT INTO meta (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
