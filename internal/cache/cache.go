// Package cache stores downloaded emoji images on disk, one directory
// per namespace, with per-emoji metadata rows in a SQLite file kept
// beside the images. Freshness is TTL-based: an entry is only served
// from cache while its row, its file, and its timestamp all check out.
//
// A cache directory supports one process at a time; concurrent
// invocations against the same directory are unsupported.
package cache

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"

	"emojisync/internal/config"
	"emojisync/pkg/models"
	"emojisync/pkg/utils"
)

// metadataFile is dot-prefixed so directory scans that skip dotfiles
// never count it (or SQLite's journal side files) as a cached asset.
const metadataFile = ".metadata.db"

// Cache is the on-disk emoji store for one namespace.
type Cache struct {
	db        *sql.DB
	dir       string
	namespace string
	ttl       time.Duration
	log       *logrus.Entry
}

// Open creates or opens the cache for a namespace under the configured
// root directory. Corrupt metadata is discarded with a warning and the
// cache starts from an empty table; corruption never fails a sync.
func Open(cfg config.CacheConfig, namespace string, log *logrus.Logger) (*Cache, error) {
	dir := filepath.Join(cfg.Directory, namespace)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %v", err)
	}

	entry := log.WithField("component", "cache").WithField("namespace", namespace)

	dbPath := filepath.Join(dir, metadataFile)
	db, err := openMetadata(dbPath)
	if err != nil {
		entry.Warnf("corrupt or unreadable cache metadata, starting fresh: %v", err)
		os.Remove(dbPath)
		db, err = openMetadata(dbPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize cache metadata: %v", err)
		}
	}

	return &Cache{
		db:        db,
		dir:       dir,
		namespace: namespace,
		ttl:       cfg.TTL(),
		log:       entry,
	}, nil
}

func openMetadata(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS emojis (
			name TEXT PRIMARY KEY,
			url TEXT,
			format TEXT,
			size_bytes INTEGER,
			cached_at DATETIME
		);
		PRAGMA synchronous=NORMAL;
	`)
	if err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

// Close releases the metadata store.
func (c *Cache) Close() error {
	return c.db.Close()
}

// Dir returns the namespace's cache directory.
func (c *Cache) Dir() string {
	return c.dir
}

// Namespace returns the namespace this cache is scoped to.
func (c *Cache) Namespace() string {
	return c.namespace
}

// PathFor returns the deterministic on-disk path for an emoji. The
// extension precedence is: explicit format, then the URL's path
// suffix, then png. PathFor has no side effects, so lookups and stores
// always agree on the location.
func (c *Cache) PathFor(emoji models.Emoji) string {
	return filepath.Join(c.dir, emoji.Name+"."+string(extensionFor(emoji)))
}

func extensionFor(emoji models.Emoji) models.Format {
	if emoji.Format != "" {
		return emoji.Format
	}
	if f := models.FormatFromURL(emoji.URL); f != "" {
		return f
	}
	return models.DefaultFormat
}

// IsValid reports whether the emoji can be served from cache: its
// metadata row exists, its file is on disk at the expected path, its
// timestamp is present, and it is younger than the TTL.
func (c *Cache) IsValid(emoji models.Emoji) bool {
	var cachedAt sql.NullTime
	err := c.db.QueryRow(`SELECT cached_at FROM emojis WHERE name = ?`, emoji.Name).Scan(&cachedAt)
	if err != nil {
		return false
	}

	if _, err := os.Stat(c.PathFor(emoji)); err != nil {
		return false
	}

	if !cachedAt.Valid {
		return false
	}

	return time.Since(cachedAt.Time) < c.ttl
}

// Store copies a staged download into the cache and persists its
// metadata row, overwriting any prior entry for the same name.
func (c *Cache) Store(emoji models.Emoji, stagedPath string, size int64) error {
	dest := c.PathFor(emoji)
	if err := utils.CopyFile(stagedPath, dest); err != nil {
		return fmt.Errorf("failed to store %s: %v", emoji.Name, err)
	}

	_, err := c.db.Exec(`
		INSERT OR REPLACE INTO emojis (name, url, format, size_bytes, cached_at)
		VALUES (?, ?, ?, ?, ?)
	`, emoji.Name, emoji.URL, string(emoji.Format), size, time.Now())
	if err != nil {
		return fmt.Errorf("failed to save metadata for %s: %v", emoji.Name, err)
	}

	return nil
}

// Clean removes every cached asset file in the namespace and clears
// all metadata rows. The metadata store file itself stays in place.
// Returns the number of files removed.
func (c *Cache) Clean() (int, error) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		if err := os.Remove(filepath.Join(c.dir, entry.Name())); err != nil {
			return count, err
		}
		count++
	}

	if _, err := c.db.Exec(`DELETE FROM emojis`); err != nil {
		return count, err
	}

	return count, nil
}

// Entries lists the metadata rows, keyed by emoji name. Rows stored
// without a timestamp map to the zero time.
func (c *Cache) Entries() (map[string]time.Time, error) {
	rows, err := c.db.Query(`SELECT name, cached_at FROM emojis`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make(map[string]time.Time)
	for rows.Next() {
		var name string
		var cachedAt sql.NullTime
		if err := rows.Scan(&name, &cachedAt); err != nil {
			return nil, err
		}
		entries[name] = cachedAt.Time
	}

	return entries, rows.Err()
}

// SweepStale removes entries whose timestamp is missing or older than
// the TTL: the asset file (matched by base name, whatever its
// extension) and the metadata row. Returns the number of files removed.
func (c *Cache) SweepStale() (int, error) {
	entries, err := c.Entries()
	if err != nil {
		return 0, err
	}

	now := time.Now()
	var stale []string
	for name, cachedAt := range entries {
		if cachedAt.IsZero() || now.Sub(cachedAt) >= c.ttl {
			stale = append(stale, name)
		}
	}

	if len(stale) == 0 {
		return 0, nil
	}

	count := 0
	for _, name := range stale {
		removed, err := c.removeAsset(name)
		if err != nil {
			return count, err
		}
		if removed {
			count++
		}
	}

	tx, err := c.db.Begin()
	if err != nil {
		return count, err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`DELETE FROM emojis WHERE name = ?`)
	if err != nil {
		return count, err
	}
	defer stmt.Close()

	for _, name := range stale {
		if _, err := stmt.Exec(name); err != nil {
			return count, err
		}
	}

	return count, tx.Commit()
}

// removeAsset deletes the cached file whose base name matches the
// emoji name, regardless of extension.
func (c *Cache) removeAsset(name string) (bool, error) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return false, err
	}

	for _, entry := range entries {
		fname := entry.Name()
		if entry.IsDir() || strings.HasPrefix(fname, ".") {
			continue
		}
		if strings.TrimSuffix(fname, filepath.Ext(fname)) == name {
			if err := os.Remove(filepath.Join(c.dir, fname)); err != nil {
				return false, err
			}
			return true, nil
		}
	}

	return false, nil
}

// Stats reports the cached file count and total size, excluding the
// metadata store file.
func (c *Cache) Stats() (models.CacheStats, error) {
	stats := models.CacheStats{
		Namespace: c.namespace,
		Directory: c.dir,
	}

	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return stats, err
	}

	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			return stats, err
		}
		stats.FileCount++
		stats.TotalBytes += info.Size()
	}

	return stats, nil
}
