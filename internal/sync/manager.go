// Package sync reconciles a provider's remote emoji listing against
// the namespace cache: fetch, download whatever is missing or stale,
// then publish the full cache contents for the renderer.
package sync

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/sirupsen/logrus"

	"emojisync/internal/cache"
	"emojisync/internal/config"
	"emojisync/internal/download"
	"emojisync/internal/provider"
	"emojisync/internal/publish"
	"emojisync/pkg/models"
)

// Manager runs syncs for any number of providers, one at a time.
type Manager struct {
	cacheCfg   config.CacheConfig
	opts       config.Options
	publisher  publish.Publisher
	downloader *download.Downloader
	log        *logrus.Logger
}

// New creates a sync manager. The downloader inherits the size cap
// and timeout from opts.
func New(cacheCfg config.CacheConfig, opts config.Options, publisher publish.Publisher, log *logrus.Logger) *Manager {
	return &Manager{
		cacheCfg:   cacheCfg,
		opts:       opts,
		publisher:  publisher,
		downloader: download.New(opts.MaxSizeKB, opts.Timeout(), log),
		log:        log,
	}
}

// Sync fetches the provider's emoji set and brings the namespace cache
// up to date. Failures are collected in the result rather than
// returned: a fetch failure yields a single-error result with zero
// counts, and per-emoji failures never abort the loop. progress, when
// non-nil, is called immediately before each emoji is processed,
// including cache hits.
func (m *Manager) Sync(ctx context.Context, p provider.Provider, force bool, progress download.ProgressFunc) models.SyncResult {
	result := models.SyncResult{
		Provider:  p.Type(),
		Namespace: p.Namespace(),
	}
	log := m.log.WithFields(logrus.Fields{
		"provider":  p.Type(),
		"namespace": p.Namespace(),
	})

	c, err := cache.Open(m.cacheCfg, p.Namespace(), m.log)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("failed to open cache: %v", err))
		return result
	}
	defer c.Close()

	emojis, err := p.Fetch(ctx)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("fetch failed: %v", err))
		return result
	}
	result.Total = len(emojis)

	if force || m.cacheCfg.CleanOnBuild {
		removed, err := c.Clean()
		if err != nil {
			log.Warnf("cache clean failed: %v", err)
		} else if removed > 0 {
			log.Debugf("removed %d cached assets before sync", removed)
		}
	}

	names := make([]string, 0, len(emojis))
	for name := range emojis {
		names = append(names, name)
	}
	sort.Strings(names)

	for i, name := range names {
		emoji := emojis[name]
		if progress != nil {
			progress(name, i+1, len(names))
		}

		if !force && c.IsValid(emoji) {
			result.Cached++
			continue
		}

		if emoji.URL == "" {
			result.Skipped++
			result.Errors = append(result.Errors, fmt.Sprintf("%s: no source URL", name))
			continue
		}

		staged, size, err := m.downloader.Download(ctx, emoji)
		if err != nil {
			result.Skipped++
			result.Errors = append(result.Errors, err.Error())
			continue
		}
		emoji.SizeBytes = size

		err = c.Store(emoji, staged, size)
		os.Remove(staged)
		if err != nil {
			result.Skipped++
			result.Errors = append(result.Errors, fmt.Sprintf("%s: failed to store: %v", name, err))
			continue
		}
		result.Synced++
	}

	if err := m.publisher.Publish(ctx, p.Namespace(), c.Dir()); err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("publish failed: %v", err))
	}

	log.Infof("sync complete: %d synced, %d cached, %d skipped", result.Synced, result.Cached, result.Skipped)
	return result
}

// CleanNamespace removes every cached asset and every published asset
// for the namespace. Returns the number of cache files removed.
func (m *Manager) CleanNamespace(ctx context.Context, namespace string) (int, error) {
	c, err := cache.Open(m.cacheCfg, namespace, m.log)
	if err != nil {
		return 0, err
	}
	defer c.Close()

	removed, err := c.Clean()
	if err != nil {
		return removed, err
	}
	if err := m.publisher.Prune(ctx, namespace); err != nil {
		return removed, err
	}
	return removed, nil
}
