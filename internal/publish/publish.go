// Package publish copies a namespace's cached emoji assets to where
// the renderer reads them: a local asset directory, or an
// S3-compatible bucket for remotely hosted docs.
package publish

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"emojisync/pkg/utils"
)

// Publisher receives the full cached asset set for a namespace after
// every sync.
type Publisher interface {
	// Publish copies every asset file in dir into the target under
	// the namespace, preserving filenames. Dotfiles (cache metadata)
	// are skipped.
	Publish(ctx context.Context, namespace, dir string) error

	// Prune removes everything published under the namespace.
	Prune(ctx context.Context, namespace string) error
}

// DirPublisher publishes into a local directory tree,
// <root>/<namespace>/<file>.
type DirPublisher struct {
	root string
	log  *logrus.Entry
}

// NewDir builds a publisher rooted at the renderer's asset directory.
func NewDir(root string, log *logrus.Logger) *DirPublisher {
	return &DirPublisher{
		root: root,
		log:  log.WithField("component", "publish"),
	}
}

// Root returns the publish root directory.
func (p *DirPublisher) Root() string {
	return p.root
}

func (p *DirPublisher) Publish(ctx context.Context, namespace, dir string) error {
	destDir := filepath.Join(p.root, namespace)
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return err
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}

	published := 0
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}
		if err := utils.CopyFile(filepath.Join(dir, name), filepath.Join(destDir, name)); err != nil {
			return err
		}
		published++
	}

	p.log.Debugf("published %d assets to %s", published, destDir)
	return nil
}

func (p *DirPublisher) Prune(ctx context.Context, namespace string) error {
	return os.RemoveAll(filepath.Join(p.root, namespace))
}
