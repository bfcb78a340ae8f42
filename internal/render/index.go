// Package render maps published emoji assets to markdown output: an
// Index resolves shortcode names to asset paths, and Extension hooks
// the lookup into a goldmark pipeline so `:name:` becomes an img tag.
package render

import (
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"emojisync/internal/config"
)

// Index maps shortcode names to asset src paths. Build one per render
// pass; nothing is shared across builds.
type Index struct {
	paths map[string]string
}

// BuildIndex scans <publishDir>/<namespace>/<file> and registers each
// asset under its prefixed name plus, unless requirePrefix, its bare
// name. Namespaces are scanned in sorted order and the first
// registration of a name wins. basePath is prepended to every src
// path. A missing publishDir yields an empty index, not an error.
func BuildIndex(publishDir, basePath, prefixFormat string, requirePrefix bool, log *logrus.Logger) (*Index, error) {
	idx := &Index{paths: make(map[string]string)}
	entry := log.WithField("component", "render")

	dirEntries, err := os.ReadDir(publishDir)
	if err != nil {
		if os.IsNotExist(err) {
			return idx, nil
		}
		return nil, err
	}

	namespaces := make([]string, 0, len(dirEntries))
	for _, e := range dirEntries {
		if e.IsDir() && !strings.HasPrefix(e.Name(), ".") {
			namespaces = append(namespaces, e.Name())
		}
	}
	sort.Strings(namespaces)

	for _, namespace := range namespaces {
		assets, err := os.ReadDir(filepath.Join(publishDir, namespace))
		if err != nil {
			return nil, err
		}
		for _, asset := range assets {
			fname := asset.Name()
			if asset.IsDir() || strings.HasPrefix(fname, ".") {
				continue
			}
			name := strings.TrimSuffix(fname, filepath.Ext(fname))
			src := srcPath(basePath, namespace, fname)
			idx.register(config.FormatName(prefixFormat, namespace, name), src, entry)
			if !requirePrefix {
				idx.register(name, src, entry)
			}
		}
	}

	entry.Debugf("indexed %d shortcodes from %s", len(idx.paths), publishDir)
	return idx, nil
}

// Lookup returns the src path registered for the shortcode name.
func (idx *Index) Lookup(name string) (string, bool) {
	src, ok := idx.paths[name]
	return src, ok
}

// Len returns the number of registered shortcode names.
func (idx *Index) Len() int {
	return len(idx.paths)
}

// Names returns every registered shortcode name, sorted.
func (idx *Index) Names() []string {
	names := make([]string, 0, len(idx.paths))
	for name := range idx.paths {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (idx *Index) register(name, src string, log *logrus.Entry) {
	if existing, ok := idx.paths[name]; ok {
		if existing != src {
			log.Debugf("shortcode %s already mapped to %s, keeping it", name, existing)
		}
		return
	}
	idx.paths[name] = src
}

func srcPath(basePath, namespace, fname string) string {
	rel := path.Join(namespace, fname)
	if basePath == "" {
		return rel
	}
	return strings.TrimSuffix(basePath, "/") + "/" + rel
}
