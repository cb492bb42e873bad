package workspace

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/maruel/natural"
	"go.uber.org/zap"
)

// ErrNoStylesheet is returned when discovery finds nothing to work with
var ErrNoStylesheet = errors.New("no stylesheet found")

// Options controls discovery and writing
type Options struct {
	// Root is searched for fallback stylesheets and anchors site absolute
	// links ("/css/site.css"). Empty means the directory of the HTML file.
	Root string
	// Fallback lists file names searched for when the document links nothing
	Fallback []string
	// SkipUnchanged avoids rewriting files whose merged text is equivalent
	// to what is on disk
	SkipUnchanged bool
}

// Store finds, reads and writes stylesheets on the local file system
type Store struct {
	opts Options
	log  *zap.Logger
}

// New creates a new store
func New(opts Options, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{opts: opts, log: log.Named("workspace")}
}

// Discover returns the stylesheets in scope for an HTML file, in discovery
// order. links are the href values of the document's stylesheet links.
// Remote links are skipped, local ones are resolved against the directory of
// the HTML file. When none of them exists the root is searched for the
// configured fallback names.
func (s *Store) Discover(ctx context.Context, htmlPath string, links []string) ([]string, error) {
	dir := filepath.Dir(htmlPath)
	root := s.opts.Root
	if root == "" {
		root = dir
	}

	seen := make(map[string]bool)
	var found []string
	for _, href := range links {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		path, ok := localPath(href, dir, root)
		if !ok {
			s.log.Debug("Skipping remote stylesheet", zap.String("href", href))
			continue
		}
		if seen[path] {
			continue
		}
		seen[path] = true
		if info, err := os.Stat(path); err != nil || info.IsDir() {
			s.log.Warn("Linked stylesheet not found", zap.String("href", href), zap.String("path", path))
			continue
		}
		found = append(found, path)
	}
	if len(found) > 0 {
		return found, nil
	}

	found, err := s.searchFallback(ctx, root)
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, fmt.Errorf("%w for %s", ErrNoStylesheet, htmlPath)
	}
	s.log.Debug("Using fallback stylesheets", zap.Strings("files", found))
	return found, nil
}

// localPath turns a link href into a file path. Links with a scheme or a
// network path reference are not local.
func localPath(href, dir, root string) (string, bool) {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "//") {
		return "", false
	}
	u, err := url.Parse(href)
	if err != nil || u.Scheme != "" || u.Host != "" || u.Path == "" {
		return "", false
	}
	p := filepath.FromSlash(u.Path)
	if strings.HasPrefix(u.Path, "/") {
		return filepath.Clean(filepath.Join(root, p)), true
	}
	return filepath.Clean(filepath.Join(dir, p)), true
}

func (s *Store) searchFallback(ctx context.Context, root string) ([]string, error) {
	if len(s.opts.Fallback) == 0 {
		return nil, nil
	}
	names := make(map[string]bool, len(s.opts.Fallback))
	for _, n := range s.opts.Fallback {
		names[strings.ToLower(n)] = true
	}

	var found []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			s.log.Debug("Unable to walk", zap.String("path", path), zap.Error(err))
			if d != nil && d.IsDir() && path != root {
				return fs.SkipDir
			}
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && skipDir(d.Name()) {
				return fs.SkipDir
			}
			return nil
		}
		if names[strings.ToLower(d.Name())] {
			found = append(found, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search %s: %w", root, err)
	}
	sort.Sort(natural.StringSlice(found))
	return found, nil
}

func skipDir(name string) bool {
	return strings.HasPrefix(name, ".") || name == "node_modules" || name == "vendor"
}
