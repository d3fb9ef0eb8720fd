package scanner

import (
	"context"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/charlievieth/fastwalk"

	"github.com/kimifish/music2db-client/internal/config"
)

// CandidateFunc receives one candidate audio file: its root-relative
// slash-separated path and its full filesystem path. Returning an error
// aborts the walk; the walker itself only ever aborts on cancellation.
type CandidateFunc func(relPath, fullPath string) error

// Walker enumerates candidate audio files under the library root. Each
// scan does two passes: one to locate ignore markers, one to enumerate and
// filter candidates. Nothing is cached between scans.
type Walker struct {
	root       string
	extensions map[string]struct{}
	ignoreFile string
	logger     *slog.Logger
}

// NewWalker creates a Walker from the music configuration.
func NewWalker(cfg config.MusicConfig, logger *slog.Logger) *Walker {
	exts := make(map[string]struct{}, len(cfg.Extensions))
	for _, ext := range cfg.Extensions {
		exts[strings.ToLower(ext)] = struct{}{}
	}
	return &Walker{
		root:       cfg.Path,
		extensions: exts,
		ignoreFile: cfg.IgnoreFile,
		logger:     logger.With(slog.String("component", "walker")),
	}
}

// Walk calls fn for every candidate file under the root, in a stable
// lexical order. Candidates satisfy, in order: not a symlink (nor under a
// symlinked directory), extension member of the configured set, no
// ancestor directory holding an ignore marker. Per-entry errors are logged
// and skipped. Cancellation is checked before each candidate.
func (w *Walker) Walk(ctx context.Context, fn CandidateFunc) error {
	ignored := w.collectIgnoredDirs(ctx)
	if err := ctx.Err(); err != nil {
		return err
	}

	return filepath.WalkDir(w.root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			w.logger.Warn("accessing path", "path", path, "error", err)
			return nil
		}

		if entry.IsDir() {
			if _, skip := ignored[path]; skip {
				w.logger.Debug("skipping ignored directory", "path", path)
				return fs.SkipDir
			}
			return nil
		}

		// Symlinked files are never reported; WalkDir already refuses to
		// descend into symlinked directories.
		if entry.Type()&fs.ModeSymlink != 0 {
			return nil
		}

		ext := strings.ToLower(filepath.Ext(path))
		if _, ok := w.extensions[ext]; !ok {
			return nil
		}

		if err := ctx.Err(); err != nil {
			return err
		}

		rel, err := filepath.Rel(w.root, path)
		if err != nil {
			w.logger.Warn("resolving relative path", "path", path, "error", err)
			return nil
		}

		return fn(filepath.ToSlash(rel), path)
	})
}

// collectIgnoredDirs locates every directory containing an ignore marker
// file. The resulting set lives for one scan only.
func (w *Walker) collectIgnoredDirs(ctx context.Context) map[string]struct{} {
	ignored := make(map[string]struct{})
	var mu sync.Mutex

	conf := &fastwalk.Config{Follow: false}
	err := fastwalk.Walk(conf, w.root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			w.logger.Warn("accessing path", "path", path, "error", err)
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if entry.IsDir() || entry.Type()&fs.ModeSymlink != 0 {
			return nil
		}
		if filepath.Base(path) == w.ignoreFile {
			dir := filepath.Dir(path)
			mu.Lock()
			ignored[dir] = struct{}{}
			mu.Unlock()
			w.logger.Debug("ignoring directory", "path", dir)
		}
		return nil
	})
	if err != nil && ctx.Err() == nil {
		w.logger.Warn("collecting ignore markers", "root", w.root, "error", err)
	}

	return ignored
}
