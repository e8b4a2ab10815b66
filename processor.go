package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"unicode/utf8"

	gitignore "github.com/monochromegane/go-gitignore"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// ErrNotDirectory is returned when the scan root exists but is not a directory.
var ErrNotDirectory = errors.New("not a directory")

// Walker enumerates a directory tree and turns every accepted file into a FileRecord.
type Walker struct {
	fs        afero.Fs
	rules     *IgnoreRuleSet
	history   HistoryFetcher
	gitIgnore gitignore.IgnoreMatcher // nil unless the .gitignore layer is enabled
	logger    *zap.Logger

	// relativePaths reports records by their root-relative path, used for temporary clones.
	relativePaths bool

	// identity resolves a directory to the key used for cycle detection.
	identity func(dir string) string
}

func newWalker(fsys afero.Fs, rules *IgnoreRuleSet, history HistoryFetcher, logger *zap.Logger) *Walker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if history == nil {
		history = noHistory{}
	}

	w := &Walker{
		fs:       fsys,
		rules:    rules,
		history:  history,
		logger:   logger,
		identity: filepath.Clean,
	}
	if _, ok := fsys.(*afero.OsFs); ok {
		w.identity = resolveDir
	}
	return w
}

// resolveDir follows symlinks so that two routes to the same directory share one key.
func resolveDir(dir string) string {
	resolved, err := filepath.EvalSymlinks(dir)
	if err != nil {
		resolved = dir
	}
	if abs, err := filepath.Abs(resolved); err == nil {
		return abs
	}
	return filepath.Clean(resolved)
}

// useGitIgnore loads root/.gitignore as an extra exclusion layer. A missing file is not an error.
func (w *Walker) useGitIgnore(root string) error {
	gitIgnorePath := filepath.Join(root, ".gitignore")
	f, err := w.fs.Open(gitIgnorePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("error opening %s: %w", gitIgnorePath, err)
	}
	defer f.Close()

	w.gitIgnore = gitignore.NewGitIgnoreFromReader(root, f)
	w.logger.Info("using .gitignore", zap.String("path", gitIgnorePath))
	return nil
}

// pendingDir is a directory waiting on the work-list.
type pendingDir struct {
	rel string // Forward-slash path relative to the root, "" for the root itself
}

// Walk returns the accepted files under root. Files in a directory come before the
// contents of its subdirectories, and subdirectories are visited depth-first.
func (w *Walker) Walk(ctx context.Context, root string) ([]FileRecord, error) {
	info, err := w.fs.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("error accessing path %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s: %w", root, ErrNotDirectory)
	}

	records := []FileRecord{}
	visited := map[string]bool{w.identity(root): true}
	stack := []pendingDir{{rel: ""}}

	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		dirPath := w.fullPath(root, current.rel)

		entries, err := afero.ReadDir(w.fs, dirPath)
		if err != nil {
			if current.rel == "" {
				return nil, fmt.Errorf("error reading directory %s: %w", root, err)
			}
			w.logger.Warn("Skipping unreadable directory", zap.String("path", dirPath), zap.Error(err))
			continue
		}

		var subdirs []string
		for _, entry := range entries {
			rel := path.Join(current.rel, entry.Name())
			full := w.fullPath(root, rel)

			mode := entry.Mode()
			if mode&os.ModeSymlink != 0 {
				target, err := w.fs.Stat(full)
				if err != nil {
					w.logger.Warn("Skipping broken symlink", zap.String("path", full), zap.Error(err))
					continue
				}
				mode = target.Mode()
			}

			switch {
			case mode.IsDir():
				subdirs = append(subdirs, rel)
			case mode.IsRegular():
				if record, ok := w.visitFile(ctx, full, rel); ok {
					records = append(records, record)
				}
			}
		}

		// Pushed in reverse so the first subdirectory is popped next.
		for i := len(subdirs) - 1; i >= 0; i-- {
			rel := subdirs[i]
			full := w.fullPath(root, rel)
			if w.gitIgnore != nil && w.gitIgnore.Match(full, true) {
				w.logger.Info("Skipping ignored directory", zap.String("path", full))
				continue
			}
			id := w.identity(full)
			if visited[id] {
				w.logger.Warn("Skipping directory already visited", zap.String("path", full))
				continue
			}
			visited[id] = true
			stack = append(stack, pendingDir{rel: rel})
		}
	}

	return records, nil
}

// visitFile applies the exclusion rules, reads the file and attaches git history.
func (w *Walker) visitFile(ctx context.Context, full, rel string) (FileRecord, bool) {
	if w.rules.Match(rel) {
		w.logger.Info("Skipping ignored file", zap.String("path", full))
		return FileRecord{}, false
	}
	if w.gitIgnore != nil && w.gitIgnore.Match(full, false) {
		w.logger.Info("Skipping ignored file", zap.String("path", full), zap.String("source", ".gitignore"))
		return FileRecord{}, false
	}

	raw, err := afero.ReadFile(w.fs, full)
	if err != nil {
		w.logger.Warn("Skipping unreadable file", zap.String("path", full), zap.Error(err))
		return FileRecord{}, false
	}

	contents := decodeText(raw)
	chars := utf8.RuneCountInString(contents)
	display := full
	if w.relativePaths {
		display = rel
	}
	record := FileRecord{
		Path:       display,
		RelPath:    rel,
		Contents:   contents,
		Size:       int64(len(raw)),
		CharCount:  chars,
		TokenCount: chars / 4,
	}

	hist, err := w.history.Fetch(ctx, full)
	switch {
	case err == nil:
		record.GitHistory = hist.History
		record.LastAuthor = hist.LastAuthor
		record.LastModified = hist.LastModified
	case !errors.Is(err, ErrNoHistory):
		w.logger.Debug("git history unavailable", zap.String("path", full), zap.Error(err))
	}

	w.logger.Info("Found", zap.String("path", full))
	return record, true
}

// fullPath appends rel to root as typed, so "./proj/" yields "./proj/a.txt".
func (w *Walker) fullPath(root, rel string) string {
	if rel == "" {
		return root
	}
	if strings.HasSuffix(root, "/") || strings.HasSuffix(root, string(filepath.Separator)) {
		return root + filepath.FromSlash(rel)
	}
	return root + string(filepath.Separator) + filepath.FromSlash(rel)
}

// decodeText interprets raw bytes as UTF-8, dropping invalid sequences.
func decodeText(raw []byte) string {
	return strings.ToValidUTF8(string(raw), "")
}
