package main

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"go.uber.org/zap"
)

const (
	backendCLI   = "cli"
	backendGoGit = "go-git"
	backendNone  = "none"
)

// gitDateLayout matches `git log --date=short`.
const gitDateLayout = "2006-01-02"

// ErrNoHistory is returned when a file has no commits (untracked, outside a repository, or git is disabled).
var ErrNoHistory = errors.New("no git history")

// GitHistory is the version-control metadata attached to a FileRecord.
type GitHistory struct {
	History      string // One line per commit: "<hash> | <author> | <date> | <subject>"
	LastModified time.Time
	LastAuthor   string
}

// HistoryFetcher returns the commit history for a single file.
type HistoryFetcher interface {
	Fetch(ctx context.Context, path string) (*GitHistory, error)
}

// newHistoryFetcher returns the backend selected by name. The cli backend falls back to
// go-git when no git executable is on PATH.
func newHistoryFetcher(backend string, logger *zap.Logger) (HistoryFetcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch strings.ToLower(backend) {
	case "", backendCLI:
		gitPath, err := exec.LookPath("git")
		if err != nil {
			logger.Warn("git executable not found, using go-git for history", zap.Error(err))
			return newGoGitHistory(logger), nil
		}
		return &cliHistory{gitPath: gitPath, logger: logger}, nil
	case backendGoGit:
		return newGoGitHistory(logger), nil
	case backendNone:
		return noHistory{}, nil
	default:
		return nil, fmt.Errorf("unsupported git backend: %s. Use '%s', '%s' or '%s'", backend, backendCLI, backendGoGit, backendNone)
	}
}

// --- git CLI ---

type cliHistory struct {
	gitPath string
	logger  *zap.Logger
}

func (h *cliHistory) Fetch(ctx context.Context, path string) (*GitHistory, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	cmd := exec.CommandContext(ctx, h.gitPath,
		"log",
		"--follow",
		"--pretty=format:%h | %an | %ad | %s",
		"--date=short",
		"--",
		filepath.Base(abs),
	)
	cmd.Dir = filepath.Dir(abs)

	out, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			h.logger.Debug("error running git log",
				zap.String("path", path),
				zap.String("stderr", strings.TrimSpace(string(exitErr.Stderr))))
		}
		return nil, fmt.Errorf("git log %s failed: %w", path, err)
	}
	return parseGitLog(string(out))
}

// --- go-git ---

type goGitHistory struct {
	logger *zap.Logger
	repos  map[string]*openRepo // Keyed by the directory the lookup started from
}

type openRepo struct {
	repo *git.Repository
	root string
}

func newGoGitHistory(logger *zap.Logger) *goGitHistory {
	return &goGitHistory{logger: logger, repos: make(map[string]*openRepo)}
}

func (h *goGitHistory) Fetch(ctx context.Context, path string) (*GitHistory, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		abs = resolved
	}

	r, err := h.open(filepath.Dir(abs))
	if err != nil {
		return nil, err
	}

	rel, err := filepath.Rel(r.root, abs)
	if err != nil {
		return nil, err
	}
	rel = filepath.ToSlash(rel)

	iter, err := r.repo.Log(&git.LogOptions{FileName: &rel, Order: git.LogOrderCommitterTime})
	if err != nil {
		// An empty repository has no HEAD to log from.
		h.logger.Debug("go-git log failed", zap.String("path", path), zap.Error(err))
		return nil, ErrNoHistory
	}
	defer iter.Close()

	var lines []string
	err = iter.ForEach(func(c *object.Commit) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		lines = append(lines, formatLogLine(c))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking history of %s: %w", path, err)
	}
	return parseGitLog(strings.Join(lines, "\n"))
}

func (h *goGitHistory) open(dir string) (*openRepo, error) {
	if r, ok := h.repos[dir]; ok {
		if r == nil {
			return nil, ErrNoHistory
		}
		return r, nil
	}

	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		h.repos[dir] = nil
		h.logger.Debug("not a git repository", zap.String("dir", dir), zap.Error(err))
		return nil, ErrNoHistory
	}
	wt, err := repo.Worktree()
	if err != nil {
		h.repos[dir] = nil
		return nil, ErrNoHistory
	}

	root, err := filepath.EvalSymlinks(wt.Filesystem.Root())
	if err != nil {
		root = wt.Filesystem.Root()
	}
	r := &openRepo{repo: repo, root: root}
	h.repos[dir] = r
	return r, nil
}

// formatLogLine renders a commit the way `--pretty=format:%h | %an | %ad | %s --date=short` does.
func formatLogLine(c *object.Commit) string {
	subject, _, _ := strings.Cut(strings.TrimSpace(c.Message), "\n")
	return fmt.Sprintf("%s | %s | %s | %s",
		c.Hash.String()[:7],
		c.Author.Name,
		c.Author.When.Format(gitDateLayout),
		strings.TrimSpace(subject),
	)
}

// --- disabled ---

type noHistory struct{}

func (noHistory) Fetch(context.Context, string) (*GitHistory, error) {
	return nil, ErrNoHistory
}

// parseGitLog extracts the author and date of the most recent commit. The text is kept verbatim.
func parseGitLog(text string) (*GitHistory, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrNoHistory
	}

	first, _, _ := strings.Cut(text, "\n")
	fields := strings.Split(first, "|")
	if len(fields) < 3 {
		return nil, fmt.Errorf("unexpected git log line %q", first)
	}

	modified, err := time.Parse(gitDateLayout, strings.TrimSpace(fields[2]))
	if err != nil {
		return nil, fmt.Errorf("parsing commit date %q: %w", fields[2], err)
	}

	return &GitHistory{
		History:      text,
		LastModified: modified,
		LastAuthor:   strings.TrimSpace(fields[1]),
	}, nil
}
