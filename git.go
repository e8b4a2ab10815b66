package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"go.uber.org/zap"
)

// isGitURL checks if the input string looks like a Git repository URL.
// Prioritizes .git suffix or git@ prefix.
func isGitURL(input string) bool {
	return strings.HasSuffix(input, ".git") ||
		strings.HasPrefix(input, "git@")
}

// cloneGitRepo clones a Git repository URL into a temporary directory and returns its path.
// The clone keeps full history so per-file git log works on it.
func cloneGitRepo(url string, logger *zap.Logger) (string, error) {
	tempDir, err := os.MkdirTemp("", "grabit-git-")
	if err != nil {
		return "", fmt.Errorf("failed to create temporary directory: %w", err)
	}

	logger.Info("cloning repository", zap.String("url", url), zap.String("dir", tempDir))

	_, err = git.PlainClone(tempDir, false, &git.CloneOptions{
		URL:           url,
		Progress:      os.Stderr,
		ReferenceName: plumbing.HEAD,
		SingleBranch:  true,
	})
	if err != nil {
		_ = os.RemoveAll(tempDir)
		return "", fmt.Errorf("failed to clone repository '%s': %w", url, err)
	}

	logger.Info("finished cloning", zap.String("url", url))
	return tempDir, nil
}
