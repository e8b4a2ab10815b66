package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// rulesFileName is the per-project configuration file read from the scan root.
const rulesFileName = ".grabit"

const defaultPreamble = "Below is a list of related files, their contents and git history.\n\n"

const (
	sectionExclude = "exclude"
	sectionMessage = "message"
)

// ErrInvalidPattern is returned when an exclude line is not a valid regular expression.
var ErrInvalidPattern = errors.New("invalid exclude pattern")

// IgnoreRuleSet holds the compiled exclusions and the preamble for one run.
type IgnoreRuleSet struct {
	Patterns []*regexp.Regexp
	Preamble string
	Source   string // Path of the .grabit file, empty when none was found
}

// Match reports whether any pattern matches at the start of path.
func (rs *IgnoreRuleSet) Match(path string) bool {
	if rs == nil {
		return false
	}
	for _, p := range rs.Patterns {
		if p.MatchString(path) {
			return true
		}
	}
	return false
}

// loadRules reads root/.grabit. A missing file yields no patterns and the default preamble.
func loadRules(fsys afero.Fs, root string, logger *zap.Logger) (*IgnoreRuleSet, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	rules := &IgnoreRuleSet{Preamble: defaultPreamble}
	rulesPath := filepath.Join(root, rulesFileName)

	f, err := fsys.Open(rulesPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return rules, nil
		}
		return nil, fmt.Errorf("error opening %s: %w", rulesPath, err)
	}
	defer f.Close()

	logger.Info("found .grabit", zap.String("path", rulesPath))
	rules.Source = rulesPath

	var (
		section      string
		messageLines []string
		lineNo       int
	)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if strings.HasPrefix(line, "## ") {
			section = strings.ToLower(strings.TrimSpace(line[3:]))
			continue
		}
		if line == "" || strings.HasPrefix(line, "//") {
			continue
		}

		switch section {
		case sectionExclude:
			p, err := compileAnchored(line)
			if err != nil {
				return nil, fmt.Errorf("%w at %s:%d: %v", ErrInvalidPattern, rulesPath, lineNo, err)
			}
			rules.Patterns = append(rules.Patterns, p)
		case sectionMessage:
			messageLines = append(messageLines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading %s: %w", rulesPath, err)
	}

	if len(messageLines) > 0 {
		rules.Preamble = strings.Join(messageLines, "\n") + "\n\n"
	}

	patterns := make([]string, 0, len(rules.Patterns))
	for _, p := range rules.Patterns {
		patterns = append(patterns, p.String())
	}
	logger.Info("ignore patterns", zap.String("source", rules.Source), zap.Strings("patterns", patterns))
	return rules, nil
}

// compileAnchored compiles expr so it only matches at the start of the input.
func compileAnchored(expr string) (*regexp.Regexp, error) {
	return regexp.Compile(`^(?:` + expr + `)`)
}
