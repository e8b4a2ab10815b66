package main

import (
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeRules(t *testing.T, fsys afero.Fs, root, contents string) {
	t.Helper()
	require.NoError(t, fsys.MkdirAll(root, 0755))
	require.NoError(t, afero.WriteFile(fsys, filepath.Join(root, rulesFileName), []byte(contents), 0644))
}

func TestLoadRules(t *testing.T) {
	t.Run("missing file yields defaults", func(t *testing.T) {
		fsys := afero.NewMemMapFs()
		require.NoError(t, fsys.MkdirAll("/proj", 0755))

		rules, err := loadRules(fsys, "/proj", nil)
		require.NoError(t, err)
		assert.Empty(t, rules.Patterns)
		assert.Equal(t, defaultPreamble, rules.Preamble)
		assert.Empty(t, rules.Source)
	})

	t.Run("exclude section compiles patterns", func(t *testing.T) {
		fsys := afero.NewMemMapFs()
		writeRules(t, fsys, "/proj", "## exclude\nbuild/\n.*\\.lock\n")

		rules, err := loadRules(fsys, "/proj", nil)
		require.NoError(t, err)
		assert.Len(t, rules.Patterns, 2)
		assert.Equal(t, "/proj/.grabit", rules.Source)
	})

	t.Run("message section overrides preamble", func(t *testing.T) {
		fsys := afero.NewMemMapFs()
		writeRules(t, fsys, "/proj", "## message\nYou are reviewing a Go CLI.\nBe concise.\n")

		rules, err := loadRules(fsys, "/proj", nil)
		require.NoError(t, err)
		assert.Equal(t, "You are reviewing a Go CLI.\nBe concise.\n\n", rules.Preamble)
	})

	t.Run("comments blank lines and unknown sections are skipped", func(t *testing.T) {
		fsys := afero.NewMemMapFs()
		writeRules(t, fsys, "/proj", `stray line before any section
## Exclude
// build output
build/

## notes
anything here is ignored
## MESSAGE
// not part of the message
Hello
`)

		rules, err := loadRules(fsys, "/proj", nil)
		require.NoError(t, err)
		require.Len(t, rules.Patterns, 1)
		assert.True(t, rules.Match("build/app"))
		assert.Equal(t, "Hello\n\n", rules.Preamble)
	})

	t.Run("empty message section keeps default preamble", func(t *testing.T) {
		fsys := afero.NewMemMapFs()
		writeRules(t, fsys, "/proj", "## message\n// only a comment\n")

		rules, err := loadRules(fsys, "/proj", nil)
		require.NoError(t, err)
		assert.Equal(t, defaultPreamble, rules.Preamble)
	})

	t.Run("invalid regex is fatal", func(t *testing.T) {
		fsys := afero.NewMemMapFs()
		writeRules(t, fsys, "/proj", "## exclude\nok/\n[unclosed\n")

		_, err := loadRules(fsys, "/proj", nil)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidPattern)
		assert.Contains(t, err.Error(), ".grabit:3")
	})
}

func TestIgnoreRuleSetMatch(t *testing.T) {
	compile := func(exprs ...string) *IgnoreRuleSet {
		rs := &IgnoreRuleSet{}
		for _, e := range exprs {
			p, err := compileAnchored(e)
			require.NoError(t, err)
			rs.Patterns = append(rs.Patterns, p)
		}
		return rs
	}

	tests := []struct {
		name     string
		patterns []string
		path     string
		want     bool
	}{
		{"prefix match", []string{"build/"}, "build/out.js", true},
		{"nested prefix match", []string{"build/"}, "build/sub/out.js", true},
		{"sibling not matched", []string{"build/"}, "build.txt", false},
		{"match elsewhere in path is not enough", []string{"build/"}, "src/build/out.js", false},
		{"regex wildcard", []string{`.*\.lock`}, "deps/yarn.lock", true},
		{"alternation is anchored as a whole", []string{"a|b"}, "xb", false},
		{"second pattern matches", []string{"docs/", "vendor/"}, "vendor/lib.go", true},
		{"no patterns", nil, "main.go", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, compile(tt.patterns...).Match(tt.path))
		})
	}

	t.Run("nil rule set matches nothing", func(t *testing.T) {
		var rs *IgnoreRuleSet
		assert.False(t, rs.Match("anything"))
	})
}
