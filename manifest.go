package main

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// Manifest is the YAML summary written by --manifest.
type Manifest struct {
	Files   int            `yaml:"files"`
	Chars   int            `yaml:"chars"`
	Tokens  int            `yaml:"tokens"`
	Exact   *int           `yaml:"exact_tokens,omitempty"`
	Entries []ManifestFile `yaml:"entries"`
}

// ManifestFile describes one record of the document.
type ManifestFile struct {
	Path         string `yaml:"path"`
	Bytes        int64  `yaml:"bytes"`
	Size         string `yaml:"size"`
	Chars        int    `yaml:"chars"`
	Tokens       int    `yaml:"tokens"`
	Commits      int    `yaml:"commits"`
	LastAuthor   string `yaml:"last_author,omitempty"`
	LastModified string `yaml:"last_modified,omitempty"`
}

func buildManifest(doc ContextDocument) Manifest {
	m := Manifest{
		Files:   doc.Summary.TotalFiles,
		Chars:   doc.Summary.TotalChars,
		Tokens:  doc.Summary.TokenEstimate,
		Entries: make([]ManifestFile, 0, len(doc.Records)),
	}
	if doc.Summary.HasExactTokens {
		exact := doc.Summary.ExactTokens
		m.Exact = &exact
	}

	for _, r := range doc.Records {
		entry := ManifestFile{
			Path:       unixPath(r.Path),
			Bytes:      r.Size,
			Size:       humanize.Bytes(uint64(r.Size)),
			Chars:      r.CharCount,
			Tokens:     r.TokenCount,
			LastAuthor: r.LastAuthor,
		}
		if r.HasHistory() {
			entry.Commits = strings.Count(r.GitHistory, "\n") + 1
		}
		if !r.LastModified.IsZero() {
			entry.LastModified = r.LastModified.Format(gitDateLayout)
		}
		m.Entries = append(m.Entries, entry)
	}
	return m
}

// writeManifest writes the per-file metadata of doc as YAML.
func writeManifest(fsys afero.Fs, path string, doc ContextDocument) error {
	data, err := yaml.Marshal(buildManifest(doc))
	if err != nil {
		return fmt.Errorf("error encoding manifest: %w", err)
	}
	if err := afero.WriteFile(fsys, path, data, 0644); err != nil {
		return fmt.Errorf("error writing manifest %s: %w", path, err)
	}
	return nil
}
