package main

import "time"

// FileRecord holds one accepted file from the walk.
type FileRecord struct {
	Path         string // As encountered: root joined with the relative path
	RelPath      string // Forward-slash path relative to the scan root, used for matching
	Contents     string // Decoded text, invalid UTF-8 dropped
	Size         int64  // Bytes on disk
	CharCount    int
	TokenCount   int // CharCount / 4
	GitHistory   string
	LastAuthor   string
	LastModified time.Time
}

// HasHistory reports whether git history was found for the file.
func (r FileRecord) HasHistory() bool {
	return r.GitHistory != ""
}

// ContextDocument is the assembled output plus its derived statistics.
type ContextDocument struct {
	Text     string
	Preamble string
	Records  []FileRecord
	Summary  Summary
}

// Summary holds aggregated information about the assembled document.
type Summary struct {
	TotalFiles     int
	TotalChars     int
	TotalSize      int64
	TokenEstimate  int // TotalChars / 4
	ExactTokens    int // Populated only when a tokenizer is configured
	PreambleChars  int
	HasExactTokens bool
}
