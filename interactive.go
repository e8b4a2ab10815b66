package main

import (
	"errors"
	"fmt"

	"github.com/dustin/go-humanize"
	fuzzyfinder "github.com/ktr0731/go-fuzzyfinder"
)

// errSelectionAborted is returned when the user leaves the picker without confirming.
var errSelectionAborted = errors.New("selection aborted")

// selectRecords lets the user pick which walked files go into the document.
// The walk order of the picked records is preserved.
func selectRecords(records []FileRecord) ([]FileRecord, error) {
	if len(records) == 0 {
		return records, nil
	}

	idx, err := fuzzyfinder.FindMulti(
		records,
		func(i int) string {
			return unixPath(records[i].Path)
		},
		fuzzyfinder.WithPreviewWindow(func(i, w, h int) string {
			if i == -1 {
				return "Select files to include. Press Tab to multi-select, Enter to confirm."
			}
			r := records[i]
			author := r.LastAuthor
			if author == "" {
				author = "-"
			}
			return fmt.Sprintf("Path: %s\nSize: %s\nTokens: %d\nLast author: %s\n\n%s",
				unixPath(r.Path), humanize.Bytes(uint64(r.Size)), r.TokenCount, author, r.Contents)
		}),
	)
	if err != nil {
		if errors.Is(err, fuzzyfinder.ErrAbort) {
			return nil, errSelectionAborted
		}
		return nil, fmt.Errorf("fuzzy finder error: %w", err)
	}

	return pickInWalkOrder(records, idx), nil
}

// pickInWalkOrder returns the records at the chosen indices, ordered as in records.
func pickInWalkOrder(records []FileRecord, chosen []int) []FileRecord {
	keep := make(map[int]bool, len(chosen))
	for _, i := range chosen {
		keep[i] = true
	}
	picked := make([]FileRecord, 0, len(chosen))
	for i, r := range records {
		if keep[i] {
			picked = append(picked, r)
		}
	}
	return picked
}
