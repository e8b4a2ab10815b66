package main

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
)

const noHistoryPlaceholder = "No git history available."

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
)

// assembleContext renders the records, in walk order, into a single document.
func assembleContext(records []FileRecord, preamble string) ContextDocument {
	var builder strings.Builder
	builder.WriteString(preamble)

	var totalSize int64
	for _, r := range records {
		writeFileSection(&builder, r)
		totalSize += r.Size
	}

	text := builder.String()
	chars := utf8.RuneCountInString(text)
	return ContextDocument{
		Text:     text,
		Preamble: preamble,
		Records:  records,
		Summary: Summary{
			TotalFiles:    len(records),
			TotalChars:    chars,
			TotalSize:     totalSize,
			TokenEstimate: chars / 4,
			PreambleChars: utf8.RuneCountInString(preamble),
		},
	}
}

func writeFileSection(builder *strings.Builder, r FileRecord) {
	history := r.GitHistory
	if !r.HasHistory() {
		history = noHistoryPlaceholder
	}

	builder.WriteString("## `")
	builder.WriteString(unixPath(r.Path))
	builder.WriteString("`:\n### Git History:\n")
	builder.WriteString(history)
	builder.WriteString("\n### Contents:\n```\n")
	builder.WriteString(r.Contents)
	builder.WriteString("\n```\n\n")
}

// unixPath normalizes separators to forward slashes regardless of host OS.
func unixPath(p string) string {
	return strings.ReplaceAll(p, "\\", "/")
}

// renderSummary produces the statistics block printed after every run.
func renderSummary(doc ContextDocument) string {
	var builder strings.Builder
	s := doc.Summary
	builder.WriteString(fmt.Sprintf("\nPrompt Size: %d Chars\n", s.TotalChars))
	builder.WriteString(fmt.Sprintf("Prompt Size: %d Tokens (Rough estimate).\n", s.TokenEstimate))
	if s.HasExactTokens {
		builder.WriteString(fmt.Sprintf("Prompt Size: %d Tokens (Tokenizer).\n", s.ExactTokens))
	}
	builder.WriteString(fmt.Sprintf("Extra: %d Chars (beyond the message)\n", s.TotalChars-s.PreambleChars))
	builder.WriteString(fmt.Sprintf("Total files: %d (%s)\n", s.TotalFiles, humanize.Bytes(uint64(s.TotalSize))))
	if s.TotalFiles > 0 {
		builder.WriteString(renderFileTable(doc.Records))
		builder.WriteString("\n")
	}
	return builder.String()
}

// renderFileTable lists each file with its size and last commit metadata.
func renderFileTable(records []FileRecord) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("File", "Size", "Tokens", "Last Author", "Last Modified").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})

	for _, r := range records {
		author, modified := "-", "-"
		if r.LastAuthor != "" {
			author = r.LastAuthor
		}
		if !r.LastModified.IsZero() {
			modified = r.LastModified.Format(gitDateLayout)
		}
		t.Row(
			unixPath(r.Path),
			humanize.Bytes(uint64(r.Size)),
			fmt.Sprintf("%d", r.TokenCount),
			author,
			modified,
		)
	}
	return t.Render()
}
