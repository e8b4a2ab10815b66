package main

import (
	"fmt"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/jung-kurt/gofpdf"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

const (
	pdfPageWidth  = 210 // A4 width in mm
	pdfMargin     = 10  // Margin in mm
	pdfLineHeight = 5.0 // Line height in mm
	pdfFontSize   = 9
	pdfTabWidth   = 4 // Number of spaces for a tab
	pdfTextWidth  = pdfPageWidth - 2*pdfMargin
)

// generatePDF renders doc as an A4 PDF: preamble, one page per file with its git
// history and syntax-highlighted contents, then the summary.
func generatePDF(fsys afero.Fs, doc ContextDocument, langs *LoadedLanguageData, outputPath string, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pdfMargin, pdfMargin, pdfMargin)
	pdf.SetAutoPageBreak(true, pdfMargin)
	tr := pdf.UnicodeTranslatorFromDescriptor("") // core fonts are cp1252
	pdf.AddPage()

	style := styles.Get("github")
	if style == nil {
		style = styles.Fallback
	}

	pdf.SetFont("Helvetica", "", pdfFontSize+1)
	pdf.MultiCell(pdfTextWidth, pdfLineHeight, tr(strings.TrimSpace(doc.Preamble)), "", "L", false)

	for _, r := range doc.Records {
		pdf.AddPage()

		pdf.SetFont("Helvetica", "B", pdfFontSize+1)
		pdf.SetTextColor(0, 0, 0)
		pdf.MultiCell(pdfTextWidth, pdfLineHeight, tr(unixPath(r.Path)), "", "L", false)
		pdf.Ln(pdfLineHeight / 2)

		history := r.GitHistory
		if !r.HasHistory() {
			history = noHistoryPlaceholder
		}
		pdf.SetFont("Helvetica", "", pdfFontSize-1)
		pdf.SetTextColor(90, 90, 90)
		pdf.MultiCell(pdfTextWidth, pdfLineHeight-1, tr(history), "", "L", false)
		pdf.Ln(pdfLineHeight / 2)

		pdf.Line(pdfMargin, pdf.GetY(), pdfPageWidth-pdfMargin, pdf.GetY())
		pdf.Ln(pdfLineHeight / 2)

		if err := writeHighlightedCode(pdf, tr, style, r.Contents, r.Path, langs); err != nil {
			logger.Warn("syntax highlighting failed, writing plain text", zap.String("path", r.Path), zap.Error(err))
			pdf.SetFont("Courier", "", pdfFontSize)
			pdf.SetTextColor(0, 0, 0)
			pdf.MultiCell(pdfTextWidth, pdfLineHeight, tr(r.Contents), "", "L", false)
		}
	}

	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", pdfFontSize+1)
	pdf.SetTextColor(0, 0, 0)
	pdf.MultiCell(pdfTextWidth, pdfLineHeight, "Summary", "", "L", false)
	pdf.Ln(pdfLineHeight / 2)
	pdf.SetFont("Helvetica", "", pdfFontSize)
	s := doc.Summary
	summary := fmt.Sprintf("Total files: %d\nPrompt size: %d chars\nPrompt size: %d tokens (rough estimate)",
		s.TotalFiles, s.TotalChars, s.TokenEstimate)
	if s.HasExactTokens {
		summary += fmt.Sprintf("\nPrompt size: %d tokens (tokenizer)", s.ExactTokens)
	}
	pdf.MultiCell(pdfTextWidth, pdfLineHeight, summary, "", "L", false)

	f, err := fsys.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create PDF %s: %w", outputPath, err)
	}
	if err := pdf.Output(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to save PDF to %s: %w", outputPath, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close PDF %s: %w", outputPath, err)
	}
	return nil
}

// pickLexer prefers chroma's filename match, then languages.yml, then content analysis.
func pickLexer(codeContent, filePath string, langs *LoadedLanguageData) chroma.Lexer {
	lexer := lexers.Match(filePath)
	if lexer == nil {
		if lang, ok := langs.GetLanguageForFile(filePath); ok {
			lexer = lexers.Get(lang)
		}
	}
	if lexer == nil {
		lexer = lexers.Analyse(codeContent)
	}
	if lexer == nil {
		lexer = lexers.Fallback
	}
	return chroma.Coalesce(lexer)
}

// writeHighlightedCode writes codeContent token by token using the colors of style.
func writeHighlightedCode(pdf *gofpdf.Fpdf, tr func(string) string, style *chroma.Style, codeContent, filePath string, langs *LoadedLanguageData) error {
	iterator, err := pickLexer(codeContent, filePath, langs).Tokenise(nil, codeContent)
	if err != nil {
		return fmt.Errorf("tokenization failed: %w", err)
	}

	pdf.SetFont("Courier", "", pdfFontSize)
	for token := iterator(); token != chroma.EOF; token = iterator() {
		entry := style.Get(token.Type)
		fontStyle := ""
		if entry.Bold == chroma.Yes {
			fontStyle += "B"
		}
		if entry.Italic == chroma.Yes {
			fontStyle += "I"
		}
		pdf.SetFontStyle(fontStyle)

		colour := entry.Colour
		if !colour.IsSet() {
			colour = style.Get(chroma.Text).Colour
		}
		if colour.IsSet() {
			pdf.SetTextColor(int(colour.Red()), int(colour.Green()), int(colour.Blue()))
		} else {
			pdf.SetTextColor(0, 0, 0)
		}

		value := strings.ReplaceAll(token.Value, "\t", strings.Repeat(" ", pdfTabWidth))
		pdf.Write(pdfLineHeight, tr(value))
	}
	pdf.Ln(-1)
	return pdf.Error()
}
