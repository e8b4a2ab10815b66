package main

import (
	"fmt"
	"io"

	"github.com/atotto/clipboard"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// Clipboard copies text to the system clipboard.
type Clipboard interface {
	WriteAll(text string) error
	// Unsupported reports that the host has no known clipboard utility.
	Unsupported() bool
}

type systemClipboard struct{}

func (systemClipboard) WriteAll(text string) error { return clipboard.WriteAll(text) }
func (systemClipboard) Unsupported() bool          { return clipboard.Unsupported }

// Destinations selects where the assembled document goes.
type Destinations struct {
	OutputPath   string
	Clipboard    bool
	PDFPath      string
	ManifestPath string
}

func (d Destinations) requested() bool {
	return d.OutputPath != "" || d.Clipboard || d.PDFPath != "" || d.ManifestPath != ""
}

// Dispatcher writes a ContextDocument to the requested sinks and always prints the summary.
type Dispatcher struct {
	fs        afero.Fs
	stdout    io.Writer
	clipboard Clipboard
	langs     *LoadedLanguageData
	logger    *zap.Logger
}

func newDispatcher(fsys afero.Fs, stdout io.Writer, cb Clipboard, langs *LoadedLanguageData, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cb == nil {
		cb = systemClipboard{}
	}
	return &Dispatcher{fs: fsys, stdout: stdout, clipboard: cb, langs: langs, logger: logger}
}

// Dispatch sends doc to every destination in dest. With no destination the document is printed.
// The summary is printed even when a sink fails; the first sink error is returned afterwards.
func (d *Dispatcher) Dispatch(doc ContextDocument, dest Destinations) error {
	err := d.writeSinks(doc, dest)
	fmt.Fprint(d.stdout, renderSummary(doc))
	return err
}

func (d *Dispatcher) writeSinks(doc ContextDocument, dest Destinations) error {
	if dest.OutputPath != "" {
		if err := afero.WriteFile(d.fs, dest.OutputPath, []byte(doc.Text), 0644); err != nil {
			return fmt.Errorf("error writing to file %s: %w", dest.OutputPath, err)
		}
		fmt.Fprintf(d.stdout, "Context saved to %s\n", dest.OutputPath)
	}

	if dest.Clipboard {
		if d.clipboard.Unsupported() {
			d.logger.Warn("no clipboard utility available on this platform, skipping copy")
		} else {
			if err := d.clipboard.WriteAll(doc.Text); err != nil {
				return fmt.Errorf("error writing to clipboard: %w", err)
			}
			fmt.Fprintln(d.stdout, "Context copied to clipboard.")
		}
	}

	if dest.ManifestPath != "" {
		if err := writeManifest(d.fs, dest.ManifestPath, doc); err != nil {
			return err
		}
		fmt.Fprintf(d.stdout, "Manifest saved to %s\n", dest.ManifestPath)
	}

	if dest.PDFPath != "" {
		if err := generatePDF(d.fs, doc, d.langs, dest.PDFPath, d.logger); err != nil {
			return err
		}
		fmt.Fprintf(d.stdout, "PDF saved to %s\n", dest.PDFPath)
	}

	if !dest.requested() {
		fmt.Fprintln(d.stdout, doc.Text)
		fmt.Fprintln(d.stdout, "\nUse the `-c` flag to copy this context to clipboard.")
		fmt.Fprintln(d.stdout, "Use the `-o <your-file-name>` flag to save it to a file.")
	}
	return nil
}
