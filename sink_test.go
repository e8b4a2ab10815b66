package main

import (
	"bytes"
	"errors"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

type fakeClipboard struct {
	text        string
	writes      int
	unsupported bool
	err         error
}

func (c *fakeClipboard) WriteAll(text string) error {
	if c.err != nil {
		return c.err
	}
	c.text = text
	c.writes++
	return nil
}

func (c *fakeClipboard) Unsupported() bool { return c.unsupported }

func sampleDoc() ContextDocument {
	return assembleContext([]FileRecord{record("main.go", "package main\n\nfunc main() {}\n"), record("ünïcode.txt", "héllo")}, defaultPreamble)
}

func TestDispatchDefaultsToStdout(t *testing.T) {
	var out bytes.Buffer
	cb := &fakeClipboard{}
	doc := sampleDoc()

	require.NoError(t, newDispatcher(afero.NewMemMapFs(), &out, cb, nil, nil).Dispatch(doc, Destinations{}))

	assert.Contains(t, out.String(), doc.Text)
	assert.Contains(t, out.String(), "Use the `-c` flag")
	assert.Contains(t, out.String(), "Use the `-o <your-file-name>` flag")
	assert.Contains(t, out.String(), "Total files: 2")
	assert.Zero(t, cb.writes)
}

func TestDispatchFileAndClipboard(t *testing.T) {
	var out bytes.Buffer
	fsys := afero.NewMemMapFs()
	cb := &fakeClipboard{}
	doc := sampleDoc()

	err := newDispatcher(fsys, &out, cb, nil, nil).Dispatch(doc, Destinations{OutputPath: "/context.md", Clipboard: true})
	require.NoError(t, err)

	written, err := afero.ReadFile(fsys, "/context.md")
	require.NoError(t, err)
	assert.Equal(t, []byte(doc.Text), written)
	assert.Equal(t, doc.Text, cb.text)

	assert.Contains(t, out.String(), "Context saved to /context.md")
	assert.Contains(t, out.String(), "Context copied to clipboard.")
	assert.Contains(t, out.String(), "Total files: 2")
	assert.NotContains(t, out.String(), "package main", "document is not echoed when a sink is chosen")
}

func TestDispatchOverwritesOutputFile(t *testing.T) {
	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "/context.md", bytes.Repeat([]byte("old"), 1000), 0644))
	doc := sampleDoc()

	require.NoError(t, newDispatcher(fsys, &bytes.Buffer{}, &fakeClipboard{}, nil, nil).Dispatch(doc, Destinations{OutputPath: "/context.md"}))

	written, err := afero.ReadFile(fsys, "/context.md")
	require.NoError(t, err)
	assert.Equal(t, doc.Text, string(written))
}

func TestDispatchClipboardUnsupported(t *testing.T) {
	var out bytes.Buffer
	cb := &fakeClipboard{unsupported: true}

	err := newDispatcher(afero.NewMemMapFs(), &out, cb, nil, nil).Dispatch(sampleDoc(), Destinations{Clipboard: true})
	require.NoError(t, err)
	assert.Zero(t, cb.writes)
	assert.NotContains(t, out.String(), "copied to clipboard")
	assert.Contains(t, out.String(), "Total files: 2")
}

func TestDispatchClipboardFailure(t *testing.T) {
	var out bytes.Buffer
	fsys := afero.NewMemMapFs()
	cb := &fakeClipboard{err: errors.New("xclip exited 1")}

	err := newDispatcher(fsys, &out, cb, nil, nil).Dispatch(sampleDoc(), Destinations{OutputPath: "/o.md", Clipboard: true})
	assert.ErrorContains(t, err, "xclip exited 1")

	exists, statErr := afero.Exists(fsys, "/o.md")
	require.NoError(t, statErr)
	assert.True(t, exists)
	assert.Contains(t, out.String(), "Context saved to /o.md")
	assert.Contains(t, out.String(), "Total files: 2", "summary is printed even when a sink fails")
}

func TestDispatchManifest(t *testing.T) {
	fsys := afero.NewMemMapFs()
	var out bytes.Buffer

	err := newDispatcher(fsys, &out, &fakeClipboard{}, nil, nil).Dispatch(sampleDoc(), Destinations{ManifestPath: "/manifest.yaml"})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Manifest saved to /manifest.yaml")

	raw, err := afero.ReadFile(fsys, "/manifest.yaml")
	require.NoError(t, err)

	var m Manifest
	require.NoError(t, yaml.Unmarshal(raw, &m))
	assert.Equal(t, 2, m.Files)
	require.Len(t, m.Entries, 2)
	assert.Equal(t, "main.go", m.Entries[0].Path)
	assert.Equal(t, 0, m.Entries[0].Commits)
	assert.Nil(t, m.Exact)
}

func TestBuildManifestHistory(t *testing.T) {
	r := record("a.go", "package a")
	r.GitHistory = "1 | Ada | 2024-01-02 | two\n2 | Ada | 2024-01-01 | one"
	r.LastAuthor = "Ada"
	doc := assembleContext([]FileRecord{r}, "P")
	doc.Summary.ExactTokens, doc.Summary.HasExactTokens = 7, true

	m := buildManifest(doc)
	assert.Equal(t, 2, m.Entries[0].Commits)
	assert.Equal(t, "Ada", m.Entries[0].LastAuthor)
	require.NotNil(t, m.Exact)
	assert.Equal(t, 7, *m.Exact)
}

func TestDispatchPDF(t *testing.T) {
	fsys := afero.NewMemMapFs()
	var out bytes.Buffer

	err := newDispatcher(fsys, &out, &fakeClipboard{}, nil, nil).Dispatch(sampleDoc(), Destinations{PDFPath: "/context.pdf"})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "PDF saved to /context.pdf")

	raw, err := afero.ReadFile(fsys, "/context.pdf")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(raw, []byte("%PDF-")))
}

// closeFailFs hands out files whose Close always fails.
type closeFailFs struct{ afero.Fs }

type closeFailFile struct{ afero.File }

func (closeFailFile) Close() error { return errors.New("disk full") }

func (f closeFailFs) Create(name string) (afero.File, error) {
	file, err := f.Fs.Create(name)
	if err != nil {
		return nil, err
	}
	return closeFailFile{file}, nil
}

func TestGeneratePDFReportsCloseError(t *testing.T) {
	err := generatePDF(closeFailFs{afero.NewMemMapFs()}, sampleDoc(), nil, "/context.pdf", nil)
	assert.ErrorContains(t, err, "disk full")
}
