package walker

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// minimal bytes that content sniffing recognises.
var (
	pdfBytes = []byte("%PDF-1.4\n%\xe2\xe3\xcf\xd3\n1 0 obj\n<<>>\nendobj\n")
	pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")
)

func write(t *testing.T, root, rel string, data []byte) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, data, 0o644))
}

func relPaths(files []FileInfo) []string {
	out := make([]string, len(files))
	for i, f := range files {
		out[i] = f.RelPath
	}
	return out
}

func TestCollect_DetectsKindsByContent(t *testing.T) {
	root := t.TempDir()
	write(t, root, "a.pdf", pdfBytes)
	write(t, root, "scan.dat", pngBytes)
	write(t, root, "notes.txt", []byte("hello"))
	write(t, root, "empty.pdf", nil)

	files, err := Collect(root, Options{Recursive: true})
	require.NoError(t, err)

	kinds := map[string]Kind{}
	for _, f := range files {
		kinds[f.RelPath] = f.Kind
	}
	assert.Equal(t, map[string]Kind{
		"a.pdf":     KindPDF,
		"scan.dat":  KindImage,
		"notes.txt": KindOther,
	}, kinds)
}

func TestCollect_DefaultIgnores(t *testing.T) {
	root := t.TempDir()
	write(t, root, "a.pdf", pdfBytes)
	write(t, root, ".git/objects/b.pdf", pdfBytes)
	write(t, root, "node_modules/pkg/c.pdf", pdfBytes)
	write(t, root, ".hidden.pdf", pdfBytes)
	write(t, root, "CV/d.pdf", pdfBytes)

	files, err := Collect(root, Options{Recursive: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"CV/d.pdf", "a.pdf"}, relPaths(files))
}

func TestCollect_IgnoreFileGlobs(t *testing.T) {
	root := t.TempDir()
	write(t, root, IgnoreFile, []byte("# skip drafts\ndrafts\n*.tmp.pdf\narchive/**\n"))
	write(t, root, "keep.pdf", pdfBytes)
	write(t, root, "x.tmp.pdf", pdfBytes)
	write(t, root, "drafts/y.pdf", pdfBytes)
	write(t, root, "archive/2020/z.pdf", pdfBytes)

	files, err := Collect(root, Options{Recursive: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"keep.pdf"}, relPaths(files))
}

func TestCollect_NonRecursive(t *testing.T) {
	root := t.TempDir()
	write(t, root, "top.png", pngBytes)
	write(t, root, "sub/deep.png", pngBytes)

	files, err := Collect(root, Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"top.png"}, relPaths(files))
}

func TestCollect_ExtraPatternsAndSizeLimit(t *testing.T) {
	root := t.TempDir()
	write(t, root, "a.pdf", pdfBytes)
	write(t, root, "b.pdf", pdfBytes)
	write(t, root, "big.png", append(append([]byte{}, pngBytes...), make([]byte, 4096)...))

	files, err := Collect(root, Options{Recursive: true, Ignore: []string{"b.*"}, MaxFileSize: 1024})
	require.NoError(t, err)
	assert.Equal(t, []string{"a.pdf"}, relPaths(files))
}
