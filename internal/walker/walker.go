package walker

import (
	"bufio"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gobwas/glob"
)

// Kind is what a discovered file will be ingested as.
type Kind int

const (
	KindOther Kind = iota
	KindPDF
	KindImage
)

func (k Kind) String() string {
	switch k {
	case KindPDF:
		return "pdf"
	case KindImage:
		return "image"
	default:
		return "other"
	}
}

// FileInfo holds metadata about a discovered file.
type FileInfo struct {
	Path    string
	RelPath string
	Size    int64
	Kind    Kind
	MIME    string
}

// IgnoreFile is read from the walk root when present.
const IgnoreFile = ".docsiftignore"

// defaultIgnores are used when no ignore file exists.
var defaultIgnores = []string{
	".git",
	".svn",
	".hg",
	"node_modules",
	"__pycache__",
	".idea",
	".vscode",
	".docsift",
	".*",
}

// Options narrows what Walk emits.
type Options struct {
	// Ignore adds patterns to those loaded from the ignore file.
	Ignore []string
	// Recursive descends into subdirectories.
	Recursive bool
	// MaxFileSize skips larger files; zero means no limit.
	MaxFileSize int64
}

// Walk traverses the tree rooted at root and sends every file on the
// returned channel, tagged with its kind as sniffed from its content.
// Files and directories matching ignore patterns are skipped.
func Walk(root string, opts Options) (<-chan FileInfo, <-chan error) {
	files := make(chan FileInfo, 64)
	errs := make(chan error, 1)

	go func() {
		defer close(files)
		defer close(errs)

		absRoot, err := filepath.Abs(root)
		if err != nil {
			errs <- err
			return
		}

		ignores := compilePatterns(append(loadIgnorePatterns(absRoot), opts.Ignore...))

		err = filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil // skip errors, keep walking
			}

			rel, _ := filepath.Rel(absRoot, path)
			rel = filepath.ToSlash(rel)

			if d.IsDir() {
				if path == absRoot {
					return nil
				}
				if !opts.Recursive || matchesIgnore(d.Name(), rel, ignores) {
					return filepath.SkipDir
				}
				return nil
			}

			if d.Type()&fs.ModeSymlink != 0 || d.Name() == IgnoreFile {
				return nil
			}
			if matchesIgnore(d.Name(), rel, ignores) {
				return nil
			}

			info, err := d.Info()
			if err != nil || info.Size() == 0 {
				return nil
			}
			if opts.MaxFileSize > 0 && info.Size() > opts.MaxFileSize {
				return nil
			}

			kind, mime := Detect(path)
			files <- FileInfo{
				Path:    path,
				RelPath: rel,
				Size:    info.Size(),
				Kind:    kind,
				MIME:    mime,
			}
			return nil
		})
		if err != nil {
			errs <- err
		}
	}()

	return files, errs
}

// Collect drains Walk into a slice, in walk order.
func Collect(root string, opts Options) ([]FileInfo, error) {
	fileCh, errCh := Walk(root, opts)
	var out []FileInfo
	for fi := range fileCh {
		out = append(out, fi)
	}
	if err := <-errCh; err != nil {
		return out, err
	}
	return out, nil
}

// Detect sniffs the file's content type.
func Detect(path string) (Kind, string) {
	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		return KindOther, "application/octet-stream"
	}
	switch {
	case mtype.Is("application/pdf"):
		return KindPDF, mtype.String()
	case strings.HasPrefix(mtype.String(), "image/"):
		return KindImage, mtype.String()
	default:
		return KindOther, mtype.String()
	}
}

// loadIgnorePatterns reads the ignore file from root, one pattern per line.
func loadIgnorePatterns(root string) []string {
	f, err := os.Open(filepath.Join(root, IgnoreFile))
	if err != nil {
		return defaultIgnores
	}
	defer f.Close()

	var patterns []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, line)
	}
	if len(patterns) == 0 {
		return defaultIgnores
	}
	return patterns
}

type pattern struct {
	raw string
	g   glob.Glob
}

// compilePatterns drops patterns that fail to compile.
func compilePatterns(raw []string) []pattern {
	out := make([]pattern, 0, len(raw))
	for _, p := range raw {
		g, err := glob.Compile(p, '/')
		if err != nil {
			continue
		}
		out = append(out, pattern{raw: p, g: g})
	}
	return out
}

// matchesIgnore checks a file or directory name and its slash-separated
// path relative to the root against the patterns.
func matchesIgnore(name, relPath string, patterns []pattern) bool {
	for _, p := range patterns {
		if name == p.raw || strings.HasPrefix(relPath, p.raw+"/") || relPath == p.raw {
			return true
		}
		if p.g.Match(relPath) || p.g.Match(name) {
			return true
		}
	}
	return false
}
