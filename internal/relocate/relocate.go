// Package relocate moves classified files into per-topic folders.
package relocate

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"docsift/internal/domain"
)

// SamePath reports whether a and b name the same location, comparing the
// absolute forms case-insensitively.
func SamePath(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return strings.EqualFold(filepath.Clean(a), filepath.Clean(b))
	}
	return strings.EqualFold(absA, absB)
}

// Move places src at destDir/filename and returns the final path. When the
// destination already is src, nothing happens and src is returned. A
// different file already at the destination is left alone and Move fails.
// Failures wrap ErrRelocation and return src.
func Move(src, destDir, filename string) (string, error) {
	if filename == "" {
		filename = filepath.Base(src)
	}
	dest := filepath.Join(destDir, filename)
	if SamePath(src, dest) {
		return src, nil
	}

	if _, err := os.Lstat(dest); err == nil {
		return src, fmt.Errorf("%w: %s already exists", domain.ErrRelocation, dest)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return src, fmt.Errorf("%w: stat %s: %v", domain.ErrRelocation, dest, err)
	}

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return src, fmt.Errorf("%w: create %s: %v", domain.ErrRelocation, destDir, err)
	}

	err := os.Rename(src, dest)
	if err == nil {
		return dest, nil
	}
	// Rename cannot cross filesystems; fall back to copy and remove.
	if !errors.Is(err, syscall.EXDEV) {
		return src, fmt.Errorf("%w: move %s to %s: %v", domain.ErrRelocation, src, dest, err)
	}
	if err := copyFile(src, dest); err != nil {
		return src, fmt.Errorf("%w: copy %s to %s: %v", domain.ErrRelocation, src, dest, err)
	}
	if err := os.Remove(src); err != nil {
		return dest, fmt.Errorf("%w: remove %s after copy: %v", domain.ErrRelocation, src, err)
	}
	return dest, nil
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}
	out, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_EXCL, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dest)
		return err
	}
	return out.Close()
}
