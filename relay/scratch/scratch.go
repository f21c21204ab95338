// Package scratch stages submitted documents on local disk between the
// download from Telegram and the re-upload into the admin channel.
package scratch

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Dir is a scratch directory created lazily on first use. Stored names are
// prefixed with the user ID and a generated token so two users submitting
// files with the same name can never clobber each other.
type Dir struct {
	path string
}

// New returns a scratch directory rooted at path. The directory itself is
// created on the first Save.
func New(path string) *Dir {
	return &Dir{path: path}
}

// Path returns the configured scratch directory path.
func (d *Dir) Path() string {
	return d.path
}

// Save streams r into the scratch directory and returns the stored file path.
func (d *Dir) Save(userID int64, filename string, r io.Reader) (string, error) {
	if err := os.MkdirAll(d.path, 0o755); err != nil {
		return "", fmt.Errorf("scratch: create dir: %w", err)
	}

	name := fmt.Sprintf("%d_%s_%s", userID, uuid.NewString(), sanitizeName(filename))
	path := filepath.Join(d.path, name)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("scratch: create file: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("scratch: write file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("scratch: close file: %w", err)
	}
	return path, nil
}

// sanitizeName strips any path components and replaces separators so the
// transport-provided filename cannot escape the scratch directory.
func sanitizeName(filename string) string {
	base := filepath.Base(strings.TrimSpace(filename))
	base = strings.ReplaceAll(base, string(os.PathSeparator), "_")
	if base == "" || base == "." || base == ".." {
		return "file"
	}
	return base
}
