package scratch

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSaveCreatesDirAndWritesContent(t *testing.T) {
	dir := New(filepath.Join(t.TempDir(), "downloads"))

	path, err := dir.Save(1001, "report.pdf", strings.NewReader("payload"))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(data) != "payload" {
		t.Fatalf("content = %q", data)
	}
	if !strings.HasPrefix(filepath.Base(path), "1001_") {
		t.Fatalf("stored name %q not keyed by user id", filepath.Base(path))
	}
	if !strings.HasSuffix(path, "_report.pdf") {
		t.Fatalf("stored name %q lost the original filename", path)
	}
}

func TestSaveSameFilenameNeverCollides(t *testing.T) {
	dir := New(t.TempDir())

	first, err := dir.Save(1, "essay.docx", strings.NewReader("first"))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	second, err := dir.Save(2, "essay.docx", strings.NewReader("second"))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if first == second {
		t.Fatalf("both saves produced %q", first)
	}
	data, _ := os.ReadFile(first)
	if string(data) != "first" {
		t.Fatalf("first file overwritten: %q", data)
	}
}

func TestSaveSanitizesTraversal(t *testing.T) {
	root := t.TempDir()
	dir := New(filepath.Join(root, "downloads"))

	path, err := dir.Save(3, "../../etc/passwd", strings.NewReader("x"))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	rel, err := filepath.Rel(dir.Path(), path)
	if err != nil || strings.HasPrefix(rel, "..") {
		t.Fatalf("stored file escaped scratch dir: %q", path)
	}
}
