package runtime

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCopyDatabase(t *testing.T) {
	src := filepath.Join(t.TempDir(), "product.msi")
	if err := os.WriteFile(src, []byte("original"), 0o444); err != nil {
		t.Fatalf("write source: %v", err)
	}
	dir := t.TempDir()

	dst, err := copyDatabase(src, dir)
	if err != nil {
		t.Fatalf("copyDatabase() error = %v", err)
	}
	if dst != filepath.Join(dir, "product.msi") {
		t.Errorf("dst = %q", dst)
	}
	data, err := os.ReadFile(dst)
	if err != nil || string(data) != "original" {
		t.Fatalf("copy = %q, %v", data, err)
	}

	// A stale read-only copy is replaced.
	if err := os.Chmod(dst, 0o444); err != nil {
		t.Fatalf("chmod: %v", err)
	}
	if err := os.WriteFile(src+".new", []byte("updated"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.Rename(src+".new", src); err != nil {
		t.Fatalf("rename: %v", err)
	}
	if _, err := copyDatabase(src, dir); err != nil {
		t.Fatalf("second copyDatabase() error = %v", err)
	}
	data, _ = os.ReadFile(dst)
	if string(data) != "updated" {
		t.Errorf("copy = %q, want updated", data)
	}
	info, _ := os.Stat(dst)
	if info.Mode().Perm() != workCopyFileMode {
		t.Errorf("mode = %v, want %v", info.Mode().Perm(), os.FileMode(workCopyFileMode))
	}

	// The source is never modified.
	data, _ = os.ReadFile(src)
	if string(data) != "updated" {
		t.Errorf("source = %q", data)
	}
}

func TestCopyDatabase_RefusesSourceDirectory(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "product.msi")
	if err := os.WriteFile(src, []byte("x"), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}
	if _, err := copyDatabase(src, dir); err == nil {
		t.Fatal("copyDatabase() expected error when the copy would overwrite the source")
	}
}

func TestCopyDatabase_MissingSource(t *testing.T) {
	if _, err := copyDatabase(filepath.Join(t.TempDir(), "missing.msi"), t.TempDir()); err == nil {
		t.Fatal("copyDatabase() expected error for missing source")
	}
}
