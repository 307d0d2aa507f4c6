package upload

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSaveAndRemove(t *testing.T) {
	dir := t.TempDir()
	s, err := NewLocalStore(dir)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	ref, err := s.Save("foto produk.jpg", strings.NewReader("image-bytes"))
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if strings.ContainsAny(ref, "/\\ ") {
		t.Fatalf("expected safe flat filename, got %q", ref)
	}

	data, err := os.ReadFile(filepath.Join(dir, ref))
	if err != nil {
		t.Fatalf("read saved file: %v", err)
	}
	if string(data) != "image-bytes" {
		t.Fatalf("unexpected file content %q", data)
	}

	if err := s.Remove(ref); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, ref)); !os.IsNotExist(err) {
		t.Fatalf("expected file to be gone, stat err: %v", err)
	}

	// Removing twice is fine.
	if err := s.Remove(ref); err != nil {
		t.Fatalf("second remove: %v", err)
	}
}

func TestSaveGeneratesUniqueNames(t *testing.T) {
	s, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	first, err := s.Save("same.png", strings.NewReader("a"))
	if err != nil {
		t.Fatalf("first save: %v", err)
	}
	second, err := s.Save("same.png", strings.NewReader("b"))
	if err != nil {
		t.Fatalf("second save: %v", err)
	}
	if first == second {
		t.Fatalf("expected distinct names, both were %q", first)
	}
}

func TestRemoveIgnoresPathTraversal(t *testing.T) {
	dir := t.TempDir()
	s, err := NewLocalStore(dir)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	outside := filepath.Join(filepath.Dir(dir), "victim.txt")
	if err := os.WriteFile(outside, []byte("keep me"), 0o644); err != nil {
		t.Fatalf("write outside file: %v", err)
	}

	// The reference is reduced to its base name, so this cannot reach outside.
	_ = s.Remove("../victim.txt")

	if _, err := os.Stat(outside); err != nil {
		t.Fatalf("expected outside file untouched: %v", err)
	}
}
