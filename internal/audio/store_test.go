package audio

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSaveAndPath(t *testing.T) {
	s, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}

	ref, err := s.Save("sess-1234-extra", "ai", "mp3", []byte("bytes"))
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if !strings.HasPrefix(ref, "sess-123_ai_") || !strings.HasSuffix(ref, ".mp3") {
		t.Fatalf("ref = %q", ref)
	}

	p, err := s.Path(ref)
	if err != nil {
		t.Fatalf("Path() error = %v", err)
	}
	data, err := os.ReadFile(p)
	if err != nil || string(data) != "bytes" {
		t.Fatalf("read back = %q, %v", data, err)
	}
}

func TestSaveRejectsEmpty(t *testing.T) {
	s, _ := NewStore(t.TempDir())
	if _, err := s.Save("s", "user", "webm", nil); err == nil {
		t.Fatalf("expected error for empty audio")
	}
}

func TestPathRejectsTraversal(t *testing.T) {
	s, _ := NewStore(t.TempDir())
	if _, err := s.Path("../etc/passwd"); err == nil {
		t.Fatalf("expected traversal rejection")
	}
	if _, err := s.Path(filepath.Join("a", "b")); err == nil {
		t.Fatalf("expected nested path rejection")
	}
}
