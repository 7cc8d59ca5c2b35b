package audio

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Store writes call recordings to the local filesystem. References returned
// by Save are bare filenames, served back under /recordings/.
type Store struct {
	dir string
}

func NewStore(dir string) (*Store, error) {
	if strings.TrimSpace(dir) == "" {
		dir = "recordings"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create recordings dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) Dir() string { return s.dir }

// Save persists audio bytes tagged to a session. kind is "user" or "ai";
// ext is the extension without dot.
func (s *Store) Save(sessionID, kind, ext string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("no audio data")
	}

	name := fmt.Sprintf("%s_%s_%s_%s.%s",
		sanitizeSession(sessionID),
		kind,
		time.Now().UTC().Format("20060102_150405"),
		uuid.NewString()[:8],
		ext,
	)
	if err := os.WriteFile(filepath.Join(s.dir, name), data, 0o644); err != nil {
		return "", fmt.Errorf("write audio file: %w", err)
	}
	return name, nil
}

// Path resolves a stored reference to a filesystem path, rejecting refs that
// escape the recordings directory.
func (s *Store) Path(ref string) (string, error) {
	if ref == "" || strings.Contains(ref, "/") || strings.Contains(ref, "..") {
		return "", fmt.Errorf("invalid recording reference %q", ref)
	}
	return filepath.Join(s.dir, ref), nil
}

func sanitizeSession(sessionID string) string {
	var b strings.Builder
	for _, r := range sessionID {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		}
		if b.Len() == 8 {
			break
		}
	}
	if b.Len() == 0 {
		return "anon"
	}
	return b.String()
}
