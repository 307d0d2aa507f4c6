package upload

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"brandis/backend/internal/store"
)

// Store saves binary blobs and yields references that are persisted on the
// owning entity. References are plain filenames, never paths, so a reference
// read back from the database cannot escape the upload directory.
type Store interface {
	Save(originalName string, r io.Reader) (string, error)
	Remove(ref string) error
}

type LocalStore struct {
	dir string
}

func NewLocalStore(dir string) (*LocalStore, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("upload dir is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &LocalStore{dir: dir}, nil
}

func (s *LocalStore) Dir() string {
	return s.dir
}

func (s *LocalStore) Save(originalName string, r io.Reader) (string, error) {
	name := fmt.Sprintf("%d-%s-%s", time.Now().UnixMilli(), uuid.NewString()[:8], sanitizeName(originalName))

	f, err := os.OpenFile(filepath.Join(s.dir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		_ = os.Remove(f.Name())
		return "", err
	}
	return name, nil
}

func (s *LocalStore) Remove(ref string) error {
	ref = filepath.Base(strings.TrimSpace(ref))
	if ref == "" || ref == "." || ref == string(filepath.Separator) {
		return store.ErrInvalidInput
	}
	err := os.Remove(filepath.Join(s.dir, ref))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// sanitizeName strips path components and replaces anything outside a small
// safe character set.
func sanitizeName(name string) string {
	name = filepath.Base(strings.TrimSpace(name))
	if name == "" || name == "." {
		return "file"
	}
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' || r == '-' || r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}
