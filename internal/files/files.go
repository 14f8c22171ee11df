// Package files stores the documents uploaded with prospects.
package files

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// DefaultExt is used when the uploaded name carries no extension.
const DefaultExt = ".pdf"

// Store writes files flat under Dir.
type Store struct {
	Dir string
	Now func() time.Time
}

// New returns a store rooted at dir.
func New(dir string) *Store {
	return &Store{Dir: dir, Now: time.Now}
}

// Name builds the stored file name {slug}-{unixMillis}{ext}.
func (s *Store) Name(slug, original string) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(original)))
	if ext == "" || len(ext) > 8 {
		ext = DefaultExt
	}
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	return slug + "-" + strconv.FormatInt(now().UnixMilli(), 10) + ext
}

// Save copies r to a new file named after slug and returns the stored name.
// A partially written file is removed.
func (s *Store) Save(slug, original string, r io.Reader) (string, error) {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return "", fmt.Errorf("files: create dir: %w", err)
	}
	name := s.Name(slug, original)
	f, err := os.OpenFile(s.Path(name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("files: create %s: %w", name, err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("files: write %s: %w", name, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("files: close %s: %w", name, err)
	}
	return name, nil
}

// Path resolves a stored name inside Dir. Directory components are dropped so
// a name can never escape the store.
func (s *Store) Path(name string) string {
	return filepath.Join(s.Dir, filepath.Base(filepath.Clean("/"+name)))
}

// Exists reports whether a stored file is present.
func (s *Store) Exists(name string) bool {
	if name == "" {
		return false
	}
	fi, err := os.Stat(s.Path(name))
	return err == nil && fi.Mode().IsRegular()
}

// Remove deletes a stored file; a missing file is not an error.
func (s *Store) Remove(name string) error {
	if name == "" {
		return nil
	}
	if err := os.Remove(s.Path(name)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("files: remove %s: %w", name, err)
	}
	return nil
}
