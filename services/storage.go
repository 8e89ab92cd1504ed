package services

import (
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// URLPrefix is the public path stored images are served under.
const URLPrefix = "/uploads/"

// maxExtLen bounds the client-supplied extension kept on stored names.
const maxExtLen = 16

// ImageStore keeps uploaded images as flat files in a single directory.
type ImageStore struct {
	dir string
}

type StoredFile struct {
	Name    string
	ModTime time.Time
}

func NewImageStore(dir string) (*ImageStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &ImageStore{dir: dir}, nil
}

func (s *ImageStore) Dir() string {
	return s.dir
}

// Save writes r to a file named <uuid><ext>, where ext is taken from the
// client's original file name, and returns the public URL of the file.
func (s *ImageStore) Save(originalName string, r io.Reader) (string, error) {
	name := uuid.NewString() + imageExt(originalName)

	f, err := os.OpenFile(filepath.Join(s.dir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create image file: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		return "", fmt.Errorf("write image file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close image file: %w", err)
	}
	return URLPrefix + name, nil
}

// imageExt returns the extension of the client's file name, or "" when the
// name has none. Leading dots do not start an extension, and extensions
// longer than maxExtLen are dropped.
func imageExt(originalName string) string {
	base := strings.TrimLeft(path.Base(filepath.ToSlash(originalName)), ".")
	ext := path.Ext(base)
	if len(ext) > maxExtLen {
		return ""
	}
	return ext
}

// List returns the regular files currently in the store.
func (s *ImageStore) List() ([]StoredFile, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}

	files := make([]StoredFile, 0, len(entries))
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, err
		}
		files = append(files, StoredFile{Name: e.Name(), ModTime: info.ModTime()})
	}
	return files, nil
}

func (s *ImageStore) Remove(name string) error {
	if name != filepath.Base(name) {
		return fmt.Errorf("invalid image name %q", name)
	}
	return os.Remove(filepath.Join(s.dir, name))
}

// FileName maps a stored image URL back to its file name.
func FileName(imageURL string) (string, bool) {
	if !strings.HasPrefix(imageURL, URLPrefix) {
		return "", false
	}
	name := strings.TrimPrefix(imageURL, URLPrefix)
	if name == "" || strings.Contains(name, "/") {
		return "", false
	}
	return name, true
}
