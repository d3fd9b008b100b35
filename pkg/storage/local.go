package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"carhive/pkg/errors"
	"carhive/pkg/logger"
)

// URLPrefix is the public path prefix under which stored files are served.
const URLPrefix = "/uploads/"

var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
	"image/gif":  true,
}

// LocalStore persists uploaded vehicle images on the local disk. References
// returned by Save are public URL paths, so documents stay valid when the
// upload directory moves behind a static file server.
type LocalStore struct {
	dir string
	log *logger.Logger
}

func NewLocalStore(dir string, log *logger.Logger) (*LocalStore, error) {
	if dir == "" {
		return nil, errors.InvalidInput("upload directory cannot be empty")
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Internal("failed to create upload directory", err)
	}

	return &LocalStore{dir: dir, log: log}, nil
}

// Save writes the uploaded content to disk under a fresh name and returns its
// public reference. The content is sniffed; anything that is not an image is
// rejected regardless of the client-supplied filename.
func (s *LocalStore) Save(r io.Reader, originalName string) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", errors.Internal("failed to read upload", err)
	}

	if len(data) == 0 {
		return "", errors.InvalidInput("uploaded file is empty")
	}

	detected := mimetype.Detect(data)
	if !allowedImageTypes[detected.String()] {
		return "", errors.InvalidInput(
			fmt.Sprintf("unsupported file type %q, expected an image", detected.String()),
		)
	}

	name := uuid.New().String() + detected.Extension()
	path := filepath.Join(s.dir, name)

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", errors.Internal("failed to store upload", err)
	}

	s.log.Debug("Stored uploaded image",
		"file", name,
		"content_type", detected.String(),
		"size_bytes", len(data),
	)

	return URLPrefix + name, nil
}

// Release deletes a previously stored file. Failures are logged and swallowed
// so a stale image never blocks a booking or vehicle mutation.
func (s *LocalStore) Release(ref string) {
	if !s.IsLocal(ref) {
		return
	}

	name := strings.TrimPrefix(ref, URLPrefix)
	if name == "" || strings.Contains(name, "/") {
		return
	}

	if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !os.IsNotExist(err) {
		s.log.Warn("Failed to remove stored image",
			"file", name,
			"error", err,
		)
	}
}

// IsLocal reports whether the reference points into this store, as opposed to
// an external image URL carried over from the vehicle catalog.
func (s *LocalStore) IsLocal(ref string) bool {
	return strings.HasPrefix(ref, URLPrefix)
}

// Dir returns the directory backing the store, for static file serving.
func (s *LocalStore) Dir() string {
	return s.dir
}
