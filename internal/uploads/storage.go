package uploads

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// MaxFileSize caps prescription uploads at 5 MiB.
const MaxFileSize = 5 << 20

// ErrFileTooLarge indicates the upload exceeds MaxFileSize.
var ErrFileTooLarge = errors.New("file exceeds the 5 MB limit")

// ErrUnsupportedType indicates the sniffed content type is not accepted.
var ErrUnsupportedType = errors.New("unsupported file type")

// allowedTypes maps sniffed content types to the stored extension. The
// client-supplied filename and Content-Type header are never trusted.
var allowedTypes = map[string]string{
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
	"image/webp":      ".webp",
	"application/pdf": ".pdf",
}

// Storage writes uploads to a local directory and hands out stable URLs.
type Storage struct {
	dir     string
	baseURL string
}

// NewStorage creates the upload directory if needed.
func NewStorage(dir, baseURL string) (*Storage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Storage{dir: dir, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// Save sniffs the content type, enforces the size cap and writes the file
// under a random name. It returns the public URL of the stored file.
func (s *Storage) Save(r io.Reader) (string, error) {
	// One extra byte past the cap distinguishes "exactly at the limit"
	// from "over it".
	data, err := io.ReadAll(io.LimitReader(r, MaxFileSize+1))
	if err != nil {
		return "", fmt.Errorf("read upload: %w", err)
	}
	if len(data) > MaxFileSize {
		return "", ErrFileTooLarge
	}

	contentType := http.DetectContentType(data)
	ext, ok := allowedTypes[contentType]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, contentType)
	}

	name := uuid.NewString() + ext
	if err := os.WriteFile(filepath.Join(s.dir, name), data, 0o644); err != nil {
		return "", fmt.Errorf("write upload: %w", err)
	}
	return s.baseURL + "/" + name, nil
}

// Dir returns the storage directory, used to mount the static file server.
func (s *Storage) Dir() string {
	return s.dir
}
