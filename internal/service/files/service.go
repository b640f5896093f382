package files

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

var ErrFilenameRequired = errors.New("file name is required")

// Stored describes a persisted upload.
type Stored struct {
	Name string `json:"name"`
	Path string `json:"-"`
	URL  string `json:"file_url"`
	Size int64  `json:"size"`
}

// Service writes uploaded files below a directory that is served under
// urlPrefix. An empty urlPrefix means the directory is not publicly served.
type Service struct {
	dir       string
	urlPrefix string
}

// NewService ensures dir exists.
func NewService(dir, urlPrefix string) (*Service, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Service{dir: dir, urlPrefix: strings.TrimSuffix(urlPrefix, "/")}, nil
}

// Save copies r into a new file. The stored name is prefixed with a uuid so
// concurrent uploads of the same name never overwrite each other.
func (s *Service) Save(_ context.Context, filename string, r io.Reader) (Stored, error) {
	base := filepath.Base(filepath.Clean("/" + filename))
	if base == "/" || base == "." || base == "" {
		return Stored{}, ErrFilenameRequired
	}

	name := uuid.NewString() + "-" + base
	dst := filepath.Join(s.dir, name)

	f, err := os.OpenFile(dst, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return Stored{}, fmt.Errorf("create file: %w", err)
	}

	n, err := io.Copy(f, r)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(dst)
		return Stored{}, fmt.Errorf("write file: %w", err)
	}

	log.Info().Str("file", name).Int64("bytes", n).Msg("[files] upload stored")
	stored := Stored{Name: name, Path: dst, Size: n}
	// without a prefix the directory is not served, so there is no URL
	if s.urlPrefix != "" {
		stored.URL = path.Join(s.urlPrefix, name)
	}
	return stored, nil
}
