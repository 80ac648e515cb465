// Package source loads and stores the raw registry text.
//
// Readers go through Loader so the UI and the redirect service do not care
// whether the registry comes from the published URL or the local checkout.
// Writes only ever target the local file and always replace it whole.
package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/afero"

	"github.com/gubarz/shortlinks/internal/errors"
	"github.com/gubarz/shortlinks/internal/logging"
	"github.com/gubarz/shortlinks/internal/registry"
)

// maxBody caps how much of a remote registry is read.
const maxBody = 8 << 20

// Loader returns the current registry text.
type Loader interface {
	Load(ctx context.Context) (string, error)
}

// HTTPSource fetches the registry with a plain GET.
type HTTPSource struct {
	URL    string
	Client *http.Client
}

// NewHTTPSource creates an HTTPSource with its own client and timeout.
func NewHTTPSource(url string, timeout time.Duration) *HTTPSource {
	return &HTTPSource{
		URL:    url,
		Client: &http.Client{Timeout: timeout},
	}
}

// Load implements Loader.
func (s *HTTPSource) Load(ctx context.Context) (string, error) {
	logger := logging.GetLogger("source")
	done := logging.LogOperationStart(logger, "fetch")
	defer done()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return "", errors.Wrapf(err, errors.ErrFetch, "build request for %s", s.URL)
	}

	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", errors.Wrapf(err, errors.ErrFetch, "fetch %s", s.URL)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", errors.Newf(errors.ErrFetch, "fetch %s: %s", s.URL, resp.Status).
			WithDetail("status", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return "", errors.Wrapf(err, errors.ErrFetch, "read %s", s.URL)
	}
	if err := registry.ValidateText(body); err != nil {
		return "", errors.Wrapf(err, errors.ErrFormat, "fetch %s", s.URL)
	}

	logger.Debug().Str("url", s.URL).Int("bytes", len(body)).Msg("Fetched registry")
	return string(body), nil
}

// FileStore reads and overwrites the local registry file.
type FileStore struct {
	fs   afero.Fs
	path string
}

// NewFileStore creates a FileStore for path on fs.
func NewFileStore(fs afero.Fs, path string) *FileStore {
	return &FileStore{fs: fs, path: path}
}

// Load implements Loader.
func (s *FileStore) Load(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	data, err := afero.ReadFile(s.fs, s.path)
	if err != nil {
		return "", errors.Wrapf(err, errors.ErrFileRead, "read %s", s.path)
	}
	if err := registry.ValidateText(data); err != nil {
		return "", errors.Wrapf(err, errors.ErrFormat, "read %s", s.path)
	}
	return string(data), nil
}

// Save replaces the file content with text. The new content is written to a
// sibling temp file and renamed over the target; readers see either the
// old or the new file and never a partial one.
func (s *FileStore) Save(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	mode := os.FileMode(0644)
	if info, err := s.fs.Stat(s.path); err == nil {
		mode = info.Mode().Perm()
	}

	tmp, err := afero.TempFile(s.fs, filepath.Dir(s.path), "."+filepath.Base(s.path)+".*")
	if err != nil {
		return errors.Wrapf(err, errors.ErrFileWrite, "write %s", s.path)
	}
	tmpName := tmp.Name()

	if err := writeAndClose(tmp, text); err != nil {
		_ = s.fs.Remove(tmpName)
		return errors.Wrapf(err, errors.ErrFileWrite, "write %s", s.path)
	}
	if err := s.fs.Chmod(tmpName, mode); err != nil {
		_ = s.fs.Remove(tmpName)
		return errors.Wrapf(err, errors.ErrFileWrite, "chmod %s", s.path)
	}
	if err := s.fs.Rename(tmpName, s.path); err != nil {
		_ = s.fs.Remove(tmpName)
		return errors.Wrapf(err, errors.ErrFileWrite, "replace %s", s.path)
	}

	logger := logging.GetLogger("source")
	logger.Debug().Str("path", s.path).Int("bytes", len(text)).Msg("Saved registry")
	return nil
}

func writeAndClose(f afero.File, text string) error {
	if _, err := f.WriteString(text); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// New picks the loader for the configured locations: the remote URL when
// set, the local file otherwise.
func New(url, file string, timeout time.Duration) Loader {
	if url != "" {
		return NewHTTPSource(url, timeout)
	}
	return NewFileStore(afero.NewOsFs(), file)
}

// Describe returns a short human label for l, used in logs and the UI.
func Describe(l Loader) string {
	switch s := l.(type) {
	case *HTTPSource:
		return s.URL
	case *FileStore:
		return s.path
	default:
		return fmt.Sprintf("%T", l)
	}
}
