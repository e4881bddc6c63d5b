// Package hub resolves model artifacts pinned to a revision on a
// Hugging Face compatible model hub into a local cache directory.
package hub

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ErrNotFound is returned when the hub has no such file at the revision
var ErrNotFound = errors.New("hub: file not found")

// Fetcher downloads model files from a hub
type Fetcher struct {
	baseURL    string
	cacheDir   string
	token      string
	httpClient *http.Client
}

// NewFetcher creates a Fetcher caching files below cacheDir.
// token may be empty for public models.
func NewFetcher(baseURL, cacheDir, token string, timeout time.Duration) *Fetcher {
	return &Fetcher{
		baseURL:  strings.TrimRight(baseURL, "/"),
		cacheDir: cacheDir,
		token:    token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Dir returns the local directory holding files of model at revision
func (f *Fetcher) Dir(model, revision string) string {
	return filepath.Join(f.cacheDir, filepath.FromSlash(model), revision)
}

// Fetch makes sure every file exists in the local cache and returns the
// cache directory. Files already present are not downloaded again.
func (f *Fetcher) Fetch(ctx context.Context, model, revision string, files ...string) (string, error) {
	if model == "" || revision == "" {
		return "", errors.New("hub: model and revision are required")
	}

	dir := f.Dir(model, revision)
	for _, name := range files {
		dst := filepath.Join(dir, filepath.FromSlash(name))
		if _, err := os.Stat(dst); err == nil {
			continue
		}
		if err := f.download(ctx, model, revision, name, dst); err != nil {
			return "", err
		}
	}
	return dir, nil
}

func (f *Fetcher) fileURL(model, revision, name string) string {
	return fmt.Sprintf("%s/%s/resolve/%s/%s", f.baseURL, model, url.PathEscape(revision), name)
}

func (f *Fetcher) download(ctx context.Context, model, revision, name, dst string) error {
	src := f.fileURL(model, revision, name)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, http.NoBody)
	if err != nil {
		return fmt.Errorf("hub: failed to create request: %w", err)
	}
	if f.token != "" {
		req.Header.Set("Authorization", "Bearer "+f.token)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("hub: failed to download %s: %w", name, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s@%s/%s", ErrNotFound, model, revision, name)
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("hub: download %s returned status %d", name, resp.StatusCode)
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("hub: %w", err)
	}

	// dst must only ever hold complete files; Fetch treats existence as cached.
	tmp, err := os.CreateTemp(filepath.Dir(dst), ".download-*")
	if err != nil {
		return fmt.Errorf("hub: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		return fmt.Errorf("hub: failed to write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("hub: %w", err)
	}

	if err := os.Rename(tmp.Name(), dst); err != nil {
		return fmt.Errorf("hub: %w", err)
	}
	return nil
}
