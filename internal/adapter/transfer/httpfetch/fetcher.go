// Package httpfetch downloads job sources over HTTP(S).
package httpfetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"time"

	"framelift/internal/domain"
	"framelift/internal/port"
)

type Fetcher struct {
	client *http.Client
}

func NewFetcher(timeout time.Duration) *Fetcher {
	return &Fetcher{
		client: &http.Client{Timeout: timeout},
	}
}

// Fetch downloads source into destDir. Missing sources are permanent
// errors; transport failures and server errors are transient.
func (f *Fetcher) Fetch(ctx context.Context, source, destDir string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return "", fmt.Errorf("build request for %s: %w", source, err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return "", domain.MarkTransient(fmt.Errorf("fetch %s: %w", source, err))
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusNotFound:
		return "", fmt.Errorf("fetch %s: %w", source, domain.ErrNotFound)
	case resp.StatusCode >= 500:
		return "", domain.MarkTransient(fmt.Errorf("fetch %s: server returned %d", source, resp.StatusCode))
	default:
		return "", fmt.Errorf("fetch %s: unexpected status %d", source, resp.StatusCode)
	}

	localPath := filepath.Join(destDir, fileNameFor(source))
	tmpPath := localPath + ".part"

	out, err := os.Create(tmpPath)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", tmpPath, err)
	}

	if _, err := io.Copy(out, resp.Body); err != nil {
		_ = out.Close()
		_ = os.Remove(tmpPath)
		return "", domain.MarkTransient(fmt.Errorf("download %s: %w", source, err))
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("close %s: %w", tmpPath, err)
	}

	if err := os.Rename(tmpPath, localPath); err != nil {
		return "", fmt.Errorf("finalize download: %w", err)
	}
	return localPath, nil
}

func fileNameFor(source string) string {
	u, err := url.Parse(source)
	if err == nil {
		if name := path.Base(u.Path); name != "" && name != "/" && name != "." {
			return name
		}
	}
	return "input.bin"
}

var _ port.Downloader = (*Fetcher)(nil)
