// Package httplog reads remote instance log transcripts over HTTP.
package httplog

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"framelift/internal/domain"
	"framelift/internal/port"
)

type Source struct {
	baseURL string
	client  *http.Client
}

func NewSource(baseURL string, timeout time.Duration) *Source {
	return &Source{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// ReadTail fetches the accumulated transcript for an instance. All network
// and server failures are transient; the caller's detector decides when
// enough of them amount to a timeout.
func (s *Source) ReadTail(ctx context.Context, instanceID string, maxLines int) (string, error) {
	endpoint := fmt.Sprintf("%s/instances/%s/logs?tail=%s",
		s.baseURL, url.PathEscape(instanceID), strconv.Itoa(maxLines))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("build log request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return "", domain.MarkTransient(fmt.Errorf("read logs for %s: %w", instanceID, err))
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", domain.MarkTransient(fmt.Errorf("read logs for %s: status %d", instanceID, resp.StatusCode))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", domain.MarkTransient(fmt.Errorf("read log body for %s: %w", instanceID, err))
	}
	return string(body), nil
}

var _ port.LogSource = (*Source)(nil)
