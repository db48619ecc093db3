package directory

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"shelter-finder-service/internal/ports"
	"strings"
	"time"
)

// HTTPSource fetches the directory document with a GET request.
type HTTPSource struct {
	session *http.Client
	url     string
}

func NewHTTPSource(url string, timeout time.Duration) *HTTPSource {
	return &HTTPSource{
		session: &http.Client{Timeout: timeout},
		url:     url,
	}
}

func (s *HTTPSource) Open(ctx context.Context) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.google-earth.kml+xml, application/xml, text/xml, */*")

	resp, err := s.session.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", s.url, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, fmt.Errorf("fetch %s: unexpected status: %d", s.url, resp.StatusCode)
	}

	return resp.Body, nil
}

func (s *HTTPSource) Describe() string { return s.url }

// FileSource reads the directory document from the local filesystem.
type FileSource struct {
	path string
}

func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

func (s *FileSource) Open(ctx context.Context) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", s.path, err)
	}
	return f, nil
}

func (s *FileSource) Describe() string { return s.path }

// NewSource picks an HTTP source for http(s) locations and a file source
// for everything else.
func NewSource(location string, timeout time.Duration) ports.DocumentSource {
	lower := strings.ToLower(location)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return NewHTTPSource(location, timeout)
	}
	return NewFileSource(strings.TrimPrefix(location, "file://"))
}
