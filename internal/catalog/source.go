package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// maxDocumentSize bounds a single data document
const maxDocumentSize = 16 << 20

// Document is a retrieved data file together with its response status
type Document struct {
	Name   string
	Status int
	Body   []byte
}

// OK reports a 2xx status
func (d Document) OK() bool {
	return okStatus(d.Status)
}

// Source retrieves named data documents
type Source interface {
	Fetch(ctx context.Context, name string) (Document, error)
	String() string
}

// NewSource returns an HTTP source for http(s) locations and a directory source otherwise
func NewSource(location string, client *http.Client) (Source, error) {
	if strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://") {
		base, err := url.Parse(location)
		if err != nil {
			return nil, fmt.Errorf("invalid data source url: %w", err)
		}
		if client == nil {
			client = &http.Client{Timeout: 30 * time.Second}
		}
		return &HTTPSource{base: base, client: client}, nil
	}
	if location == "" {
		return nil, errors.New("data source location is required")
	}
	return &DirSource{dir: location}, nil
}

// HTTPSource fetches documents relative to a base URL
type HTTPSource struct {
	base   *url.URL
	client *http.Client
}

// Fetch performs a GET for name. A network failure yields status 0 and an error.
func (s *HTTPSource) Fetch(ctx context.Context, name string) (Document, error) {
	doc := Document{Name: name}

	u := s.base.JoinPath(name)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return doc, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return doc, fmt.Errorf("failed to fetch %s: %w", name, err)
	}
	defer resp.Body.Close()

	doc.Status = resp.StatusCode
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentSize))
	if err != nil {
		return doc, fmt.Errorf("failed to read %s: %w", name, err)
	}
	doc.Body = body
	return doc, nil
}

func (s *HTTPSource) String() string { return s.base.String() }

// DirSource reads documents from a local directory. Statuses mimic HTTP:
// 200 on success, 404 for a missing file, 500 for any other read failure.
type DirSource struct {
	dir string
}

// Fetch reads name from the directory
func (s *DirSource) Fetch(_ context.Context, name string) (Document, error) {
	doc := Document{Name: name}

	body, err := os.ReadFile(filepath.Join(s.dir, name))
	switch {
	case errors.Is(err, fs.ErrNotExist):
		doc.Status = http.StatusNotFound
		return doc, nil
	case err != nil:
		doc.Status = http.StatusInternalServerError
		return doc, fmt.Errorf("failed to read %s: %w", name, err)
	}

	doc.Status = http.StatusOK
	doc.Body = body
	return doc, nil
}

func (s *DirSource) String() string { return s.dir }
