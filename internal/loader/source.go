package loader

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/agentic-research/rollcall/api"
)

// maxPayload caps the size of a fetched resource.
const maxPayload = 64 << 20

// Source retrieves the raw bytes of a resource.
type Source interface {
	Fetch(ctx context.Context, r api.Resource) ([]byte, error)
}

// Paths maps each resource to its location relative to a base.
type Paths struct {
	Roster string
	Tree   string
}

func (p Paths) of(r api.Resource) (string, error) {
	switch r {
	case api.ResourceRoster:
		return p.Roster, nil
	case api.ResourceTree:
		return p.Tree, nil
	default:
		return "", fmt.Errorf("unknown resource %q", r)
	}
}

// HTTPSource fetches resources with GET requests under BaseURL.
type HTTPSource struct {
	BaseURL string
	Paths   Paths
	Client  *http.Client
}

func (s *HTTPSource) Fetch(ctx context.Context, r api.Resource) ([]byte, error) {
	rel, err := s.Paths.of(r)
	if err != nil {
		return nil, fetchError(r, err)
	}
	u, err := url.JoinPath(s.BaseURL, rel)
	if err != nil {
		return nil, fetchError(r, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fetchError(r, err)
	}
	req.Header.Set("Accept", "application/json")

	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fetchError(r, err)
	}
	defer func() { _ = resp.Body.Close() }() // safe to ignore

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &LoadError{
			Resource:   r,
			Op:         OpFetch,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("%w: GET %s: %s", ErrStatus, u, resp.Status),
		}
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPayload))
	if err != nil {
		return nil, fetchError(r, fmt.Errorf("read body: %w", err))
	}
	return body, nil
}

// DirSource reads resources from files under Dir.
type DirSource struct {
	Dir   string
	Paths Paths
}

func (s *DirSource) Fetch(ctx context.Context, r api.Resource) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, fetchError(r, err)
	}
	rel, err := s.Paths.of(r)
	if err != nil {
		return nil, fetchError(r, err)
	}
	data, err := os.ReadFile(filepath.Join(s.Dir, filepath.FromSlash(rel)))
	if err != nil {
		return nil, fetchError(r, err)
	}
	return data, nil
}

// NewSource returns an HTTPSource for http(s) base URLs and a DirSource
// for anything else, including file:// URLs.
func NewSource(base string, paths Paths, client *http.Client) Source {
	if strings.HasPrefix(base, "http://") || strings.HasPrefix(base, "https://") {
		return &HTTPSource{BaseURL: base, Paths: paths, Client: client}
	}
	return &DirSource{Dir: strings.TrimPrefix(base, "file://"), Paths: paths}
}
