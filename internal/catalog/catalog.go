// Package catalog answers directory queries against the loader's dataset.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/agentic-research/rollcall/internal/directory"
	"github.com/agentic-research/rollcall/internal/loader"
	"github.com/agentic-research/rollcall/internal/metrics"
	"github.com/agentic-research/rollcall/internal/paginate"
)

// ErrNotFound is returned for a roll number absent from the directory.
var ErrNotFound = errors.New("student not found")

const DefaultCacheSize = 256

// Datasets is the part of the loader the catalog needs.
type Datasets interface {
	Get(ctx context.Context) (*loader.Dataset, error)
	Reload(ctx context.Context) (*loader.Dataset, error)
}

// Page is one page of search results.
type Page struct {
	paginate.Page
	Students []directory.Entity `json:"students"`
}

// Profile is a student together with their relatives.
type Profile struct {
	Student directory.Entity `json:"student"`
	directory.Relatives
}

// Service caches filter results per dataset.
type Service struct {
	data     Datasets
	log      *slog.Logger
	metrics  *metrics.Metrics
	pageSize int

	mu      sync.Mutex
	cache   *lru.Cache[string, []directory.Entity]
	current *loader.Dataset
}

type Option func(*Service)

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.log = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithPageSize sets the page size used when a search asks for none.
func WithPageSize(n int) Option {
	return func(s *Service) { s.pageSize = n }
}

// New creates a Service holding up to cacheSize filter results.
func New(data Datasets, cacheSize int, opts ...Option) (*Service, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	cache, err := lru.New[string, []directory.Entity](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("create query cache: %w", err)
	}
	s := &Service{
		data:     data,
		log:      slog.Default(),
		pageSize: paginate.All,
		cache:    cache,
	}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

// Dataset returns the current dataset, loading it if needed. The query
// cache is purged whenever the dataset changes.
func (s *Service) Dataset(ctx context.Context) (*loader.Dataset, error) {
	d, err := s.data.Get(ctx)
	if err != nil {
		return nil, err
	}
	s.observe(d)
	return d, nil
}

func (s *Service) observe(d *loader.Dataset) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != d {
		s.cache.Purge()
		s.current = d
	}
}

// Search filters the directory and returns the requested page. A negative
// pageSize selects the service default; paginate.All returns everything.
func (s *Service) Search(ctx context.Context, c directory.Criteria, page, pageSize int) (Page, error) {
	d, err := s.Dataset(ctx)
	if err != nil {
		return Page{}, err
	}
	matches := s.filter(d, c)
	if pageSize < 0 {
		pageSize = s.pageSize
	}
	meta := paginate.Meta(page, pageSize, len(matches))
	return Page{Page: meta, Students: paginate.Slice(matches, meta)}, nil
}

func (s *Service) filter(d *loader.Dataset, c directory.Criteria) []directory.Entity {
	if !c.Active() {
		s.metrics.ObserveSearch(true)
		return d.Entities
	}
	key := c.Key()

	s.mu.Lock()
	cached, ok := s.cache.Get(key)
	fresh := s.current == d
	s.mu.Unlock()
	if ok && fresh {
		s.metrics.ObserveSearch(true)
		return cached
	}

	matches := d.Search(c)
	s.metrics.ObserveSearch(false)
	s.log.Debug("search", "key", key, "matches", len(matches))

	s.mu.Lock()
	if s.current == d {
		s.cache.Add(key, matches)
	}
	s.mu.Unlock()
	return matches
}

// Facets returns the distinct filter values of the directory.
func (s *Service) Facets(ctx context.Context) (directory.Facets, error) {
	d, err := s.Dataset(ctx)
	if err != nil {
		return directory.Facets{}, err
	}
	return d.Facets(), nil
}

// Student returns one student and their relatives.
func (s *Service) Student(ctx context.Context, roll string) (Profile, error) {
	d, err := s.Dataset(ctx)
	if err != nil {
		return Profile{}, err
	}
	e, ok := d.Student(roll)
	if !ok {
		return Profile{}, fmt.Errorf("%w: %s", ErrNotFound, roll)
	}
	return Profile{Student: e, Relatives: d.Relatives(roll)}, nil
}

// Relatives returns the introducer and introducees of roll. Unknown roll
// numbers yield an empty result, not an error.
func (s *Service) Relatives(ctx context.Context, roll string) (directory.Relatives, error) {
	d, err := s.Dataset(ctx)
	if err != nil {
		return directory.Relatives{}, err
	}
	return d.Relatives(roll), nil
}

// Refresh discards the cached dataset and loads a new one.
func (s *Service) Refresh(ctx context.Context) (*loader.Dataset, error) {
	d, err := s.data.Reload(ctx)
	if err != nil {
		return nil, err
	}
	s.observe(d)
	s.log.Info("directory refreshed", "entities", len(d.Entities))
	return d, nil
}
