package catalog

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentic-research/rollcall/api"
	"github.com/agentic-research/rollcall/internal/cohort"
	"github.com/agentic-research/rollcall/internal/directory"
	"github.com/agentic-research/rollcall/internal/loader"
	"github.com/agentic-research/rollcall/internal/metrics"
)

const rosterJSON = `[
  {"rollNo": "200123", "name": "Jane Doe", "department": "CSE", "program": "BT", "gender": "F"},
  {"rollNo": "200456", "name": "Asha Rao", "department": "EE", "program": "BT", "gender": "F"},
  {"rollNo": "190045", "name": "John Roe", "department": "CSE", "program": "MT", "gender": "M"},
  {"rollNo": "Y8100", "name": "Old Timer", "department": "ME", "program": "BT", "gender": "M"}
]`

const treeJSON = `{"name": "all", "children": [
  {"name": "John Roe-190045", "children": [
    {"name": "Jane Doe-200123", "children": [{"name": "Tree Only-210777"}]},
    {"name": "Ghost-220999"}
  ]}
]}`

type staticSource struct {
	mu    sync.Mutex
	body  map[api.Resource]string
	err   error
	calls int
}

func newStaticSource() *staticSource {
	return &staticSource{body: map[api.Resource]string{
		api.ResourceRoster: rosterJSON,
		api.ResourceTree:   treeJSON,
	}}
}

func (s *staticSource) Fetch(_ context.Context, r api.Resource) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return []byte(s.body[r]), nil
}

func (s *staticSource) setRoster(body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.body[api.ResourceRoster] = body
}

func newService(t *testing.T, src loader.Source, opts ...Option) *Service {
	t.Helper()
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	l := loader.New(src, loader.WithLogger(quiet))
	svc, err := New(l, 8, append([]Option{WithLogger(quiet)}, opts...)...)
	require.NoError(t, err)
	return svc
}

func rolls(entities []directory.Entity) []string {
	out := make([]string, len(entities))
	for i, e := range entities {
		out[i] = e.Roll
	}
	return out
}

func TestSearch(t *testing.T) {
	svc := newService(t, newStaticSource())
	ctx := context.Background()

	page, err := svc.Search(ctx, directory.Criteria{}, 1, -1)
	require.NoError(t, err)
	assert.Equal(t, 6, page.Total)
	assert.Equal(t, 1, page.TotalPages)
	assert.Equal(t, []string{"200123", "200456", "190045", "Y8100", "210777", "220999"}, rolls(page.Students))

	page, err = svc.Search(ctx, directory.Criteria{Departments: []string{"CSE"}}, 1, -1)
	require.NoError(t, err)
	assert.Equal(t, []string{"200123", "190045"}, rolls(page.Students))

	page, err = svc.Search(ctx, directory.Criteria{
		Genders:    []string{"F"},
		BatchYears: []cohort.Year{2020},
	}, 1, -1)
	require.NoError(t, err)
	assert.Equal(t, []string{"200123", "200456"}, rolls(page.Students))

	page, err = svc.Search(ctx, directory.Criteria{Query: "roe"}, 1, -1)
	require.NoError(t, err)
	assert.Equal(t, []string{"190045"}, rolls(page.Students))
}

func TestSearch_Pagination(t *testing.T) {
	svc := newService(t, newStaticSource(), WithPageSize(4))
	ctx := context.Background()

	page, err := svc.Search(ctx, directory.Criteria{}, 2, -1)
	require.NoError(t, err)
	assert.Equal(t, 2, page.Number)
	assert.Equal(t, 2, page.TotalPages)
	assert.Equal(t, []string{"210777", "220999"}, rolls(page.Students))

	page, err = svc.Search(ctx, directory.Criteria{}, 99, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, page.Number)
	assert.Equal(t, []string{"210777", "220999"}, rolls(page.Students))
}

func TestSearch_CachesByCriteria(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	svc := newService(t, newStaticSource(), WithMetrics(m))
	ctx := context.Background()

	c := directory.Criteria{Departments: []string{"EE", "CSE"}}
	same := directory.Criteria{Departments: []string{"CSE", "EE"}}

	first, err := svc.Search(ctx, c, 1, -1)
	require.NoError(t, err)
	second, err := svc.Search(ctx, same, 1, -1)
	require.NoError(t, err)

	assert.Equal(t, first.Students, second.Students)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Searches.WithLabelValues("miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Searches.WithLabelValues("hit")))
}

func TestRefresh_PurgesCache(t *testing.T) {
	src := newStaticSource()
	svc := newService(t, src)
	ctx := context.Background()
	c := directory.Criteria{Departments: []string{"EE"}}

	page, err := svc.Search(ctx, c, 1, -1)
	require.NoError(t, err)
	assert.Equal(t, []string{"200456"}, rolls(page.Students))

	src.setRoster(`[{"rollNo": "230001", "name": "New Kid", "department": "EE"}]`)
	d, err := svc.Refresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, "230001", d.Entities[0].Roll)

	page, err = svc.Search(ctx, c, 1, -1)
	require.NoError(t, err)
	assert.Equal(t, []string{"230001"}, rolls(page.Students))
}

func TestStudent(t *testing.T) {
	svc := newService(t, newStaticSource())
	ctx := context.Background()

	p, err := svc.Student(ctx, "200123")
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", p.Student.Name)
	require.NotNil(t, p.SG)
	assert.Equal(t, "John Roe", p.SG.Name)
	require.Len(t, p.Children, 1)
	assert.Equal(t, "Tree Only", p.Children[0].Name)
	assert.False(t, p.Children[0].HasFullData)

	_, err = svc.Student(ctx, "000000")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRelatives(t *testing.T) {
	svc := newService(t, newStaticSource())
	ctx := context.Background()

	rel, err := svc.Relatives(ctx, "190045")
	require.NoError(t, err)
	assert.Nil(t, rel.SG)
	assert.Equal(t, []string{"200123", "220999"}, rolls(rel.Children))

	rel, err = svc.Relatives(ctx, "nobody")
	require.NoError(t, err)
	assert.Nil(t, rel.SG)
	assert.Empty(t, rel.Children)
}

func TestFacets(t *testing.T) {
	svc := newService(t, newStaticSource())

	f, err := svc.Facets(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"CSE", "EE", "ME"}, f.Departments)
	require.NotEmpty(t, f.BatchYears)
	assert.Equal(t, cohort.Year(2022), f.BatchYears[0].Value)
	assert.Equal(t, "Y08", f.BatchYears[len(f.BatchYears)-1].Label)
}

func TestLoadFailurePropagates(t *testing.T) {
	src := newStaticSource()
	src.err = errors.New("network down")
	svc := newService(t, src)

	_, err := svc.Search(context.Background(), directory.Criteria{}, 1, -1)
	require.Error(t, err)
	assert.ErrorIs(t, err, loader.ErrFetch)

	_, err = svc.Facets(context.Background())
	assert.Error(t, err)
}
