// Package loader fetches the roster and relationship tree, builds the
// directory from them, and caches the result for every consumer.
package loader

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/agentic-research/rollcall/api"
	"github.com/agentic-research/rollcall/internal/directory"
	"github.com/agentic-research/rollcall/internal/metrics"
	"github.com/agentic-research/rollcall/internal/roster"
)

// State is the lifecycle of the cached dataset.
type State int

const (
	Empty State = iota
	Loading
	Ready
)

func (s State) String() string {
	switch s {
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	default:
		return "empty"
	}
}

const loadKey = "dataset"

// Loader owns the cached Dataset. Concurrent Get calls share one load; a
// failed load leaves the loader Empty so the next Get retries.
type Loader struct {
	src     Source
	merge   directory.MergeOptions
	log     *slog.Logger
	metrics *metrics.Metrics

	group singleflight.Group

	mu       sync.Mutex
	data     *Dataset
	gen      uint64
	inflight int
}

// Option configures a Loader.
type Option func(*Loader)

func WithLogger(l *slog.Logger) Option {
	return func(ld *Loader) { ld.log = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(ld *Loader) { ld.metrics = m }
}

func WithMergeOptions(o directory.MergeOptions) Option {
	return func(ld *Loader) { ld.merge = o }
}

// New creates an Empty loader reading from src.
func New(src Source, opts ...Option) *Loader {
	l := &Loader{
		src:   src,
		merge: directory.DefaultMergeOptions(),
		log:   slog.Default(),
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

// State reports whether a dataset is cached, being loaded, or neither.
func (l *Loader) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	switch {
	case l.data != nil:
		return Ready
	case l.inflight > 0:
		return Loading
	default:
		return Empty
	}
}

// Get returns the cached dataset, loading it first if needed.
//
// The load itself is not tied to ctx: a caller that gives up only stops
// waiting, and the load still completes for everyone else.
func (l *Loader) Get(ctx context.Context) (*Dataset, error) {
	l.mu.Lock()
	d := l.data
	l.mu.Unlock()
	if d != nil {
		return d, nil
	}

	loadCtx := context.WithoutCancel(ctx)
	ch := l.group.DoChan(loadKey, func() (any, error) {
		return l.load(loadCtx)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Dataset), nil
	}
}

// Reset discards the cached dataset. A load already running still answers
// the callers waiting on it but is not committed.
func (l *Loader) Reset() {
	l.mu.Lock()
	l.data = nil
	l.gen++
	l.mu.Unlock()
	l.group.Forget(loadKey)
	l.metrics.ResetEntities()
	l.log.Debug("dataset reset")
}

// Reload resets the loader and loads a fresh dataset.
func (l *Loader) Reload(ctx context.Context) (*Dataset, error) {
	l.Reset()
	return l.Get(ctx)
}

func (l *Loader) load(ctx context.Context) (*Dataset, error) {
	l.mu.Lock()
	if d := l.data; d != nil {
		l.mu.Unlock()
		return d, nil
	}
	gen := l.gen
	l.inflight++
	l.mu.Unlock()
	defer func() {
		l.mu.Lock()
		l.inflight--
		l.mu.Unlock()
	}()

	start := time.Now()
	l.log.Info("loading directory")

	var (
		records []roster.Record
		tree    api.TreeNode
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		body, err := l.fetch(gctx, api.ResourceRoster)
		if err != nil {
			return err
		}
		records, err = roster.Parse(body)
		if err != nil {
			return parseError(api.ResourceRoster, err)
		}
		return nil
	})
	g.Go(func() error {
		body, err := l.fetch(gctx, api.ResourceTree)
		if err != nil {
			return err
		}
		if err := json.Unmarshal(body, &tree); err != nil {
			return parseError(api.ResourceTree, err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		l.metrics.ObserveLoad(err, time.Since(start), 0)
		resource, _ := ResourceOf(err)
		l.log.Warn("directory load failed", "resource", resource, "error", err)
		return nil, err
	}

	d := NewDataset(records, &tree, l.merge)
	took := time.Since(start)

	l.mu.Lock()
	committed := l.gen == gen
	if committed {
		l.data = d
	}
	l.mu.Unlock()

	if !committed {
		l.log.Debug("discarding load started before reset")
		return d, nil
	}
	l.metrics.ObserveLoad(nil, took, len(d.Entities))
	l.log.Info("directory loaded",
		"entities", len(d.Entities),
		"tree_records", d.Family.Len(),
		"duration", took)
	return d, nil
}

func (l *Loader) fetch(ctx context.Context, r api.Resource) ([]byte, error) {
	body, err := l.src.Fetch(ctx, r)
	l.metrics.ObserveFetch(string(r), err)
	if err != nil {
		if _, ok := ResourceOf(err); !ok {
			err = fetchError(r, err)
		}
		return nil, err
	}
	return body, nil
}
