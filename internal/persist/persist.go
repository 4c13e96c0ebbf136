// Package persist commits collections to a blob store and loads them back.
//
// Each collection lives under collections/<name>/ as immutable snapshot blobs
// named <uuid>.snap plus a CURRENT pointer naming the active one. A commit
// writes the snapshot first and swaps the pointer second, so a reader sees
// either the previous or the new state.
package persist

import (
	"context"
	"errors"
	"fmt"
	"path"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/SRafi007/intellihire-ai/blobstore"
	"github.com/SRafi007/intellihire-ai/distance"
	"github.com/SRafi007/intellihire-ai/internal/collection"
	"github.com/SRafi007/intellihire-ai/internal/resource"
	"github.com/SRafi007/intellihire-ai/internal/snapshot"
	"github.com/SRafi007/intellihire-ai/model"
)

const (
	// Root is the blob prefix holding all collections.
	Root = "collections"

	snapshotExt = ".snap"
)

// ErrNameMismatch is returned when a snapshot names a different collection
// than the directory it was found in.
var ErrNameMismatch = errors.New("snapshot belongs to another collection")

// Dir returns the blob directory of a collection.
func Dir(name string) string { return path.Join(Root, name) }

// CurrentKey returns the pointer blob name of a collection.
func CurrentKey(name string) string { return path.Join(Root, name, blobstore.CurrentName) }

// SnapshotKey returns the blob name of a snapshot of a collection.
func SnapshotKey(name, snap string) string { return path.Join(Root, name, snap) }

// Result describes the commit of one collection.
type Result struct {
	Name     string
	Snapshot string // active snapshot blob, relative to Dir(Name)
	Records  int
	Bytes    int   // encoded snapshot size, zero when skipped
	Skipped  bool  // nothing changed since the last commit or load
	Pruned   int   // stale snapshots removed
	PruneErr error // first failure while removing stale snapshots
}

// Factory creates an empty collection for Load.
type Factory func(name string, dimension int, metric distance.Metric) (*collection.Collection, error)

type state struct {
	coll     *collection.Collection
	version  uint64
	snapshot string
}

// Persister writes and reads collection snapshots. It is safe for concurrent
// use.
type Persister struct {
	store        blobstore.BlobStore
	ctrl         *resource.Controller
	compression  snapshot.Compression
	keepPrevious bool

	group singleflight.Group

	mu        sync.Mutex
	committed map[string]state
	locks     map[string]*sync.Mutex
}

// Option configures a Persister.
type Option func(*Persister)

// WithController bounds commits with c. A nil controller means unbounded.
func WithController(c *resource.Controller) Option {
	return func(p *Persister) {
		p.ctrl = c
	}
}

// WithCompression sets the snapshot compression.
func WithCompression(c snapshot.Compression) Option {
	return func(p *Persister) {
		p.compression = c
	}
}

// WithKeepPrevious keeps superseded snapshots instead of deleting them after
// the pointer swap.
func WithKeepPrevious(keep bool) Option {
	return func(p *Persister) {
		p.keepPrevious = keep
	}
}

// New creates a Persister over store.
func New(store blobstore.BlobStore, opts ...Option) *Persister {
	p := &Persister{
		store:       store,
		compression: snapshot.CompressionLZ4,
		committed:   make(map[string]state),
		locks:       make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Store returns the underlying blob store.
func (p *Persister) Store() blobstore.BlobStore { return p.store }

func (p *Persister) lock(name string) *sync.Mutex {
	p.mu.Lock()
	defer p.mu.Unlock()

	l, ok := p.locks[name]
	if !ok {
		l = new(sync.Mutex)
		p.locks[name] = l
	}
	return l
}

// Commit writes every collection that changed since its last commit or load,
// concurrently. Results are sorted by name.
func (p *Persister) Commit(ctx context.Context, cols []*collection.Collection) ([]Result, error) {
	results := make([]Result, len(cols))

	g, gctx := errgroup.WithContext(ctx)
	for i, c := range cols {
		g.Go(func() error {
			r, err := p.CommitCollection(gctx, c)
			if err != nil {
				return err
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	slices.SortFunc(results, func(a, b Result) int { return strings.Compare(a.Name, b.Name) })
	return results, nil
}

// CommitCollection commits one collection. Concurrent calls for the same
// collection state share one write.
func (p *Persister) CommitCollection(ctx context.Context, c *collection.Collection) (Result, error) {
	key := fmt.Sprintf("%s@%d", c.Name(), c.Version())
	v, err, _ := p.group.Do(key, func() (any, error) {
		return p.commit(ctx, c)
	})
	if err != nil {
		return Result{}, err
	}
	return v.(Result), nil
}

func (p *Persister) commit(ctx context.Context, c *collection.Collection) (Result, error) {
	name := c.Name()
	l := p.lock(name)
	l.Lock()
	defer l.Unlock()

	version := c.Version()
	p.mu.Lock()
	prev, hasPrev := p.committed[name]
	p.mu.Unlock()
	if hasPrev && prev.coll == c && prev.version == version {
		return Result{Name: name, Snapshot: prev.snapshot, Records: c.Len(), Skipped: true}, nil
	}

	if err := p.ctrl.AcquireCommit(ctx); err != nil {
		return Result{}, err
	}
	defer p.ctrl.ReleaseCommit()

	entries := c.Entries()
	records := make([]model.Record, len(entries))
	for i, e := range entries {
		records[i] = e.Record
	}
	data, err := snapshot.Encode(&snapshot.Snapshot{
		Name:      name,
		Dimension: c.Dimension(),
		Metric:    c.Metric(),
		Records:   records,
	}, p.compression)
	if err != nil {
		return Result{}, err
	}

	held, err := p.ctrl.AcquireBuffer(ctx, int64(len(data)))
	if err != nil {
		return Result{}, err
	}
	defer p.ctrl.ReleaseBuffer(held)

	if err := p.ctrl.AcquireIO(ctx, len(data)); err != nil {
		return Result{}, err
	}

	snap := uuid.NewString() + snapshotExt
	if err := p.store.Put(ctx, SnapshotKey(name, snap), data); err != nil {
		return Result{}, fmt.Errorf("write snapshot of %q: %w", name, err)
	}
	if err := p.store.Put(ctx, CurrentKey(name), []byte(snap)); err != nil {
		// The pointer still names the previous snapshot.
		_ = p.store.Delete(context.WithoutCancel(ctx), SnapshotKey(name, snap))
		return Result{}, fmt.Errorf("swap pointer of %q: %w", name, err)
	}

	p.mu.Lock()
	p.committed[name] = state{coll: c, version: version, snapshot: snap}
	p.mu.Unlock()

	res := Result{Name: name, Snapshot: snap, Records: len(records), Bytes: len(data)}
	if !p.keepPrevious {
		res.Pruned, res.PruneErr = p.prune(ctx, name, snap)
	}
	return res, nil
}

// prune removes every snapshot of name except keep.
func (p *Persister) prune(ctx context.Context, name, keep string) (int, error) {
	names, err := p.store.List(ctx, Dir(name)+"/")
	if err != nil {
		return 0, err
	}
	var (
		pruned   int
		firstErr error
	)
	for _, n := range names {
		base := path.Base(n)
		if base == keep || !strings.HasSuffix(base, snapshotExt) || path.Dir(n) != Dir(name) {
			continue
		}
		if err := p.store.Delete(ctx, n); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		pruned++
	}
	return pruned, firstErr
}

// Drop removes every persisted blob of a collection. The pointer goes first
// so an interrupted drop never leaves it naming a deleted snapshot.
func (p *Persister) Drop(ctx context.Context, name string) error {
	l := p.lock(name)
	l.Lock()
	defer l.Unlock()

	if err := p.store.Delete(ctx, CurrentKey(name)); err != nil {
		return fmt.Errorf("drop %q: %w", name, err)
	}
	names, err := p.store.List(ctx, Dir(name)+"/")
	if err != nil {
		return fmt.Errorf("drop %q: %w", name, err)
	}
	for _, n := range names {
		if path.Dir(n) != Dir(name) {
			continue
		}
		if err := p.store.Delete(ctx, n); err != nil {
			return fmt.Errorf("drop %q: %w", name, err)
		}
	}

	p.mu.Lock()
	delete(p.committed, name)
	p.mu.Unlock()
	return nil
}

// Names returns the names of all persisted collections that have a
// directory in the store, sorted.
func (p *Persister) Names(ctx context.Context) ([]string, error) {
	blobs, err := p.store.List(ctx, Root+"/")
	if err != nil {
		return nil, err
	}
	var names []string
	for _, b := range blobs {
		rest := strings.TrimPrefix(b, Root+"/")
		name, _, ok := strings.Cut(rest, "/")
		if ok && name != "" {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return slices.Compact(names), nil
}

// Load reads the active snapshot of every persisted collection and returns
// fresh collections built with newCollection, sorted by name. Directories
// without a pointer are skipped.
func (p *Persister) Load(ctx context.Context, newCollection Factory) ([]*collection.Collection, error) {
	names, err := p.Names(ctx)
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}

	loaded := make([]*collection.Collection, len(names))
	g, gctx := errgroup.WithContext(ctx)
	if n := p.ctrl.Config().MaxConcurrentCommits; n > 0 {
		g.SetLimit(int(n))
	}
	for i, name := range names {
		g.Go(func() error {
			c, err := p.LoadCollection(gctx, name, newCollection)
			if errors.Is(err, blobstore.ErrNotFound) {
				return nil
			}
			if err != nil {
				return err
			}
			loaded[i] = c
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := loaded[:0]
	for _, c := range loaded {
		if c != nil {
			out = append(out, c)
		}
	}
	return out, nil
}

// LoadCollection reads the active snapshot of one collection. It returns an
// error wrapping blobstore.ErrNotFound when the collection has no pointer.
func (p *Persister) LoadCollection(ctx context.Context, name string, newCollection Factory) (*collection.Collection, error) {
	pointer, err := p.store.Get(ctx, CurrentKey(name))
	if err != nil {
		return nil, fmt.Errorf("read pointer of %q: %w", name, err)
	}
	snap := strings.TrimSpace(string(pointer))
	if err := blobstore.ValidateName(snap); err != nil || strings.Contains(snap, "/") {
		return nil, fmt.Errorf("pointer of %q: %w: %q", name, snapshot.ErrCorrupt, snap)
	}

	data, err := p.store.Get(ctx, SnapshotKey(name, snap))
	if err != nil {
		if errors.Is(err, blobstore.ErrNotFound) {
			// A dangling pointer is corruption, not an absent collection.
			return nil, fmt.Errorf("snapshot %s of %q is missing: %w", snap, name, snapshot.ErrCorrupt)
		}
		return nil, fmt.Errorf("read snapshot of %q: %w", name, err)
	}

	held, err := p.ctrl.AcquireBuffer(ctx, int64(len(data)))
	if err != nil {
		return nil, err
	}
	defer p.ctrl.ReleaseBuffer(held)

	s, err := snapshot.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("decode snapshot of %q: %w", name, err)
	}
	if s.Name != name {
		return nil, fmt.Errorf("%w: %q found under %q", ErrNameMismatch, s.Name, name)
	}

	c, err := newCollection(name, s.Dimension, s.Metric)
	if err != nil {
		return nil, fmt.Errorf("restore %q: %w", name, err)
	}
	if err := c.Replace(s.Records); err != nil {
		return nil, fmt.Errorf("restore %q: %w", name, err)
	}

	p.mu.Lock()
	p.committed[name] = state{coll: c, version: c.Version(), snapshot: snap}
	p.mu.Unlock()
	return c, nil
}
