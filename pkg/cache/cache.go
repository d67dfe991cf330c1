package cache

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/yndd/ndd-runtime/pkg/logging"
	"github.com/yndd/yang-explorer/pkg/schema"
	"golang.org/x/sync/singleflight"
)

// ErrNotFound is returned when no compiled schema exists for a key
var ErrNotFound = errors.New("schema not found")

const (
	errLoad             = "cannot load schema"
	errRevisionMismatch = "revision mismatch"

	fileExt = ".xml"
)

// Key identifies a compiled module. An empty revision matches whatever
// revision the loader finds.
type Key struct {
	Module   string
	Revision string
}

func (k Key) String() string {
	if k.Revision == "" {
		return k.Module
	}
	return k.Module + "@" + k.Revision
}

// KeyFromFile returns the key of a compiled schema file named
// module.xml or module@revision.xml
func KeyFromFile(name string) (Key, bool) {
	base := filepath.Base(name)
	if !strings.HasSuffix(base, fileExt) {
		return Key{}, false
	}
	base = strings.TrimSuffix(base, fileExt)
	module, revision, _ := strings.Cut(base, "@")
	if module == "" {
		return Key{}, false
	}
	return Key{Module: module, Revision: revision}, true
}

// Loader builds the model of a key
type Loader func(ctx context.Context, key Key) (*schema.Model, error)

// FileLoader loads compiled schema documents from dir. A revisioned key is
// looked up as module@revision.xml first and module.xml second.
func FileLoader(dir string) Loader {
	return func(ctx context.Context, key Key) (*schema.Model, error) {
		names := []string{key.Module + fileExt}
		if key.Revision != "" {
			names = append([]string{key.String() + fileExt}, names...)
		}
		for _, name := range names {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			m, err := schema.LoadFile(filepath.Join(dir, name))
			if err != nil {
				if os.IsNotExist(errors.Cause(err)) {
					continue
				}
				return nil, err
			}
			if key.Revision != "" && m.Revision() != key.Revision {
				return nil, errors.Wrapf(ErrNotFound, "%s: %s has %s", errRevisionMismatch, key, m.Revision())
			}
			return m, nil
		}
		return nil, errors.Wrap(ErrNotFound, key.String())
	}
}

// Cache holds compiled models keyed by module and revision. Concurrent
// lookups of a missing key share a single build.
type Cache struct {
	mu     sync.RWMutex
	models map[Key]*schema.Model
	// generations are bumped by invalidations so builds of the same key
	// started before them are not stored
	keyGen    map[Key]uint64
	moduleGen map[string]uint64

	group   singleflight.Group
	load    Loader
	metrics *Metrics
	// logging
	log logging.Logger
}

// Option can be used to manipulate the cache
type Option func(c *Cache)

// WithLogger specifies how the Cache should log messages.
func WithLogger(log logging.Logger) Option {
	return func(c *Cache) {
		c.log = log
	}
}

// WithMetrics records cache activity in m
func WithMetrics(m *Metrics) Option {
	return func(c *Cache) {
		c.metrics = m
	}
}

// New returns an empty cache building models with load
func New(load Loader, opts ...Option) *Cache {
	c := &Cache{
		models:    make(map[Key]*schema.Model),
		keyGen:    make(map[Key]uint64),
		moduleGen: make(map[string]uint64),
		load:      load,
		log:       logging.NewNopLogger(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Get returns the model of key, building it when it is not cached. The
// build is shared by every caller asking for key meanwhile and is not
// canceled with ctx; ctx only bounds how long this caller waits.
func (c *Cache) Get(ctx context.Context, key Key) (*schema.Model, error) {
	if m, ok := c.lookup(key); ok {
		if c.metrics != nil {
			c.metrics.Hits.Inc()
		}
		return m, nil
	}
	if c.metrics != nil {
		c.metrics.Misses.Inc()
	}
	bctx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key.String(), func() (interface{}, error) {
		return c.build(bctx, key)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*schema.Model), nil
	}
}

func (c *Cache) lookup(key Key) (*schema.Model, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	m, ok := c.models[key]
	return m, ok
}

func (c *Cache) build(ctx context.Context, key Key) (*schema.Model, error) {
	// a build finishing between lookup and DoChan already stored the model
	c.mu.RLock()
	m, ok := c.models[key]
	kgen, mgen := c.keyGen[key], c.moduleGen[key.Module]
	c.mu.RUnlock()
	if ok {
		return m, nil
	}

	c.log.Debug("building schema", "key", key.String())
	m, err := c.load(ctx, key)
	if err != nil {
		if c.metrics != nil {
			c.metrics.Builds.WithLabelValues("error").Inc()
		}
		return nil, errors.Wrap(err, errLoad)
	}
	if c.metrics != nil {
		c.metrics.Builds.WithLabelValues("ok").Inc()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.keyGen[key] == kgen && c.moduleGen[key.Module] == mgen {
		c.models[key] = m
		c.updateSize()
	}
	return m, nil
}

// Invalidate drops the model of key. Holders of the model keep using it.
func (c *Cache) Invalidate(key Key) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.keyGen[key]++
	if _, ok := c.models[key]; !ok {
		return false
	}
	delete(c.models, key)
	c.dropped(1)
	return true
}

// InvalidateModule drops every revision of module and returns how many
// models were dropped
func (c *Cache) InvalidateModule(module string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.moduleGen[module]++
	n := 0
	for k := range c.models {
		if k.Module == module {
			delete(c.models, k)
			n++
		}
	}
	c.dropped(n)
	return n
}

func (c *Cache) dropped(n int) {
	c.log.Debug("invalidated schemas", "count", n)
	if c.metrics != nil {
		c.metrics.Invalidations.Add(float64(n))
	}
	c.updateSize()
}

func (c *Cache) updateSize() {
	if c.metrics != nil {
		c.metrics.Models.Set(float64(len(c.models)))
	}
}

// Keys returns the cached keys sorted by module and revision
func (c *Cache) Keys() []Key {
	c.mu.RLock()
	keys := make([]Key, 0, len(c.models))
	for k := range c.models {
		keys = append(keys, k)
	}
	c.mu.RUnlock()
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Module != keys[j].Module {
			return keys[i].Module < keys[j].Module
		}
		return keys[i].Revision < keys[j].Revision
	})
	return keys
}

// Len returns the number of cached models
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.models)
}

// Chain tries each loader in turn and returns the first model found. Only
// ErrNotFound moves on to the next loader.
func Chain(loaders ...Loader) Loader {
	return func(ctx context.Context, key Key) (*schema.Model, error) {
		err := errors.Wrap(ErrNotFound, key.String())
		for _, load := range loaders {
			var m *schema.Model
			m, err = load(ctx, key)
			if err == nil {
				return m, nil
			}
			if !errors.Is(err, ErrNotFound) {
				return nil, err
			}
		}
		return nil, err
	}
}
