package cache

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/yndd/yang-explorer/pkg/schema"
)

func exampleDir(t *testing.T, names ...string) string {
	t.Helper()
	b, err := os.ReadFile("../schema/testdata/example.xml")
	if err != nil {
		t.Fatal(err)
	}
	dir := t.TempDir()
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(dir, name), b, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestKeyFromFile(t *testing.T) {
	tests := []struct {
		inp string
		exp Key
		ok  bool
	}{
		{inp: "/a/example.xml", exp: Key{Module: "example"}, ok: true},
		{inp: "example@2022-01-01.xml", exp: Key{Module: "example", Revision: "2022-01-01"}, ok: true},
		{inp: "example.yang", ok: false},
		{inp: "@2022.xml", ok: false},
	}
	for _, tt := range tests {
		got, ok := KeyFromFile(tt.inp)
		if ok != tt.ok || got != tt.exp {
			t.Errorf("KeyFromFile(%s) = %v %v, want %v %v", tt.inp, got, ok, tt.exp, tt.ok)
		}
	}
	if s := (Key{Module: "example", Revision: "2022-01-01"}).String(); s != "example@2022-01-01" {
		t.Errorf("String() = %s", s)
	}
}

func TestFileLoader(t *testing.T) {
	dir := exampleDir(t, "example.xml")
	load := FileLoader(dir)
	tests := []struct {
		key Key
		err error
	}{
		{key: Key{Module: "example"}},
		{key: Key{Module: "example", Revision: "2022-01-01"}},
		{key: Key{Module: "example", Revision: "2020-01-01"}, err: ErrNotFound},
		{key: Key{Module: "other"}, err: ErrNotFound},
	}
	for _, tt := range tests {
		m, err := load(context.Background(), tt.key)
		if tt.err != nil {
			if !errors.Is(err, tt.err) {
				t.Errorf("load(%s) error = %v, want %v", tt.key, err, tt.err)
			}
			continue
		}
		if err != nil || m.Name() != "example" {
			t.Errorf("load(%s) = %v, %v", tt.key, m, err)
		}
	}

	if err := os.WriteFile(filepath.Join(dir, "broken.xml"), []byte("<node"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := load(context.Background(), Key{Module: "broken"}); !errors.Is(err, schema.ErrMalformed) {
		t.Errorf("load(broken) error = %v, want ErrMalformed", err)
	}
}

func TestGet(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	c := New(FileLoader(exampleDir(t, "example.xml")), WithMetrics(metrics))
	ctx := context.Background()

	first, err := c.Get(ctx, Key{Module: "example"})
	if err != nil {
		t.Fatal(err)
	}
	second, err := c.Get(ctx, Key{Module: "example"})
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Errorf("Get() built the model twice")
	}
	if _, err := c.Get(ctx, Key{Module: "missing"}); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(missing) error = %v", err)
	}

	tests := []struct {
		name string
		c    prometheus.Collector
		exp  float64
	}{
		{name: "hits", c: metrics.Hits, exp: 1},
		{name: "misses", c: metrics.Misses, exp: 2},
		{name: "builds ok", c: metrics.Builds.WithLabelValues("ok"), exp: 1},
		{name: "builds error", c: metrics.Builds.WithLabelValues("error"), exp: 1},
		{name: "models", c: metrics.Models, exp: 1},
	}
	for _, tt := range tests {
		if got := testutil.ToFloat64(tt.c); got != tt.exp {
			t.Errorf("%s = %v, want %v", tt.name, got, tt.exp)
		}
	}
}

func TestGetSingleBuild(t *testing.T) {
	var builds int32
	release := make(chan struct{})
	base := FileLoader(exampleDir(t, "example.xml"))
	load := func(ctx context.Context, key Key) (*schema.Model, error) {
		atomic.AddInt32(&builds, 1)
		<-release
		return base(ctx, key)
	}
	c := New(load)

	var wg sync.WaitGroup
	models := make([]*schema.Model, 8)
	for i := range models {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			m, err := c.Get(context.Background(), Key{Module: "example"})
			if err != nil {
				t.Errorf("Get(): %v", err)
			}
			models[i] = m
		}(i)
	}
	// give the callers time to join the build
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if n := atomic.LoadInt32(&builds); n != 1 {
		t.Errorf("builds = %d, want 1", n)
	}
	for _, m := range models {
		if m != models[0] {
			t.Errorf("callers got different models")
		}
	}
}

func TestGetCanceled(t *testing.T) {
	block := make(chan struct{})
	defer close(block)
	c := New(func(ctx context.Context, key Key) (*schema.Model, error) {
		<-block
		return nil, ErrNotFound
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.Get(ctx, Key{Module: "example"}); !errors.Is(err, context.Canceled) {
		t.Errorf("Get() error = %v, want context.Canceled", err)
	}
}

func TestInvalidate(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	c := New(FileLoader(exampleDir(t, "example.xml", "example@2022-01-01.xml")), WithMetrics(metrics))
	ctx := context.Background()

	old, err := c.Get(ctx, Key{Module: "example"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.Get(ctx, Key{Module: "example", Revision: "2022-01-01"}); err != nil {
		t.Fatal(err)
	}
	exp := []Key{{Module: "example"}, {Module: "example", Revision: "2022-01-01"}}
	if keys := c.Keys(); len(keys) != 2 || keys[0] != exp[0] || keys[1] != exp[1] {
		t.Errorf("Keys() = %v", keys)
	}

	if !c.Invalidate(Key{Module: "example"}) {
		t.Errorf("Invalidate() found nothing")
	}
	if c.Invalidate(Key{Module: "example"}) {
		t.Errorf("second Invalidate() dropped a model")
	}
	// the dropped model stays usable
	if _, err := old.Lookup("example/interfaces"); err != nil {
		t.Errorf("stale model: %v", err)
	}
	fresh, err := c.Get(ctx, Key{Module: "example"})
	if err != nil {
		t.Fatal(err)
	}
	if fresh == old {
		t.Errorf("Get() after Invalidate() returned the dropped model")
	}

	if n := c.InvalidateModule("example"); n != 2 {
		t.Errorf("InvalidateModule() = %d, want 2", n)
	}
	if c.Len() != 0 {
		t.Errorf("Len() = %d", c.Len())
	}
	if got := testutil.ToFloat64(metrics.Invalidations); got != 3 {
		t.Errorf("invalidations = %v, want 3", got)
	}
	if got := testutil.ToFloat64(metrics.Models); got != 0 {
		t.Errorf("models = %v, want 0", got)
	}
}

func TestWatch(t *testing.T) {
	dir := exampleDir(t, "example.xml")
	c := New(FileLoader(dir))
	if _, err := c.Get(context.Background(), Key{Module: "example"}); err != nil {
		t.Fatal(err)
	}
	w, err := c.Watch(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	b, err := os.ReadFile(filepath.Join(dir, "example.xml"))
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "example.xml"), b, 0o644); err != nil {
		t.Fatal(err)
	}
	deadline := time.Now().Add(5 * time.Second)
	for c.Len() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("model not invalidated after write")
		}
		time.Sleep(10 * time.Millisecond)
	}

	if _, err := c.Watch(filepath.Join(dir, "missing")); err == nil {
		t.Errorf("Watch() of a missing directory succeeded")
	}
}

func TestChain(t *testing.T) {
	var calls []string
	loader := func(name string, err error) Loader {
		return func(ctx context.Context, key Key) (*schema.Model, error) {
			calls = append(calls, name)
			if err != nil {
				return nil, err
			}
			return FileLoader(exampleDir(t, "example.xml"))(ctx, key)
		}
	}
	tests := []struct {
		loaders []Loader
		calls   []string
		err     error
	}{
		{loaders: []Loader{loader("a", ErrNotFound), loader("b", nil)}, calls: []string{"a", "b"}},
		{loaders: []Loader{loader("a", nil), loader("b", nil)}, calls: []string{"a"}},
		{loaders: []Loader{loader("a", schema.ErrMalformed), loader("b", nil)}, calls: []string{"a"}, err: schema.ErrMalformed},
		{loaders: []Loader{loader("a", ErrNotFound)}, calls: []string{"a"}, err: ErrNotFound},
		{loaders: nil, calls: nil, err: ErrNotFound},
	}
	for i, tt := range tests {
		calls = nil
		m, err := Chain(tt.loaders...)(context.Background(), Key{Module: "example"})
		if tt.err != nil {
			if !errors.Is(err, tt.err) {
				t.Errorf("%d: error = %v, want %v", i, err, tt.err)
			}
		} else if err != nil || m == nil {
			t.Errorf("%d: Chain() = %v, %v", i, m, err)
		}
		if len(calls) != len(tt.calls) {
			t.Errorf("%d: calls = %v, want %v", i, calls, tt.calls)
		}
	}
}

func TestGetSharedBuildOutlivesCaller(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	base := FileLoader(exampleDir(t, "example.xml"))
	c := New(func(ctx context.Context, key Key) (*schema.Model, error) {
		close(started)
		<-release
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return base(ctx, key)
	})

	ctx, cancel := context.WithCancel(context.Background())
	first := make(chan error, 1)
	go func() {
		_, err := c.Get(ctx, Key{Module: "example"})
		first <- err
	}()
	<-started

	second := make(chan error, 1)
	go func() {
		_, err := c.Get(context.Background(), Key{Module: "example"})
		second <- err
	}()
	// give the second caller time to join the build
	time.Sleep(20 * time.Millisecond)
	cancel()
	if err := <-first; !errors.Is(err, context.Canceled) {
		t.Errorf("first Get() error = %v, want context.Canceled", err)
	}
	close(release)
	if err := <-second; err != nil {
		t.Errorf("second Get() error = %v", err)
	}
	if c.Len() != 1 {
		t.Errorf("Len() = %d, want 1", c.Len())
	}
}

func TestInvalidateOtherKeyKeepsBuild(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	base := FileLoader(exampleDir(t, "example.xml"))
	c := New(func(ctx context.Context, key Key) (*schema.Model, error) {
		close(started)
		<-release
		return base(ctx, key)
	})

	done := make(chan error, 1)
	go func() {
		_, err := c.Get(context.Background(), Key{Module: "example"})
		done <- err
	}()
	<-started
	c.Invalidate(Key{Module: "other"})
	c.InvalidateModule("another")
	close(release)
	if err := <-done; err != nil {
		t.Fatalf("Get(): %v", err)
	}
	if c.Len() != 1 {
		t.Errorf("Len() = %d, want 1 after invalidating unrelated keys", c.Len())
	}
}

func TestInvalidateDuringBuild(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	base := FileLoader(exampleDir(t, "example.xml"))
	c := New(func(ctx context.Context, key Key) (*schema.Model, error) {
		close(started)
		<-release
		return base(ctx, key)
	})

	done := make(chan error, 1)
	go func() {
		_, err := c.Get(context.Background(), Key{Module: "example"})
		done <- err
	}()
	<-started
	c.InvalidateModule("example")
	close(release)
	if err := <-done; err != nil {
		t.Fatalf("Get(): %v", err)
	}
	if c.Len() != 0 {
		t.Errorf("Len() = %d, want 0: a build started before invalidation must not be stored", c.Len())
	}
}
