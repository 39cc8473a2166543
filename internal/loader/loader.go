// Package loader reads the message log through a short-lived cache so that
// frequent polling does not re-read and re-parse an unchanged file.
package loader

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/stellarlinkco/wamonitor/internal/message"
	"golang.org/x/sync/singleflight"
)

// DefaultTTL is how long a loaded dataset is served before the file is read again.
const DefaultTTL = 5 * time.Second

// LoadError reports a message log that exists but could not be read or
// parsed. A file caught mid-write by its producer ends up here too.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

type Option func(*Loader)

// WithTTL overrides DefaultTTL. Non-positive values disable caching.
func WithTTL(ttl time.Duration) Option {
	return func(l *Loader) { l.ttl = ttl }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(l *Loader) { l.now = now }
}

// WithLocation sets the zone record times are expressed in. Defaults to UTC.
func WithLocation(loc *time.Location) Option {
	return func(l *Loader) { l.loc = loc }
}

// Loader owns the cache for one message log. It is safe for concurrent use;
// concurrent misses share a single read.
type Loader struct {
	path string
	ttl  time.Duration
	loc  *time.Location
	now  func() time.Time

	mu       sync.Mutex
	data     *message.Dataset
	loadedAt time.Time
	fresh    bool
	gen      uint64

	group singleflight.Group
}

func New(path string, opts ...Option) *Loader {
	l := &Loader{
		path: path,
		ttl:  DefaultTTL,
		loc:  time.UTC,
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.loc == nil {
		l.loc = time.UTC
	}
	return l
}

func (l *Loader) Path() string {
	return l.path
}

func (l *Loader) TTL() time.Duration {
	return l.ttl
}

// LoadedAt returns when the cached dataset was read, and whether one is cached.
func (l *Loader) LoadedAt() (time.Time, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loadedAt, l.fresh
}

// Load returns the current dataset. A missing file yields an empty dataset.
// A file that exists but cannot be parsed yields a *LoadError and leaves
// the cache empty, so the next call tries again.
func (l *Loader) Load(ctx context.Context) (*message.Dataset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if ds, ok := l.cached(); ok {
		return ds, nil
	}

	// Keyed by generation so a Load after Invalidate never joins a read
	// that started before it.
	gen := l.generation()
	v, err, _ := l.group.Do(strconv.FormatUint(gen, 10), func() (any, error) {
		if ds, ok := l.cached(); ok {
			return ds, nil
		}
		ds, err := l.read()
		if err != nil {
			return nil, err
		}
		l.store(ds, gen)
		return ds, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*message.Dataset), nil
}

// Invalidate drops the cached dataset; the next Load reads the file.
func (l *Loader) Invalidate() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.data = nil
	l.fresh = false
	l.gen++
}

func (l *Loader) cached() (*message.Dataset, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.fresh || l.ttl <= 0 {
		return nil, false
	}
	if l.now().Sub(l.loadedAt) >= l.ttl {
		return nil, false
	}
	return l.data, true
}

func (l *Loader) generation() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.gen
}

// store caches ds unless an Invalidate happened while it was being read.
func (l *Loader) store(ds *message.Dataset, gen uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if gen != l.gen {
		return
	}
	l.data = ds
	l.loadedAt = l.now()
	l.fresh = true
}

func (l *Loader) read() (*message.Dataset, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return message.Empty(), nil
		}
		return nil, &LoadError{Path: l.path, Err: err}
	}

	ds, err := message.Parse(data, l.loc)
	if err != nil {
		log.Printf("[loader] parse %s failed: %v", l.path, err)
		return nil, &LoadError{Path: l.path, Err: err}
	}
	log.Printf("[loader] loaded %d messages from %s", ds.Len(), l.path)
	return ds, nil
}
