package render

import (
	"image"
	"io"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/panelkit/paneld/pkg/profile"
)

// Job is one button render request. Bindings are a snapshot taken on the
// owning device's command queue; the worker only reads them and calls the
// instances' thread-safe Render hooks.
type Job struct {
	DeviceID string
	Key      uint8
	Size     image.Point
	Revision uint64
	Bindings []*profile.Binding
}

// Result is the completion of one render job.
type Result struct {
	DeviceID string
	Key      uint8
	Image    *Image
	CacheHit bool
	Err      error
}

// Pipeline is the bounded render worker pool with its shared image cache.
type Pipeline struct {
	workers int
	jobs    chan Job
	results chan Result

	cacheMu sync.RWMutex
	cache   map[CacheKey]*Image

	// submitMu orders Submit against Close: jobs enter the channel only
	// under the read lock, and the channel is closed under the write
	// lock, so a send can never hit a closed channel.
	submitMu sync.RWMutex

	logger  *slog.Logger
	wg      sync.WaitGroup
	running atomic.Bool
}

// NewPipeline creates a pipeline with the given worker count.
// workers <= 0 sizes the pool to the available CPU parallelism.
func NewPipeline(workers int, logger *slog.Logger) *Pipeline {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Pipeline{
		workers: workers,
		jobs:    make(chan Job, 256),
		results: make(chan Result, 256),
		cache:   make(map[CacheKey]*Image),
		logger:  logger,
	}
}

// Start launches the worker goroutines.
func (p *Pipeline) Start() {
	if p.running.Swap(true) {
		return
	}
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	p.logger.Debug("render pipeline started", "workers", p.workers)
}

// Submit enqueues a render job. Blocks only while the job queue is full.
// Jobs arriving before Start or after Close are dropped: shutdown
// abandons late render work rather than crashing a still-draining
// submitter.
func (p *Pipeline) Submit(job Job) {
	p.submitMu.RLock()
	defer p.submitMu.RUnlock()
	if !p.running.Load() {
		return
	}
	p.jobs <- job
}

// Results returns the completion channel. It is closed after Close once
// all in-flight jobs have finished.
func (p *Pipeline) Results() <-chan Result {
	return p.results
}

// Close stops accepting jobs, waits for in-flight renders to finish, and
// closes the results channel.
func (p *Pipeline) Close() {
	if !p.running.Swap(false) {
		return
	}
	p.submitMu.Lock()
	close(p.jobs)
	p.submitMu.Unlock()
	p.wg.Wait()
	close(p.results)
	p.logger.Debug("render pipeline drained")
}

func (p *Pipeline) worker() {
	defer p.wg.Done()
	for job := range p.jobs {
		img, hit, err := p.RenderButton(job)
		p.results <- Result{
			DeviceID: job.DeviceID,
			Key:      job.Key,
			Image:    img,
			CacheHit: hit,
			Err:      err,
		}
	}
}

// RenderButton renders one job, consulting the cache first. For an
// unchanged button state the previously rendered Image is returned as-is;
// any state change produces a different hash and a fresh composite.
func (p *Pipeline) RenderButton(job Job) (*Image, bool, error) {
	key := ButtonHash(job.DeviceID, job.Key, job.Size, job.Revision, job.Bindings)

	p.cacheMu.RLock()
	cached, ok := p.cache[key]
	p.cacheMu.RUnlock()
	if ok {
		return cached, true, nil
	}

	img, err := Composite(job.Bindings, job.Size)
	if err != nil {
		return nil, false, err
	}

	p.cacheMu.Lock()
	if len(p.cache) >= maxCacheEntries {
		// Entries for detached devices or superseded revisions are
		// unreachable by hash; dropping everything and re-rendering on
		// demand keeps the bound without per-entry bookkeeping.
		p.cache = make(map[CacheKey]*Image)
	}
	p.cache[key] = img
	p.cacheMu.Unlock()
	return img, false, nil
}

// CacheSize returns the number of cached images.
func (p *Pipeline) CacheSize() int {
	p.cacheMu.RLock()
	defer p.cacheMu.RUnlock()
	return len(p.cache)
}

// maxCacheEntries bounds the cache; past this the whole cache is dropped
// and rebuilt on demand.
const maxCacheEntries = 4096
