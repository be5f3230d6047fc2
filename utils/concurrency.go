package utils

import (
	"context"
	"net/url"
	"strings"
	"sync"
	"time"
)

// WorkerPool runs jobs on a bounded number of goroutines with a minimum
// interval between job starts.
type WorkerPool struct {
	rateLimit   time.Duration
	sem         *Semaphore
	wg          sync.WaitGroup
	mu          sync.Mutex
	lastRequest time.Time
}

// NewWorkerPool creates a WorkerPool with the given concurrency and rate limit.
func NewWorkerPool(maxWorkers, rateLimitMs int) *WorkerPool {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	return &WorkerPool{
		rateLimit: time.Duration(rateLimitMs) * time.Millisecond,
		sem:       NewSemaphore(maxWorkers),
	}
}

// Submit blocks until a worker slot is free, then runs job in a goroutine.
// It returns false without running job when ctx is done first.
func (wp *WorkerPool) Submit(ctx context.Context, job func(context.Context)) bool {
	if ctx.Err() != nil {
		return false
	}
	if err := wp.sem.Acquire(ctx); err != nil {
		return false
	}
	wp.wg.Add(1)

	go func() {
		defer wp.wg.Done()
		defer wp.sem.Release()

		if err := wp.enforceRateLimit(ctx); err != nil {
			return
		}
		job(ctx)
	}()
	return true
}

// Wait blocks until all submitted jobs have completed.
func (wp *WorkerPool) Wait() {
	wp.wg.Wait()
}

func (wp *WorkerPool) enforceRateLimit(ctx context.Context) error {
	wp.mu.Lock()
	defer wp.mu.Unlock()

	if wp.rateLimit > 0 && !wp.lastRequest.IsZero() {
		if wait := wp.rateLimit - time.Since(wp.lastRequest); wait > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
		}
	}
	wp.lastRequest = time.Now()
	return nil
}

// Semaphore is a counting semaphore whose Acquire honours cancellation.
// A nil *Semaphore never blocks.
type Semaphore struct {
	slots chan struct{}
}

// NewSemaphore returns a semaphore with n slots, or nil when n <= 0.
func NewSemaphore(n int) *Semaphore {
	if n <= 0 {
		return nil
	}
	return &Semaphore{slots: make(chan struct{}, n)}
}

// Acquire takes a slot or returns ctx.Err().
func (s *Semaphore) Acquire(ctx context.Context) error {
	if s == nil {
		return nil
	}
	select {
	case s.slots <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release returns a slot taken by Acquire.
func (s *Semaphore) Release() {
	if s == nil {
		return
	}
	<-s.slots
}

// InUse reports how many slots are currently held.
func (s *Semaphore) InUse() int {
	if s == nil {
		return 0
	}
	return len(s.slots)
}

// URLSet is a thread-safe set for tracking URLs already queued.
// URLs are compared after trimming whitespace and dropping the fragment.
type URLSet struct {
	mu   sync.RWMutex
	seen map[string]struct{}
}

// NewURLSet creates an empty URLSet.
func NewURLSet() *URLSet {
	return &URLSet{seen: make(map[string]struct{})}
}

// Add returns true if the URL was newly added, false if already present.
func (s *URLSet) Add(rawURL string) bool {
	key := urlKey(rawURL)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.seen[key]; exists {
		return false
	}
	s.seen[key] = struct{}{}
	return true
}

// Contains returns true if the URL has already been added.
func (s *URLSet) Contains(rawURL string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, exists := s.seen[urlKey(rawURL)]
	return exists
}

// Size returns the number of unique URLs tracked.
func (s *URLSet) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.seen)
}

func urlKey(rawURL string) string {
	rawURL = strings.TrimSpace(rawURL)
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	u.Fragment = ""
	return u.String()
}
