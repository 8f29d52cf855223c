// Package service wraps a Broadphase with the concurrency boundary a
// multi-client HTTP service needs: Broadphase itself is
// single-threaded-cooperative by design (see spatial.Broadphase's doc
// comment), so Service owns a tick loop that applies every queued mutation,
// makes each mutating Broadphase call (the tick loop's and Clear's) under
// the write lock of a RWMutex, and guards reads from concurrent HTTP
// handlers with the same RWMutex — the same shape the teacher's
// game.Engine uses to separate its own tick loop from concurrent API reads.
package service

import (
	"log"
	"sync"
	"time"

	"sap2d/internal/metrics"
	"sap2d/internal/spatial"
)

// Service owns a Broadphase, a CommandQueue feeding it, and the tick loop
// that drains the queue and applies commands.
type Service struct {
	mu sync.RWMutex
	bp *spatial.Broadphase

	queue    *spatial.CommandQueue
	tickRate int
	drainMax int

	running  bool
	ticker   *time.Ticker
	stopChan chan struct{}
}

// Config sizes a Service's Broadphase and tick loop.
type Config struct {
	MaxEntities  int
	MaxOverlaps  int
	TickRate     int
	QueueDepth   int
	DrainPerTick int
}

// New constructs a Service. The tick loop is not started until Start.
func New(cfg Config) *Service {
	return &Service{
		bp:       spatial.New(cfg.MaxEntities, cfg.MaxOverlaps),
		queue:    spatial.NewCommandQueue(cfg.QueueDepth),
		tickRate: cfg.TickRate,
		drainMax: cfg.DrainPerTick,
		stopChan: make(chan struct{}),
	}
}

// Submit enqueues a command for the next tick. Returns false if the queue
// is full — callers should surface that as backpressure (503) rather than
// block, matching the rate limiter's own non-blocking Allow contract.
func (s *Service) Submit(cmd spatial.Command) bool {
	return s.queue.TryPush(cmd)
}

// Start begins the tick loop.
func (s *Service) Start() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.mu.Unlock()

	s.ticker = time.NewTicker(time.Second / time.Duration(s.tickRate))

	go func() {
		buf := make([]spatial.Command, s.drainMax)
		for {
			select {
			case <-s.ticker.C:
				s.tick(buf)
			case <-s.stopChan:
				return
			}
		}
	}()

	log.Printf("broadphase service started at %d TPS", s.tickRate)
}

// Stop stops the tick loop.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	s.running = false
	if s.ticker != nil {
		s.ticker.Stop()
	}
	close(s.stopChan)
	log.Println("broadphase service stopped")
}

func (s *Service) tick(buf []spatial.Command) {
	n := s.queue.Drain(buf)
	if n == 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i := 0; i < n; i++ {
		start := time.Now()
		if err := buf[i].Apply(s.bp); err != nil {
			if err == spatial.ErrOverCapacity {
				metrics.RecordOverCapacity()
			}
			log.Printf("broadphase: command %d failed: %v", buf[i].Kind, err)
		}
		if buf[i].Kind == spatial.CommandUpdate {
			metrics.RecordUpdate(time.Since(start))
		}
	}

	stats := s.bp.Stats()
	metrics.UpdateProxyCount(stats.NumEntities)
	metrics.UpdatePairCount(stats.NumPairs)
	metrics.UpdateMaxOverlapsPerEntityUsed(stats.MaxOverlapsPerEntityUsed)
}

// Stats returns a point-in-time population snapshot under a read lock.
func (s *Service) Stats() spatial.Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.bp.Stats()
}

// Pairs returns a copy of the current pair words under a read lock. A copy
// is necessary here (unlike Broadphase.Pairs' reused-slice contract)
// because the underlying slice can be mutated by the next tick the instant
// the read lock is released.
func (s *Service) Pairs() []uint32 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	words := s.bp.Pairs()
	out := make([]uint32, len(words))
	copy(out, words)
	return out
}

// Clear deregisters every proxy under the write lock. Unlike Submit, this
// runs synchronously rather than going through the command queue: there is
// no per-proxy state to reconcile afterward, just every proxy at once.
func (s *Service) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bp.Clear()
	stats := s.bp.Stats()
	metrics.UpdateProxyCount(stats.NumEntities)
	metrics.UpdatePairCount(stats.NumPairs)
	metrics.UpdateMaxOverlapsPerEntityUsed(stats.MaxOverlapsPerEntityUsed)
}

// View runs fn with the read lock held, which is the only safe way to reach
// into proxy-level detail (AABB, Filter) that Pairs/Stats don't expose.
func (s *Service) View(fn func(bp *spatial.Broadphase)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(s.bp)
}
