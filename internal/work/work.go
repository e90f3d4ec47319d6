package work

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/remeh/sizedwaitgroup"
)

var (
	ErrQueueFull = errors.New("work queue full")
	ErrStopped   = errors.New("work manager stopped")
)

// Request is a unit of background work. Do runs on a pool goroutine; Done
// runs later on whichever goroutine calls Update.
type Request struct {
	Name string
	Do   func(ctx context.Context) (any, error)
	Done func(result any, err error)
}

type result struct {
	req     Request
	value   any
	err     error
	elapsed time.Duration
}

// Manager runs requests on a fixed size pool and hands the results back a
// few at a time so the caller's frame never stalls on a burst of them.
type Manager struct {
	log       *slog.Logger
	perUpdate int

	in  chan Request
	swg sizedwaitgroup.SizedWaitGroup

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	out     []result
	stopped bool

	dispatched chan struct{}
}

func New(poolSize, queueSize, perUpdate int, log *slog.Logger) *Manager {
	if log == nil {
		log = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		log:        log,
		perUpdate:  max(perUpdate, 1),
		in:         make(chan Request, max(queueSize, 1)),
		swg:        sizedwaitgroup.New(max(poolSize, 1)),
		ctx:        ctx,
		cancel:     cancel,
		dispatched: make(chan struct{}),
	}
	go m.dispatch()
	return m
}

func (m *Manager) dispatch() {
	defer close(m.dispatched)
	for req := range m.in {
		if m.swg.AddWithContext(m.ctx) != nil {
			continue
		}
		go func(req Request) {
			defer m.swg.Done()
			start := time.Now()
			v, err := req.Do(m.ctx)
			m.push(result{req: req, value: v, err: err, elapsed: time.Since(start)})
		}(req)
	}
}

func (m *Manager) push(r result) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.stopped {
		m.out = append(m.out, r)
	}
}

// Send queues a request without blocking.
func (m *Manager) Send(req Request) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopped {
		return ErrStopped
	}
	select {
	case m.in <- req:
		return nil
	default:
		return ErrQueueFull
	}
}

// Update delivers at most perUpdate finished requests and returns how many
// it delivered.
func (m *Manager) Update() int {
	m.mu.Lock()
	n := min(m.perUpdate, len(m.out))
	ready := append([]result(nil), m.out[:n]...)
	m.out = append(m.out[:0], m.out[n:]...)
	m.mu.Unlock()

	for _, r := range ready {
		if r.err != nil {
			m.log.Warn("work failed", "request", r.req.Name, "elapsed", r.elapsed, "error", r.err)
		} else {
			m.log.Debug("work done", "request", r.req.Name, "elapsed", r.elapsed)
		}
		if r.req.Done != nil {
			r.req.Done(r.value, r.err)
		}
	}
	return n
}

// Pending returns the number of finished results not delivered yet.
func (m *Manager) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.out)
}

// Stop cancels running requests, drops queued ones and waits for the pool
// to drain.
func (m *Manager) Stop() {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return
	}
	m.stopped = true
	close(m.in)
	m.mu.Unlock()

	m.cancel()
	<-m.dispatched
	m.swg.Wait()

	m.mu.Lock()
	m.out = nil
	m.mu.Unlock()
}
