package mdrender

import (
	"errors"
	"runtime"
	"sync"
)

// Pool sizing constants.
const (
	// MinPoolSize ensures at least one worker is available.
	MinPoolSize = 1

	// MaxPoolSize caps browser instances to limit memory (~200MB each).
	MaxPoolSize = 8

	// cpuDivisor leaves headroom for Chromium child processes.
	cpuDivisor = 2
)

// ServicePool hands out Service instances for parallel exports. Each
// service launches its own browser, so exports do not contend for pages.
// Services are created lazily on first acquire.
type ServicePool struct {
	size int
	opts []Option
	sem  chan *Service

	mu       sync.Mutex
	services []*Service
	created  int
	closed   bool
}

// NewServicePool creates a pool of up to n services built with opts.
func NewServicePool(n int, opts ...Option) *ServicePool {
	if n < MinPoolSize {
		n = MinPoolSize
	}
	return &ServicePool{
		size:     n,
		opts:     opts,
		services: make([]*Service, 0, n),
		sem:      make(chan *Service, n),
	}
}

// Acquire returns an idle service, creating one if the pool is not full.
// Blocks while every service is in use.
func (p *ServicePool) Acquire() (*Service, error) {
	select {
	case svc, ok := <-p.sem:
		if !ok {
			return nil, ErrServiceClosed
		}
		return svc, nil
	default:
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrServiceClosed
	}
	if p.created < p.size {
		p.created++
		p.mu.Unlock()

		svc, err := New(p.opts...)
		p.mu.Lock()
		if err != nil {
			p.created--
			p.mu.Unlock()
			return nil, err
		}
		p.services = append(p.services, svc)
		p.mu.Unlock()
		return svc, nil
	}
	p.mu.Unlock()

	svc, ok := <-p.sem
	if !ok {
		return nil, ErrServiceClosed
	}
	return svc, nil
}

// Release returns svc to the pool. The send happens under the lock so it
// cannot race with Close; the channel has room for every service.
func (p *ServicePool) Release(svc *Service) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.sem <- svc
}

// Close shuts down every service the pool created.
func (p *ServicePool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.sem)
	services := p.services
	p.mu.Unlock()

	var errs []error
	for _, svc := range services {
		if err := svc.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Size returns the pool capacity.
func (p *ServicePool) Size() int {
	return p.size
}

// ResolvePoolSize picks a worker count: an explicit positive value wins,
// otherwise half of GOMAXPROCS clamped to [MinPoolSize, MaxPoolSize].
func ResolvePoolSize(workers int) int {
	if workers > 0 {
		return workers
	}
	n := runtime.GOMAXPROCS(0) / cpuDivisor
	if n < MinPoolSize {
		return MinPoolSize
	}
	if n > MaxPoolSize {
		return MaxPoolSize
	}
	return n
}
