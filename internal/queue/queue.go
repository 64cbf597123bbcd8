// Package queue serializes render requests so only one render is in flight.
//
// Requests are processed strictly in submission order by a single drain
// goroutine. When the backlog grows past MaxPending, every waiting request
// except the newest is completed as superseded: callers typing quickly only
// care about the latest text, so stale work is dropped before it starts.
// Cancellation is cooperative; a render that has started always finishes.
package queue

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
)

// Defaults mirror an interactive editor's typing cadence.
const (
	DefaultMaxPending = 5
	DefaultYieldEvery = 3
)

// ErrClosed is returned for requests submitted after Close.
var ErrClosed = errors.New("render queue closed")

// Status distinguishes how a request completed.
type Status int

const (
	// StatusRendered means HTML holds the markup for the submitted text.
	StatusRendered Status = iota
	// StatusSuperseded means a newer request replaced this one before it ran.
	StatusSuperseded
	// StatusFailed means Err explains why no markup was produced.
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusRendered:
		return "rendered"
	case StatusSuperseded:
		return "superseded"
	case StatusFailed:
		return "failed"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// Result is delivered exactly once per submitted request.
type Result struct {
	Status Status
	HTML   string
	Err    error
}

// State reports whether the drain loop is running.
type State int

const (
	Idle State = iota
	Draining
)

// RenderFunc renders text. It should call yield between units of work
// (e.g. chunks) so long renders do not starve other goroutines.
type RenderFunc func(ctx context.Context, text string, yield func()) (string, error)

// Option configures a Queue.
type Option func(*Queue)

// WithMaxPending sets the backlog size above which stale requests are dropped.
func WithMaxPending(n int) Option {
	return func(q *Queue) {
		if n > 0 {
			q.maxPending = n
		}
	}
}

// WithYieldEvery sets how many requests are processed between yields.
func WithYieldEvery(n int) Option {
	return func(q *Queue) {
		if n > 0 {
			q.yieldEvery = n
		}
	}
}

// WithYield replaces runtime.Gosched as the yield primitive.
func WithYield(fn func()) Option {
	return func(q *Queue) {
		if fn != nil {
			q.yield = fn
		}
	}
}

type request struct {
	ctx  context.Context
	text string
	done chan Result
}

func (r *request) complete(res Result) {
	r.done <- res // buffered, sent once
}

// Queue runs RenderFunc for submitted texts one at a time.
type Queue struct {
	render     RenderFunc
	maxPending int
	yieldEvery int
	yield      func()

	mu       sync.Mutex
	pending  []*request
	draining bool
	closed   bool
	wg       sync.WaitGroup
}

// New creates a Queue that renders with fn.
func New(fn RenderFunc, opts ...Option) *Queue {
	q := &Queue{
		render:     fn,
		maxPending: DefaultMaxPending,
		yieldEvery: DefaultYieldEvery,
		yield:      runtime.Gosched,
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Submit enqueues text and returns a channel receiving exactly one Result.
func (q *Queue) Submit(ctx context.Context, text string) <-chan Result {
	req := &request{ctx: ctx, text: text, done: make(chan Result, 1)}

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		req.complete(Result{Status: StatusFailed, Err: ErrClosed})
		return req.done
	}

	if len(q.pending) > q.maxPending {
		newest := q.pending[len(q.pending)-1]
		for _, stale := range q.pending[:len(q.pending)-1] {
			stale.complete(Result{Status: StatusSuperseded})
		}
		q.pending = append(q.pending[:0], newest)
	}
	q.pending = append(q.pending, req)

	if !q.draining {
		q.draining = true
		q.wg.Add(1)
		go q.drain()
	}
	return req.done
}

// State reports whether a drain loop is active.
func (q *Queue) State() State {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.draining {
		return Draining
	}
	return Idle
}

// Pending returns the number of requests waiting to be processed.
func (q *Queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Close stops accepting requests, supersedes everything still waiting and
// waits for the in-flight render to finish.
func (q *Queue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		q.wg.Wait()
		return
	}
	q.closed = true
	for _, stale := range q.pending {
		stale.complete(Result{Status: StatusSuperseded})
	}
	q.pending = nil
	q.mu.Unlock()

	q.wg.Wait()
}

// drain processes requests until the queue is empty.
func (q *Queue) drain() {
	defer q.wg.Done()

	for processed := 1; ; processed++ {
		q.mu.Lock()
		if len(q.pending) == 0 {
			q.draining = false
			q.mu.Unlock()
			return
		}
		req := q.pending[0]
		q.pending[0] = nil
		q.pending = q.pending[1:]
		q.mu.Unlock()

		req.complete(q.process(req))

		if processed%q.yieldEvery == 0 {
			q.yield()
		}
	}
}

// process renders one request, converting panics into failures so the drain
// loop survives a misbehaving RenderFunc.
func (q *Queue) process(req *request) (res Result) {
	if err := req.ctx.Err(); err != nil {
		return Result{Status: StatusFailed, Err: err}
	}

	defer func() {
		if r := recover(); r != nil {
			res = Result{Status: StatusFailed, Err: fmt.Errorf("render panic: %v", r)}
		}
	}()

	html, err := q.render(req.ctx, req.text, q.yield)
	if err != nil {
		return Result{Status: StatusFailed, Err: err}
	}
	return Result{Status: StatusRendered, HTML: html}
}
