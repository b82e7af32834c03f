package scheduler

import (
	"context"
	"runtime"
	"sync"
)

// completion is one worker-pool result, posted to the main thread's
// completion channel and applied there via Executor.Complete/Cancel
// (spec.md §5 "tasks read immutable inputs and return results posted to a
// thread-safe completion queue consumed by the main thread").
type completion struct {
	nodeID int
	err    error
}

// Pool is a bounded worker pool feeding a completion channel, grounded on
// the teacher's uploadGroup (pkg/serve/odb/oss.go): a buffered work
// channel, N long-lived goroutines, and an explicit Wait/Close shutdown
// rather than spawning one goroutine per task.
type Pool struct {
	work chan func() (int, error)
	done chan completion
	wg   sync.WaitGroup
}

// HashingPoolSize is spec.md §4.10's "max(4, min(16, cores))".
func HashingPoolSize() int {
	n := runtime.NumCPU()
	if n > 16 {
		n = 16
	}
	if n < 4 {
		n = 4
	}
	return n
}

// NewPool starts a pool of size workers. A size of 1 implements the
// single-worker write-tree pool that serialises git write-tree on one
// working directory (spec.md §4.10).
func NewPool(ctx context.Context, size int) *Pool {
	if size < 1 {
		size = 1
	}
	p := &Pool{
		work: make(chan func() (int, error), size*4),
		done: make(chan completion, size*4),
	}
	for range size {
		p.wg.Add(1)
		go p.worker(ctx)
	}
	return p
}

func (p *Pool) worker(ctx context.Context) {
	defer p.wg.Done()
	for fn := range p.work {
		select {
		case <-ctx.Done():
			p.done <- completion{err: ctx.Err()}
			continue
		default:
		}
		id, err := fn()
		p.done <- completion{nodeID: id, err: err}
	}
}

// Submit enqueues a task. fn must return the node ID it completes (so the
// main thread can route the result) plus any error.
func (p *Pool) Submit(fn func() (int, error)) {
	p.work <- fn
}

// Completions returns the channel the main thread should range over to
// apply results via Executor.Complete/Cancel.
func (p *Pool) Completions() <-chan completion {
	return p.done
}

// NodeID reports which node a completion belongs to.
func (c completion) NodeID() int { return c.nodeID }

// Err reports the completion's error, if any.
func (c completion) Err() error { return c.err }

// Close stops accepting work, waits for in-flight tasks to drain, and
// closes the completion channel.
func (p *Pool) Close() {
	close(p.work)
	p.wg.Wait()
	close(p.done)
}
