package scheduler

import (
	"context"
	"reflect"
)

// AsyncNode schedules a node whose work runs on a worker pool rather than
// the main thread (spec.md §4.10's hash-object and write-tree tasks). It
// creates the node itself with a nil complete callback (the real work
// happens in fn, off the main thread) and submits fn to pool at once,
// before any dependency is added; the caller still marks the node Ready.
func (e *Executor) AsyncNode(pool *Pool, label string, fn func() error) int {
	id := e.AddNode(label, nil)
	pool.Submit(func() (int, error) {
		return id, fn()
	})
	return id
}

// RunAsync drains both the synchronous ready queue and the given pools'
// completion channels until every node registered so far has either
// completed or been cancelled — the async variant of Drain referenced in
// spec.md §4.10 ("an async variant uses a thread-safe queue populated by
// thread-pool callbacks and may block").
func RunAsync(ctx context.Context, e *Executor, pools ...*Pool) error {
	var firstErr error

	applySync := func() {
		for {
			id := e.Pop()
			if id < 0 {
				return
			}
			n := e.nodes[id]
			if n.complete == nil {
				// Async node: its own pool goroutine already owns the
				// work; nothing to run on the main thread yet.
				continue
			}
			if err := e.Complete(id); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}

	applyCompletion := func(c completion) {
		if c.err != nil {
			if firstErr == nil {
				firstErr = c.err
			}
			n := e.nodes[c.nodeID]
			n.err = c.err
			n.completed = true
			for _, d := range n.dependents {
				e.Cancel(d, false)
			}
			return
		}
		if err := e.Complete(c.nodeID); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	remaining := func() bool {
		for _, n := range e.nodes {
			if !n.completed && !n.cancelled {
				return true
			}
		}
		return false
	}

	applySync()
	for remaining() {
		cases := make([]reflect.SelectCase, 0, len(pools)+1)
		for _, p := range pools {
			cases = append(cases, reflect.SelectCase{Dir: reflect.SelectRecv, Chan: reflect.ValueOf(p.done)})
		}
		cases = append(cases, reflect.SelectCase{Dir: reflect.SelectRecv, Chan: reflect.ValueOf(ctx.Done())})

		chosen, recv, ok := reflect.Select(cases)
		if chosen == len(cases)-1 {
			if firstErr == nil {
				firstErr = ctx.Err()
			}
			return firstErr
		}
		if !ok {
			continue
		}
		applyCompletion(recv.Interface().(completion))
		applySync()
	}
	return firstErr
}
