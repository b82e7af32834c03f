// Package scheduler implements the dependency-graph executor of spec.md
// §4.10: a cooperative main-thread graph of Node values plus two bounded
// worker pools (hashing, write-tree) feeding completions back onto the
// main thread's ready queue, grounded on the teacher's channel/errgroup
// worker-pool idiom (pkg/serve/odb/oss.go's uploadGroup).
package scheduler

import (
	"fmt"
)

// Node is one unit of dependency-graph work (spec.md §4.10). Nodes are
// held in an Executor's arena and referenced by index rather than pointer,
// per the teacher's preference for slice-backed arenas over pointer graphs
// in hot structures (modules/merkletrie's frame stack uses the same
// index-over-pointer style).
type Node struct {
	id         int
	label      string
	dependsOn  int // count of unsatisfied dependencies
	dependents []int
	ready      bool
	completed  bool
	cancelled  bool
	forced     bool // cancelled with force=true: detached from its own dependencies
	complete   func() error
	onCancel   func()
	err        error
}

// ID returns the node's arena index.
func (n *Node) ID() int { return n.id }

// Completed reports whether complete() has already run.
func (n *Node) Completed() bool { return n.completed }

// Cancelled reports whether the node was cancelled (directly or
// transitively) before it could complete.
func (n *Node) Cancelled() bool { return n.cancelled }

// Err returns the error recorded by the node's complete callback, if any.
func (n *Node) Err() error { return n.err }

func (n *Node) String() string {
	return fmt.Sprintf("node(%d:%s)", n.id, n.label)
}
