package mcts

import "sync/atomic"

// SearchNode represents a reached game state: one outgoing edge per legal
// move at expansion time, the evaluator's state evaluation, and a hot token
// for cycle detection. A node is created exactly once, by the winner of the
// parent edge's expansion race, and is never mutated afterwards except
// through its edges' statistics. With a transposition table the same node may
// hang below many edges; the tree keeps every node alive for its whole
// lifetime, so edges and table entries hold plain non-owning pointers.
type SearchNode[M MoveLike, E, V any] struct {
	edges []MoveInfo[M, E, V]
	eval  E

	// Token of the playout currently holding this node on its path, zero when
	// cold. Read/written only through markHot/clearHot.
	hot atomic.Uint64

	// Data is an arbitrary user payload, untouched by the engine
	Data any
}

func newSearchNode[M MoveLike, E, V any](moves []M, moveEvals []V, eval E) *SearchNode[M, E, V] {
	node := &SearchNode[M, E, V]{
		edges: make([]MoveInfo[M, E, V], len(moves)),
		eval:  eval,
	}
	for i := range node.edges {
		node.edges[i].move = moves[i]
		node.edges[i].moveEval = moveEvals[i]
	}
	return node
}

// Edges returns the node's outgoing edges. The slice is fixed at
// construction; callers must not grow it.
func (n *SearchNode[M, E, V]) Edges() []MoveInfo[M, E, V] {
	return n.edges
}

// Edge returns a pointer to the i-th outgoing edge
func (n *SearchNode[M, E, V]) Edge(i int) *MoveInfo[M, E, V] {
	return &n.edges[i]
}

// Evaluation returns the immutable state evaluation produced when the node
// was expanded
func (n *SearchNode[M, E, V]) Evaluation() E {
	return n.eval
}

// markHot claims the node for the playout identified by token. It reports
// whether the claim succeeded and whether this playout already holds the node
// (a cycle). A node held by another playout's token is simply left unclaimed.
func (n *SearchNode[M, E, V]) markHot(token uint64) (claimed, cycle bool) {
	cur := n.hot.Load()
	if cur == token {
		return false, true
	}
	if cur == 0 && n.hot.CompareAndSwap(0, token) {
		return true, false
	}
	return false, false
}

// clearHot releases the node if this playout still holds it
func (n *SearchNode[M, E, V]) clearHot(token uint64) {
	n.hot.CompareAndSwap(token, 0)
}

// MoveInfo is an edge: a move with its statistics and an atomic pointer to
// the child node. sumRewards is kept from the owning node's player's
// perspective and is temporarily depressed by the virtual loss while playouts
// are in flight on the edge, so concurrent selectors see a lowered estimate
// and prefer siblings.
type MoveInfo[M MoveLike, E, V any] struct {
	move     M
	moveEval V

	visits     atomic.Uint64
	sumRewards atomic.Int64
	child      atomic.Pointer[SearchNode[M, E, V]]
}

// Move returns the move this edge plays
func (mi *MoveInfo[M, E, V]) Move() M {
	return mi.move
}

// MoveEvaluation returns the per-move evaluation produced at expansion time
func (mi *MoveInfo[M, E, V]) MoveEvaluation() V {
	return mi.moveEval
}

// Visits returns the number of traversals started on this edge. Readers
// tolerate mild staleness.
func (mi *MoveInfo[M, E, V]) Visits() uint64 {
	return mi.visits.Load()
}

// SumRewards returns the cumulative reward, including any pending virtual
// losses of in-flight playouts
func (mi *MoveInfo[M, E, V]) SumRewards() int64 {
	return mi.sumRewards.Load()
}

// Mean returns the average reward per visit, zero for an unvisited edge
func (mi *MoveInfo[M, E, V]) Mean() float64 {
	v := mi.Visits()
	if v == 0 {
		return 0
	}
	return float64(mi.SumRewards()) / float64(v)
}

// Child returns the node below this edge, nil while unexpanded. Once
// non-nil the pointer never changes.
func (mi *MoveInfo[M, E, V]) Child() *SearchNode[M, E, V] {
	return mi.child.Load()
}

// Down charges one visit and the virtual loss; called during selection
func (mi *MoveInfo[M, E, V]) Down(virtualLoss int64) {
	mi.visits.Add(1)
	mi.sumRewards.Add(-virtualLoss)
}

// Up undoes the virtual loss charged by Down and deposits the real reward;
// called during backpropagation by the same playout that called Down
func (mi *MoveInfo[M, E, V]) Up(virtualLoss, reward int64) {
	mi.sumRewards.Add(virtualLoss + reward)
}

// Replace installs child if the edge is still unexpanded and reports whether
// this caller won the race. A loser must discard its candidate and adopt
// Child instead.
func (mi *MoveInfo[M, E, V]) Replace(child *SearchNode[M, E, V]) bool {
	return mi.child.CompareAndSwap(nil, child)
}
