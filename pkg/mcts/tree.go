package mcts

import (
	"fmt"
	"sync/atomic"
)

// SearchTree owns every node of the search. Nodes are allocated during
// expansion, published through an edge's child CAS (and the transposition
// table), and stay alive until the whole tree is unreachable; nothing is
// freed individually, so edges and table entries are plain pointers.
//
// All playout-path state is atomic; the tree takes no locks. Many workers
// may call Playout concurrently.
type SearchTree[M MoveLike, P PlayerLike, E, V any, G GameState[M, P, G]] struct {
	conf      *Config[M, P, E, V, G]
	cycleMode CycleMode

	root      *SearchNode[M, E, V]
	rootState G

	// nodeCount is an upper bound on live nodes, never decremented; losers of
	// expansion races keep their reservation
	nodeCount atomic.Uint64

	// tokens issues per-playout identities for hot marking
	tokens atomic.Uint64
}

// step records one selection on the playout path: the node we selected at,
// the chosen edge, and the player who was to move there
type step[M MoveLike, P PlayerLike, E, V any] struct {
	node   *SearchNode[M, E, V]
	edge   *MoveInfo[M, E, V]
	player P
}

// NewSearchTree evaluates state as the root and prepares an empty tree
// around it. The tree keeps state as its root template; callers must not
// mutate it afterwards.
func NewSearchTree[M MoveLike, P PlayerLike, E, V any, G GameState[M, P, G]](
	state G, conf *Config[M, P, E, V, G],
) *SearchTree[M, P, E, V, G] {
	conf.validate()

	t := &SearchTree[M, P, E, V, G]{
		conf:      conf,
		rootState: state,
	}

	t.cycleMode = conf.Cycle.Mode
	if t.cycleMode == CycleDefault {
		if _, noop := conf.Table.(NoTable[M, E, V, G]); noop {
			t.cycleMode = CycleIgnore
		} else {
			t.cycleMode = CyclePanic
		}
	}

	moves := state.AvailableMoves()
	moveEvals, eval := conf.Evaluator.EvaluateNewState(state, moves, nil)
	checkMoveEvals(len(moveEvals), len(moves))
	t.root = newSearchNode(moves, moveEvals, eval)
	t.nodeCount.Store(1)
	t.conf.Table.Insert(state, t.root)

	return t
}

// RootNode returns the node the tree was built around
func (t *SearchTree[M, P, E, V, G]) RootNode() *SearchNode[M, E, V] {
	return t.root
}

// RootState returns the root state template
func (t *SearchTree[M, P, E, V, G]) RootState() G {
	return t.rootState
}

// NodeCount returns the number of node reservations made so far; an upper
// bound on live nodes. Playouts never push it above the configured node
// limit; nodes created by Descend and Reset are counted without that check.
func (t *SearchTree[M, P, E, V, G]) NodeCount() uint64 {
	return t.nodeCount.Load()
}

// NodeForState consults the transposition table for a node matching state.
// Subject to the table's weak contract: nil does not mean absent.
func (t *SearchTree[M, P, E, V, G]) NodeForState(state G) *SearchNode[M, E, V] {
	return t.conf.Table.Lookup(state)
}

// Config returns the tree's configuration
func (t *SearchTree[M, P, E, V, G]) Config() *Config[M, P, E, V, G] {
	return t.conf
}

func (t *SearchTree[M, P, E, V, G]) newThreadData() *ThreadData {
	return &ThreadData{PolicyData: t.conf.Policy.NewThreadData()}
}

// Playout runs one playout from the root: select until a childless edge,
// expand it at most once, evaluate, backpropagate. state must be a private
// clone of the root state. Returns false when the node limit aborted the
// playout, which tells the caller to wind the search down.
func (t *SearchTree[M, P, E, V, G]) Playout(state G, tld *ThreadData) bool {
	return t.playoutFrom(t.root, state, tld)
}

func (t *SearchTree[M, P, E, V, G]) playoutFrom(start *SearchNode[M, E, V], state G, tld *ThreadData) bool {
	handle := &SearchHandle[M, P, E, V, G]{tree: t, tld: tld}
	token := t.tokens.Add(1)
	vl := t.conf.VirtualLoss

	var marked []*SearchNode[M, E, V]
	defer func() {
		for _, n := range marked {
			n.clearHot(token)
		}
	}()

	path := make([]step[M, P, E, V], 0, 32)
	current := start
	var leafEval E

descent:
	for {
		if claimed, cycle := current.markHot(token); claimed {
			marked = append(marked, current)
		} else if cycle {
			switch t.cycleMode {
			case CycleIgnore:
				// carry on as if the node were fresh
			case CycleUseCurrentEval:
				leafEval = current.eval
				break descent
			case CycleUseThisEval:
				leafEval = t.conf.Cycle.Eval
				break descent
			default:
				panic("mcts: cycle detected during playout")
			}
		}

		if len(current.edges) == 0 {
			// Terminal node: playouts never allocate one, but a committed or
			// reset terminal state gets one and the table can hand it out
			leafEval = current.eval
			break descent
		}

		player := state.CurrentPlayer()
		idx := t.conf.Policy.Select(tld, current)
		if idx < 0 || idx >= len(current.edges) {
			panic(fmt.Sprintf("mcts: tree policy selected edge %d of %d", idx, len(current.edges)))
		}
		edge := &current.edges[idx]
		path = append(path, step[M, P, E, V]{node: current, edge: edge, player: player})
		if len(path) >= t.conf.MaxPlayoutLength {
			panic("mcts: max playout length exceeded, the game does not terminate")
		}

		edge.Down(vl)
		state.MakeMove(edge.move)

		if child := edge.Child(); child != nil {
			current = child
			continue
		}

		// Childless edge: adopt a transposed subtree, expand, or evaluate in place
		eval, ok := t.expandLeaf(edge, state, handle)
		if !ok {
			return false
		}
		leafEval = eval
		break descent
	}

	// Backpropagate in reverse, undoing virtual losses and depositing the
	// reward from each node's player's perspective
	for i := len(path) - 1; i >= 0; i-- {
		s := &path[i]
		reward := t.conf.Evaluator.InterpretEvaluationForPlayer(leafEval, s.player)
		s.edge.Up(vl, reward)
		if t.conf.OnBackpropagation != nil {
			t.conf.OnBackpropagation(leafEval, handle)
		}
	}
	return true
}

// expandLeaf resolves a childless edge whose move has just been applied to
// state. It returns the evaluation to backpropagate, or ok=false when the
// node limit aborted the playout.
func (t *SearchTree[M, P, E, V, G]) expandLeaf(
	edge *MoveInfo[M, E, V], state G, handle *SearchHandle[M, P, E, V, G],
) (E, bool) {
	var zero E

	// A transposed subtree may already hold this state
	if found := t.conf.Table.Lookup(state); found != nil {
		if !edge.Replace(found) {
			// Another thread installed a different child first; adopt it
			found = edge.Child()
		}
		return t.conf.Evaluator.EvaluateExistingState(state, found.eval, handle), true
	}

	moves := state.AvailableMoves()

	// Terminal leaf: nothing to allocate, the evaluation is the payoff
	if len(moves) == 0 {
		_, eval := t.conf.Evaluator.EvaluateNewState(state, moves, handle)
		return eval, true
	}

	// Below the expansion threshold the edge stays childless
	if edge.Visits() < t.conf.VisitsBeforeExpansion {
		_, eval := t.conf.Evaluator.EvaluateNewState(state, moves, handle)
		return eval, true
	}

	if !t.reserveNode() {
		return zero, false
	}

	moveEvals, eval := t.conf.Evaluator.EvaluateNewState(state, moves, handle)
	checkMoveEvals(len(moveEvals), len(moves))
	fresh := newSearchNode(moves, moveEvals, eval)

	// Publish: table first (it may hand back an equivalent node), then the
	// edge CAS. Either step can replace our candidate with a winner from
	// another thread; the discarded node is left to the collector.
	winner := fresh
	if prev := t.conf.Table.Insert(state, fresh); prev != nil {
		winner = prev
	}
	if !edge.Replace(winner) {
		winner = edge.Child()
	}

	if winner != fresh {
		return t.conf.Evaluator.EvaluateExistingState(state, winner.eval, handle), true
	}
	return eval, true
}

// reserveNode claims a node slot without ever letting the count pass the limit
func (t *SearchTree[M, P, E, V, G]) reserveNode() bool {
	for {
		n := t.nodeCount.Load()
		if n >= t.conf.NodeLimit {
			return false
		}
		if t.nodeCount.CompareAndSwap(n, n+1) {
			return true
		}
	}
}

// expandState builds and publishes a node for state outside any playout.
// Used by Descend and by root replacement; not limited by NodeLimit because
// committing a move must always succeed.
func (t *SearchTree[M, P, E, V, G]) expandState(state G, tld *ThreadData) *SearchNode[M, E, V] {
	handle := &SearchHandle[M, P, E, V, G]{tree: t, tld: tld}
	moves := state.AvailableMoves()
	moveEvals, eval := t.conf.Evaluator.EvaluateNewState(state, moves, handle)
	checkMoveEvals(len(moveEvals), len(moves))

	node := newSearchNode(moves, moveEvals, eval)
	t.nodeCount.Add(1)
	if prev := t.conf.Table.Insert(state, node); prev != nil {
		return prev
	}
	return node
}

// Descend ensures edge has a child matching newState and publishes it in the
// transposition table, returning the child. It is NOT safe to run while
// playouts are in flight; the Manager refuses to commit while a parallel
// search runs.
func (t *SearchTree[M, P, E, V, G]) Descend(edge *MoveInfo[M, E, V], newState G, tld *ThreadData) *SearchNode[M, E, V] {
	if child := edge.Child(); child != nil {
		t.conf.Table.Insert(newState, child)
		return child
	}
	node := t.expandState(newState, tld)
	if !edge.Replace(node) {
		node = edge.Child()
	}
	return node
}

func checkMoveEvals(got, want int) {
	if got != want {
		panic(fmt.Sprintf("mcts: evaluator returned %d move evaluations for %d moves", got, want))
	}
}
