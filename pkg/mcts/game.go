package mcts

// The user-implemented contracts. G is always the implementing type itself,
// so Clone can return the concrete type without an interface round trip.

// GameState is the game being searched. Implementations are mutated in place
// by MakeMove; every playout works on its own clone, so a state is never
// touched by two workers at once.
type GameState[M MoveLike, P PlayerLike, G any] interface {
	// Clone returns an independent copy, safe to hand to another goroutine
	Clone() G
	// CurrentPlayer returns the player to move
	CurrentPlayer() P
	// AvailableMoves returns every legal move. An empty list means the state
	// is terminal.
	AvailableMoves() []M
	// MakeMove applies mv to the state in place
	MakeMove(mv M)
}

// TranspositionHash is implemented by states that can key a transposition
// table. Equal states must hash equal; collisions merely degrade search
// accuracy (see TranspositionTable).
type TranspositionHash interface {
	Hash() uint64
}

// Evaluator scores states. The state evaluation type E is opaque to the
// engine; the per-move evaluation type V is opaque to everything but the
// tree policy.
type Evaluator[M MoveLike, P PlayerLike, E, V any, G GameState[M, P, G]] interface {
	// EvaluateNewState scores a state seen for the first time, returning one
	// move evaluation per entry of moves plus the state evaluation. handle is
	// nil while the root is evaluated during tree construction.
	EvaluateNewState(state G, moves []M, handle *SearchHandle[M, P, E, V, G]) ([]V, E)

	// EvaluateExistingState may refine an evaluation when a playout reaches a
	// node that already exists: a transposition, or the winner of a lost
	// expansion race.
	EvaluateExistingState(state G, existing E, handle *SearchHandle[M, P, E, V, G]) E

	// InterpretEvaluationForPlayer converts an evaluation into a reward from
	// the given player's perspective.
	InterpretEvaluationForPlayer(eval E, player P) int64
}

// TreePolicy chooses which edge a playout follows during descent
type TreePolicy[M MoveLike, E, V any] interface {
	// Select returns the index of the chosen edge in node.Edges. Edge
	// statistics read here may be mildly stale; the virtual-loss scheme is
	// self-correcting.
	Select(tld *ThreadData, node *SearchNode[M, E, V]) int

	// NewThreadData allocates the policy's per-worker state, stored in
	// ThreadData.PolicyData. May return nil for stateless policies.
	NewThreadData() any
}

// SearchHandle gives user callbacks read-only access to the in-progress
// search and to their own thread-local data.
type SearchHandle[M MoveLike, P PlayerLike, E, V any, G GameState[M, P, G]] struct {
	tree *SearchTree[M, P, E, V, G]
	tld  *ThreadData
}

// NodeCount returns the tree's current node count
func (h *SearchHandle[M, P, E, V, G]) NodeCount() uint64 {
	return h.tree.NodeCount()
}

// RootNode returns the tree's root
func (h *SearchHandle[M, P, E, V, G]) RootNode() *SearchNode[M, E, V] {
	return h.tree.RootNode()
}

// ThreadData returns the calling worker's thread-local data
func (h *SearchHandle[M, P, E, V, G]) ThreadData() *ThreadData {
	return h.tld
}
