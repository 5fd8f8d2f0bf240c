package mcts

// Shared constraints and small types that didn't fit the node or tree files

// Moves are opaque to the engine; it only stores them, hands them back to the
// game state, and compares them when committing.
type MoveLike comparable

// Players are opaque as well, used only to ask the evaluator for a reward
// from a given player's perspective.
type PlayerLike comparable

// ThreadData is per-worker mutable state. Each worker owns exactly one and
// never shares it, so no synchronization is needed on its fields.
type ThreadData struct {
	// PolicyData belongs to the tree policy (see TreePolicy.NewThreadData)
	PolicyData any
	// ExtraData is free for user instrumentation
	ExtraData any
}

type SeedGeneratorFnType func() int64
