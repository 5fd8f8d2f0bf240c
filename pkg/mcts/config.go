package mcts

// Config aggregates the pluggable collaborators (tree policy, evaluator,
// transposition table) with the engine's tuning knobs. Build one with
// NewConfig and chain the setters:
//
//	conf := mcts.NewConfig[Move, Player, int64, struct{}](
//		policy, eval, table,
//	).SetVirtualLoss(3).SetNodeLimit(1 << 20)
type Config[M MoveLike, P PlayerLike, E, V any, G GameState[M, P, G]] struct {
	Policy    TreePolicy[M, E, V]
	Evaluator Evaluator[M, P, E, V, G]
	Table     TranspositionTable[M, E, V, G]

	// VirtualLoss is charged to an edge while a playout is in flight on it
	VirtualLoss int64

	// VisitsBeforeExpansion delays node allocation until an edge has been
	// traversed this many times; below the threshold the leaf is evaluated
	// without growing the tree
	VisitsBeforeExpansion uint64

	// NodeLimit bounds the number of allocated nodes; a playout that would
	// exceed it aborts and the search winds down
	NodeLimit uint64

	// MaxPlayoutLength bounds a single descent; exceeding it panics, since a
	// well-formed game terminates long before the default of one million
	MaxPlayoutLength int

	Cycle CycleBehaviour[E]

	// OnBackpropagation runs after every edge update during backpropagation
	OnBackpropagation func(eval E, handle *SearchHandle[M, P, E, V, G])

	// OnNodeLimit runs at most once per search when the node limit aborts a
	// playout. Nil means a log warning.
	OnNodeLimit func(limit uint64)
}

func NewConfig[M MoveLike, P PlayerLike, E, V any, G GameState[M, P, G]](
	policy TreePolicy[M, E, V],
	evaluator Evaluator[M, P, E, V, G],
	table TranspositionTable[M, E, V, G],
) *Config[M, P, E, V, G] {
	return &Config[M, P, E, V, G]{
		Policy:                policy,
		Evaluator:             evaluator,
		Table:                 table,
		VirtualLoss:           DefaultVirtualLoss,
		VisitsBeforeExpansion: DefaultVisitsBeforeExpansion,
		NodeLimit:             DefaultNodeLimit,
		MaxPlayoutLength:      DefaultMaxPlayoutLength,
	}
}

func (c *Config[M, P, E, V, G]) SetVirtualLoss(vl int64) *Config[M, P, E, V, G] {
	c.VirtualLoss = vl
	return c
}

func (c *Config[M, P, E, V, G]) SetVisitsBeforeExpansion(visits uint64) *Config[M, P, E, V, G] {
	c.VisitsBeforeExpansion = max(visits, 1)
	return c
}

func (c *Config[M, P, E, V, G]) SetNodeLimit(limit uint64) *Config[M, P, E, V, G] {
	c.NodeLimit = limit
	return c
}

func (c *Config[M, P, E, V, G]) SetMaxPlayoutLength(length int) *Config[M, P, E, V, G] {
	c.MaxPlayoutLength = max(length, 1)
	return c
}

func (c *Config[M, P, E, V, G]) SetCycleBehaviour(cb CycleBehaviour[E]) *Config[M, P, E, V, G] {
	c.Cycle = cb
	return c
}

func (c *Config[M, P, E, V, G]) validate() {
	if c.Policy == nil {
		panic("mcts: Config.Policy is nil")
	}
	if c.Evaluator == nil {
		panic("mcts: Config.Evaluator is nil")
	}
	if c.Table == nil {
		panic("mcts: Config.Table is nil")
	}
}
