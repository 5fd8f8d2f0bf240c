package mcts

import (
	"math/rand"
	"slices"
	"sync/atomic"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	"k8s.io/klog/v2"
)

// Manager is the driver facade: it stores the advancing root state, runs
// playouts (single-threaded or fanned out over workers), answers best-move
// queries, and commits moves on the root.
//
// The manager distinguishes a search phase from a commit phase. Playout
// calls may overlap each other (that is the point), but CommitMove,
// CommitBestOfTopN, and Reset must not overlap a running search; they panic
// or fail rather than corrupt the tree.
type Manager[M MoveLike, P PlayerLike, E, V any, G GameState[M, P, G]] struct {
	state   G
	tree    *SearchTree[M, P, E, V, G]
	current *SearchNode[M, E, V]

	// tld serves the single-threaded entry points
	tld *ThreadData
	rng *rand.Rand

	halt          atomic.Bool
	searching     atomic.Bool
	limitReported atomic.Bool
}

// New builds a tree around state and a manager driving it. The manager keeps
// state and mutates it on commits; the tree works on clones.
func New[M MoveLike, P PlayerLike, E, V any, G GameState[M, P, G]](
	state G, conf *Config[M, P, E, V, G],
) *Manager[M, P, E, V, G] {
	tree := NewSearchTree(state.Clone(), conf)
	return &Manager[M, P, E, V, G]{
		state:   state,
		tree:    tree,
		current: tree.RootNode(),
		rng:     rand.New(rand.NewSource(SeedGeneratorFn())),
	}
}

// Tree exposes the underlying search tree
func (m *Manager[M, P, E, V, G]) Tree() *SearchTree[M, P, E, V, G] {
	return m.tree
}

// State returns the current root state. Callers must not mutate it.
func (m *Manager[M, P, E, V, G]) State() G {
	return m.state
}

// CurrentNode returns the node the search currently runs from
func (m *Manager[M, P, E, V, G]) CurrentNode() *SearchNode[M, E, V] {
	return m.current
}

// Searching reports whether a parallel search is in flight
func (m *Manager[M, P, E, V, G]) Searching() bool {
	return m.searching.Load()
}

// Stop asks running workers to exit after their current playout
func (m *Manager[M, P, E, V, G]) Stop() {
	m.halt.Store(true)
}

func (m *Manager[M, P, E, V, G]) singleTLD() *ThreadData {
	if m.tld == nil {
		m.tld = m.tree.newThreadData()
	}
	return m.tld
}

// Playout runs one playout from the current root. Returns false when the
// node limit aborted it.
func (m *Manager[M, P, E, V, G]) Playout() bool {
	ok := m.tree.playoutFrom(m.current, m.state.Clone(), m.singleTLD())
	if !ok {
		m.reportNodeLimit()
	}
	return ok
}

// PlayoutN runs up to n playouts, stopping early at the node limit
func (m *Manager[M, P, E, V, G]) PlayoutN(n uint64) {
	for i := uint64(0); i < n; i++ {
		if !m.Playout() {
			return
		}
	}
}

// PlayoutUntil keeps playing out until pred returns true or the node limit
// is reached
func (m *Manager[M, P, E, V, G]) PlayoutUntil(pred func() bool) {
	for !pred() {
		if !m.Playout() {
			return
		}
	}
}

// PlayoutNParallel fans n playouts out over workers goroutines and blocks
// until all are done. Work is distributed through a shared decrementing
// counter, so workers stay balanced without a queue and exactly n playouts
// run unless the node limit or Stop ends the search early.
func (m *Manager[M, P, E, V, G]) PlayoutNParallel(n uint64, workers int) {
	if n == 0 {
		return
	}
	if workers <= 0 {
		panic("mcts: worker count must be positive")
	}
	if !m.searching.CompareAndSwap(false, true) {
		panic("mcts: search already running")
	}
	defer m.searching.Store(false)
	m.halt.Store(false)

	var remaining atomic.Int64
	remaining.Store(int64(n))

	var g errgroup.Group
	for range workers {
		g.Go(func() error {
			tld := m.tree.newThreadData()
			for !m.halt.Load() {
				if remaining.Add(-1)+1 <= 0 {
					break
				}
				if !m.tree.playoutFrom(m.current, m.state.Clone(), tld) {
					m.reportNodeLimit()
					break
				}
			}
			return nil
		})
	}
	_ = g.Wait()
}

func (m *Manager[M, P, E, V, G]) reportNodeLimit() {
	if !m.limitReported.CompareAndSwap(false, true) {
		return
	}
	limit := m.tree.Config().NodeLimit
	if f := m.tree.Config().OnNodeLimit; f != nil {
		f(limit)
		return
	}
	klog.Warningf("mcts: node limit of %d reached, halting search", limit)
}

// BestMoves returns the current root's edges ordered by descending mean
// reward; unvisited edges sort last
func (m *Manager[M, P, E, V, G]) BestMoves() []*MoveInfo[M, E, V] {
	edges := m.current.Edges()
	moves := make([]*MoveInfo[M, E, V], len(edges))
	for i := range edges {
		moves[i] = &edges[i]
	}

	slices.SortStableFunc(moves, func(a, b *MoveInfo[M, E, V]) int {
		va, vb := a.Visits(), b.Visits()
		switch {
		case va == 0 && vb == 0:
			return 0
		case va == 0:
			return 1
		case vb == 0:
			return -1
		}
		ma, mb := a.Mean(), b.Mean()
		switch {
		case ma > mb:
			return -1
		case ma < mb:
			return 1
		}
		return 0
	})
	return moves
}

// BestMove returns the move with the highest mean reward
func (m *Manager[M, P, E, V, G]) BestMove() (M, error) {
	var zero M
	best := m.BestMoves()
	if len(best) == 0 {
		return zero, errors.New("mcts: no legal moves at the current root")
	}
	return best[0].Move(), nil
}

// PrincipalVariation returns up to n moves obtained by repeatedly following
// the most-visited edge from the current root
func (m *Manager[M, P, E, V, G]) PrincipalVariation(n int) []M {
	pv := make([]M, 0, n)
	node := m.current
	for node != nil && len(pv) < n {
		edge := mostVisited(node)
		if edge == nil {
			break
		}
		pv = append(pv, edge.Move())
		node = edge.Child()
	}
	return pv
}

// PrincipalVariationStates returns the states along the principal variation,
// starting with a clone of the current root state
func (m *Manager[M, P, E, V, G]) PrincipalVariationStates(n int) []G {
	moves := m.PrincipalVariation(n)
	states := make([]G, 0, len(moves)+1)
	states = append(states, m.state.Clone())
	for _, mv := range moves {
		next := states[len(states)-1].Clone()
		next.MakeMove(mv)
		states = append(states, next)
	}
	return states
}

func mostVisited[M MoveLike, E, V any](node *SearchNode[M, E, V]) *MoveInfo[M, E, V] {
	edges := node.Edges()
	var best *MoveInfo[M, E, V]
	var bestVisits uint64
	for i := range edges {
		if v := edges[i].Visits(); v > bestVisits {
			bestVisits = v
			best = &edges[i]
		}
	}
	return best
}

// CommitMove applies mv at the root, advancing the search tree. Must not be
// called while a search is running.
func (m *Manager[M, P, E, V, G]) CommitMove(mv M) error {
	if m.searching.Load() {
		return errors.New("mcts: cannot commit a move while a search is running")
	}

	edges := m.current.Edges()
	var edge *MoveInfo[M, E, V]
	for i := range edges {
		if edges[i].Move() == mv {
			edge = &edges[i]
			break
		}
	}
	if edge == nil {
		return errors.Errorf("mcts: move %v is not legal at the current root", mv)
	}

	m.state.MakeMove(mv)
	// The table may retain its key, so hand it a snapshot rather than the
	// manager's live state
	m.current = m.tree.Descend(edge, m.state.Clone(), m.singleTLD())
	return nil
}

// CommitBestOfTopN commits a move chosen uniformly from the top min(n, len)
// edges by mean reward and returns it
func (m *Manager[M, P, E, V, G]) CommitBestOfTopN(n int) (M, error) {
	var zero M
	if n <= 0 {
		return zero, errors.Errorf("mcts: top-n count must be positive, got %d", n)
	}
	best := m.BestMoves()
	if len(best) == 0 {
		return zero, errors.New("mcts: no legal moves at the current root")
	}
	top := min(n, len(best))
	mv := best[m.rng.Intn(top)].Move()
	return mv, m.CommitMove(mv)
}

// Reset replaces the root state, reusing the tree and table where the
// transposition table can find the state again. Must not be called while a
// search is running.
func (m *Manager[M, P, E, V, G]) Reset(state G) {
	if m.searching.Load() {
		panic("mcts: cannot reset while a search is running")
	}
	m.state = state
	m.halt.Store(false)
	m.limitReported.Store(false)

	if node := m.tree.NodeForState(state); node != nil {
		m.current = node
		return
	}
	m.current = m.tree.expandState(state.Clone(), m.singleTLD())
}
