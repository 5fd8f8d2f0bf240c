package mcts

import (
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

// The counting game: one player, one number. Add increments, Sub decrements,
// the game ends at 100 and the score is the number, so the best strategy is
// to add at every step.

type cgMove int

const (
	add cgMove = iota
	sub
)

func (m cgMove) String() string {
	if m == add {
		return "Add"
	}
	return "Sub"
}

type countingGame struct {
	n int64
}

func (g *countingGame) Clone() *countingGame {
	c := *g
	return &c
}

func (g *countingGame) CurrentPlayer() int {
	return 0
}

func (g *countingGame) AvailableMoves() []cgMove {
	if g.n == 100 {
		return nil
	}
	return []cgMove{add, sub}
}

func (g *countingGame) MakeMove(mv cgMove) {
	if mv == add {
		g.n++
	} else {
		g.n--
	}
}

func (g *countingGame) Hash() uint64 {
	return uint64(g.n)
}

type countingHandle = SearchHandle[cgMove, int, int64, struct{}, *countingGame]

type countingEval struct{}

func (countingEval) EvaluateNewState(state *countingGame, moves []cgMove, _ *countingHandle) ([]struct{}, int64) {
	return make([]struct{}, len(moves)), state.n
}

func (countingEval) EvaluateExistingState(_ *countingGame, existing int64, _ *countingHandle) int64 {
	return existing
}

func (countingEval) InterpretEvaluationForPlayer(eval int64, _ int) int64 {
	return eval
}

type countingManager = Manager[cgMove, int, int64, struct{}, *countingGame]

func newCountingConfig(exploration float64, tableSize int) *Config[cgMove, int, int64, struct{}, *countingGame] {
	var table TranspositionTable[cgMove, int64, struct{}, *countingGame]
	if tableSize > 0 {
		table = NewApproxTable[cgMove, int64, struct{}, *countingGame](tableSize)
	} else {
		table = NewNoTable[cgMove, int64, struct{}, *countingGame]()
	}
	return NewConfig[cgMove, int, int64, struct{}, *countingGame](
		NewUCTPolicy[cgMove, int64, struct{}](exploration),
		countingEval{},
		table,
	).SetCycleBehaviour(UseCurrentEvalOnCycle[int64]())
}

func newCountingManager(start int64, exploration float64, tableSize int) *countingManager {
	return New(&countingGame{n: start}, newCountingConfig(exploration, tableSize))
}

func TestMain(m *testing.M) {
	SetSeedGeneratorFn(func() int64 {
		return 42
	})
	fmt.Printf("Using seed %d\n", SeedGeneratorFn())

	os.Exit(m.Run())
}

func TestCountingBestMoveSingleThread(t *testing.T) {
	m := newCountingManager(0, 0.5, 1024)
	m.PlayoutN(10_000)

	best, err := m.BestMove()
	require.NoError(t, err)
	require.Equal(t, add, best)

	// Visit counts along the Add chain decrease monotonically from the root
	node := m.CurrentNode()
	prev := uint64(1<<63 - 1)
	for depth := 0; depth < 10; depth++ {
		require.NotNil(t, node, "add chain ends at depth %d", depth)
		edge := findEdge(t, node, add)
		v := edge.Visits()
		require.LessOrEqual(t, v, prev, "visits increased at depth %d", depth)
		prev = v
		node = edge.Child()
	}
}

func TestCountingBestMoveParallel(t *testing.T) {
	m := newCountingManager(0, 0.5, 1024)
	m.PlayoutNParallel(10_000, 4)

	best, err := m.BestMove()
	require.NoError(t, err)
	require.Equal(t, add, best)
}

func TestCountingPrincipalVariation(t *testing.T) {
	m := newCountingManager(0, 0.5, 1024)
	m.PlayoutN(10_000)

	pv := m.PrincipalVariation(50)
	require.Len(t, pv, 50)
	for i, mv := range pv {
		require.Equal(t, add, mv, "pv deviates at move %d", i)
	}

	states := m.PrincipalVariationStates(5)
	require.Len(t, states, 6)
	for i, s := range states {
		require.Equal(t, int64(i), s.n)
	}
}

func TestCountingNodeLimit(t *testing.T) {
	conf := newCountingConfig(0.5, 1024).SetNodeLimit(5)
	var reported uint64
	conf.OnNodeLimit = func(limit uint64) { reported = limit }

	m := New(&countingGame{}, conf)
	m.PlayoutN(10)

	require.LessOrEqual(t, m.Tree().NodeCount(), uint64(5))
	require.Equal(t, uint64(5), reported)

	best, err := m.BestMove()
	require.NoError(t, err)
	require.Contains(t, []cgMove{add, sub}, best)
}

func TestCountingNearTerminal(t *testing.T) {
	m := newCountingManager(99, 0.5, 1024)
	m.PlayoutN(100)

	best, err := m.BestMove()
	require.NoError(t, err)
	require.Equal(t, add, best)

	edge := findEdge(t, m.CurrentNode(), add)
	require.Positive(t, edge.Visits())
	require.InDelta(t, 100.0, edge.Mean(), 0.001)
}

func findEdge(t *testing.T, node *SearchNode[cgMove, int64, struct{}], mv cgMove) *MoveInfo[cgMove, int64, struct{}] {
	t.Helper()
	edges := node.Edges()
	for i := range edges {
		if edges[i].Move() == mv {
			return &edges[i]
		}
	}
	t.Fatalf("no edge for move %v", mv)
	return nil
}
