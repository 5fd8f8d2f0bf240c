package mcts

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResetIsDeterministic(t *testing.T) {
	// With a deterministic policy and evaluator, resetting to the same state
	// and running the same search yields identical root statistics
	run := func() *countingManager {
		m := newCountingManager(0, 0.5, 1024)
		m.Reset(&countingGame{n: 0})
		m.PlayoutN(1000)
		return m
	}

	m1 := run()
	m2 := run()

	best1, err := m1.BestMove()
	require.NoError(t, err)
	best2, err := m2.BestMove()
	require.NoError(t, err)
	require.Equal(t, best1, best2)

	e1 := m1.CurrentNode().Edges()
	e2 := m2.CurrentNode().Edges()
	require.Equal(t, len(e1), len(e2))
	for i := range e1 {
		require.Equal(t, e1[i].Visits(), e2[i].Visits())
		require.Equal(t, e1[i].SumRewards(), e2[i].SumRewards())
	}
}

func TestCommitMoveAdvancesRoot(t *testing.T) {
	m := newCountingManager(0, 0.5, 1024)
	m.PlayoutN(200)

	before := m.CurrentNode()
	require.NoError(t, m.CommitMove(add))
	require.Equal(t, int64(1), m.State().n)
	require.NotSame(t, before, m.CurrentNode())

	// The committed child keeps searching from the new root
	m.PlayoutN(200)
	best, err := m.BestMove()
	require.NoError(t, err)
	require.Equal(t, add, best)
}

func TestCommitMoveRejectsIllegalMove(t *testing.T) {
	m := newCountingManager(0, 0.5, 1024)
	require.Error(t, m.CommitMove(cgMove(7)))
	require.Equal(t, int64(0), m.State().n)
}

func TestCommitMoveIntoTerminalState(t *testing.T) {
	m := newCountingManager(99, 0.5, 1024)
	m.PlayoutN(50)

	require.NoError(t, m.CommitMove(add))
	require.Equal(t, int64(100), m.State().n)

	// The terminal node has no edges, so there is nothing left to choose
	_, err := m.BestMove()
	require.Error(t, err)

	// Playouts from a terminal root are no-ops, not crashes
	m.PlayoutN(10)
}

func TestCommitBestOfTopN(t *testing.T) {
	m := newCountingManager(0, 0.5, 1024)
	m.PlayoutN(2000)

	mv, err := m.CommitBestOfTopN(1)
	require.NoError(t, err)
	require.Equal(t, add, mv)
	require.Equal(t, int64(1), m.State().n)

	// n larger than the move count clamps instead of slicing out of range
	mv, err = m.CommitBestOfTopN(100)
	require.NoError(t, err)
	require.Contains(t, []cgMove{add, sub}, mv)

	_, err = m.CommitBestOfTopN(0)
	require.Error(t, err)
}

func TestPlayoutUntil(t *testing.T) {
	m := newCountingManager(0, 0.5, 1024)

	count := 0
	m.PlayoutUntil(func() bool {
		count++
		return count > 10
	})
	// The predicate ran 11 times and allowed 10 playouts through
	require.Equal(t, 11, count)

	var total uint64
	for _, e := range m.BestMoves() {
		total += e.Visits()
	}
	require.Equal(t, uint64(10), total)
}

func TestStopEndsParallelSearchEarly(t *testing.T) {
	conf := newCountingConfig(0.5, 0)
	var m *countingManager

	// Pull the brake from inside the search after the first backpropagations
	conf.OnBackpropagation = func(int64, *countingHandle) {
		m.Stop()
	}
	m = New(&countingGame{}, conf)
	m.PlayoutNParallel(1_000_000, 4)

	require.False(t, m.Searching())
	var total uint64
	for _, e := range m.BestMoves() {
		total += e.Visits()
	}
	require.Positive(t, total)
	require.Less(t, total, uint64(1_000_000))
}

func TestResetReplacesRootState(t *testing.T) {
	m := newCountingManager(0, 0.5, 1024)
	m.PlayoutN(500)
	nodesBefore := m.Tree().NodeCount()

	m.Reset(&countingGame{n: 50})
	require.Equal(t, int64(50), m.State().n)

	m.PlayoutN(500)
	best, err := m.BestMove()
	require.NoError(t, err)
	require.Equal(t, add, best)

	// The tree was retained, not rebuilt
	require.GreaterOrEqual(t, m.Tree().NodeCount(), nodesBefore)
}

func TestBestMovesOrdering(t *testing.T) {
	m := newCountingManager(0, 0.5, 1024)
	m.PlayoutN(2000)

	best := m.BestMoves()
	require.Len(t, best, 2)
	for i := 1; i < len(best); i++ {
		if best[i].Visits() == 0 {
			continue
		}
		require.GreaterOrEqual(t, best[i-1].Mean(), best[i].Mean())
	}
}

func TestFprintMovesWritesTable(t *testing.T) {
	m := newCountingManager(0, 0.5, 1024)
	m.PlayoutN(100)

	var buf bytes.Buffer
	m.FprintMoves(&buf)
	out := buf.String()
	require.Contains(t, out, "move")
	require.Contains(t, out, "Add")
	require.Contains(t, out, "Sub")

	buf.Reset()
	m.FprintPv(&buf, 5)
	require.Contains(t, buf.String(), "Add")
}
