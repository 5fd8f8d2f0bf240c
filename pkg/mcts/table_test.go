package mcts

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

type countingTable = ApproxTable[cgMove, int64, struct{}, *countingGame]

func newCountingTable(size int) *countingTable {
	return NewApproxTable[cgMove, int64, struct{}, *countingGame](size)
}

func TestApproxTableSizeRoundsUp(t *testing.T) {
	require.Equal(t, 1024, newCountingTable(1000).Size())
	require.Equal(t, 1, newCountingTable(1).Size())
	require.Equal(t, 16, newCountingTable(16).Size())
}

func TestApproxTableInsertLookup(t *testing.T) {
	table := newCountingTable(64)
	key := &countingGame{n: 3}
	node := newTestNode(2)

	require.Nil(t, table.Lookup(key))
	require.Nil(t, table.Insert(key, node))
	require.Same(t, node, table.Lookup(key))

	// Inserting the same key again returns the resident node unchanged
	other := newTestNode(2)
	require.Same(t, node, table.Insert(key, other))
	require.Same(t, node, table.Lookup(key))
}

func TestApproxTableRefusesSlotCollision(t *testing.T) {
	table := newCountingTable(1)
	first := &countingGame{n: 1}
	second := &countingGame{n: 2}

	require.Nil(t, table.Insert(first, newTestNode(1)))

	// The single slot is taken by a different hash: insert refuses, lookup
	// misses. Both are allowed by the contract.
	require.Nil(t, table.Insert(second, newTestNode(1)))
	require.Nil(t, table.Lookup(second))
	require.NotNil(t, table.Lookup(first))
}

func TestApproxTableConcurrentSameKey(t *testing.T) {
	table := newCountingTable(64)
	key := &countingGame{n: 7}

	const racers = 16
	returned := make([]*SearchNode[cgMove, int64, struct{}], racers)
	var wg sync.WaitGroup
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			returned[i] = table.Insert(key, newTestNode(1))
		}(i)
	}
	wg.Wait()

	resident := table.Lookup(key)
	require.NotNil(t, resident)
	for _, node := range returned {
		if node != nil {
			require.Same(t, resident, node)
		}
	}
}

func TestNoTableReturnsNothing(t *testing.T) {
	table := NewNoTable[cgMove, int64, struct{}, *countingGame]()
	key := &countingGame{n: 5}
	node := newTestNode(1)

	require.Nil(t, table.Insert(key, node))
	require.Nil(t, table.Lookup(key))
}
