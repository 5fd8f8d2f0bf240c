package mcts

import (
	"math"
	"math/rand"
)

// UCTPolicy selects by UCB1 over the virtual-loss-adjusted edge statistics:
// mean reward plus Exploration * sqrt(ln(parent visits) / edge visits).
// Unvisited edges are taken first, in order, which keeps single-threaded
// searches deterministic.
type UCTPolicy[M MoveLike, E, V any] struct {
	Exploration float64
}

func NewUCTPolicy[M MoveLike, E, V any](exploration float64) *UCTPolicy[M, E, V] {
	return &UCTPolicy[M, E, V]{Exploration: exploration}
}

func (p *UCTPolicy[M, E, V]) NewThreadData() any {
	return nil
}

func (p *UCTPolicy[M, E, V]) Select(_ *ThreadData, node *SearchNode[M, E, V]) int {
	edges := node.Edges()

	var total uint64
	for i := range edges {
		total += edges[i].Visits()
	}
	lnTotal := math.Log(float64(total + 1))

	best := 0
	bestScore := math.Inf(-1)
	for i := range edges {
		e := &edges[i]
		v := e.Visits()
		if v == 0 {
			return i
		}

		// ucb1 = exploitation + exploration
		score := float64(e.SumRewards())/float64(v) +
			p.Exploration*math.Sqrt(lnTotal/float64(v))
		if score > bestScore {
			bestScore = score
			best = i
		}
	}
	return best
}

// PUCTPolicy weights exploration by per-move priors, so the evaluator's move
// evaluations must be float64 probabilities. Edges the evaluator believes in
// get explored earlier even before their first visit.
type PUCTPolicy[M MoveLike, E any] struct {
	Exploration float64
}

func NewPUCTPolicy[M MoveLike, E any](exploration float64) *PUCTPolicy[M, E] {
	return &PUCTPolicy[M, E]{Exploration: exploration}
}

func (p *PUCTPolicy[M, E]) NewThreadData() any {
	return nil
}

func (p *PUCTPolicy[M, E]) Select(_ *ThreadData, node *SearchNode[M, E, float64]) int {
	edges := node.Edges()

	var total uint64
	for i := range edges {
		total += edges[i].Visits()
	}
	sqrtTotal := math.Sqrt(float64(total + 1))

	best := 0
	bestScore := math.Inf(-1)
	for i := range edges {
		e := &edges[i]
		v := e.Visits()

		var mean float64
		if v > 0 {
			mean = float64(e.SumRewards()) / float64(v)
		}
		score := mean + p.Exploration*e.MoveEvaluation()*sqrtTotal/float64(1+v)
		if score > bestScore {
			bestScore = score
			best = i
		}
	}
	return best
}

// RandomPolicy selects edges uniformly. Mostly useful as a baseline and in
// tests exercising the concurrency machinery without selection bias.
type RandomPolicy[M MoveLike, E, V any] struct{}

func NewRandomPolicy[M MoveLike, E, V any]() *RandomPolicy[M, E, V] {
	return &RandomPolicy[M, E, V]{}
}

func (p *RandomPolicy[M, E, V]) NewThreadData() any {
	return rand.New(rand.NewSource(SeedGeneratorFn()))
}

func (p *RandomPolicy[M, E, V]) Select(tld *ThreadData, node *SearchNode[M, E, V]) int {
	rng := tld.PolicyData.(*rand.Rand)
	return rng.Intn(len(node.Edges()))
}
