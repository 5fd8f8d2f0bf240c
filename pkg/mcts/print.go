package mcts

import (
	"fmt"
	"io"
	"os"

	"github.com/muesli/termenv"
)

// Reporting helpers. Output degrades gracefully on dumb terminals through
// termenv's profile detection.

// DebugMoves prints the current root's edges to stdout, best mean first
func (m *Manager[M, P, E, V, G]) DebugMoves() {
	m.FprintMoves(os.Stdout)
}

// FprintMoves writes the edge table to w
func (m *Manager[M, P, E, V, G]) FprintMoves(w io.Writer) {
	out := termenv.NewOutput(w)

	header := fmt.Sprintf("%-16s %10s %14s %10s", "move", "visits", "rewards", "mean")
	fmt.Fprintln(out, out.String(header).Bold())

	for i, info := range m.BestMoves() {
		line := fmt.Sprintf("%-16v %10d %14d %10.3f",
			info.Move(), info.Visits(), info.SumRewards(), info.Mean())
		styled := out.String(line)
		if i == 0 {
			styled = styled.Foreground(termenv.ANSIGreen)
		}
		fmt.Fprintln(out, styled)
	}
}

// FprintPv writes the principal variation (up to n moves) to w
func (m *Manager[M, P, E, V, G]) FprintPv(w io.Writer, n int) {
	out := termenv.NewOutput(w)
	pv := m.PrincipalVariation(n)

	fmt.Fprint(out, out.String("pv").Bold())
	for _, mv := range pv {
		fmt.Fprintf(out, " %v", mv)
	}
	fmt.Fprintln(out)
}
