// Command analyze prints quick, human-readable heuristics about the room
// presets in the project's presets directory. It summarizes board size,
// counts the winning lines a board admits, bounds the match length, and
// highlights presets where no line can ever be completed.
package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/wricardo/connectn/game/config"
	"github.com/wricardo/connectn/game/engine"
)

// Analysis holds the derived figures for one preset.
type Analysis struct {
	Name      string
	Board     engine.BoardConfig
	Cells     int
	Lines     int
	MaxMoves  int
	BaseTime  time.Duration
	Increment time.Duration
	// WorstClock is the most time a seat can spend across a full board.
	WorstClock time.Duration
}

// Winnable reports whether any line of Connect cells fits the board.
func (a Analysis) Winnable() bool {
	return a.Lines > 0
}

func main() {
	dir := "presets"
	if len(os.Args) > 1 {
		dir = os.Args[1]
	}

	manager, err := config.NewManager(dir, engine.DefaultMaxLength)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening presets: %v\n", err)
		os.Exit(1)
	}

	presets, err := manager.ListPresets()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error listing presets: %v\n", err)
		os.Exit(1)
	}

	for _, p := range presets {
		fmt.Printf("\n=== Analyzing %s ===\n", p.Name)
		printAnalysis(os.Stdout, analyzePreset(p))
	}
}

func analyzePreset(p *config.Preset) Analysis {
	params := p.Params()
	cells := p.Width * p.Height
	// Seat one moves first and so places the extra piece on odd boards.
	perSeat := (cells + 1) / 2

	return Analysis{
		Name:       p.Name,
		Board:      p.BoardConfig,
		Cells:      cells,
		Lines:      winningLines(p.Width, p.Height, p.Connect),
		MaxMoves:   cells,
		BaseTime:   params.BaseTime,
		Increment:  params.Increment,
		WorstClock: params.BaseTime + time.Duration(perSeat)*params.Increment,
	}
}

// winningLines counts the distinct runs of n cells on a w by h board
// across the horizontal, vertical and both diagonal axes.
func winningLines(w, h, n int) int {
	if n < 1 {
		return 0
	}
	if n == 1 {
		// every axis sees the same single cell
		return w * h
	}
	horizontal := max(w-n+1, 0) * h
	vertical := w * max(h-n+1, 0)
	diagonal := max(w-n+1, 0) * max(h-n+1, 0)
	return horizontal + vertical + 2*diagonal
}

func printAnalysis(out io.Writer, a Analysis) {
	fmt.Fprintf(out, "Board: %d x %d, connect %d\n", a.Board.Width, a.Board.Height, a.Board.Connect)
	if a.Board.Gravity {
		fmt.Fprintf(out, "Placement: gravity (pieces fall)\n")
	} else {
		fmt.Fprintf(out, "Placement: free (column and row)\n")
	}
	fmt.Fprintf(out, "Cells: %d (match lasts at most %d moves)\n", a.Cells, a.MaxMoves)
	fmt.Fprintf(out, "Clock: %s + %s per move\n", a.BaseTime, a.Increment)
	fmt.Fprintf(out, "Longest clock per seat: %s\n", a.WorstClock)

	if !a.Winnable() {
		fmt.Fprintf(out, "⚠️  WARNING: connect %d does not fit a %d x %d board, every match ends in a draw or on time\n",
			a.Board.Connect, a.Board.Width, a.Board.Height)
		return
	}
	fmt.Fprintf(out, "✅ %d winning lines on the board\n", a.Lines)
}
