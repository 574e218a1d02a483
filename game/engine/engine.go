package engine

import "strings"

// directions are the four line axes checked for a win. Each is walked in
// both signs.
var directions = [4][2]int{
	{1, 0},  // horizontal
	{0, 1},  // vertical
	{1, 1},  // diagonal
	{1, -1}, // anti-diagonal
}

// Board is the grid of one match.
type Board struct {
	config BoardConfig
	cells  [][]Cell // cells[column][row], both 0-indexed
	active Cell
}

// NewBoard creates an empty board with Red to move.
func NewBoard(cfg BoardConfig) (*Board, error) {
	if err := ValidateBoardConfig(cfg, DefaultMaxLength); err != nil {
		return nil, err
	}
	return newBoard(cfg), nil
}

// NewBoardWithLimit is NewBoard with a custom dimension limit.
func NewBoardWithLimit(cfg BoardConfig, maxLength int) (*Board, error) {
	if err := ValidateBoardConfig(cfg, maxLength); err != nil {
		return nil, err
	}
	return newBoard(cfg), nil
}

func newBoard(cfg BoardConfig) *Board {
	cells := make([][]Cell, cfg.Width)
	for c := range cells {
		cells[c] = make([]Cell, cfg.Height)
		for r := range cells[c] {
			cells[c][r] = Empty
		}
	}
	return &Board{config: cfg, cells: cells, active: Red}
}

// Config returns the board parameters.
func (b *Board) Config() BoardConfig {
	return b.config
}

// Active returns the color to move.
func (b *Board) Active() Cell {
	return b.active
}

// At returns the cell at a 1-indexed column and row.
func (b *Board) At(column, row int) Cell {
	if column < 1 || column > b.config.Width || row < 1 || row > b.config.Height {
		return Empty
	}
	return b.cells[column-1][row-1]
}

// Place drops the active color at column (and row on free-placement boards).
func (b *Board) Place(column int, row Row) Result {
	if column < 1 || column > b.config.Width {
		return Invalid
	}
	col := b.cells[column-1]

	var r int
	if b.config.Gravity {
		r = lowestEmpty(col)
		if r < 0 {
			return Invalid
		}
	} else {
		n, ok := row.Get()
		if !ok {
			return Malformed
		}
		if n < 1 || n > b.config.Height || col[n-1] != Empty {
			return Invalid
		}
		r = n - 1
	}

	col[r] = b.active
	if b.wins(column-1, r) {
		return Win
	}
	if b.full() {
		return Draw
	}
	b.active = b.active.Opponent()
	return Valid
}

func lowestEmpty(col []Cell) int {
	for r, cell := range col {
		if cell == Empty {
			return r
		}
	}
	return -1
}

// wins counts contiguous pieces of the placed color through (c, r) along
// each axis.
func (b *Board) wins(c, r int) bool {
	color := b.cells[c][r]
	for _, d := range directions {
		count := 1
		for _, sign := range [2]int{1, -1} {
			dc, dr := d[0]*sign, d[1]*sign
			for i := 1; i < b.config.Connect; i++ {
				x, y := c+dc*i, r+dr*i
				if x < 0 || x >= b.config.Width || y < 0 || y >= b.config.Height || b.cells[x][y] != color {
					break
				}
				count++
			}
		}
		if count >= b.config.Connect {
			return true
		}
	}
	return false
}

func (b *Board) full() bool {
	for _, col := range b.cells {
		for _, cell := range col {
			if cell == Empty {
				return false
			}
		}
	}
	return true
}

// Columns returns a copy of the grid as columns of one-character symbols.
func (b *Board) Columns() [][]string {
	out := make([][]string, len(b.cells))
	for c, col := range b.cells {
		out[c] = make([]string, len(col))
		for r, cell := range col {
			out[c][r] = cell.String()
		}
	}
	return out
}

// String renders the board with the highest row first.
func (b *Board) String() string {
	var sb strings.Builder
	for r := b.config.Height - 1; r >= 0; r-- {
		for c := 0; c < b.config.Width; c++ {
			sb.WriteByte(byte(b.cells[c][r]))
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}
