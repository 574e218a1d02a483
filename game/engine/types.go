package engine

// Cell is the content of one grid position.
type Cell byte

const (
	Empty  Cell = ' '
	Red    Cell = 'R'
	Yellow Cell = 'Y'

	// Validation constants
	MinDimension     = 1
	DefaultMaxLength = 50
)

// String returns the one-character wire symbol of the cell.
func (c Cell) String() string {
	return string(rune(c))
}

// Opponent returns the other playing color.
func (c Cell) Opponent() Cell {
	if c == Red {
		return Yellow
	}
	return Red
}

// Result is the outcome of a placement attempt.
type Result int

const (
	Valid Result = iota
	Invalid
	Win
	Draw
	Malformed
)

var resultNames = [...]string{
	Valid:     "Valid",
	Invalid:   "Invalid",
	Win:       "Win",
	Draw:      "Draw",
	Malformed: "Malformed",
}

func (r Result) String() string {
	if r < 0 || int(r) >= len(resultNames) {
		return "Unknown"
	}
	return resultNames[r]
}

// Terminal reports whether the result ends the match.
func (r Result) Terminal() bool {
	return r == Win || r == Draw
}

// Row is an optional 1-indexed row. The zero value is absent.
type Row struct {
	value int
	set   bool
}

// RowAt returns a present row.
func RowAt(n int) Row {
	return Row{value: n, set: true}
}

// NoRow returns an absent row.
func NoRow() Row {
	return Row{}
}

// Get returns the row and whether it is present.
func (r Row) Get() (int, bool) {
	return r.value, r.set
}

// BoardConfig holds the immutable parameters of a board.
type BoardConfig struct {
	Width   int  `json:"w" yaml:"width"`
	Height  int  `json:"h" yaml:"height"`
	Connect int  `json:"connect" yaml:"connect"`
	Gravity bool `json:"gravity" yaml:"gravity"`
}
