// Package engine provides the board rules for connect-N matches.
//
// The engine package implements:
//   - Grid storage for a width x height board of Red/Yellow pieces
//   - Gravity placement (column only) and free placement (column + row)
//   - Win detection centered on the last placed piece
//   - Draw detection once the board has no empty cell
//
// Core Types:
//
// Board holds one match's grid and the active color. Result is the outcome
// code returned by every placement attempt. Row is an explicit optional row
// index used by free-placement boards.
//
// Usage:
//
//	board, err := engine.NewBoard(engine.BoardConfig{Width: 7, Height: 6, Connect: 4, Gravity: true})
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	res := board.Place(4, engine.NoRow())
//	if res.Terminal() {
//		// Win or Draw
//	}
//
// Coordinates:
//
// Columns and rows are 1-indexed on the API. Row 1 is the first cell a
// gravity column fills. Invalid and Malformed placements never mutate the
// board.
//
// The engine has no I/O and no locking. Callers serialize access.
package engine
