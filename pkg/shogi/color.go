// Package shogi defines the minimal position model the session manager needs:
// colors, pieces, squares, moves and a board that can follow a game without
// checking legality.
package shogi

// Color represents the side to move
type Color string

// Possible colors in a shogi game. Black (sente) moves first.
const (
	Black Color = "black"
	White Color = "white"
)

// Opp returns the opposite color for the given color.
func (c Color) Opp() Color {
	if c == Black {
		return White
	}

	return Black
}

// Sign returns the CSA sign for the color ("+" for black, "-" for white).
func (c Color) Sign() string {
	if c == Black {
		return "+"
	}

	return "-"
}
