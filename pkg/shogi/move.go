package shogi

import (
	"errors"
	"fmt"
)

// ErrInvalidMove is returned when a move cannot be decoded or applied.
var ErrInvalidMove = errors.New("invalid move")

// Move is a normal move. From is the zero Square for drops and PieceType is
// the kind of the piece before the move.
type Move struct {
	Color     Color
	From      Square
	To        Square
	PieceType PieceType
	Promote   bool
}

// IsDrop reports whether the move drops a piece from the hand.
func (m Move) IsDrop() bool {
	return m.From.IsHand()
}

// PieceTypeAfter returns the kind of the piece once the move is played.
func (m Move) PieceTypeAfter() PieceType {
	if m.Promote {
		return m.PieceType.Promoted()
	}
	return m.PieceType
}

// String formats the move in CSA style, useful for logs.
func (m Move) String() string {
	return fmt.Sprintf("%s%s%s%s", m.Color.Sign(), m.From.CSA(), m.To.CSA(), m.PieceTypeAfter().CSA())
}
