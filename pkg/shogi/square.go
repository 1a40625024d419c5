package shogi

import "fmt"

// Square is a board coordinate. The zero value denotes a piece in hand.
type Square struct {
	File int
	Rank int
}

// IsValid reports whether the square is on the board.
func (s Square) IsValid() bool {
	return s.File >= 1 && s.File <= 9 && s.Rank >= 1 && s.Rank <= 9
}

// IsHand reports whether the square is the hand marker.
func (s Square) IsHand() bool {
	return s.File == 0 && s.Rank == 0
}

// CSA returns the two digit CSA coordinate ("00" for the hand).
func (s Square) CSA() string {
	return fmt.Sprintf("%d%d", s.File, s.Rank)
}

// USI returns the USI coordinate such as "7g".
func (s Square) USI() string {
	return fmt.Sprintf("%d%c", s.File, 'a'+rune(s.Rank-1))
}

func (s Square) index() int {
	return (s.Rank-1)*9 + (9 - s.File)
}
