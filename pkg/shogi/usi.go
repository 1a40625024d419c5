package shogi

import "fmt"

// USIMove formats the move in USI notation ("7g7f", "8h2b+", "P*5e").
func USIMove(m Move) string {
	if m.IsDrop() {
		return m.PieceType.SFEN() + "*" + m.To.USI()
	}
	s := m.From.USI() + m.To.USI()
	if m.Promote {
		s += "+"
	}
	return s
}

// ParseUSIMove decodes a USI move against pos.
func ParseUSIMove(pos *Position, s string) (Move, error) {
	if len(s) < 4 || len(s) > 5 {
		return Move{}, fmt.Errorf("%w: usi %q", ErrInvalidMove, s)
	}

	to, ok := parseUSISquare(s[2:4])
	if !ok {
		return Move{}, fmt.Errorf("%w: usi destination %q", ErrInvalidMove, s)
	}

	if s[1] == '*' {
		pt, ok := PieceTypeFromSFEN(s[:1])
		if !ok || pt == King || len(s) != 4 {
			return Move{}, fmt.Errorf("%w: usi drop %q", ErrInvalidMove, s)
		}
		return Move{Color: pos.Color(), To: to, PieceType: pt}, nil
	}

	from, ok := parseUSISquare(s[:2])
	if !ok {
		return Move{}, fmt.Errorf("%w: usi origin %q", ErrInvalidMove, s)
	}
	piece := pos.PieceAt(from)
	if piece.IsEmpty() || piece.Color != pos.Color() {
		return Move{}, fmt.Errorf("%w: usi %q moves no piece of the side to move", ErrInvalidMove, s)
	}
	m := Move{Color: pos.Color(), From: from, To: to, PieceType: piece.Type}
	if len(s) == 5 {
		if s[4] != '+' || !piece.Type.Promotable() {
			return Move{}, fmt.Errorf("%w: usi promotion %q", ErrInvalidMove, s)
		}
		m.Promote = true
	}
	return m, nil
}

func parseUSISquare(s string) (Square, bool) {
	if len(s) != 2 || s[0] < '1' || s[0] > '9' || s[1] < 'a' || s[1] > 'i' {
		return Square{}, false
	}
	return Square{int(s[0] - '0'), int(s[1]-'a') + 1}, true
}
