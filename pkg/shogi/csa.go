package shogi

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidPosition is returned when a CSA position cannot be parsed.
var ErrInvalidPosition = errors.New("invalid position")

var pieceTotals = map[PieceType]int{
	Rook: 2, Bishop: 2, Gold: 4, Silver: 4, Knight: 4, Lance: 4, Pawn: 18,
}

// ParseCSAMove decodes a bare CSA move such as "+7776FU" against pos.
// Promotion is derived from the piece standing on the origin square.
func ParseCSAMove(pos *Position, token string) (Move, error) {
	if len(token) != 7 {
		return Move{}, fmt.Errorf("%w: %q", ErrInvalidMove, token)
	}

	var color Color
	switch token[0] {
	case '+':
		color = Black
	case '-':
		color = White
	default:
		return Move{}, fmt.Errorf("%w: bad sign in %q", ErrInvalidMove, token)
	}
	if color != pos.Color() {
		return Move{}, fmt.Errorf("%w: %q played out of turn", ErrInvalidMove, token)
	}

	from, ok := parseCSASquare(token[1:3])
	if !ok {
		return Move{}, fmt.Errorf("%w: bad origin in %q", ErrInvalidMove, token)
	}
	to, ok := parseCSASquare(token[3:5])
	if !ok || to.IsHand() {
		return Move{}, fmt.Errorf("%w: bad destination in %q", ErrInvalidMove, token)
	}
	after, ok := PieceTypeFromCSA(token[5:7])
	if !ok {
		return Move{}, fmt.Errorf("%w: bad piece in %q", ErrInvalidMove, token)
	}

	m := Move{Color: color, From: from, To: to, PieceType: after}
	if from.IsHand() {
		if after != after.Unpromoted() {
			return Move{}, fmt.Errorf("%w: promoted drop %q", ErrInvalidMove, token)
		}
		return m, nil
	}

	origin := pos.PieceAt(from)
	switch {
	case origin.IsEmpty() || origin.Color != color:
		return Move{}, fmt.Errorf("%w: %s is not owned by the mover in %q", ErrInvalidMove, from.CSA(), token)
	case origin.Type == after:
	case origin.Type.Promotable() && origin.Type.Promoted() == after:
		m.PieceType = origin.Type
		m.Promote = true
	default:
		return Move{}, fmt.Errorf("%w: %s holds %s, not %s", ErrInvalidMove, from.CSA(), origin.Type.CSA(), after.CSA())
	}
	return m, nil
}

// FormatCSAMove encodes the move as a bare CSA token.
func FormatCSAMove(m Move) string {
	return m.String()
}

func parseCSASquare(s string) (Square, bool) {
	if len(s) != 2 || s[0] < '0' || s[0] > '9' || s[1] < '0' || s[1] > '9' {
		return Square{}, false
	}
	sq := Square{int(s[0] - '0'), int(s[1] - '0')}
	if sq.IsHand() || sq.IsValid() {
		return sq, true
	}
	return Square{}, false
}

// ParseCSAPosition reads the position section of a CSA record or game
// summary. Move lines following the side to move are replayed.
func ParseCSAPosition(text string) (*Position, error) {
	pos := NewPosition()
	sideSet := false
	var rest []string

	for _, raw := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		for _, stmt := range strings.Split(raw, ",") {
			line := strings.TrimSpace(stmt)
			if line == "" {
				continue
			}
			switch {
			case line[0] == '\'' || line[0] == 'V' || line[0] == 'N' || line[0] == '$' || line[0] == 'T':
			case strings.HasPrefix(line, "PI"):
				pos = NewStandardPosition()
				if err := removePieces(pos, line[2:]); err != nil {
					return nil, err
				}
			case len(line) >= 2 && line[0] == 'P' && line[1] >= '1' && line[1] <= '9':
				if err := parseRow(pos, int(line[1]-'0'), stmt); err != nil {
					return nil, err
				}
			case strings.HasPrefix(line, "P+") || strings.HasPrefix(line, "P-"):
				c := Black
				if line[1] == '-' {
					c = White
				}
				if err := placePieces(pos, c, line[2:]); err != nil {
					return nil, err
				}
			case line == "+" || line == "-":
				if line == "+" {
					pos.color = Black
				} else {
					pos.color = White
				}
				sideSet = true
			case (line[0] == '+' || line[0] == '-') && sideSet:
				rest = append(rest, line)
			case line[0] == '%':
			default:
				return nil, fmt.Errorf("%w: unexpected line %q", ErrInvalidPosition, line)
			}
		}
	}

	for _, token := range rest {
		m, err := ParseCSAMove(pos, token)
		if err != nil {
			return nil, err
		}
		if err := pos.ApplyMove(m); err != nil {
			return nil, err
		}
	}
	return pos, nil
}

func parseRow(pos *Position, rank int, line string) error {
	cells := strings.TrimRight(line[2:], " \t")
	for i := 0; i < 9; i++ {
		start := i * 3
		if start >= len(cells) {
			break
		}
		end := start + 3
		if end > len(cells) {
			end = len(cells)
		}
		cell := cells[start:end]
		if strings.TrimSpace(cell) == "*" || strings.TrimSpace(cell) == "" {
			continue
		}
		if len(cell) != 3 {
			return fmt.Errorf("%w: bad cell %q on rank %d", ErrInvalidPosition, cell, rank)
		}
		c := Black
		if cell[0] == '-' {
			c = White
		} else if cell[0] != '+' {
			return fmt.Errorf("%w: bad cell %q on rank %d", ErrInvalidPosition, cell, rank)
		}
		pt, ok := PieceTypeFromCSA(cell[1:])
		if !ok {
			return fmt.Errorf("%w: bad piece %q on rank %d", ErrInvalidPosition, cell, rank)
		}
		pos.set(Square{9 - i, rank}, Piece{c, pt})
	}
	return nil
}

func removePieces(pos *Position, pieces string) error {
	for i := 0; i+4 <= len(pieces); i += 4 {
		sq, ok := parseCSASquare(pieces[i : i+2])
		if !ok || sq.IsHand() {
			return fmt.Errorf("%w: bad square in PI%s", ErrInvalidPosition, pieces)
		}
		pos.set(sq, Piece{})
	}
	return nil
}

func placePieces(pos *Position, c Color, pieces string) error {
	for i := 0; i+4 <= len(pieces); i += 4 {
		sq, ok := parseCSASquare(pieces[i : i+2])
		if !ok {
			return fmt.Errorf("%w: bad square in %q", ErrInvalidPosition, pieces)
		}
		code := pieces[i+2 : i+4]
		if code == "AL" {
			fillHand(pos, c)
			continue
		}
		pt, ok := PieceTypeFromCSA(code)
		if !ok {
			return fmt.Errorf("%w: bad piece in %q", ErrInvalidPosition, pieces)
		}
		if sq.IsHand() {
			pos.hands[c][pt.Unpromoted()]++
		} else {
			pos.set(sq, Piece{c, pt})
		}
	}
	return nil
}

// fillHand gives c every piece not yet on the board or in a hand.
func fillHand(pos *Position, c Color) {
	used := make(map[PieceType]int)
	for _, piece := range pos.board {
		if !piece.IsEmpty() {
			used[piece.Type.Unpromoted()]++
		}
	}
	for _, hand := range pos.hands {
		for pt, n := range hand {
			used[pt] += n
		}
	}
	for pt, total := range pieceTotals {
		if left := total - used[pt]; left > 0 {
			pos.hands[c][pt] += left
		}
	}
}
