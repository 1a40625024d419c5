package shogi

import (
	"fmt"
	"strconv"
	"strings"
)

// Position is a board, both hands and the side to move. It follows the
// moves it is given without checking their legality.
type Position struct {
	board [81]Piece
	hands map[Color]map[PieceType]int
	color Color
}

// NewPosition returns an empty board with black to move.
func NewPosition() *Position {
	return &Position{
		hands: map[Color]map[PieceType]int{
			Black: make(map[PieceType]int),
			White: make(map[PieceType]int),
		},
		color: Black,
	}
}

// NewStandardPosition returns the standard initial position (hirate).
func NewStandardPosition() *Position {
	p := NewPosition()
	back := []PieceType{Lance, Knight, Silver, Gold, King, Gold, Silver, Knight, Lance}
	for i, pt := range back {
		file := 9 - i
		p.set(Square{file, 1}, Piece{White, pt})
		p.set(Square{file, 9}, Piece{Black, pt})
	}
	p.set(Square{8, 2}, Piece{White, Rook})
	p.set(Square{2, 2}, Piece{White, Bishop})
	p.set(Square{8, 8}, Piece{Black, Bishop})
	p.set(Square{2, 8}, Piece{Black, Rook})
	for file := 1; file <= 9; file++ {
		p.set(Square{file, 3}, Piece{White, Pawn})
		p.set(Square{file, 7}, Piece{Black, Pawn})
	}
	return p
}

// Color returns the side to move.
func (p *Position) Color() Color {
	return p.color
}

// SetColor sets the side to move.
func (p *Position) SetColor(c Color) {
	p.color = c
}

// PieceAt returns the piece on the square, or the empty piece.
func (p *Position) PieceAt(s Square) Piece {
	if !s.IsValid() {
		return Piece{}
	}
	return p.board[s.index()]
}

// HandCount returns how many pieces of the kind the color holds.
func (p *Position) HandCount(c Color, pt PieceType) int {
	return p.hands[c][pt]
}

func (p *Position) set(s Square, piece Piece) {
	p.board[s.index()] = piece
}

// Clone returns a deep copy of the position.
func (p *Position) Clone() *Position {
	c := NewPosition()
	c.board = p.board
	c.color = p.color
	for color, hand := range p.hands {
		for pt, n := range hand {
			c.hands[color][pt] = n
		}
	}
	return c
}

// ApplyMove plays the move. Only the bookkeeping needed to keep the board
// consistent is checked: the origin must hold the moving piece and the hand
// must hold the dropped one.
func (p *Position) ApplyMove(m Move) error {
	if !m.To.IsValid() {
		return fmt.Errorf("%w: destination %s", ErrInvalidMove, m.To.CSA())
	}

	if m.IsDrop() {
		if p.hands[m.Color][m.PieceType] == 0 {
			return fmt.Errorf("%w: no %s in hand", ErrInvalidMove, m.PieceType.CSA())
		}
		p.hands[m.Color][m.PieceType]--
	} else {
		from := p.PieceAt(m.From)
		if from.Color != m.Color || from.Type != m.PieceType {
			return fmt.Errorf("%w: %s does not hold %s", ErrInvalidMove, m.From.CSA(), m.PieceType.CSA())
		}
		p.set(m.From, Piece{})
	}

	if captured := p.PieceAt(m.To); !captured.IsEmpty() {
		if captured.Type != King {
			p.hands[m.Color][captured.Type.Unpromoted()]++
		}
	}
	p.set(m.To, Piece{m.Color, m.PieceTypeAfter()})
	p.color = m.Color.Opp()
	return nil
}

// SFEN renders the position in SFEN with the given move number.
func (p *Position) SFEN(moveNumber int) string {
	var sb strings.Builder
	for rank := 1; rank <= 9; rank++ {
		empty := 0
		for file := 9; file >= 1; file-- {
			piece := p.PieceAt(Square{file, rank})
			if piece.IsEmpty() {
				empty++
				continue
			}
			if empty > 0 {
				sb.WriteString(strconv.Itoa(empty))
				empty = 0
			}
			sb.WriteString(piece.SFEN())
		}
		if empty > 0 {
			sb.WriteString(strconv.Itoa(empty))
		}
		if rank < 9 {
			sb.WriteByte('/')
		}
	}

	if p.color == Black {
		sb.WriteString(" b ")
	} else {
		sb.WriteString(" w ")
	}

	hand := ""
	for _, c := range []Color{Black, White} {
		for _, pt := range handPieceTypes {
			n := p.hands[c][pt]
			if n == 0 {
				continue
			}
			if n > 1 {
				hand += strconv.Itoa(n)
			}
			hand += Piece{c, pt}.SFEN()
		}
	}
	if hand == "" {
		hand = "-"
	}
	sb.WriteString(hand)
	sb.WriteString(" ")
	sb.WriteString(strconv.Itoa(moveNumber))
	return sb.String()
}
