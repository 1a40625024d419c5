package shogi

import "strings"

// PieceType is the kind of a piece, promoted kinds included
type PieceType int

// All piece kinds
const (
	NoPiece PieceType = iota
	Pawn
	Lance
	Knight
	Silver
	Gold
	Bishop
	Rook
	King
	PromPawn
	PromLance
	PromKnight
	PromSilver
	Horse
	Dragon
)

var csaCodes = map[PieceType]string{
	Pawn:       "FU",
	Lance:      "KY",
	Knight:     "KE",
	Silver:     "GI",
	Gold:       "KI",
	Bishop:     "KA",
	Rook:       "HI",
	King:       "OU",
	PromPawn:   "TO",
	PromLance:  "NY",
	PromKnight: "NK",
	PromSilver: "NG",
	Horse:      "UM",
	Dragon:     "RY",
}

var csaPieceTypes = func() map[string]PieceType {
	m := make(map[string]PieceType, len(csaCodes))
	for pt, code := range csaCodes {
		m[code] = pt
	}
	return m
}()

var sfenLetters = map[PieceType]string{
	Pawn:       "P",
	Lance:      "L",
	Knight:     "N",
	Silver:     "S",
	Gold:       "G",
	Bishop:     "B",
	Rook:       "R",
	King:       "K",
	PromPawn:   "+P",
	PromLance:  "+L",
	PromKnight: "+N",
	PromSilver: "+S",
	Horse:      "+B",
	Dragon:     "+R",
}

// handPieceTypes lists the kinds that can be held in hand, in SFEN order.
var handPieceTypes = []PieceType{Rook, Bishop, Gold, Silver, Knight, Lance, Pawn}

// CSA returns the two letter CSA code of the piece type.
func (pt PieceType) CSA() string {
	return csaCodes[pt]
}

// SFEN returns the uppercase SFEN letter of the piece type.
func (pt PieceType) SFEN() string {
	return sfenLetters[pt]
}

// PieceTypeFromCSA parses a two letter CSA piece code.
func PieceTypeFromCSA(code string) (PieceType, bool) {
	pt, ok := csaPieceTypes[code]
	return pt, ok
}

// PieceTypeFromSFEN parses an uppercase or lowercase SFEN piece letter
// without the promotion prefix.
func PieceTypeFromSFEN(letter string) (PieceType, bool) {
	upper := strings.ToUpper(letter)
	for _, pt := range handPieceTypes {
		if sfenLetters[pt] == upper {
			return pt, true
		}
	}
	if upper == "K" {
		return King, true
	}
	return NoPiece, false
}

// Promotable reports whether the piece type can promote.
func (pt PieceType) Promotable() bool {
	switch pt {
	case Pawn, Lance, Knight, Silver, Bishop, Rook:
		return true
	}
	return false
}

// Promoted returns the promoted kind, or pt itself when it cannot promote.
func (pt PieceType) Promoted() PieceType {
	switch pt {
	case Pawn:
		return PromPawn
	case Lance:
		return PromLance
	case Knight:
		return PromKnight
	case Silver:
		return PromSilver
	case Bishop:
		return Horse
	case Rook:
		return Dragon
	}
	return pt
}

// Unpromoted returns the base kind of a promoted piece.
func (pt PieceType) Unpromoted() PieceType {
	switch pt {
	case PromPawn:
		return Pawn
	case PromLance:
		return Lance
	case PromKnight:
		return Knight
	case PromSilver:
		return Silver
	case Horse:
		return Bishop
	case Dragon:
		return Rook
	}
	return pt
}

// Piece is a piece owned by a color
type Piece struct {
	Color Color
	Type  PieceType
}

// IsEmpty reports whether the square holding the piece is empty.
func (p Piece) IsEmpty() bool {
	return p.Type == NoPiece
}

// SFEN returns the piece in SFEN notation, lowercase for white.
func (p Piece) SFEN() string {
	s := p.Type.SFEN()
	if p.Color == White {
		return strings.ToLower(s)
	}
	return s
}
